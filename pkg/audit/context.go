package audit

import "context"

// actorKey is a private type for the actor context key.
type actorKey struct{}

// SetActor stores the resolved acting username in the context so that
// downstream middleware can include it in access records.
func SetActor(ctx context.Context, username string) context.Context {
	return context.WithValue(ctx, actorKey{}, username)
}

// ActorFromContext retrieves the resolved actor.
// Returns an empty string if no actor has been resolved.
func ActorFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(actorKey{}).(string); ok {
		return v
	}
	return ""
}
