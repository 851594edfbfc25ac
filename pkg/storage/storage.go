package storage

import (
	"context"

	"github.com/wardenauth/warden/pkg/api"
)

// IdentityStore is the durable backing store for profiles, API keys, and
// throttle counters. Implementations must be safe for concurrent use.
type IdentityStore interface {
	// FindProfileByUsername returns the profile for the given username,
	// or ErrNotFound.
	FindProfileByUsername(ctx context.Context, username string) (*api.Profile, error)

	// FindProfileByKey resolves the key's owner and returns their profile.
	// Returns ErrNotFound if the key does not exist or the owning profile
	// has been deleted.
	FindProfileByKey(ctx context.Context, token string) (*api.Profile, error)

	// InsertProfile creates a new profile. Insert-if-absent: returns
	// ErrConflict when the username already exists.
	InsertProfile(ctx context.Context, profile *api.Profile) error

	// UpdateProfile replaces the stored profile for profile.Username.
	// Returns ErrNotFound when no such profile exists.
	UpdateProfile(ctx context.Context, profile *api.Profile) error

	// DeleteProfile removes the profile for the given username, or returns
	// ErrNotFound when no such profile exists. The user's API key mapping,
	// if any, is left in place; a dangling key fails closed at
	// authorization time.
	DeleteProfile(ctx context.Context, username string) error

	// UpsertKey binds token to username, replacing any previous token for
	// that username. Postcondition: exactly one live key per username.
	UpsertKey(ctx context.Context, username, token string) error

	// KeyByUsername returns the live token for username, or ErrNotFound.
	KeyByUsername(ctx context.Context, username string) (string, error)

	// UsernameByKey returns the owner of token, or ErrNotFound.
	UsernameByKey(ctx context.Context, token string) (string, error)

	// DeleteKey removes the mapping for token. Deleting a nonexistent
	// token is a no-op.
	DeleteKey(ctx context.Context, token string) error

	// ThrottleCount returns the cumulative invocation count for the
	// username and action category. An absent record counts as zero.
	ThrottleCount(ctx context.Context, username, category string) (int, error)

	// IncrementThrottle adds exactly one to the count for username and
	// category, materializing the record on first use. The increment is
	// atomic at the store: N concurrent calls yield a final count of N.
	IncrementThrottle(ctx context.Context, username, category string) error

	// ClearThrottles resets all throttle counters to zero.
	ClearThrottles(ctx context.Context) error

	// HealthCheck verifies the store is reachable.
	HealthCheck(ctx context.Context) error

	// Close releases underlying resources.
	Close() error
}
