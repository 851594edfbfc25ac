// Package keys manages the opaque API key bound one-to-one to an identity:
// issuance, rotation, lookup, validation, and revocation.
package keys

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/wardenauth/warden/pkg/audit"
	"github.com/wardenauth/warden/pkg/storage"
)

// Registry issues and tracks API keys through the identity store. At any
// instant there is at most one live key per username, and each live token
// maps back to exactly one username.
type Registry struct {
	store storage.IdentityStore
	audit *audit.Logger
}

// NewRegistry creates a key registry over the given store.
func NewRegistry(st storage.IdentityStore, aud *audit.Logger) *Registry {
	return &Registry{store: st, audit: aud}
}

// Issue generates a fresh token for username. An existing key is rotated:
// after Issue returns, the previous token no longer validates.
func (r *Registry) Issue(ctx context.Context, username string) (string, error) {
	token := uuid.NewString()
	if err := r.store.UpsertKey(ctx, username, token); err != nil {
		return "", fmt.Errorf("issuing key for %q: %w", username, err)
	}
	r.audit.Record(ctx, username, "generateApiKey", "")
	return token, nil
}

// OwnerOf returns the username that owns token, or storage.ErrNotFound.
func (r *Registry) OwnerOf(ctx context.Context, token string) (string, error) {
	return r.store.UsernameByKey(ctx, token)
}

// KeyFor returns the live token for username, or storage.ErrNotFound.
// It never issues a key.
func (r *Registry) KeyFor(ctx context.Context, username string) (string, error) {
	return r.store.KeyByUsername(ctx, username)
}

// Revoke resolves and logs the owning username, then removes the mapping.
// Revoking a nonexistent token is a no-op.
func (r *Registry) Revoke(ctx context.Context, token string) error {
	username, err := r.store.UsernameByKey(ctx, token)
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("resolving key owner: %w", err)
	}

	if err := r.store.DeleteKey(ctx, token); err != nil {
		return fmt.Errorf("revoking key for %q: %w", username, err)
	}
	r.audit.Record(ctx, username, "deleteApiKey", "")
	return nil
}

// Validate reports whether token exists. It does not guarantee the owning
// profile still exists; authorization fails closed on that separately.
func (r *Registry) Validate(ctx context.Context, token string) (bool, error) {
	_, err := r.store.UsernameByKey(ctx, token)
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("validating key: %w", err)
	}
	return true, nil
}
