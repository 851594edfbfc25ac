// Package store provides the store-backed password authenticator. It loads
// the profile by username and verifies the secret against the stored bcrypt
// hash. The certificate flow is not supported.
package store

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/wardenauth/warden/pkg/audit"
	"github.com/wardenauth/warden/pkg/authn"
	"github.com/wardenauth/warden/pkg/storage"
)

// Authenticator verifies password credentials against the identity store.
type Authenticator struct {
	store storage.IdentityStore
	audit *audit.Logger
}

// New creates a store-backed authenticator.
func New(st storage.IdentityStore, aud *audit.Logger) *Authenticator {
	return &Authenticator{store: st, audit: aud}
}

// ByPassword loads the profile and compares the bcrypt hash. An unknown
// username or a non-matching secret is a denial, not an error; only a store
// fault propagates as an error.
func (a *Authenticator) ByPassword(ctx context.Context, username, secret string) (authn.Decision, error) {
	a.audit.Record(ctx, username, "loginAttempt", "store credential check")

	profile, err := a.store.FindProfileByUsername(ctx, username)
	if errors.Is(err, storage.ErrNotFound) {
		a.audit.Record(ctx, username, "userFailedAuthentication", "unknown user")
		return authn.Deny("invalid username or credential"), nil
	}
	if err != nil {
		return authn.Decision{}, fmt.Errorf("loading profile for %q: %w", username, err)
	}

	if bcrypt.CompareHashAndPassword([]byte(profile.Credential), []byte(secret)) != nil {
		a.audit.Record(ctx, username, "userFailedAuthentication", "credential mismatch")
		return authn.Deny("invalid username or credential"), nil
	}

	a.audit.Record(ctx, username, "userLoggedIn", "")
	return authn.Decision{Success: true, Profile: profile}, nil
}

// ByCertificate is not supported by the store-backed variant.
func (a *Authenticator) ByCertificate(_ context.Context, _ string) (authn.Decision, error) {
	return authn.Decision{}, authn.ErrUnsupportedFlow
}
