// Package disabled provides the authenticator used when authentication is
// delegated upstream by deployment topology. It never grants access: any
// decision it is asked to make fails closed.
package disabled

import (
	"context"

	"github.com/wardenauth/warden/pkg/authn"
)

// Authenticator rejects every authentication request.
type Authenticator struct{}

// New creates a disabled authenticator.
func New() *Authenticator {
	return &Authenticator{}
}

// ByPassword always fails closed.
func (a *Authenticator) ByPassword(_ context.Context, _, _ string) (authn.Decision, error) {
	return authn.Deny("authentication is disabled for this deployment"), nil
}

// ByCertificate always fails closed.
func (a *Authenticator) ByCertificate(_ context.Context, _ string) (authn.Decision, error) {
	return authn.Deny("authentication is disabled for this deployment"), nil
}
