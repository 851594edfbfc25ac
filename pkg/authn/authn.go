// Package authn defines the pluggable authentication contract. Exactly one
// Authenticator variant is active per deployment, selected at startup:
// disabled, store, directory, or federated (subpackages).
//
// Expected failures (bad credential, bind rejected) are reported as an
// unsuccessful Decision, never as an error. Errors are reserved for
// infrastructure faults (store or directory unreachable) so the boundary
// can distinguish 401 from 500.
package authn

import (
	"context"
	"errors"

	"github.com/wardenauth/warden/pkg/api"
)

// Decision is the outcome of an authentication attempt.
type Decision struct {
	Success bool
	Profile *api.Profile // populated only when Success is true
	Details string
}

// Authenticator turns a decoded credential claim into an authentication
// decision plus resolved identity.
type Authenticator interface {
	// ByPassword verifies a username/secret pair.
	ByPassword(ctx context.Context, username, secret string) (Decision, error)

	// ByCertificate verifies a certificate-subject claim.
	ByCertificate(ctx context.Context, subject string) (Decision, error)
}

// ErrUnsupportedFlow is returned by variants that do not implement a given
// credential flow. Distinguishable from both bad credentials and
// infrastructure faults at the boundary.
var ErrUnsupportedFlow = errors.New("authentication flow not supported by this provider")

// Deny returns an unsuccessful Decision with the given detail.
func Deny(details string) Decision {
	return Decision{Details: details}
}
