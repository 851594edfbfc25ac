package authz

import (
	"context"

	"github.com/wardenauth/warden/pkg/api"
)

// EndpointAuthorizer is a pure function of an immutable action→allowed-roles
// table and the resolved profile's role set. It passes iff the intersection
// is non-empty. Actions absent from the table are denied.
type EndpointAuthorizer struct {
	policy map[string][]string
}

// NewEndpointAuthorizer builds an authorizer from the policy table. The
// table is copied; later mutation of the argument has no effect.
func NewEndpointAuthorizer(policy map[string][]string) *EndpointAuthorizer {
	copied := make(map[string][]string, len(policy))
	for action, roles := range policy {
		copied[action] = append([]string(nil), roles...)
	}
	return &EndpointAuthorizer{policy: copied}
}

// Name identifies the authorizer in fault messages.
func (e *EndpointAuthorizer) Name() string { return "endpoint" }

// Authorize passes iff the profile holds at least one role the action allows.
func (e *EndpointAuthorizer) Authorize(_ context.Context, profile *api.Profile, action string) (Verdict, error) {
	for _, role := range e.policy[action] {
		if profile.HasRole(role) {
			return Allow, nil
		}
	}
	return Deny(ReasonPolicyDenied), nil
}
