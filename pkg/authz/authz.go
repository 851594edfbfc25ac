// Package authz resolves a request's effective identity and runs an ordered
// chain of authorizers over it. Resolution and every authorizer are
// fail-closed: the chain stops at the first failure, and overall success
// requires every authorizer to pass.
package authz

import (
	"context"
	"errors"
	"fmt"

	"github.com/wardenauth/warden/pkg/api"
	"github.com/wardenauth/warden/pkg/audit"
	"github.com/wardenauth/warden/pkg/keys"
	"github.com/wardenauth/warden/pkg/storage"
)

// Machine-readable failure reasons.
const (
	ReasonIncompleteRequest = "incomplete request"
	ReasonInvalidKey        = "invalid api key"
	ReasonIdentityMismatch  = "identity mismatch"
	ReasonProfileNotFound   = "profile not found"
	ReasonPolicyDenied      = "policy denied"
	ReasonQuotaExceeded     = "quota exceeded"
)

// Result is the outcome of an authorization check. Success carries the
// resolved profile; failure carries a reason and no profile.
type Result struct {
	Authorized bool
	Profile    *api.Profile
	Reason     string
}

// Verdict is a single authorizer's pass/fail decision.
type Verdict struct {
	Allowed bool
	Reason  string
}

// Allow is the passing verdict.
var Allow = Verdict{Allowed: true}

// Deny returns a failing verdict with the given reason.
func Deny(reason string) Verdict {
	return Verdict{Reason: reason}
}

// Authorizer is a policy check over a resolved identity and a requested
// action. Errors are infrastructure faults, not denials.
type Authorizer interface {
	Name() string
	Authorize(ctx context.Context, profile *api.Profile, action string) (Verdict, error)
}

// Chain resolves the request identity and evaluates authorizers in order.
type Chain struct {
	store       storage.IdentityStore
	registry    *keys.Registry
	authorizers []Authorizer
	audit       *audit.Logger
}

// NewChain creates a chain. Authorizers run strictly in the given order.
func NewChain(st storage.IdentityStore, reg *keys.Registry, aud *audit.Logger, authorizers ...Authorizer) *Chain {
	return &Chain{store: st, registry: reg, authorizers: authorizers, audit: aud}
}

// Check resolves the check to exactly one concrete username, loads its
// profile, and runs the authorizers. Identity resolution:
//
//  1. Neither key nor username: incomplete request.
//  2. Key supplied: it must validate; an absent username is derived from
//     the key's owner.
//  3. Both supplied: they must resolve to the same username. A mismatch is
//     a distinct failure, audit-logged as a spoofing signal rather than an
//     ordinary policy denial.
func (c *Chain) Check(ctx context.Context, check api.AuthorizationCheck) (Result, error) {
	c.audit.Record(ctx, check.Username, "authorizationCheckForAction", describe(check))

	username := check.Username

	if check.APIKey == "" && username == "" {
		return c.fail(ctx, "", check, ReasonIncompleteRequest), nil
	}

	if check.APIKey != "" {
		owner, err := c.registry.OwnerOf(ctx, check.APIKey)
		if errors.Is(err, storage.ErrNotFound) {
			return c.fail(ctx, username, check, ReasonInvalidKey), nil
		}
		if err != nil {
			return Result{}, fmt.Errorf("resolving api key: %w", err)
		}

		if username == "" {
			username = owner
		} else if username != owner {
			c.audit.Alert(ctx, username, "identityMismatch",
				fmt.Sprintf("api key owned by %q presented with username %q", owner, username))
			return Result{Reason: ReasonIdentityMismatch}, nil
		}
	}

	profile, err := c.store.FindProfileByUsername(ctx, username)
	if errors.Is(err, storage.ErrNotFound) {
		// A still-valid key whose profile was deleted lands here: fail closed.
		return c.fail(ctx, username, check, ReasonProfileNotFound), nil
	}
	if err != nil {
		return Result{}, fmt.Errorf("loading profile for %q: %w", username, err)
	}

	for _, authorizer := range c.authorizers {
		verdict, err := authorizer.Authorize(ctx, profile, check.Action)
		if err != nil {
			return Result{}, fmt.Errorf("%s authorizer: %w", authorizer.Name(), err)
		}
		if !verdict.Allowed {
			return c.fail(ctx, username, check, verdict.Reason), nil
		}
	}

	c.audit.Record(ctx, username, "authorizationCheckPassed", describe(check))
	return Result{Authorized: true, Profile: profile}, nil
}

// fail audit-logs the denial and builds the failure result.
func (c *Chain) fail(ctx context.Context, actor string, check api.AuthorizationCheck, reason string) Result {
	c.audit.Record(ctx, actor, "authorizationCheckFailed", reason+": "+describe(check))
	return Result{Reason: reason}
}

// describe renders the check for audit detail without exposing the full key.
func describe(check api.AuthorizationCheck) string {
	key := "absent"
	if check.APIKey != "" {
		key = "present"
	}
	return fmt.Sprintf("action=%q username=%q apiKey=%s", check.Action, check.Username, key)
}
