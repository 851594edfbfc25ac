package authz

import (
	"context"
	"fmt"

	"github.com/wardenauth/warden/pkg/api"
	"github.com/wardenauth/warden/pkg/observability"
	"github.com/wardenauth/warden/pkg/storage"
)

// ThrottleConfig maps actions to quota categories and categories to limits.
type ThrottleConfig struct {
	// Limits is the per-category quota. Categories without an entry are
	// unlimited and consume no quota.
	Limits map[string]int

	// Categories maps an action to its quota category. Unmapped actions
	// use the action name itself as the category.
	Categories map[string]string
}

// ThrottleAuthorizer enforces per-user cumulative quotas per action
// category. An absent counter record is treated as zero and materializes
// on first use. Passing decisions for a limited category are followed by
// exactly one atomic increment at the store.
type ThrottleAuthorizer struct {
	store  storage.IdentityStore
	config ThrottleConfig
}

// NewThrottleAuthorizer creates a throttle authorizer over the given store.
func NewThrottleAuthorizer(st storage.IdentityStore, cfg ThrottleConfig) *ThrottleAuthorizer {
	return &ThrottleAuthorizer{store: st, config: cfg}
}

// Name identifies the authorizer in fault messages.
func (t *ThrottleAuthorizer) Name() string { return "throttle" }

// Authorize passes iff the user's count for the action's category is below
// the configured limit, then consumes one unit of quota.
func (t *ThrottleAuthorizer) Authorize(ctx context.Context, profile *api.Profile, action string) (Verdict, error) {
	category := t.categoryFor(action)

	limit, limited := t.config.Limits[category]
	if !limited {
		return Allow, nil
	}

	count, err := t.store.ThrottleCount(ctx, profile.Username, category)
	if err != nil {
		return Verdict{}, fmt.Errorf("reading throttle for %q: %w", profile.Username, err)
	}
	if count >= limit {
		observability.ThrottleRejectedTotal.WithLabelValues(category).Inc()
		return Deny(fmt.Sprintf("%s: %d of %d invocations used for %q",
			ReasonQuotaExceeded, count, limit, category)), nil
	}

	if err := t.store.IncrementThrottle(ctx, profile.Username, category); err != nil {
		return Verdict{}, fmt.Errorf("incrementing throttle for %q: %w", profile.Username, err)
	}
	return Allow, nil
}

// categoryFor maps an action to its quota category.
func (t *ThrottleAuthorizer) categoryFor(action string) string {
	if category, ok := t.config.Categories[action]; ok {
		return category
	}
	return action
}
