package licensing

import (
	"fmt"
	"strings"
	"time"

	"github.com/loglens/loglens/internal/pkg/entitlements"
)

// SubscriptionRecord is the snapshot of a paid subscription as seen by the
// resolver. The billing layer owns how it is produced.
type SubscriptionRecord struct {
	Plan             entitlements.Plan
	Status           string
	CurrentPeriodEnd *time.Time
}

// SubscriptionStore looks up paid subscription state. Implementations return
// (nil, nil) when nothing is found.
type SubscriptionStore interface {
	BestSubscriptionByUser(userID string) (*SubscriptionRecord, error)
}

// TrialStore looks up trial state by either identity. Implementations return
// (nil, nil) when nothing is found.
type TrialStore interface {
	TrialByUser(userID string) (*TrialLicense, error)
	TrialByInstallation(installationID string) (*TrialLicense, error)
}

// Identity is what a caller presents when asking for its entitlements. Any
// subset of the fields may be set.
type Identity struct {
	UserID         string `json:"user_id,omitempty"`
	InstallationID string `json:"installation_id,omitempty"`
	BrowserID      string `json:"browser_id,omitempty"`
}

// Resolution is the stable entitlement contract the dashboard and the
// extension both depend on.
type Resolution struct {
	Plan           entitlements.Plan         `json:"plan"`
	PlanEndsAt     *time.Time                `json:"plan_ends_at,omitempty"`
	DaysRemaining  int                       `json:"days_remaining,omitempty"`
	Limits         entitlements.Entitlements `json:"limits"`
	CanExtendTrial bool                      `json:"can_extend_trial"`
	RequiresAuth   bool                      `json:"requires_auth"`
}

// Resolver determines which plan applies to an identity. Sources are checked
// in strict priority order and the first hit wins: paid subscription by
// user, then user trial, then installation trial, then free.
type Resolver struct {
	subs   SubscriptionStore
	trials TrialStore
}

func NewResolver(subs SubscriptionStore, trials TrialStore) *Resolver {
	return &Resolver{subs: subs, trials: trials}
}

// Resolve computes the entitlements for the given identity. RequiresAuth is
// a UX hint for the caller to prompt account linking; it carries no
// enforcement weight.
func (r *Resolver) Resolve(id Identity) (Resolution, error) {
	userID := strings.TrimSpace(id.UserID)
	installationID := strings.TrimSpace(id.InstallationID)

	if userID != "" {
		sub, err := r.subs.BestSubscriptionByUser(userID)
		if err != nil {
			return Resolution{}, fmt.Errorf("subscription lookup for user %s: %w", userID, err)
		}
		if sub != nil && IsEntitlingStatus(sub.Status) && entitlements.IsPaid(sub.Plan) {
			return Resolution{
				Plan:       sub.Plan,
				PlanEndsAt: sub.CurrentPeriodEnd,
				Limits:     entitlements.GetEntitlements(sub.Plan),
			}, nil
		}

		trial, err := r.trials.TrialByUser(userID)
		if err != nil {
			return Resolution{}, fmt.Errorf("trial lookup for user %s: %w", userID, err)
		}
		if trial != nil && IsTrialValid(*trial) {
			endsAt := trial.ExpiresAt
			return Resolution{
				Plan:          entitlements.PlanTrial,
				PlanEndsAt:    &endsAt,
				DaysRemaining: TrialDaysRemaining(*trial),
				Limits:        entitlements.GetEntitlements(entitlements.PlanTrial),
			}, nil
		}
	}

	if installationID != "" {
		trial, err := r.trials.TrialByInstallation(installationID)
		if err != nil {
			return Resolution{}, fmt.Errorf("trial lookup for installation %s: %w", installationID, err)
		}
		if trial != nil && IsTrialValid(*trial) {
			endsAt := trial.ExpiresAt
			return Resolution{
				Plan:           entitlements.PlanTrial,
				PlanEndsAt:     &endsAt,
				DaysRemaining:  TrialDaysRemaining(*trial),
				Limits:         entitlements.GetEntitlements(entitlements.PlanTrial),
				CanExtendTrial: CanExtendTrial(trial).Allowed,
				RequiresAuth:   trial.UserID == "",
			}, nil
		}
	}

	return Resolution{
		Plan:         entitlements.PlanFree,
		Limits:       entitlements.GetEntitlements(entitlements.PlanFree),
		RequiresAuth: true,
	}, nil
}

// IsEntitlingStatus reports whether a subscription status still grants
// access. Past-due keeps access during the payment retry window.
func IsEntitlingStatus(status string) bool {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "active", "trialing", "past_due":
		return true
	default:
		return false
	}
}
