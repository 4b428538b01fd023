package licensing

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loglens/loglens/internal/pkg/entitlements"
)

type fakeSubStore struct {
	byUser map[string]*SubscriptionRecord
	err    error
}

func (f *fakeSubStore) BestSubscriptionByUser(userID string) (*SubscriptionRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.byUser[userID], nil
}

type fakeTrialStore struct {
	byUser         map[string]*TrialLicense
	byInstallation map[string]*TrialLicense
}

func (f *fakeTrialStore) TrialByUser(userID string) (*TrialLicense, error) {
	return f.byUser[userID], nil
}

func (f *fakeTrialStore) TrialByInstallation(installationID string) (*TrialLicense, error) {
	return f.byInstallation[installationID], nil
}

func newTestResolver() (*Resolver, *fakeSubStore, *fakeTrialStore) {
	subs := &fakeSubStore{byUser: map[string]*SubscriptionRecord{}}
	trials := &fakeTrialStore{
		byUser:         map[string]*TrialLicense{},
		byInstallation: map[string]*TrialLicense{},
	}
	return NewResolver(subs, trials), subs, trials
}

func TestResolvePaidSubscriptionWinsOverTrials(t *testing.T) {
	r, subs, trials := newTestResolver()

	periodEnd := time.Now().Add(30 * 24 * time.Hour)
	subs.byUser["u1"] = &SubscriptionRecord{
		Plan:             entitlements.PlanProEarly,
		Status:           "active",
		CurrentPeriodEnd: &periodEnd,
	}
	trials.byUser["u1"] = &TrialLicense{ExpiresAt: time.Now().Add(24 * time.Hour)}
	trials.byInstallation["inst-1"] = &TrialLicense{ExpiresAt: time.Now().Add(24 * time.Hour), UserID: "u1"}

	res, err := r.Resolve(Identity{UserID: "u1", InstallationID: "inst-1"})
	require.NoError(t, err)
	assert.Equal(t, entitlements.PlanProEarly, res.Plan)
	assert.Equal(t, &periodEnd, res.PlanEndsAt)
	assert.False(t, res.RequiresAuth)
	assert.False(t, res.CanExtendTrial)
	assert.Equal(t, entitlements.GetEntitlements(entitlements.PlanProEarly), res.Limits)
}

func TestResolveCanceledSubscriptionFallsThrough(t *testing.T) {
	r, subs, trials := newTestResolver()

	subs.byUser["u1"] = &SubscriptionRecord{Plan: entitlements.PlanPro, Status: "canceled"}
	trials.byUser["u1"] = &TrialLicense{ExpiresAt: time.Now().Add(3 * 24 * time.Hour)}

	res, err := r.Resolve(Identity{UserID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, entitlements.PlanTrial, res.Plan)
	assert.Equal(t, 3, res.DaysRemaining)
	assert.False(t, res.RequiresAuth)
}

func TestResolveInstallationTrial(t *testing.T) {
	r, _, trials := newTestResolver()

	trials.byInstallation["inst-1"] = &TrialLicense{
		InstallationID: "inst-1",
		ExpiresAt:      time.Now().Add(48 * time.Hour),
	}

	res, err := r.Resolve(Identity{InstallationID: "inst-1"})
	require.NoError(t, err)
	assert.Equal(t, entitlements.PlanTrial, res.Plan)
	assert.True(t, res.CanExtendTrial, "unextended running trial should be extensible")
	assert.True(t, res.RequiresAuth, "trial without user link should prompt account linking")
	assert.Equal(t, 2, res.DaysRemaining)
}

func TestResolveLinkedInstallationTrialDoesNotRequireAuth(t *testing.T) {
	r, _, trials := newTestResolver()

	trials.byInstallation["inst-1"] = &TrialLicense{
		InstallationID: "inst-1",
		ExpiresAt:      time.Now().Add(time.Hour),
		Extended:       true,
		UserID:         "u1",
	}

	res, err := r.Resolve(Identity{InstallationID: "inst-1"})
	require.NoError(t, err)
	assert.Equal(t, entitlements.PlanTrial, res.Plan)
	assert.False(t, res.CanExtendTrial)
	assert.False(t, res.RequiresAuth)
}

func TestResolveExpiredTrialFallsBackToFree(t *testing.T) {
	r, _, trials := newTestResolver()

	trials.byInstallation["inst-1"] = &TrialLicense{
		InstallationID: "inst-1",
		ExpiresAt:      time.Now().Add(-time.Hour),
	}

	res, err := r.Resolve(Identity{InstallationID: "inst-1", BrowserID: "b-9"})
	require.NoError(t, err)
	assert.Equal(t, entitlements.PlanFree, res.Plan)
	assert.Nil(t, res.PlanEndsAt)
	assert.True(t, res.RequiresAuth)
}

func TestResolveAnonymous(t *testing.T) {
	r, _, _ := newTestResolver()

	res, err := r.Resolve(Identity{})
	require.NoError(t, err)
	assert.Equal(t, entitlements.PlanFree, res.Plan)
	assert.True(t, res.RequiresAuth)
	assert.Equal(t, entitlements.GetEntitlements(entitlements.PlanFree), res.Limits)
}

func TestResolvePropagatesStoreErrors(t *testing.T) {
	r, subs, _ := newTestResolver()
	subs.err = errors.New("connection refused")

	_, err := r.Resolve(Identity{UserID: "u1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "subscription lookup")
}

func TestIsEntitlingStatus(t *testing.T) {
	for _, status := range []string{"active", "trialing", "past_due", " ACTIVE "} {
		assert.True(t, IsEntitlingStatus(status), status)
	}
	for _, status := range []string{"canceled", "incomplete", "expired", ""} {
		assert.False(t, IsEntitlingStatus(status), status)
	}
}
