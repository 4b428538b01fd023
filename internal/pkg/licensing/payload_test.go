package licensing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loglens/loglens/internal/pkg/entitlements"
)

func TestGeneratePayloadDefaults(t *testing.T) {
	p := GeneratePayload(PayloadInput{UserID: "u1", Email: "e@example.com", Plan: entitlements.PlanFree})

	assert.Equal(t, "u1", p.Subject)
	assert.Equal(t, entitlements.PlanFree, p.Plan)
	require.NotEmpty(t, p.TokenID)
	assert.Len(t, p.TokenID, 36, "token id should be a UUID")
	assert.Greater(t, p.ExpiresAt, p.IssuedAt)

	wantExp := time.Now().Add(DefaultTokenLifetime).Unix()
	assert.InDelta(t, wantExp, p.ExpiresAt, 2)
}

func TestGeneratePayloadKeepsSuppliedTokenID(t *testing.T) {
	p := GeneratePayload(PayloadInput{UserID: "u1", Plan: entitlements.PlanPro, TokenID: "tok-1"})
	assert.Equal(t, "tok-1", p.TokenID)
}

func TestGeneratePayloadTokenIDsAreUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		p := GeneratePayload(PayloadInput{UserID: "u1", Plan: entitlements.PlanFree})
		require.False(t, seen[p.TokenID], "duplicate token id %s", p.TokenID)
		seen[p.TokenID] = true
	}
}

func TestVerifyPayloadRoundTrip(t *testing.T) {
	p := GeneratePayload(PayloadInput{UserID: "u1", Email: "e", Plan: entitlements.PlanFree})

	res := VerifyPayload(p)
	require.True(t, res.Valid, "freshly generated payload should verify: %+v", res)
	require.NotNil(t, res.Payload)
	assert.Equal(t, "u1", res.Payload.Subject)
}

func TestVerifyPayloadMissingFields(t *testing.T) {
	base := GeneratePayload(PayloadInput{UserID: "u1", Plan: entitlements.PlanFree})

	tests := []struct {
		name   string
		mutate func(*LicensePayload)
	}{
		{"no subject", func(p *LicensePayload) { p.Subject = "" }},
		{"no plan", func(p *LicensePayload) { p.Plan = "" }},
		{"no exp", func(p *LicensePayload) { p.ExpiresAt = 0 }},
		{"no iat", func(p *LicensePayload) { p.IssuedAt = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := base
			tt.mutate(&p)
			res := VerifyPayload(p)
			assert.False(t, res.Valid)
			assert.Equal(t, ReasonMissingFields, res.Reason)
		})
	}
}

func TestVerifyPayloadRejectsTrialPlan(t *testing.T) {
	// Trial tokens are minted and verified through the trial path; the
	// long-lived verifier must not accept them.
	p := GeneratePayload(PayloadInput{UserID: "u1", Plan: entitlements.PlanTrial})
	res := VerifyPayload(p)
	assert.False(t, res.Valid)
	assert.Equal(t, ReasonInvalidPlan, res.Reason)
}

func TestVerifyPayloadTemporalChecks(t *testing.T) {
	now := time.Now()

	expired := GeneratePayload(PayloadInput{UserID: "u1", Plan: entitlements.PlanPro})
	expired.ExpiresAt = now.Add(-time.Minute).Unix()
	res := VerifyPayload(expired)
	assert.Equal(t, ReasonExpired, res.Reason)

	future := GeneratePayload(PayloadInput{UserID: "u1", Plan: entitlements.PlanPro})
	future.IssuedAt = now.Add(5 * time.Minute).Unix()
	res = VerifyPayload(future)
	assert.Equal(t, ReasonNotYetValid, res.Reason)

	// Inside the 60s skew tolerance.
	skewed := GeneratePayload(PayloadInput{UserID: "u1", Plan: entitlements.PlanPro})
	skewed.IssuedAt = now.Add(30 * time.Second).Unix()
	assert.True(t, VerifyPayload(skewed).Valid)
}

func TestShouldRefreshToken(t *testing.T) {
	fresh := GeneratePayload(PayloadInput{UserID: "u1", Plan: entitlements.PlanPro})
	assert.False(t, ShouldRefreshToken(fresh, DefaultRefreshThreshold), "7-day token should not refresh immediately")

	soon := fresh
	soon.ExpiresAt = time.Now().Add(12 * time.Hour).Unix()
	assert.True(t, ShouldRefreshToken(soon, DefaultRefreshThreshold))

	later := fresh
	later.ExpiresAt = time.Now().Add(48 * time.Hour).Unix()
	assert.False(t, ShouldRefreshToken(later, DefaultRefreshThreshold))

	gone := fresh
	gone.ExpiresAt = time.Now().Add(-time.Hour).Unix()
	assert.False(t, ShouldRefreshToken(gone, DefaultRefreshThreshold), "expired tokens fail verification instead")
}
