package security

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loglens/loglens/internal/pkg/entitlements"
	"github.com/loglens/loglens/internal/pkg/licensing"
)

const testSecret = "test-signing-secret"

func TestLicenseTokenRoundTrip(t *testing.T) {
	payload := licensing.GeneratePayload(licensing.PayloadInput{
		UserID: "u1",
		Email:  "u1@example.com",
		Plan:   entitlements.PlanPro,
	})

	token, err := SignLicenseToken(payload, testSecret)
	require.NoError(t, err)
	assert.Equal(t, 2, len(strings.Split(token, ".")))

	decoded, err := VerifyLicenseToken(token, testSecret)
	require.NoError(t, err)
	assert.Equal(t, payload, *decoded)
}

func TestLicenseTokenTamperDetection(t *testing.T) {
	payload := licensing.GeneratePayload(licensing.PayloadInput{UserID: "u1", Plan: entitlements.PlanPro})
	token, err := SignLicenseToken(payload, testSecret)
	require.NoError(t, err)

	// Wrong secret.
	_, err = VerifyLicenseToken(token, "other-secret")
	assert.ErrorIs(t, err, ErrInvalidSignature)

	// Flipped payload byte.
	parts := strings.SplitN(token, ".", 2)
	tampered := "A" + parts[0][1:] + "." + parts[1]
	_, err = VerifyLicenseToken(tampered, testSecret)
	assert.Error(t, err)

	// Garbage.
	_, err = VerifyLicenseToken("not-a-token", testSecret)
	assert.ErrorIs(t, err, ErrInvalidFormat)
}

func TestSignRequiresSecret(t *testing.T) {
	_, err := SignLicenseToken(licensing.LicensePayload{}, "")
	assert.ErrorIs(t, err, ErrMissingSecret)

	_, err = SignTrialToken("inst-1", "tok", time.Now(), "")
	assert.ErrorIs(t, err, ErrMissingSecret)
}

func TestTrialTokenRoundTrip(t *testing.T) {
	expiry := time.Now().Add(licensing.TrialDuration)
	token, err := SignTrialToken("abc123xyz9", "tok-1", expiry, testSecret)
	require.NoError(t, err)

	claims, err := VerifyTrialToken(token, testSecret)
	require.NoError(t, err)
	assert.Equal(t, "abc123xyz9", claims.InstallationID)
	assert.Equal(t, "tok-1", claims.TokenID)
	assert.Equal(t, "trial", claims.Plan)
	assert.Equal(t, expiry.Unix(), claims.ExpiresAt)
}

func TestSignTrialTokenDeterministic(t *testing.T) {
	expiry := time.Unix(1893456000, 0)

	a, err := SignTrialToken("abc123xyz9", "tok-1", expiry, testSecret)
	require.NoError(t, err)
	b, err := SignTrialToken("abc123xyz9", "tok-1", expiry, testSecret)
	require.NoError(t, err)

	// Re-activation hands back the stored trial's claims, so identical
	// claims must produce the identical token string.
	assert.Equal(t, a, b)

	c, err := SignTrialToken("abc123xyz9", "tok-2", expiry, testSecret)
	require.NoError(t, err)
	assert.NotEqual(t, a, c)
}

func TestTrialTokenExpiry(t *testing.T) {
	token, err := SignTrialToken("abc123xyz9", "tok-1", time.Now().Add(-time.Minute), testSecret)
	require.NoError(t, err)

	_, err = VerifyTrialToken(token, testSecret)
	assert.EqualError(t, err, "token expired")
}

func TestTrialVerifierRejectsLicenseTokens(t *testing.T) {
	payload := licensing.GeneratePayload(licensing.PayloadInput{UserID: "u1", Plan: entitlements.PlanPro})
	token, err := SignLicenseToken(payload, testSecret)
	require.NoError(t, err)

	_, err = VerifyTrialToken(token, testSecret)
	assert.EqualError(t, err, "not a trial token")
}
