package licensing

import (
	"time"

	"github.com/google/uuid"

	"github.com/loglens/loglens/internal/pkg/entitlements"
)

const (
	// DefaultTokenLifetime is the lifetime of a signed license token.
	DefaultTokenLifetime = 7 * 24 * time.Hour

	// DefaultRefreshThreshold is the window before expiry in which callers
	// should proactively rotate a token instead of letting it expire.
	DefaultRefreshThreshold = 24 * time.Hour

	// clockSkewTolerance is how far in the future an iat claim may sit
	// before the token is treated as not yet valid.
	clockSkewTolerance = 60 * time.Second
)

// LicensePayload is the claims object carried inside a signed license token.
// Subject is either a user ID (registered accounts) or an installation ID
// (anonymous trials). TokenID doubles as display ID and revocation key.
type LicensePayload struct {
	Subject   string            `json:"sub"`
	Plan      entitlements.Plan `json:"plan"`
	Email     string            `json:"email,omitempty"`
	TokenID   string            `json:"token_id"`
	IssuedAt  int64             `json:"iat"`
	ExpiresAt int64             `json:"exp"`
}

// PayloadInput carries the caller-supplied fields for GeneratePayload.
type PayloadInput struct {
	UserID    string
	Email     string
	Plan      entitlements.Plan
	TokenID   string
	ExpiresIn time.Duration
}

// VerifyResult is the outcome of payload verification.
type VerifyResult struct {
	Valid   bool
	Reason  string
	Payload *LicensePayload
}

// Verification failure reasons.
const (
	ReasonMissingFields = "missing_fields"
	ReasonInvalidPlan   = "invalid_plan"
	ReasonNotYetValid   = "not_yet_valid"
	ReasonExpired       = "expired"
)

// GeneratePayload builds the claims for a new license token. A token ID is
// generated when the caller does not supply one; it must be unpredictable
// because it also serves as the revocation key.
func GeneratePayload(in PayloadInput) LicensePayload {
	now := time.Now()
	lifetime := in.ExpiresIn
	if lifetime <= 0 {
		lifetime = DefaultTokenLifetime
	}
	tokenID := in.TokenID
	if tokenID == "" {
		tokenID = uuid.NewString()
	}
	return LicensePayload{
		Subject:   in.UserID,
		Plan:      in.Plan,
		Email:     in.Email,
		TokenID:   tokenID,
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(lifetime).Unix(),
	}
}

// VerifyPayload checks a decoded payload for structural and temporal
// validity. Signature verification happens before this in the security
// package; revocation checks happen after it.
//
// Trial is deliberately not accepted here: trial access is minted through
// the trial activation path with its own claim shape and expiry handling,
// so a long-lived token claiming plan "trial" is always rejected.
func VerifyPayload(p LicensePayload) VerifyResult {
	if p.Subject == "" || p.Plan == "" || p.ExpiresAt == 0 || p.IssuedAt == 0 {
		return VerifyResult{Reason: ReasonMissingFields}
	}

	switch p.Plan {
	case entitlements.PlanFree, entitlements.PlanPro, entitlements.PlanProEarly:
	default:
		return VerifyResult{Reason: ReasonInvalidPlan}
	}

	now := time.Now()
	if p.IssuedAt > now.Add(clockSkewTolerance).Unix() {
		return VerifyResult{Reason: ReasonNotYetValid}
	}
	if p.ExpiresAt < now.Unix() {
		return VerifyResult{Reason: ReasonExpired}
	}

	return VerifyResult{Valid: true, Payload: &p}
}

// ShouldRefreshToken reports whether a valid token is close enough to expiry
// that the caller should rotate it now. Already-expired tokens return false;
// they fail verification instead.
func ShouldRefreshToken(p LicensePayload, threshold time.Duration) bool {
	if threshold <= 0 {
		threshold = DefaultRefreshThreshold
	}
	remaining := time.Until(time.Unix(p.ExpiresAt, 0))
	return remaining > 0 && remaining < threshold
}
