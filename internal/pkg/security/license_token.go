package security

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/loglens/loglens/internal/pkg/licensing"
)

// Compact HMAC-SHA256 token: base64url(payload).base64url(signature).
// This package only covers signing and signature verification; structural
// and temporal checks on the claims live in the licensing package.

var (
	ErrMissingSecret    = errors.New("secret is required")
	ErrInvalidFormat    = errors.New("invalid token format")
	ErrInvalidSignature = errors.New("invalid token signature")
)

// SignLicenseToken wraps a license payload into a signed bearer token.
func SignLicenseToken(payload licensing.LicensePayload, secret string) (string, error) {
	if secret == "" {
		return "", ErrMissingSecret
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	return encodeSigned(raw, secret), nil
}

// VerifyLicenseToken checks the token signature and returns the decoded
// payload. Callers must run licensing.VerifyPayload on the result and then
// consult the revocation list.
func VerifyLicenseToken(token, secret string) (*licensing.LicensePayload, error) {
	raw, err := decodeSigned(token, secret)
	if err != nil {
		return nil, err
	}
	var payload licensing.LicensePayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, errors.New("invalid payload")
	}
	return &payload, nil
}

// TrialTokenClaims is the claim shape of extension trial tokens. Trial
// tokens are a separate minting path from long-lived license tokens: they
// are keyed by installation instead of user and verified here in full,
// which is why licensing.VerifyPayload rejects plan "trial".
type TrialTokenClaims struct {
	InstallationID string `json:"installation_id"`
	TokenID        string `json:"token_id"`
	Plan           string `json:"plan"`
	ExpiresAt      int64  `json:"exp"`
}

// SignTrialToken mints a trial bearer token bound to the trial's stored
// expiry.
func SignTrialToken(installationID, tokenID string, expiresAt time.Time, secret string) (string, error) {
	if secret == "" {
		return "", ErrMissingSecret
	}
	claims := TrialTokenClaims{
		InstallationID: installationID,
		TokenID:        tokenID,
		Plan:           "trial",
		ExpiresAt:      expiresAt.Unix(),
	}
	raw, err := json.Marshal(claims)
	if err != nil {
		return "", err
	}
	return encodeSigned(raw, secret), nil
}

// VerifyTrialToken checks signature and expiry of a trial token.
func VerifyTrialToken(token, secret string) (*TrialTokenClaims, error) {
	raw, err := decodeSigned(token, secret)
	if err != nil {
		return nil, err
	}
	var claims TrialTokenClaims
	if err := json.Unmarshal(raw, &claims); err != nil {
		return nil, errors.New("invalid payload")
	}
	if claims.Plan != "trial" {
		return nil, errors.New("not a trial token")
	}
	if time.Now().Unix() > claims.ExpiresAt {
		return nil, errors.New("token expired")
	}
	return &claims, nil
}

func encodeSigned(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	sig := mac.Sum(nil)
	return fmt.Sprintf("%s.%s",
		base64.RawURLEncoding.EncodeToString(payload),
		base64.RawURLEncoding.EncodeToString(sig))
}

func decodeSigned(token, secret string) ([]byte, error) {
	if secret == "" {
		return nil, ErrMissingSecret
	}
	parts := strings.SplitN(token, ".", 2)
	if len(parts) != 2 {
		return nil, ErrInvalidFormat
	}
	payloadBytes, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return nil, errors.New("invalid payload encoding")
	}
	sigBytes, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return nil, errors.New("invalid signature encoding")
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payloadBytes)
	if !hmac.Equal(sigBytes, mac.Sum(nil)) {
		return nil, ErrInvalidSignature
	}
	return payloadBytes, nil
}
