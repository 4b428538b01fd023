package licensing

import (
	"time"
)

const (
	// TrialDuration is the initial lifetime of an extension-originated trial.
	TrialDuration = 3 * 24 * time.Hour

	// WebTrialDuration is the lifetime of a trial started from the web
	// dashboard by a registered user.
	WebTrialDuration = 6 * 24 * time.Hour
)

// TrialLicense is the persistent trial record for one extension install.
// It is created once per installation ID and never deleted: an expired row
// is the permanent "this device already trialed" marker that blocks
// re-activation.
type TrialLicense struct {
	InstallationID string
	Fingerprint    DeviceFingerprint
	TokenID        string
	CreatedAt      time.Time
	ExpiresAt      time.Time
	IP             string
	Country        string
	Extended       bool
	UserID         string
	Email          string
}

// TrialInput carries the activation request fields for NewTrialLicense.
type TrialInput struct {
	Fingerprint DeviceFingerprint
	IP          string
	Country     string
}

// Activation failure reasons.
const (
	ReasonTrialExpired       = "trial_expired"
	ReasonTrialAlreadyUsed   = "trial_already_used"
	ReasonInvalidFingerprint = "invalid_fingerprint"
)

// NewTrialLicense builds a fresh trial record with the fixed trial duration.
// Persistence (including the atomic create-if-absent guarding concurrent
// activations) is the store's job.
func NewTrialLicense(in TrialInput, tokenID string) TrialLicense {
	now := time.Now()
	return TrialLicense{
		InstallationID: in.Fingerprint.InstallationID,
		Fingerprint:    in.Fingerprint,
		TokenID:        tokenID,
		CreatedAt:      now,
		ExpiresAt:      now.Add(TrialDuration),
		IP:             in.IP,
		Country:        in.Country,
	}
}

// IsTrialValid reports whether the trial is still running.
func IsTrialValid(t TrialLicense) bool {
	return t.ExpiresAt.After(time.Now())
}

// TrialDaysRemaining returns whole days left on the trial, rounded up,
// floored at zero.
func TrialDaysRemaining(t TrialLicense) int {
	return daysUntil(t.ExpiresAt)
}

func daysUntil(deadline time.Time) int {
	remaining := time.Until(deadline)
	if remaining <= 0 {
		return 0
	}
	days := int(remaining / (24 * time.Hour))
	if remaining%(24*time.Hour) != 0 {
		days++
	}
	return days
}
