package licensing

import "time"

const (
	// TrialExtensionDuration is the one-time additive grant applied when a
	// registered user links an existing trial.
	TrialExtensionDuration = 3 * 24 * time.Hour

	// ExtensionGracePeriod is how long after expiry a trial may still be
	// extended. A lapsed-but-recent trial is a deliberate recovery path:
	// the user installed, let the trial run out, then registered.
	ExtensionGracePeriod = 7 * 24 * time.Hour
)

// ExtendCheck is the outcome of CanExtendTrial.
type ExtendCheck struct {
	Allowed bool
	Reason  string
}

// Extension failure reasons.
const (
	ReasonNoTrial         = "no_trial"
	ReasonAlreadyExtended = "already_extended"
)

// CanExtendTrial validates a trial snapshot against the extension rules.
// The already-extended check runs before the expiry check so a used-up trial
// reports already_extended regardless of how long ago it lapsed. Callers
// must re-run this inside the same transaction that flips the extended flag;
// this function only judges the snapshot it is given.
func CanExtendTrial(t *TrialLicense) ExtendCheck {
	if t == nil {
		return ExtendCheck{Reason: ReasonNoTrial}
	}
	if t.Extended {
		return ExtendCheck{Reason: ReasonAlreadyExtended}
	}
	if time.Now().After(t.ExpiresAt.Add(ExtensionGracePeriod)) {
		return ExtendCheck{Reason: ReasonTrialExpired}
	}
	return ExtendCheck{Allowed: true}
}

// ExtendedExpiry computes the new expiry after a trial extension. The grant
// is additive to the stored expiry, not to the current time: a trial
// extended after a partial lapse does not get a fresh three days measured
// from the extension moment.
func ExtendedExpiry(currentExpiresAt time.Time) time.Time {
	return currentExpiresAt.Add(TrialExtensionDuration)
}

// DaysRemainingAfterExtension returns whole days between now and the new
// expiry, rounded up, floored at zero. Used for the confirmation response
// shown to the user.
func DaysRemainingAfterExtension(newExpiresAt time.Time) int {
	return daysUntil(newExpiresAt)
}
