package entitlements

// LimitResult is the outcome of a usage check against plan limits.
type LimitResult struct {
	Allowed   bool   `json:"allowed"`
	Reason    string `json:"reason,omitempty"`
	Current   int    `json:"current"`
	Limit     int    `json:"limit"`
	Remaining int    `json:"remaining"`
}

const (
	ReasonLogLimitReached       = "log_limit_reached"
	ReasonRecordingLimitReached = "recording_limit_reached"
)

// CheckLogLimit reports whether one more log may be captured in the current
// recording. Pure; called on every captured log.
func CheckLogLimit(plan Plan, currentLogCount int) LimitResult {
	limit := GetEntitlements(plan).MaxLogs
	return checkLimit(currentLogCount, limit, ReasonLogLimitReached)
}

// CheckRecordingLimit reports whether one more recording may be started in
// the current session.
func CheckRecordingLimit(plan Plan, currentRecordingCount int) LimitResult {
	limit := GetEntitlements(plan).MaxRecordings
	return checkLimit(currentRecordingCount, limit, ReasonRecordingLimitReached)
}

func checkLimit(current, limit int, reason string) LimitResult {
	remaining := limit - current
	if remaining < 0 {
		remaining = 0
	}
	result := LimitResult{
		Allowed:   current < limit,
		Current:   current,
		Limit:     limit,
		Remaining: remaining,
	}
	if !result.Allowed {
		result.Reason = reason
	}
	return result
}
