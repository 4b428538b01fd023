package entitlements

import "strings"

type Plan string

const (
	PlanFree     Plan = "free"
	PlanTrial    Plan = "trial"
	PlanPro      Plan = "pro"
	PlanProEarly Plan = "pro_early"
)

// Log output formats the extension can emit.
const (
	FormatPlain = "plain"
	FormatToon  = "toon"
	FormatJSON  = "json"
)

// Entitlements is the resolved feature/limit set for a plan, independent of
// how the plan was obtained.
type Entitlements struct {
	MaxLogs          int      `json:"max_logs"`
	MaxRecordings    int      `json:"max_recordings"`
	Formats          []string `json:"formats"`
	MCPDirect        bool     `json:"mcp_direct"`
	Export           bool     `json:"export"`
	AdvancedPatterns bool     `json:"advanced_patterns"`
}

// NormalizePlan maps arbitrary plan strings to a known Plan, defaulting to free.
func NormalizePlan(plan string) Plan {
	switch Plan(strings.ToLower(strings.TrimSpace(plan))) {
	case PlanTrial:
		return PlanTrial
	case PlanPro:
		return PlanPro
	case PlanProEarly:
		return PlanProEarly
	default:
		return PlanFree
	}
}

// GetEntitlements returns the feature set for a plan. Total over the Plan
// enum; unknown plans fall back to free. Trial carries the full pro feature
// set on purpose: the only difference between trial and pro is lifetime,
// which is enforced by the trial store, not here.
func GetEntitlements(plan Plan) Entitlements {
	switch plan {
	case PlanTrial, PlanPro, PlanProEarly:
		return Entitlements{
			MaxLogs:          500,
			MaxRecordings:    100,
			Formats:          []string{FormatPlain, FormatToon, FormatJSON},
			MCPDirect:        true,
			Export:           true,
			AdvancedPatterns: true,
		}
	default:
		return Entitlements{
			MaxLogs:       50,
			MaxRecordings: 5,
			Formats:       []string{FormatPlain, FormatJSON},
		}
	}
}

// IsPaid reports whether the plan comes from a paid subscription.
func IsPaid(plan Plan) bool {
	return plan == PlanPro || plan == PlanProEarly
}

// HasFormat reports whether the plan may emit logs in the given format.
func HasFormat(plan Plan, format string) bool {
	f := strings.ToLower(strings.TrimSpace(format))
	for _, allowed := range GetEntitlements(plan).Formats {
		if allowed == f {
			return true
		}
	}
	return false
}
