package billing

import (
	"strings"

	"github.com/loglens/loglens/internal/pkg/entitlements"
)

func normalizePlan(plan string) string {
	switch strings.ToLower(strings.TrimSpace(plan)) {
	case string(entitlements.PlanPro):
		return string(entitlements.PlanPro)
	case string(entitlements.PlanProEarly):
		return string(entitlements.PlanProEarly)
	default:
		return string(entitlements.PlanFree)
	}
}

// planRank orders plans for reconciliation. Pro and pro_early are
// entitlement-equivalent; they differ only in price, so they share a rank
// and the first one found wins.
func planRank(plan string) int {
	switch normalizePlan(plan) {
	case string(entitlements.PlanPro), string(entitlements.PlanProEarly):
		return 1
	default:
		return 0
	}
}

func normalizeInterval(interval string) string {
	i := strings.ToLower(strings.TrimSpace(interval))
	switch i {
	case "month", "year":
		return i
	default:
		return "unknown"
	}
}
