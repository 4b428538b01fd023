package entitlements

import (
	"reflect"
	"testing"
)

func TestNormalizePlan(t *testing.T) {
	tests := []struct {
		in   string
		want Plan
	}{
		{in: "free", want: PlanFree},
		{in: "trial", want: PlanTrial},
		{in: "pro", want: PlanPro},
		{in: "pro_early", want: PlanProEarly},
		{in: " PRO_EARLY ", want: PlanProEarly},
		{in: "premium", want: PlanFree},
		{in: "", want: PlanFree},
	}

	for _, tt := range tests {
		if got := NormalizePlan(tt.in); got != tt.want {
			t.Fatalf("NormalizePlan(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestTrialMatchesPaidEntitlements(t *testing.T) {
	trial := GetEntitlements(PlanTrial)
	pro := GetEntitlements(PlanPro)
	proEarly := GetEntitlements(PlanProEarly)

	if !reflect.DeepEqual(trial, pro) {
		t.Fatalf("trial entitlements %+v differ from pro %+v", trial, pro)
	}
	if !reflect.DeepEqual(pro, proEarly) {
		t.Fatalf("pro entitlements %+v differ from pro_early %+v", pro, proEarly)
	}
}

func TestFreeIsStrictSubset(t *testing.T) {
	free := GetEntitlements(PlanFree)
	pro := GetEntitlements(PlanPro)

	if free.MaxLogs >= pro.MaxLogs {
		t.Fatalf("expected free MaxLogs %d < pro %d", free.MaxLogs, pro.MaxLogs)
	}
	if free.MaxRecordings >= pro.MaxRecordings {
		t.Fatalf("expected free MaxRecordings %d < pro %d", free.MaxRecordings, pro.MaxRecordings)
	}
	if len(free.Formats) >= len(pro.Formats) {
		t.Fatalf("expected free formats %v to be fewer than pro %v", free.Formats, pro.Formats)
	}
	if free.MCPDirect || free.Export || free.AdvancedPatterns {
		t.Fatalf("free plan must not carry paid feature flags: %+v", free)
	}
}

func TestGetEntitlementsUnknownPlanFallsBackToFree(t *testing.T) {
	if got := GetEntitlements(Plan("enterprise")); !reflect.DeepEqual(got, GetEntitlements(PlanFree)) {
		t.Fatalf("unknown plan returned %+v, want free entitlements", got)
	}
}

func TestHasFormat(t *testing.T) {
	if HasFormat(PlanFree, FormatToon) {
		t.Fatal("free plan must not allow toon output")
	}
	if !HasFormat(PlanFree, FormatJSON) {
		t.Fatal("free plan should allow json output")
	}
	if !HasFormat(PlanTrial, "TOON") {
		t.Fatal("format check should be case-insensitive")
	}
}
