package entitlements

import "testing"

func TestCheckLogLimitUnderLimit(t *testing.T) {
	free := GetEntitlements(PlanFree)

	res := CheckLogLimit(PlanFree, 0)
	if !res.Allowed {
		t.Fatal("expected first log to be allowed")
	}
	if res.Remaining != free.MaxLogs {
		t.Fatalf("remaining = %d, want %d", res.Remaining, free.MaxLogs)
	}

	res = CheckLogLimit(PlanFree, free.MaxLogs-1)
	if !res.Allowed {
		t.Fatal("expected last slot to be allowed")
	}
	if res.Remaining != 1 {
		t.Fatalf("remaining = %d, want 1", res.Remaining)
	}
}

func TestCheckLogLimitAtAndOverLimit(t *testing.T) {
	free := GetEntitlements(PlanFree)

	for _, count := range []int{free.MaxLogs, free.MaxLogs + 1, free.MaxLogs + 100} {
		res := CheckLogLimit(PlanFree, count)
		if res.Allowed {
			t.Fatalf("count %d should be blocked", count)
		}
		if res.Remaining != 0 {
			t.Fatalf("count %d: remaining = %d, want 0", count, res.Remaining)
		}
		if res.Reason != ReasonLogLimitReached {
			t.Fatalf("count %d: reason = %q", count, res.Reason)
		}
	}
}

func TestCheckRecordingLimit(t *testing.T) {
	free := GetEntitlements(PlanFree)

	res := CheckRecordingLimit(PlanFree, free.MaxRecordings-1)
	if !res.Allowed || res.Remaining != 1 {
		t.Fatalf("unexpected result below limit: %+v", res)
	}

	res = CheckRecordingLimit(PlanFree, free.MaxRecordings)
	if res.Allowed || res.Reason != ReasonRecordingLimitReached {
		t.Fatalf("unexpected result at limit: %+v", res)
	}
}

func TestPaidPlansShareLimits(t *testing.T) {
	for _, plan := range []Plan{PlanTrial, PlanPro, PlanProEarly} {
		res := CheckLogLimit(plan, 499)
		if !res.Allowed || res.Remaining != 1 {
			t.Fatalf("plan %s: unexpected result %+v", plan, res)
		}
		if res := CheckLogLimit(plan, 500); res.Allowed {
			t.Fatalf("plan %s: expected block at limit", plan)
		}
	}
}
