package controllers

import (
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/loglens/loglens/internal/pkg/entitlements"
	"github.com/loglens/loglens/internal/pkg/metrics/counter"
	"github.com/loglens/loglens/internal/pkg/usercontext"
)

const (
	usageKindLog       = "log"
	usageKindRecording = "recording"
)

type usageReportRequest struct {
	Kind string `json:"kind"`
}

// licenseIdentity pulls the authenticated subject and plan set by the
// license or trial auth middleware.
func licenseIdentity(c *fiber.Ctx) (subject string, plan entitlements.Plan, ok bool) {
	subject, _ = c.Locals(usercontext.KeyLicenseSubject).(string)
	if subject == "" {
		return "", "", false
	}
	rawPlan, _ := c.Locals(usercontext.KeyLicensePlan).(string)
	return subject, entitlements.NormalizePlan(rawPlan), true
}

// HandleUsageReport counts one captured log or started recording against the
// caller's daily limits. The check runs against today's live counter before
// the increment, so a request past the limit is rejected without counting.
func HandleUsageReport(c *fiber.Ctx) error {
	subject, plan, ok := licenseIdentity(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Missing license token"})
	}

	var req usageReportRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Invalid request body"})
	}

	kind := strings.ToLower(strings.TrimSpace(req.Kind))
	if kind != usageKindLog && kind != usageKindRecording {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "kind must be log or recording"})
	}

	logs, recordings, err := counter.GetTodayUsage(subject)
	if err != nil {
		log.Printf("usage lookup failed for %s: %v", subject, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Usage check failed"})
	}

	var result entitlements.LimitResult
	if kind == usageKindLog {
		result = entitlements.CheckLogLimit(plan, int(logs))
	} else {
		result = entitlements.CheckRecordingLimit(plan, int(recordings))
	}

	if !result.Allowed {
		return c.Status(fiber.StatusTooManyRequests).JSON(result)
	}

	var count int64
	if kind == usageKindLog {
		count, err = counter.AddLogCapture(subject)
	} else {
		count, err = counter.AddRecording(subject)
	}
	if err != nil {
		log.Printf("usage increment failed for %s: %v", subject, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Usage update failed"})
	}

	result.Current = int(count)
	result.Remaining = result.Limit - result.Current
	if result.Remaining < 0 {
		result.Remaining = 0
	}
	return c.JSON(result)
}

// HandleUsageStatus returns today's consumption alongside the plan limits.
func HandleUsageStatus(c *fiber.Ctx) error {
	subject, plan, ok := licenseIdentity(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Missing license token"})
	}

	logs, recordings, err := counter.GetTodayUsage(subject)
	if err != nil {
		log.Printf("usage lookup failed for %s: %v", subject, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Usage lookup failed"})
	}

	limits := entitlements.GetEntitlements(plan)
	return c.JSON(fiber.Map{
		"day":  counter.Today(),
		"plan": string(plan),
		"logs": fiber.Map{
			"used":  logs,
			"limit": limits.MaxLogs,
		},
		"recordings": fiber.Map{
			"used":  recordings,
			"limit": limits.MaxRecordings,
		},
	})
}
