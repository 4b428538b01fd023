package controllers

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/loglens/loglens/app/repository"
	"github.com/loglens/loglens/internal/pkg/jobqueue"
	"github.com/loglens/loglens/internal/pkg/statistics"
	"github.com/loglens/loglens/internal/pkg/usercontext"
)

// HandleAdminStats exposes the cached platform statistics and the current
// job queue state for the admin dashboard.
func HandleAdminStats(c *fiber.Ctx) error {
	if !usercontext.IsAdmin(c) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "forbidden", "message": "Admin access required"})
	}

	statistics.UpdateCacheIfNeeded()
	stats := statistics.GetStatistics()

	queue := jobqueue.GetManager().GetQueue()
	jobStats, err := queue.GetJobStats(c.Context())
	if err != nil {
		log.Printf("job stats lookup failed: %v", err)
	}
	queueSize, _ := queue.GetQueueSize(c.Context())
	processingSize, _ := queue.GetProcessingSize(c.Context())

	return c.JSON(fiber.Map{
		"users_total":   stats.TotalUsers,
		"trials_active": stats.ActiveTrials,
		"trials_today":  stats.TrialsToday,
		"queue": fiber.Map{
			"running":    jobqueue.GetManager().IsRunning(),
			"pending":    queueSize,
			"processing": processingSize,
			"jobs":       jobStats,
		},
	})
}

type adminRevokeRequest struct {
	UserID  uint   `json:"user_id"`
	TokenID string `json:"token_id"`
	Reason  string `json:"reason"`
}

// HandleAdminRevokeLicense revokes any user's license token, for abuse
// handling and support cases.
func HandleAdminRevokeLicense(c *fiber.Ctx) error {
	if !usercontext.IsAdmin(c) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "forbidden", "message": "Admin access required"})
	}

	var req adminRevokeRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Invalid request body"})
	}
	if req.UserID == 0 || strings.TrimSpace(req.TokenID) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "user_id and token_id are required"})
	}

	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		reason = "admin_revoked"
	}
	if err := repository.GetGlobalFactory().GetRevocationRepository().Revoke(req.UserID, strings.TrimSpace(req.TokenID), reason); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Revocation failed"})
	}

	return c.JSON(fiber.Map{"revoked": true, "user_id": req.UserID, "token_id": req.TokenID})
}

// HandleAdminUsageStats returns the persisted daily usage aggregates for a
// date range, for the admin usage chart.
func HandleAdminUsageStats(c *fiber.Ctx) error {
	if !usercontext.IsAdmin(c) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "forbidden", "message": "Admin access required"})
	}

	start, end, err := parseStatsRange(c.Query("start"), c.Query("end"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": err.Error()})
	}

	stats, err := repository.GetGlobalFactory().GetUsageRepository().GetDailyStats(start, end)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Stats lookup failed"})
	}

	return c.JSON(fiber.Map{"daily": stats})
}

// parseStatsRange parses optional YYYY-MM-DD bounds, defaulting to the last
// thirty days.
func parseStatsRange(startRaw, endRaw string) (time.Time, time.Time, error) {
	end := time.Now().UTC()
	start := end.AddDate(0, 0, -30)

	if s := strings.TrimSpace(startRaw); s != "" {
		parsed, err := time.Parse("2006-01-02", s)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid start date: %s", s)
		}
		start = parsed
	}
	if e := strings.TrimSpace(endRaw); e != "" {
		parsed, err := time.Parse("2006-01-02", e)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid end date: %s", e)
		}
		end = parsed
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("end date before start date")
	}
	return start, end, nil
}
