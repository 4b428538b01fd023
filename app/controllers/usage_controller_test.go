package controllers

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loglens/loglens/internal/pkg/cache"
	"github.com/loglens/loglens/internal/pkg/entitlements"
	"github.com/loglens/loglens/internal/pkg/usercontext"
)

func setupUsageRedis(t *testing.T) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache.SetClient(client)
	t.Cleanup(func() {
		cache.SetClient(nil)
		_ = client.Close()
	})
}

func usageTestApp(subject, plan string) *fiber.App {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		if subject != "" {
			c.Locals(usercontext.KeyLicenseSubject, subject)
			c.Locals(usercontext.KeyLicensePlan, plan)
		}
		return c.Next()
	})
	app.Post("/usage/report", HandleUsageReport)
	app.Get("/usage", HandleUsageStatus)
	return app
}

func postUsage(t *testing.T, app *fiber.App, body string) (int, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest("POST", "/usage/report", strings.NewReader(body))
	req.Header.Set("Content-Type", fiber.MIMEApplicationJSON)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	return resp.StatusCode, decoded
}

func TestHandleUsageReportMissingToken(t *testing.T) {
	setupUsageRedis(t)
	app := usageTestApp("", "")

	status, body := postUsage(t, app, `{"kind":"log"}`)
	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.Equal(t, "unauthorized", body["error"])
}

func TestHandleUsageReportInvalidKind(t *testing.T) {
	setupUsageRedis(t)
	app := usageTestApp("inst-0123456789", "trial")

	status, body := postUsage(t, app, `{"kind":"screenshot"}`)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "bad_request", body["error"])
}

func TestHandleUsageReportCountsLogs(t *testing.T) {
	setupUsageRedis(t)
	app := usageTestApp("inst-0123456789", "trial")

	status, body := postUsage(t, app, `{"kind":"log"}`)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, true, body["allowed"])
	assert.Equal(t, float64(1), body["current"])

	status, body = postUsage(t, app, `{"kind":"log"}`)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, float64(2), body["current"])
}

func TestHandleUsageReportEnforcesFreeLimit(t *testing.T) {
	setupUsageRedis(t)
	subject := "inst-free-0123456789"
	app := usageTestApp(subject, "free")

	limit := entitlements.GetEntitlements(entitlements.PlanFree).MaxRecordings
	for i := 0; i < limit; i++ {
		status, body := postUsage(t, app, `{"kind":"recording"}`)
		require.Equal(t, fiber.StatusOK, status)
		require.Equal(t, true, body["allowed"])
	}

	status, body := postUsage(t, app, `{"kind":"recording"}`)
	assert.Equal(t, fiber.StatusTooManyRequests, status)
	assert.Equal(t, false, body["allowed"])
	assert.Equal(t, entitlements.ReasonRecordingLimitReached, body["reason"])
}

func TestHandleUsageStatus(t *testing.T) {
	setupUsageRedis(t)
	subject := "inst-status-0123456789"
	app := usageTestApp(subject, "pro")

	for i := 0; i < 3; i++ {
		status, _ := postUsage(t, app, `{"kind":"log"}`)
		require.Equal(t, fiber.StatusOK, status)
	}

	resp, err := app.Test(httptest.NewRequest("GET", "/usage", nil), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &decoded))

	assert.Equal(t, "pro", decoded["plan"])
	logs := decoded["logs"].(map[string]interface{})
	assert.Equal(t, float64(3), logs["used"])
	assert.Equal(t, float64(500), logs["limit"])
}
