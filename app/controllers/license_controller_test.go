package controllers

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loglens/loglens/internal/pkg/entitlements"
	"github.com/loglens/loglens/internal/pkg/licensing"
	"github.com/loglens/loglens/internal/pkg/security"
)

func TestExtractBearer(t *testing.T) {
	app := fiber.New()
	var got string
	app.Get("/", func(c *fiber.Ctx) error {
		got = extractBearer(c)
		return c.SendStatus(fiber.StatusNoContent)
	})

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer abc.def")
	_, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, "abc.def", got)

	req = httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Basic dXNlcjpwdw==")
	_, err = app.Test(req, -1)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func verifyTestApp() *fiber.App {
	app := fiber.New()
	app.Post("/verify", HandleLicenseVerify)
	return app
}

func postJSON(t *testing.T, app *fiber.App, path string, body string) (int, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest("POST", path, strings.NewReader(body))
	req.Header.Set("Content-Type", fiber.MIMEApplicationJSON)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	return resp.StatusCode, decoded
}

func TestHandleLicenseVerifyInvalidSignature(t *testing.T) {
	t.Setenv("LICENSE_TOKEN_SECRET", "verify-secret")

	status, body := postJSON(t, verifyTestApp(), "/verify", `{"token":"not.a-real-token"}`)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, false, body["valid"])
	assert.Equal(t, "invalid_signature", body["reason"])
}

func TestHandleLicenseVerifyTamperedToken(t *testing.T) {
	t.Setenv("LICENSE_TOKEN_SECRET", "verify-secret")

	payload := licensing.GeneratePayload(licensing.PayloadInput{
		UserID: "42",
		Plan:   entitlements.PlanPro,
	})
	token, err := security.SignLicenseToken(payload, "some-other-secret")
	require.NoError(t, err)

	status, body := postJSON(t, verifyTestApp(), "/verify", `{"token":"`+token+`"}`)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, false, body["valid"])
	assert.Equal(t, "invalid_signature", body["reason"])
}

func TestHandleLicenseVerifyRejectsTrialPlan(t *testing.T) {
	t.Setenv("LICENSE_TOKEN_SECRET", "verify-secret")

	// A long-lived token claiming plan "trial" is structurally invalid;
	// trial access travels in trial tokens instead.
	payload := licensing.LicensePayload{
		Subject:   "inst-0123456789",
		Plan:      entitlements.PlanTrial,
		TokenID:   "tok-1",
		IssuedAt:  time.Now().Unix(),
		ExpiresAt: time.Now().Add(time.Hour).Unix(),
	}
	token, err := security.SignLicenseToken(payload, "verify-secret")
	require.NoError(t, err)

	status, body := postJSON(t, verifyTestApp(), "/verify", `{"token":"`+token+`"}`)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, false, body["valid"])
	assert.Equal(t, licensing.ReasonInvalidPlan, body["reason"])
}

func TestHandleLicenseVerifyExpiredToken(t *testing.T) {
	t.Setenv("LICENSE_TOKEN_SECRET", "verify-secret")

	payload := licensing.LicensePayload{
		Subject:   "inst-0123456789",
		Plan:      entitlements.PlanPro,
		TokenID:   "tok-2",
		IssuedAt:  time.Now().Add(-48 * time.Hour).Unix(),
		ExpiresAt: time.Now().Add(-time.Hour).Unix(),
	}
	token, err := security.SignLicenseToken(payload, "verify-secret")
	require.NoError(t, err)

	status, body := postJSON(t, verifyTestApp(), "/verify", `{"token":"`+token+`"}`)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, false, body["valid"])
	assert.Equal(t, licensing.ReasonExpired, body["reason"])
}

func TestHandleLicenseVerifyValidInstallationToken(t *testing.T) {
	t.Setenv("LICENSE_TOKEN_SECRET", "verify-secret")

	// Installation subjects skip the revocation lookup, so no database is
	// needed for a full positive verification.
	payload := licensing.GeneratePayload(licensing.PayloadInput{
		UserID: "inst-0123456789",
		Plan:   entitlements.PlanProEarly,
	})
	token, err := security.SignLicenseToken(payload, "verify-secret")
	require.NoError(t, err)

	status, body := postJSON(t, verifyTestApp(), "/verify", `{"token":"`+token+`"}`)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, true, body["valid"])
	assert.Equal(t, "inst-0123456789", body["subject"])
	assert.Equal(t, string(entitlements.PlanProEarly), body["plan"])
	assert.Equal(t, payload.TokenID, body["token_id"])
}
