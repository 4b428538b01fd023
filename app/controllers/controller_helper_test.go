package controllers

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatTimePtr(t *testing.T) {
	assert.Nil(t, formatTimePtr(nil))

	now := time.Date(2026, 5, 1, 12, 34, 56, 0, time.Local)
	formatted := formatTimePtr(&now)
	assert.IsType(t, "", formatted)

	expected := now.UTC().Format(time.RFC3339)
	assert.Equal(t, expected, formatted)
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name     string
		headers  map[string]string
		wantIPv4 string
		wantIPv6 string
	}{
		{
			name:     "cloudflare ipv4",
			headers:  map[string]string{"CF-Connecting-IP": "203.0.113.7"},
			wantIPv4: "203.0.113.7",
		},
		{
			name:     "cloudflare ipv6 with forwarded ipv4",
			headers:  map[string]string{"CF-Connecting-IP": "2001:db8::1", "X-Forwarded-For": "203.0.113.7"},
			wantIPv4: "203.0.113.7",
			wantIPv6: "2001:db8::1",
		},
		{
			name:     "x-forwarded-for first entry wins",
			headers:  map[string]string{"X-Forwarded-For": "203.0.113.7, 10.0.0.1, 2001:db8::2"},
			wantIPv4: "203.0.113.7",
			wantIPv6: "2001:db8::2",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New()
			var gotV4, gotV6 string
			app.Get("/", func(c *fiber.Ctx) error {
				gotV4, gotV6 = GetClientIP(c)
				return c.SendStatus(fiber.StatusNoContent)
			})

			req := httptest.NewRequest("GET", "/", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			resp, err := app.Test(req, -1)
			require.NoError(t, err)
			assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
			assert.Equal(t, tt.wantIPv4, gotV4)
			assert.Equal(t, tt.wantIPv6, gotV6)
		})
	}
}

func TestIsLoggedIn(t *testing.T) {
	app := fiber.New()
	var loggedIn bool
	app.Get("/", func(c *fiber.Ctx) error {
		c.Locals(FROM_PROTECTED, true)
		loggedIn = isLoggedIn(c)
		return c.SendStatus(fiber.StatusNoContent)
	})
	app.Get("/anon", func(c *fiber.Ctx) error {
		loggedIn = isLoggedIn(c)
		return c.SendStatus(fiber.StatusNoContent)
	})

	_, err := app.Test(httptest.NewRequest("GET", "/", nil), -1)
	require.NoError(t, err)
	assert.True(t, loggedIn)

	_, err = app.Test(httptest.NewRequest("GET", "/anon", nil), -1)
	require.NoError(t, err)
	assert.False(t, loggedIn)
}
