package middleware

import (
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/loglens/loglens/app/models"
	"github.com/loglens/loglens/app/repository"
	"github.com/loglens/loglens/internal/pkg/env"
	"github.com/loglens/loglens/internal/pkg/licensing"
	"github.com/loglens/loglens/internal/pkg/security"
	"github.com/loglens/loglens/internal/pkg/usercontext"
)

// LicenseAuthMiddleware authenticates requests carrying a signed license
// token. Verification runs in three layers: signature, claims, revocation.
func LicenseAuthMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := extractBearerToken(c)
		if token == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Missing license token"})
		}

		secret := env.GetEnv("LICENSE_TOKEN_SECRET", "")
		payload, err := security.VerifyLicenseToken(token, secret)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Invalid license token"})
		}

		result := licensing.VerifyPayload(*payload)
		if !result.Valid {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error":   "invalid_license",
				"message": "License token rejected",
				"reason":  result.Reason,
			})
		}

		if userID, err := models.ParseUserID(payload.Subject); err == nil {
			revoked, rerr := repository.GetGlobalFactory().GetRevocationRepository().IsRevoked(userID, payload.TokenID)
			if rerr != nil {
				log.Printf("revocation lookup failed for user %d: %v", userID, rerr)
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "License verification failed"})
			}
			if revoked {
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
					"error":   "invalid_license",
					"message": "License token rejected",
					"reason":  "revoked",
				})
			}
		}

		c.Locals(usercontext.KeyLicenseSubject, payload.Subject)
		c.Locals(usercontext.KeyLicensePlan, string(payload.Plan))
		c.Locals(usercontext.KeyLicenseTokenID, payload.TokenID)

		return c.Next()
	}
}

// TrialAuthMiddleware authenticates requests carrying a trial token minted by
// the activation endpoint.
func TrialAuthMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := extractBearerToken(c)
		if token == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Missing trial token"})
		}

		secret := env.GetEnv("LICENSE_TOKEN_SECRET", "")
		claims, err := security.VerifyTrialToken(token, secret)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Invalid trial token"})
		}

		c.Locals(usercontext.KeyLicenseSubject, claims.InstallationID)
		c.Locals(usercontext.KeyLicensePlan, claims.Plan)
		c.Locals(usercontext.KeyLicenseTokenID, claims.TokenID)

		return c.Next()
	}
}

// LicenseOrTrialAuthMiddleware accepts either token flavor on one route.
// Trial tokens are tried first; their claim shape is disjoint from license
// payloads, so a license token never verifies as a trial token.
func LicenseOrTrialAuthMiddleware() fiber.Handler {
	licenseAuth := LicenseAuthMiddleware()
	return func(c *fiber.Ctx) error {
		token := extractBearerToken(c)
		if token == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Missing license token"})
		}

		secret := env.GetEnv("LICENSE_TOKEN_SECRET", "")
		if claims, err := security.VerifyTrialToken(token, secret); err == nil {
			c.Locals(usercontext.KeyLicenseSubject, claims.InstallationID)
			c.Locals(usercontext.KeyLicensePlan, claims.Plan)
			c.Locals(usercontext.KeyLicenseTokenID, claims.TokenID)
			return c.Next()
		}

		return licenseAuth(c)
	}
}

func extractBearerToken(c *fiber.Ctx) string {
	auth := strings.TrimSpace(c.Get("Authorization"))
	if strings.HasPrefix(strings.ToLower(auth), "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}
