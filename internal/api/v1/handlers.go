package apiv1

import (
	"github.com/gofiber/fiber/v2"

	// Delegate to existing controllers to keep behavior consistent
	"github.com/loglens/loglens/app/controllers"
	"github.com/loglens/loglens/internal/pkg/middleware"
)

// APIServer bundles the versioned API surface.
type APIServer struct{}

// NewAPIServer creates a new API server instance
func NewAPIServer() *APIServer {
	return &APIServer{}
}

// Pong is the ping response body.
type Pong struct {
	Ping string `json:"ping"`
}

// GetPing handles the ping endpoint
func (s *APIServer) GetPing(c *fiber.Ctx) error {
	response := Pong{
		Ping: "pong",
	}

	return c.Status(fiber.StatusOK).JSON(response)
}

// GetUserAccount returns account information for the authenticated user.
// Security is enforced via API key middleware attached in the router.
func (s *APIServer) GetUserAccount(c *fiber.Ctx) error {
	return controllers.HandleGetUserAccount(c)
}

// RegisterHandlers wires the v1 routes with their auth middlewares.
func RegisterHandlers(router fiber.Router, si *APIServer) {
	router.Get("/ping", si.GetPing)

	// Account lifecycle
	auth := router.Group("/auth")
	auth.Post("/register", controllers.HandleAuthRegister)
	auth.Get("/activate", controllers.HandleAuthActivate)
	auth.Post("/login", controllers.HandleAuthLogin)
	auth.Post("/logout", middleware.RequireAPISessionAuth, controllers.HandleAuthLogout)

	// Extension trials; activation is public and rate-limited per IP.
	trial := router.Group("/trial")
	trial.Post("/activate", controllers.HandleTrialActivate)
	trial.Post("/extend", middleware.RequireAPISessionAuth, controllers.HandleTrialExtend)
	trial.Post("/web", middleware.RequireAPISessionAuth, controllers.HandleWebTrialStart)

	// Entitlement resolution works for anonymous installs, sessions and
	// bearer tokens alike.
	router.Get("/entitlements", controllers.HandleEntitlements)

	license := router.Group("/license")
	license.Post("/issue", middleware.RequireAPISessionAuth, controllers.HandleLicenseIssue)
	license.Post("/refresh", middleware.LicenseAuthMiddleware(), controllers.HandleLicenseRefresh)
	license.Post("/verify", controllers.HandleLicenseVerify)
	license.Post("/revoke", middleware.RequireAPISessionAuth, controllers.HandleLicenseRevoke)

	// Usage counting accepts both license and trial tokens.
	usage := router.Group("/usage", middleware.LicenseOrTrialAuthMiddleware())
	usage.Post("/report", controllers.HandleUsageReport)
	usage.Get("/", controllers.HandleUsageStatus)

	// Recording export staging, gated on the Export entitlement.
	recording := router.Group("/recording", middleware.LicenseOrTrialAuthMiddleware())
	recording.Post("/export", controllers.HandleRecordingExport)

	billing := router.Group("/billing")
	billing.Post("/webhook/stripe", controllers.HandleStripeWebhook)
	billing.Post("/link", middleware.RequireAPISessionAuth, controllers.HandleBillingLink)
	billing.Post("/resync", middleware.RequireAPISessionAuth, controllers.HandleBillingResync)

	// Dashboard API key surface: reading the account works with an API key,
	// key management requires a web session.
	user := router.Group("/user")
	user.Get("/account", middleware.APIKeyAuthMiddleware(), si.GetUserAccount)
	user.Post("/api-key", middleware.RequireAPISessionAuth, controllers.HandleIssueAPIKey)
	user.Delete("/api-key", middleware.RequireAPISessionAuth, controllers.HandleRevokeAPIKey)

	admin := router.Group("/admin", middleware.RequireAPISessionAuth)
	admin.Get("/stats", controllers.HandleAdminStats)
	admin.Get("/usage", controllers.HandleAdminUsageStats)
	admin.Post("/license/revoke", controllers.HandleAdminRevokeLicense)
}
