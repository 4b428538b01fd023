package router

import (
	"github.com/loglens/loglens/app/controllers"
	"github.com/loglens/loglens/internal/pkg/middleware"
	"github.com/loglens/loglens/internal/pkg/oauth"
	"github.com/loglens/loglens/internal/pkg/session"

	"github.com/gofiber/fiber/v2"
	gothfiber "github.com/shareed2k/goth_fiber"
)

type HttpRouter struct {
}

func (h HttpRouter) InstallRouter(app *fiber.App) {
	// init session
	session.NewSessionStore()

	// init oauth providers
	oauth.Setup()

	// Apply UserContext middleware globally as first middleware
	app.Use(middleware.UserContextMiddleware)

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"service": "loglens", "status": "ok"})
	})
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// Social OAuth
	app.Get("/auth/:provider", gothfiber.BeginAuthHandler)
	app.Get("/auth/:provider/callback", controllers.HandleOAuthCallback)

	// Session logout outside the API prefix for the dashboard
	app.Post("/logout", middleware.RequireAuth, controllers.HandleAuthLogout)
}

func NewHttpRouter() *HttpRouter {
	return &HttpRouter{}
}
