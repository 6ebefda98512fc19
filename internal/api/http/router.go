package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/vibescript/builder/internal/api/http/handlers"
	"github.com/vibescript/builder/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Gate           *auth.Gate
	MetricsHandler fiber.Handler
}

// RegisterRoutes wires HTTP routes. Health and metrics are registered before
// the gate so probes and scrapers never touch session validation; everything
// below app.Use passes through the gate first.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.MetricsHandler != nil {
		app.Get("/metrics", cfg.MetricsHandler)
	}

	app.Use(cfg.Gate.Handle)

	app.Post("/signup", cfg.Auth.SignUp)
	app.Get("/signin", cfg.Auth.SignInPage)
	app.Post("/signin", cfg.Auth.SignIn)
	app.Get("/signout", cfg.Auth.SignOut)
	app.Get("/resend", cfg.Auth.ResendPage)
	app.Post("/resend", cfg.Auth.Resend)
	app.Get("/verify", cfg.Auth.Verify)

	app.Get("/dashboard", cfg.Auth.Dashboard)
	app.Get("/api/me", cfg.Auth.Me)
	app.Post("/api/upgrade", cfg.Auth.Upgrade)
	app.Post("/api/admin/access-link", cfg.Auth.AccessLink)
}
