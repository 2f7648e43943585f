package router

import (
	"github.com/gofiber/fiber/v3"
	recoverer "github.com/gofiber/fiber/v3/middleware/recover"

	"github.com/breilly1296/HealthcareProviderDB--sub002/internal/handler"
	"github.com/breilly1296/HealthcareProviderDB--sub002/internal/metrics"
	"github.com/breilly1296/HealthcareProviderDB--sub002/internal/middleware"
)

// Handlers holds all handler instances needed by the router.
type Handlers struct {
	Claim      *handler.ClaimHandler
	Vote       *handler.VoteHandler
	Acceptance *handler.AcceptanceHandler
	Stats      *handler.StatsHandler
	Admin      *handler.AdminHandler
	Health     *handler.HealthHandler
}

// Setup configures the middleware stack and all API routes on the given Fiber app.
func Setup(app *fiber.App, h *Handlers, corsOrigins string) {
	// Middleware stack (order matters)
	app.Use(recoverer.New())
	app.Use(middleware.NewRequestLogger())
	app.Use(middleware.NewCORS(corsOrigins))
	app.Use(metrics.Middleware())

	// Probes and metrics (outside the API group)
	app.Get("/health/live", h.Health.Live)
	app.Get("/health/ready", h.Health.Ready)
	app.Get("/metrics", metrics.Handler())

	// API routes
	api := app.Group("/api")

	// Write path
	api.Post("/claims", h.Claim.Submit)
	api.Post("/votes", h.Vote.Submit)

	// Read path
	api.Get("/acceptance", h.Acceptance.Get)
	api.Get("/providers/:providerId/plans", h.Acceptance.ListProviderPlans)
	api.Get("/stats", h.Stats.GetStats)

	// Maintenance jobs, triggered on demand
	admin := api.Group("/admin")
	admin.Post("/recalc", h.Admin.Recalc)
	admin.Post("/sweep", h.Admin.Sweep)
}
