package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/job-tracker/internal/api/http/handlers"
	"github.com/spec-kit/job-tracker/internal/auth"
	"github.com/spec-kit/job-tracker/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Jobs           *handlers.JobsHandler
	Users          *handlers.UsersHandler
	AuthMiddleware *auth.AuthMiddleware
	Metrics        *observability.Metrics
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", cfg.Metrics.Handler())
	}

	api := app.Group("/api")

	authGroup := api.Group("/auth")
	authGroup.Post("/register", cfg.Auth.Register)
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Post("/request-password-reset", cfg.Auth.RequestPasswordReset)
	authGroup.Post("/reset-password", cfg.Auth.ResetPassword)

	jobs := api.Group("/jobs", cfg.AuthMiddleware.Handle)
	jobs.Get("/", cfg.Jobs.List)
	jobs.Post("/", cfg.Jobs.Create)
	jobs.Get("/stats", cfg.Jobs.Stats)
	jobs.Get("/admin/stats", auth.RequireAdmin(), cfg.Jobs.AdminStats)
	jobs.Get("/:id", cfg.Jobs.Get)
	jobs.Put("/:id", cfg.Jobs.Update)
	jobs.Delete("/:id", cfg.Jobs.Delete)

	users := api.Group("/users", cfg.AuthMiddleware.Handle)
	users.Get("/me/profile", cfg.Users.Profile)
	users.Put("/me/profile", cfg.Users.UpdateProfile)
	users.Get("/", auth.RequireAdmin(), cfg.Users.List)
	users.Post("/:id/change-password", cfg.Users.ChangePassword)
	users.Get("/:id", cfg.Users.Get)
	users.Put("/:id", cfg.Users.Update)
	users.Delete("/:id", auth.RequireAdmin(), cfg.Users.Delete)
}
