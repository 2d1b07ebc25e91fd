package http

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/job-tracker/internal/api/http/handlers"
	"github.com/spec-kit/job-tracker/internal/auth"
	"github.com/spec-kit/job-tracker/internal/config"
	"github.com/spec-kit/job-tracker/internal/events"
	"github.com/spec-kit/job-tracker/internal/observability"
	"github.com/spec-kit/job-tracker/internal/repository"
	"github.com/spec-kit/job-tracker/internal/service"
)

// Stores groups the repositories selected by the configured drivers.
type Stores struct {
	Users  repository.UserRepository
	Jobs   repository.JobRepository
	Resets repository.ResetTokenRepository
}

// ServerDeps bundles everything NewServer wires together.
type ServerDeps struct {
	Config     *config.Config
	Logger     *zap.Logger
	Metrics    *observability.Metrics
	Dispatcher events.Dispatcher
	Stores     Stores
	// Health lists readiness dependencies by name.
	Health map[string]handlers.Pinger
}

// NewServer builds the services, handlers and fiber application.
func NewServer(deps ServerDeps) *fiber.App {
	cfg := deps.Config
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	authService := service.NewAuthService(cfg.Auth, service.AuthDependencies{
		UserRepo:   deps.Stores.Users,
		ResetRepo:  deps.Stores.Resets,
		Dispatcher: deps.Dispatcher,
	})
	userService := service.NewUserService(cfg.Auth, service.UserDependencies{
		UserRepo:   deps.Stores.Users,
		JobRepo:    deps.Stores.Jobs,
		Dispatcher: deps.Dispatcher,
	})
	jobService := service.NewJobService(deps.Stores.Jobs, deps.Dispatcher)
	statsService := service.NewStatsService(deps.Stores.Jobs)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ErrorHandler: ErrorHandler(logger, deps.Metrics),
	})
	RegisterMiddlewares(app, MiddlewareConfig{
		Logger:      logger,
		Metrics:     deps.Metrics,
		Timeout:     cfg.App.RequestTimeout(),
		CORSOrigins: cfg.App.CORSOrigins,
	})
	RegisterRoutes(app, RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, deps.Health),
		Auth:           handlers.NewAuthHandler(authService),
		Jobs:           handlers.NewJobsHandler(jobService, statsService),
		Users:          handlers.NewUsersHandler(userService),
		AuthMiddleware: auth.NewAuthMiddleware(authService.TokenManager()),
		Metrics:        deps.Metrics,
	})
	return app
}
