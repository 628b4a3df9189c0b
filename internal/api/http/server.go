package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/gearguard/internal/api/http/handlers"
	"github.com/spec-kit/gearguard/internal/auth"
	"github.com/spec-kit/gearguard/internal/observability"
	"github.com/spec-kit/gearguard/internal/persistence"
	"github.com/spec-kit/gearguard/internal/service"
)

// ServerConfig carries what the HTTP app needs besides the services.
type ServerConfig struct {
	Name           string
	Version        string
	RequestTimeout time.Duration
	Logger         *zap.Logger
	Metrics        *observability.Metrics
	Postgres       *persistence.Postgres
	Redis          *persistence.Redis
}

// NewServer builds the fiber app with middlewares and every route.
func NewServer(cfg ServerConfig, services *service.Services, authMiddleware *auth.AuthMiddleware) *fiber.App {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	app := fiber.New(fiber.Config{
		AppName:               cfg.Name,
		DisableStartupMessage: true,
		ErrorHandler:          FallbackErrorHandler(logger),
	})
	RegisterMiddlewares(app, logger, cfg.Metrics, cfg.RequestTimeout)
	RegisterRoutes(app, RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.Name, cfg.Version, cfg.Postgres, cfg.Redis),
		Users:          handlers.NewUsersHandler(services.Auth, services.Users, services.Membership),
		Requests:       handlers.NewRequestsHandler(services.Requests),
		Teams:          handlers.NewTeamsHandler(services.Membership),
		Equipment:      handlers.NewEquipmentHandler(services.Equipment),
		Telemetry:      handlers.NewTelemetryHandler(services.Sensors),
		Admin:          handlers.NewAdminHandler(services.Dashboard, services.Export, services.Triage),
		AuthMiddleware: authMiddleware,
	})
	return app
}
