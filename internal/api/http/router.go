package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/gearguard/internal/api/http/handlers"
	"github.com/spec-kit/gearguard/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	Requests       *handlers.RequestsHandler
	Teams          *handlers.TeamsHandler
	Equipment      *handlers.EquipmentHandler
	Telemetry      *handlers.TelemetryHandler
	Admin          *handlers.AdminHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.Users.Register)
	authGroup.Post("/login", cfg.Users.Login)

	adminOnly := auth.RequireAdmin()

	requests := app.Group("/requests", cfg.AuthMiddleware.Handle)
	requests.Post("/", cfg.Requests.Create)
	requests.Get("/", adminOnly, cfg.Requests.List)
	requests.Get("/kanban", cfg.Requests.Kanban)
	requests.Get("/calendar", cfg.Requests.Calendar)
	requests.Get("/:id", cfg.Requests.Get)
	requests.Get("/:id/history", cfg.Requests.History)
	requests.Put("/:id/assign", cfg.Requests.AssignToSelf)
	requests.Put("/:id/assign-to", adminOnly, cfg.Requests.AssignTo)
	requests.Put("/:id/reassign", adminOnly, cfg.Requests.Reassign)
	requests.Put("/:id/close", cfg.Requests.Close)

	equipment := app.Group("/equipment", cfg.AuthMiddleware.Handle)
	equipment.Post("/", adminOnly, cfg.Equipment.Create)
	equipment.Get("/", cfg.Equipment.List)

	teams := app.Group("/teams", cfg.AuthMiddleware.Handle)
	teams.Post("/", adminOnly, cfg.Teams.Create)
	teams.Get("/", cfg.Teams.List)
	teams.Post("/add-member", adminOnly, cfg.Teams.AddMember)
	teams.Get("/:id", cfg.Teams.Get)

	users := app.Group("/users", cfg.AuthMiddleware.Handle, adminOnly)
	users.Post("/", cfg.Users.Create)
	users.Get("/", cfg.Users.List)
	users.Put("/:id/team", cfg.Users.SetTeam)

	sensors := app.Group("/sensors", cfg.AuthMiddleware.Handle)
	sensors.Post("/", cfg.Telemetry.Record)
	sensors.Get("/:id", cfg.Telemetry.ListForEquipment)

	app.Get("/ai/scan", cfg.AuthMiddleware.Handle, adminOnly, cfg.Admin.Scan)

	admin := app.Group("/admin", cfg.AuthMiddleware.Handle, adminOnly)
	admin.Get("/dashboard", cfg.Admin.Dashboard)
	admin.Get("/requests/export", cfg.Admin.ExportRequests)
}
