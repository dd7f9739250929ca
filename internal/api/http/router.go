package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/spec-kit/area-service/internal/api/http/handlers"
	"github.com/spec-kit/area-service/internal/auth"
	"github.com/spec-kit/area-service/internal/observability"
	"github.com/spec-kit/area-service/internal/realtime"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	Areas          *handlers.AreasHandler
	AuthMiddleware *auth.Middleware
	Metrics        *observability.Metrics
	Gateway        *realtime.Gateway
	Relay          realtime.ConnectionHandler
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics.Handler()))
	}

	api := app.Group("/api")
	api.Get("/ping", cfg.Health.Ping)

	user := api.Group("/user")
	user.Post("/register", cfg.Users.Register)
	user.Post("/login", cfg.Users.Login)
	user.Post("/refresh", cfg.Users.Refresh)
	user.Post("/logout", cfg.Users.Logout)
	user.Get("", cfg.AuthMiddleware.Handle, cfg.Users.Me)

	areas := api.Group("/areas")
	areas.Get("/categories", cfg.Areas.Categories)
	areas.Get("", cfg.AuthMiddleware.Handle, cfg.Areas.List)
	areas.Post("", cfg.AuthMiddleware.Handle, cfg.Areas.Create)
	areas.Get("/:id", cfg.AuthMiddleware.HandleWithQuery, cfg.Areas.Get)
	areas.Patch("/:id", cfg.AuthMiddleware.Handle, cfg.Areas.Update)
	areas.Delete("/:id", cfg.AuthMiddleware.Handle, cfg.Areas.Delete)

	if cfg.Gateway != nil && cfg.Relay != nil {
		app.Get("/ws", cfg.Gateway.RequireUpgrade, cfg.Gateway.Handler(cfg.Relay))
	}
}
