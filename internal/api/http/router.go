package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health  *handlers.HealthHandler
	Auth    *handlers.AuthHandler
	Tickets *handlers.TicketsHandler
	Admin   *handlers.AdminHandler
	Guard   *auth.Guard
}

// RegisterRoutes wires HTTP routes. Probes are mounted ahead of the guard;
// everything after it is subject to the access policy.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	app.Use(cfg.Guard.Handle)

	authGroup := app.Group("/auth")
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Post("/register", cfg.Auth.Register)
	authGroup.Get("/me", cfg.Auth.Me)

	staff := auth.RequireRoles(domain.RoleAgent, domain.RoleAdmin)

	tickets := app.Group("/tickets")
	tickets.Post("/", auth.RequireRoles(domain.RoleCustomer), cfg.Tickets.Create)
	tickets.Get("/", staff, cfg.Tickets.List)
	tickets.Get("/:id", auth.RequireAnyRole(), cfg.Tickets.Get)
	tickets.Patch("/:id/status", staff, cfg.Tickets.UpdateStatus)
	tickets.Post("/:id/responses", staff, cfg.Tickets.AddResponse)
	tickets.Get("/:id/responses", auth.RequireAnyRole(), cfg.Tickets.Responses)

	customer := app.Group("/customer")
	customer.Post("/tickets", cfg.Tickets.Create)
	customer.Get("/tickets", cfg.Tickets.ListMine)
	customer.Get("/tickets/:id", cfg.Tickets.Get)

	agent := app.Group("/agent")
	agent.Get("/tickets", cfg.Tickets.Queue)

	admin := app.Group("/admin")
	admin.Post("/agents", cfg.Admin.CreateAgent)
	admin.Get("/users", cfg.Admin.ListUsers)
	admin.Delete("/users/:id", cfg.Admin.DeleteUser)
	admin.Get("/stats", cfg.Admin.Stats)
	admin.Get("/metrics", cfg.Admin.Metrics)
}
