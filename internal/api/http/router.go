package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/hubspot-ticket-sync/internal/api/http/handlers"
	"github.com/spec-kit/hubspot-ticket-sync/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Employees      *handlers.EmployeesHandler
	Tickets        *handlers.TicketsHandler
	HubSpot        *handlers.HubSpotHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	api := app.Group("/api")
	api.Post("/auth/login", cfg.Auth.Login)

	api.Get("/employees", cfg.Employees.ListEmployees)

	tickets := api.Group("/tickets")
	tickets.Get("/status-list", cfg.Tickets.StatusList)
	tickets.Get("/employee/:employeeId", cfg.Tickets.ListByEmployee)
	tickets.Get("/:ticketId", cfg.Tickets.GetTicket)

	protected := api.Group("", cfg.AuthMiddleware.Handle)
	protected.Post("/hubspot/ticket-assign-employee/:ticketId", cfg.HubSpot.IngestTicket)
	protected.Post("/tickets/:ticketId/update", cfg.Tickets.UpdateTicket)
}
