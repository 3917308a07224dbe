package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/fieldops/fault-ticket-service/internal/api/http/handlers"
	"github.com/fieldops/fault-ticket-service/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Tickets        *handlers.TicketsHandler
	Escalations    *handlers.EscalationsHandler
	Detection      *handlers.DetectionHandler
	Drops          *handlers.DropsHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	app.Post("/auth/token", cfg.Auth.Token)

	protected := app.Group("", cfg.AuthMiddleware.Handle)

	tickets := protected.Group("/tickets")
	tickets.Post("", cfg.Tickets.CreateTicket)
	tickets.Get("", cfg.Tickets.ListTickets)
	tickets.Get("/sla/breached", cfg.Tickets.ListBreachedTickets)
	tickets.Get("/uid/:uid", cfg.Tickets.GetTicketByUID)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Patch("/:id", cfg.Tickets.UpdateTicket)
	tickets.Post("/:id/status", cfg.Tickets.UpdateStatus)
	tickets.Delete("/:id", cfg.Tickets.CancelTicket)

	escalations := protected.Group("/escalations")
	escalations.Post("", cfg.Escalations.CreateEscalation)
	escalations.Get("", cfg.Escalations.ListEscalations)
	escalations.Get("/:id", cfg.Escalations.GetEscalation)
	escalations.Post("/:id/tickets", cfg.Escalations.LinkTickets)
	escalations.Post("/:id/infrastructure-ticket", cfg.Escalations.CreateInfrastructureTicket)
	escalations.Post("/:id/resolve", cfg.Escalations.ResolveEscalation)
	escalations.Post("/:id/status", cfg.Escalations.UpdateStatus)

	protected.Post("/detection/check", cfg.Detection.Check)

	drops := protected.Group("/drops")
	drops.Delete("/cache", cfg.Drops.ClearCache)
	drops.Get("/:dr_number", cfg.Drops.GetDrop)
}
