package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-portal/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk-portal/internal/auth"
	"github.com/spec-kit/helpdesk-portal/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Metrics        *handlers.MetricsHandler
	Tickets        *handlers.TicketsHandler
	StaffTickets   *handlers.StaffTicketsHandler
	Approvals      *handlers.ApprovalsHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	protected := app.Group("", cfg.AuthMiddleware.Handle, auth.RequireAuthenticated())
	staffOnly := auth.RequireRole(domain.RoleHelpdesk, domain.RoleAdmin)
	managerOnly := auth.RequireRole(domain.RoleManager)

	protected.Get("/metrics", auth.RequireRole(domain.RoleAdmin), cfg.Metrics.Snapshot)

	tickets := protected.Group("/tickets")
	tickets.Post("/", cfg.Tickets.CreateTicket)
	tickets.Get("/", cfg.Tickets.ListTickets)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Get("/:id/activities", cfg.Tickets.ListActivities)
	tickets.Post("/:id/messages", cfg.Tickets.AddMessage)

	tickets.Patch("/:id/status", staffOnly, cfg.StaffTickets.ChangeStatus)
	tickets.Patch("/:id/assignee", staffOnly, cfg.StaffTickets.Assign)
	tickets.Post("/:id/assign-self", staffOnly, cfg.StaffTickets.SelfAssign)
	tickets.Post("/:id/auto-assign", staffOnly, cfg.StaffTickets.AutoAssign)
	tickets.Patch("/:id/priority", staffOnly, cfg.StaffTickets.ChangePriority)
	tickets.Patch("/:id/category", staffOnly, cfg.StaffTickets.ChangeCategory)
	tickets.Patch("/:id/submitter", staffOnly, cfg.StaffTickets.ChangeSubmitter)

	tickets.Post("/:id/approve", managerOnly, cfg.Approvals.Approve)
	tickets.Post("/:id/reject", managerOnly, cfg.Approvals.Reject)

	protected.Get("/approvals/pending", managerOnly, cfg.Approvals.ListPending)
	protected.Get("/staff/assignees", staffOnly, cfg.StaffTickets.ListAssignees)
}
