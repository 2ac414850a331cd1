package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-portal/internal/api/dto"
	"github.com/spec-kit/helpdesk-portal/internal/service"
)

// TicketsHandler serves ticket endpoints shared by submitters and staff.
type TicketsHandler struct {
	tickets   *service.TicketService
	approvals *service.ApprovalService
	sla       SLAAssessor
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(tickets *service.TicketService, approvals *service.ApprovalService, assessor SLAAssessor) *TicketsHandler {
	return &TicketsHandler{tickets: tickets, approvals: approvals, sla: assessor}
}

// CreateTicket POST /tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	caller, err := currentCaller(c)
	if err != nil {
		return err
	}
	var req dto.CreateTicketRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	requiresApproval, err := h.approvals.RequiresApproval(c.UserContext(), caller)
	if err != nil {
		return err
	}
	ticket, err := h.tickets.Create(c.UserContext(), caller, service.TicketCreateInput{
		Title:        req.Title,
		Description:  req.Description,
		MainCategory: req.MainCategory,
		SubCategory:  req.SubCategory,
		Priority:     req.Priority,
		ContactPhone: req.ContactPhone,
	}, requiresApproval)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": ticketSummary(ticket, h.sla)})
}

// ListTickets GET /tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	caller, err := currentCaller(c)
	if err != nil {
		return err
	}
	tickets, err := h.tickets.List(c.UserContext(), caller, parseTicketFilter(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketSummaries(tickets, h.sla)})
}

// GetTicket GET /tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	caller, err := currentCaller(c)
	if err != nil {
		return err
	}
	ctx := c.UserContext()
	ticket, err := h.tickets.Get(ctx, caller, c.Params("id"))
	if err != nil {
		return err
	}
	messages, err := h.tickets.ListMessages(ctx, caller, ticket.ID)
	if err != nil {
		return err
	}
	entries, err := h.tickets.ListActivities(ctx, caller, ticket.ID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketDetail(ticket, h.sla, messages, entries)})
}

// ListActivities GET /tickets/:id/activities.
func (h *TicketsHandler) ListActivities(c *fiber.Ctx) error {
	caller, err := currentCaller(c)
	if err != nil {
		return err
	}
	entries, err := h.tickets.ListActivities(c.UserContext(), caller, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": activityResponses(entries)})
}

// AddMessage POST /tickets/:id/messages.
func (h *TicketsHandler) AddMessage(c *fiber.Ctx) error {
	caller, err := currentCaller(c)
	if err != nil {
		return err
	}
	var req dto.CreateMessageRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	msg, ticket, err := h.tickets.PostMessage(c.UserContext(), caller, c.Params("id"), req.Body)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.MessagePostedResponse{
		Message: ticketMessageResponse(msg),
		Ticket:  ticketSummary(ticket, h.sla),
	}})
}
