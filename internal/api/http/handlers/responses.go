package handlers

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-portal/internal/api/dto"
	"github.com/spec-kit/helpdesk-portal/internal/auth"
	"github.com/spec-kit/helpdesk-portal/internal/domain"
	"github.com/spec-kit/helpdesk-portal/internal/service"
	"github.com/spec-kit/helpdesk-portal/internal/sla"
	apperrors "github.com/spec-kit/helpdesk-portal/pkg/util/errorutil"
)

// SLAAssessor computes business days open and the escalation tier for a ticket.
type SLAAssessor interface {
	Assess(t *domain.Ticket) (int, sla.Tier)
}

func currentCaller(c *fiber.Ctx) (domain.Caller, error) {
	caller, ok := auth.CallerFromContext(c)
	if !ok {
		return domain.Caller{}, apperrors.NewUnauthorized("authentication required")
	}
	return caller, nil
}

func parseBody(c *fiber.Ctx, out any) error {
	if err := c.BodyParser(out); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	return dto.Validate(out)
}

func parseTicketFilter(c *fiber.Ctx) service.TicketListFilter {
	filter := service.TicketListFilter{}
	if statusStr := c.Query("status"); statusStr != "" {
		for _, part := range strings.Split(statusStr, ",") {
			filter.Statuses = append(filter.Statuses, domain.TicketStatus(strings.TrimSpace(part)))
		}
	}
	if priorityStr := c.Query("priority"); priorityStr != "" {
		for _, part := range strings.Split(priorityStr, ",") {
			filter.Priorities = append(filter.Priorities, domain.TicketPriority(strings.TrimSpace(part)))
		}
	}
	if assignee := strings.TrimSpace(c.Query("assignee_id")); assignee != "" {
		filter.AssigneeID = &assignee
	}
	filter.Unassigned = c.QueryBool("unassigned", false)
	if search := strings.TrimSpace(c.Query("search")); search != "" {
		filter.SearchTerm = &search
	}
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 20)
	if pageSize > 100 {
		pageSize = 100
	}
	filter.Offset = (page - 1) * pageSize
	filter.Limit = pageSize
	return filter
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func ticketSummary(ticket *domain.Ticket, assessor SLAAssessor) dto.TicketSummary {
	summary := dto.TicketSummary{
		ID:           ticket.ID,
		ExternalKey:  ticket.ExternalKey,
		Title:        ticket.Title,
		MainCategory: ticket.Category.Main,
		SubCategory:  ticket.Category.Sub,
		Status:       ticket.Status,
		Priority:     ticket.Priority,
		CreatedBy:    ticket.CreatedBy,
		AssignedTo:   ticket.AssignedTo,
		CreatedAt:    ticket.CreatedAt,
		UpdatedAt:    ticket.UpdatedAt,
	}
	if ticket.ApprovalStatus != domain.ApprovalStatusNone {
		status := string(ticket.ApprovalStatus)
		summary.ApprovalStatus = &status
	}
	if assessor != nil {
		summary.DaysOpen, summary.EscalationTier = assessor.Assess(ticket)
	}
	return summary
}

func ticketSummaries(tickets []domain.Ticket, assessor SLAAssessor) []dto.TicketSummary {
	items := make([]dto.TicketSummary, 0, len(tickets))
	for i := range tickets {
		items = append(items, ticketSummary(&tickets[i], assessor))
	}
	return items
}

func ticketDetail(ticket *domain.Ticket, assessor SLAAssessor, messages []domain.TicketMessage, entries []service.ActivityEntry) dto.TicketDetailResponse {
	msgs := make([]dto.TicketMessageResponse, 0, len(messages))
	for i := range messages {
		msgs = append(msgs, ticketMessageResponse(&messages[i]))
	}
	return dto.TicketDetailResponse{
		TicketSummary:    ticketSummary(ticket, assessor),
		Description:      ticket.Description,
		ContactPhone:     ticket.ContactPhone,
		RequiresApproval: ticket.RequiresApproval,
		ResolvedAt:       ticket.ResolvedAt,
		ClosedAt:         ticket.ClosedAt,
		ApprovedAt:       ticket.ApprovedAt,
		ApprovedBy:       ticket.ApprovedBy,
		RejectionReason:  ticket.RejectionReason,
		Messages:         msgs,
		Activities:       activityResponses(entries),
	}
}

func ticketMessageResponse(msg *domain.TicketMessage) dto.TicketMessageResponse {
	return dto.TicketMessageResponse{
		ID:           msg.ID,
		AuthorID:     msg.AuthorID,
		Body:         msg.Body,
		IsAdminReply: msg.IsAdminReply,
		CreatedAt:    msg.CreatedAt,
	}
}

func activityResponses(entries []service.ActivityEntry) []dto.ActivityResponse {
	resp := make([]dto.ActivityResponse, 0, len(entries))
	for _, entry := range entries {
		resp = append(resp, dto.ActivityResponse{
			ID:          entry.ID,
			ActionType:  entry.ActionType,
			OldValue:    entry.OldValue,
			NewValue:    entry.NewValue,
			ActorID:     entry.ActorID,
			ActorName:   entry.ActorName,
			Description: entry.Description,
			CreatedAt:   entry.CreatedAt,
		})
	}
	return resp
}

func profileResponses(profiles []domain.Profile) []dto.ProfileResponse {
	resp := make([]dto.ProfileResponse, 0, len(profiles))
	for _, p := range profiles {
		resp = append(resp, dto.ProfileResponse{
			ID:       p.ID,
			FullName: p.FullName,
			Email:    p.Email,
			Roles:    p.Roles,
		})
	}
	return resp
}
