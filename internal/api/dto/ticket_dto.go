package dto

import (
	"time"

	"github.com/spec-kit/helpdesk-portal/internal/domain"
	"github.com/spec-kit/helpdesk-portal/internal/sla"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Title        string                `json:"title" validate:"required,max=200"`
	Description  string                `json:"description" validate:"max=10000"`
	MainCategory string                `json:"main_category" validate:"omitempty,max=100"`
	SubCategory  string                `json:"sub_category" validate:"omitempty,max=100"`
	Priority     domain.TicketPriority `json:"priority" validate:"omitempty,oneof=low medium high urgent"`
	ContactPhone string                `json:"contact_phone" validate:"omitempty,max=40"`
}

// ChangeStatusRequest payload.
type ChangeStatusRequest struct {
	Status domain.TicketStatus `json:"status" validate:"required,oneof=open in_progress resolved closed"`
}

// AssignRequest payload.
type AssignRequest struct {
	AssigneeID string `json:"assignee_id" validate:"required"`
}

// ChangePriorityRequest payload.
type ChangePriorityRequest struct {
	Priority domain.TicketPriority `json:"priority" validate:"required,oneof=low medium high urgent"`
}

// ChangeCategoryRequest payload.
type ChangeCategoryRequest struct {
	Category string `json:"category" validate:"required,max=100"`
}

// ChangeSubmitterRequest payload.
type ChangeSubmitterRequest struct {
	SubmitterID string `json:"submitter_id" validate:"required"`
}

// CreateMessageRequest payload.
type CreateMessageRequest struct {
	Body string `json:"body" validate:"required,max=20000"`
}

// RejectRequest payload.
type RejectRequest struct {
	Reason string `json:"reason" validate:"required,max=2000"`
}

// TicketSummary response.
type TicketSummary struct {
	ID             string                `json:"id"`
	ExternalKey    string                `json:"external_key"`
	Title          string                `json:"title"`
	MainCategory   string                `json:"main_category"`
	SubCategory    string                `json:"sub_category"`
	Status         domain.TicketStatus   `json:"status"`
	Priority       domain.TicketPriority `json:"priority"`
	ApprovalStatus *string               `json:"approval_status"`
	CreatedBy      string                `json:"created_by"`
	AssignedTo     *string               `json:"assigned_to"`
	DaysOpen       int                   `json:"days_open"`
	EscalationTier sla.Tier              `json:"escalation_tier"`
	CreatedAt      time.Time             `json:"created_at"`
	UpdatedAt      time.Time             `json:"updated_at"`
}

// TicketDetailResponse provides full ticket info.
type TicketDetailResponse struct {
	TicketSummary
	Description      string                  `json:"description"`
	ContactPhone     string                  `json:"contact_phone,omitempty"`
	RequiresApproval bool                    `json:"requires_approval"`
	ResolvedAt       *time.Time              `json:"resolved_at"`
	ClosedAt         *time.Time              `json:"closed_at"`
	ApprovedAt       *time.Time              `json:"approved_at"`
	ApprovedBy       *string                 `json:"approved_by"`
	RejectionReason  *string                 `json:"rejection_reason"`
	Messages         []TicketMessageResponse `json:"messages"`
	Activities       []ActivityResponse      `json:"activities"`
}

// TicketMessageResponse represents thread message.
type TicketMessageResponse struct {
	ID           string    `json:"id"`
	AuthorID     string    `json:"author_id"`
	Body         string    `json:"body"`
	IsAdminReply bool      `json:"is_admin_reply"`
	CreatedAt    time.Time `json:"created_at"`
}

// ActivityResponse is one rendered audit entry.
type ActivityResponse struct {
	ID          string                `json:"id"`
	ActionType  domain.ActivityAction `json:"action_type"`
	OldValue    *string               `json:"old_value"`
	NewValue    *string               `json:"new_value"`
	ActorID     *string               `json:"actor_id"`
	ActorName   string                `json:"actor_name"`
	Description string                `json:"description"`
	CreatedAt   time.Time             `json:"created_at"`
}

// MessagePostedResponse returns the new message with the ticket it changed.
type MessagePostedResponse struct {
	Message TicketMessageResponse `json:"message"`
	Ticket  TicketSummary         `json:"ticket"`
}

// ProfileResponse is a directory entry.
type ProfileResponse struct {
	ID       string        `json:"id"`
	FullName string        `json:"full_name"`
	Email    string        `json:"email"`
	Roles    []domain.Role `json:"roles"`
}
