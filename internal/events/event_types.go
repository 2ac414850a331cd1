package events

import (
	"time"

	"github.com/spec-kit/helpdesk-portal/internal/domain"
	"github.com/spec-kit/helpdesk-portal/internal/sla"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated             EventType = "ticket_created"
	EventTicketApprovedForHelpdesk EventType = "ticket_approved_for_helpdesk"
	EventTicketRejected            EventType = "ticket_rejected"
	EventUnassignedEscalation      EventType = "unassigned_escalation"
	EventTicketStatusChanged       EventType = "ticket_status_changed"
	EventTicketAssigned            EventType = "ticket_assigned"
	EventTicketMessagePosted       EventType = "ticket_message_posted"
)

// AllEventTypes lists every event the services publish.
var AllEventTypes = []EventType{
	EventTicketCreated,
	EventTicketApprovedForHelpdesk,
	EventTicketRejected,
	EventUnassignedEscalation,
	EventTicketStatusChanged,
	EventTicketAssigned,
	EventTicketMessagePosted,
}

// Event represents a domain event emitted by services. A nil ActorID marks a system event.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id"`
	ActorID   *string     `json:"actor_id,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketRef carries the ticket fields every notification needs.
type TicketRef struct {
	ExternalKey string                `json:"external_key"`
	Title       string                `json:"title"`
	Priority    domain.TicketPriority `json:"priority"`
	SubmitterID string                `json:"submitter_id"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	TicketRef
	RequiresApproval bool `json:"requires_approval"`
}

// TicketApprovedPayload payload.
type TicketApprovedPayload struct {
	TicketRef
	ApprovedBy string `json:"approved_by"`
}

// TicketRejectedPayload payload.
type TicketRejectedPayload struct {
	TicketRef
	RejectedBy string `json:"rejected_by"`
	Reason     string `json:"reason"`
}

// UnassignedEscalationPayload payload.
type UnassignedEscalationPayload struct {
	TicketRef
	BusinessDaysOpen int      `json:"business_days_open"`
	Tier             sla.Tier `json:"tier"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	TicketRef
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
}

// TicketAssignedPayload payload.
type TicketAssignedPayload struct {
	TicketRef
	OldAssigneeID *string `json:"old_assignee_id,omitempty"`
	AssigneeID    string  `json:"assignee_id"`
}

// TicketMessagePostedPayload payload.
type TicketMessagePostedPayload struct {
	TicketRef
	MessageID    string `json:"message_id"`
	AuthorID     string `json:"author_id"`
	IsAdminReply bool   `json:"is_admin_reply"`
	BodyPreview  string `json:"body_preview"`
}
