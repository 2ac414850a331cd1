package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "open"
	TicketStatusInProgress TicketStatus = "in_progress"
	TicketStatusResolved   TicketStatus = "resolved"
	TicketStatusClosed     TicketStatus = "closed"
)

// Valid reports whether s is a known status.
func (s TicketStatus) Valid() bool {
	switch s {
	case TicketStatusOpen, TicketStatusInProgress, TicketStatusResolved, TicketStatusClosed:
		return true
	}
	return false
}

// TicketPriority enumerates SLA urgency.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "low"
	TicketPriorityMedium TicketPriority = "medium"
	TicketPriorityHigh   TicketPriority = "high"
	TicketPriorityUrgent TicketPriority = "urgent"
)

// Valid reports whether p is a known priority.
func (p TicketPriority) Valid() bool {
	switch p {
	case TicketPriorityLow, TicketPriorityMedium, TicketPriorityHigh, TicketPriorityUrgent:
		return true
	}
	return false
}

// ApprovalStatus tracks the manager decision for tickets that require one.
// The zero value means no approval is required and is stored as NULL.
type ApprovalStatus string

const (
	ApprovalStatusNone     ApprovalStatus = ""
	ApprovalStatusPending  ApprovalStatus = "pending"
	ApprovalStatusApproved ApprovalStatus = "approved"
	ApprovalStatusRejected ApprovalStatus = "rejected"
)

// Category is the two-level ticket taxonomy.
type Category struct {
	Main string
	Sub  string
}

// Ticket is the aggregate for support requests.
type Ticket struct {
	ID               string
	ExternalKey      string
	Title            string
	Description      string
	Category         Category
	Priority         TicketPriority
	Status           TicketStatus
	ApprovalStatus   ApprovalStatus
	RequiresApproval bool
	CreatedBy        string
	AssignedTo       *string
	ContactPhone     string
	CreatedAt        time.Time
	UpdatedAt        time.Time
	ResolvedAt       *time.Time
	ClosedAt         *time.Time
	ApprovedAt       *time.Time
	ApprovedBy       *string
	RejectionReason  *string
}

// PendingApproval reports whether the ticket is still waiting on a manager decision.
func (t *Ticket) PendingApproval() bool {
	return t.ApprovalStatus == ApprovalStatusPending
}

// Unassigned reports whether nobody has picked the ticket up.
func (t *Ticket) Unassigned() bool {
	return t.AssignedTo == nil || *t.AssignedTo == ""
}

// Active reports whether the ticket still sits in the helpdesk queue.
func (t *Ticket) Active() bool {
	return t.Status == TicketStatusOpen || t.Status == TicketStatusInProgress
}
