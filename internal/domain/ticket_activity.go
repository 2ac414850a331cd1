package domain

import "time"

// ActivityAction captures what changed in an activity entry.
type ActivityAction string

const (
	ActionCreated          ActivityAction = "created"
	ActionStatusChanged    ActivityAction = "status_changed"
	ActionAssigned         ActivityAction = "assigned"
	ActionPriorityChanged  ActivityAction = "priority_changed"
	ActionCategoryChanged  ActivityAction = "category_changed"
	ActionSubmitterChanged ActivityAction = "submitter_changed"
	ActionRepliedHelpdesk  ActivityAction = "replied_helpdesk"
	ActionRepliedUser      ActivityAction = "replied_user"
	ActionApproved         ActivityAction = "approved"
	ActionRejected         ActivityAction = "rejected"
)

// TicketActivity is an immutable audit trail entry. A nil ActorID marks a system change.
type TicketActivity struct {
	ID         string
	Seq        int64
	TicketID   string
	ActionType ActivityAction
	OldValue   *string
	NewValue   *string
	ActorID    *string
	CreatedAt  time.Time
}
