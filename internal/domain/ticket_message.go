package domain

import "time"

// TicketMessage captures communications in a ticket thread.
type TicketMessage struct {
	ID           string
	TicketID     string
	AuthorID     string
	Body         string
	IsAdminReply bool
	CreatedAt    time.Time
}
