package domain

import "time"

// Team groups profiles under one manager. RequiresApproval makes every ticket
// submitted by a member wait for a manager decision.
type Team struct {
	ID               string
	Name             string
	RequiresApproval bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
