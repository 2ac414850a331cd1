package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCallerRoles(t *testing.T) {
	team := "team-finance"
	caller := CallerFromProfile(&Profile{ID: "u-1", Roles: []Role{RoleUser, RoleManager}, TeamID: &team})

	assert.Equal(t, "u-1", caller.UserID)
	assert.True(t, caller.HasRole(RoleManager))
	assert.False(t, caller.HasRole(RoleAdmin))
	assert.True(t, caller.HasAnyRole(RoleAdmin, RoleManager))
	assert.False(t, caller.Privileged())

	assert.True(t, Caller{Roles: []Role{RoleHelpdesk}}.Privileged())
	assert.True(t, Caller{Roles: []Role{RoleUser, RoleAdmin}}.Privileged())
}

func TestTicketPredicates(t *testing.T) {
	empty := ""
	agent := "agent-1"

	ticket := Ticket{Status: TicketStatusOpen}
	assert.True(t, ticket.Unassigned())
	assert.True(t, ticket.Active())
	assert.False(t, ticket.PendingApproval())

	ticket.AssignedTo = &empty
	assert.True(t, ticket.Unassigned())
	ticket.AssignedTo = &agent
	assert.False(t, ticket.Unassigned())

	ticket.Status = TicketStatusResolved
	assert.False(t, ticket.Active())

	ticket.ApprovalStatus = ApprovalStatusPending
	assert.True(t, ticket.PendingApproval())
}

func TestEnumValidation(t *testing.T) {
	assert.True(t, TicketStatusInProgress.Valid())
	assert.False(t, TicketStatus("pending_user").Valid())
	assert.True(t, TicketPriorityUrgent.Valid())
	assert.False(t, TicketPriority("critical").Valid())
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "Ada Lovelace", (&Profile{FullName: "Ada Lovelace", Email: "ada@example.com"}).DisplayName())
	assert.Equal(t, "ada@example.com", (&Profile{Email: "ada@example.com"}).DisplayName())
}
