package activity

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/spec-kit/helpdesk-portal/internal/domain"
)

func str(s string) *string { return &s }

func TestDescribe(t *testing.T) {
	names := Names(map[string]string{"u-ana": "Ana Perez", "u-bo": "Bo Lind"})

	cases := []struct {
		name string
		in   domain.TicketActivity
		want string
	}{
		{"created", domain.TicketActivity{ActionType: domain.ActionCreated}, "Created the ticket"},
		{"status", domain.TicketActivity{ActionType: domain.ActionStatusChanged, OldValue: str("open"), NewValue: str("in_progress")},
			"Changed status from Open to In Progress"},
		{"first assignment", domain.TicketActivity{ActionType: domain.ActionAssigned, NewValue: str("u-ana")},
			"Assigned the ticket to Ana Perez"},
		{"reassignment", domain.TicketActivity{ActionType: domain.ActionAssigned, OldValue: str("u-ana"), NewValue: str("u-bo")},
			"Reassigned the ticket from Ana Perez to Bo Lind"},
		{"unknown assignee id", domain.TicketActivity{ActionType: domain.ActionAssigned, NewValue: str("u-gone")},
			"Assigned the ticket to u-gone"},
		{"priority", domain.TicketActivity{ActionType: domain.ActionPriorityChanged, OldValue: str("low"), NewValue: str("urgent")},
			"Changed priority from Low to Urgent"},
		{"category", domain.TicketActivity{ActionType: domain.ActionCategoryChanged, OldValue: str("VPN"), NewValue: str("Laptop")},
			"Changed category from VPN to Laptop"},
		{"category from nothing", domain.TicketActivity{ActionType: domain.ActionCategoryChanged, NewValue: str("Laptop")},
			"Changed category from None to Laptop"},
		{"submitter", domain.TicketActivity{ActionType: domain.ActionSubmitterChanged, OldValue: str("u-ana"), NewValue: str("u-bo")},
			"Changed submitter from Ana Perez to Bo Lind"},
		{"helpdesk reply", domain.TicketActivity{ActionType: domain.ActionRepliedHelpdesk}, "Replied to the user"},
		{"user reply", domain.TicketActivity{ActionType: domain.ActionRepliedUser}, "Added a reply"},
		{"approved", domain.TicketActivity{ActionType: domain.ActionApproved, OldValue: str("pending"), NewValue: str("approved")},
			"Approved the request"},
		{"rejected", domain.TicketActivity{ActionType: domain.ActionRejected, NewValue: str("Budget frozen")},
			"Rejected the request: Budget frozen"},
		{"fallback", domain.TicketActivity{ActionType: "merged"}, "Performed action: merged"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Describe(tc.in, names))
		})
	}
}

func TestDescribeWithoutNames(t *testing.T) {
	got := Describe(domain.TicketActivity{ActionType: domain.ActionAssigned, NewValue: str("u-ana")}, nil)
	assert.Equal(t, "Assigned the ticket to u-ana", got)
}

func TestDescribeDoesNotMutate(t *testing.T) {
	in := domain.TicketActivity{ActionType: domain.ActionStatusChanged, OldValue: str("open"), NewValue: str("resolved")}
	_ = Describe(in, nil)
	assert.Equal(t, "open", *in.OldValue)
	assert.Equal(t, "resolved", *in.NewValue)
}
