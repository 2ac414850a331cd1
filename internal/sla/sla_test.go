package sla

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/spec-kit/helpdesk-portal/internal/domain"
)

// 2024-06-03 is a Monday.
func day(d, hour int) time.Time {
	return time.Date(2024, time.June, d, hour, 0, 0, 0, time.UTC)
}

func TestBusinessDaysBetween(t *testing.T) {
	cases := []struct {
		name  string
		start time.Time
		end   time.Time
		want  int
	}{
		{"same weekday", day(3, 9), day(3, 17), 1},
		{"same saturday", day(8, 9), day(8, 10), 0},
		{"same sunday", day(9, 9), day(9, 10), 0},
		{"monday to friday", day(3, 9), day(7, 9), 5},
		{"monday to thursday", day(3, 9), day(6, 8), 4},
		{"spans weekend", day(7, 9), day(10, 9), 2},
		{"weekend only", day(8, 0), day(9, 23), 0},
		{"two full weeks", day(3, 9), day(14, 9), 10},
		{"end before start", day(7, 9), day(3, 9), 0},
		{"end earlier same day", day(4, 18), day(4, 8), 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, BusinessDaysBetween(tc.start, tc.end))
		})
	}
}

func TestBusinessDaysBetweenUsesStartLocation(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*60*60)
	// Friday 23:00 UTC is already Saturday in Tokyo.
	start := time.Date(2024, time.June, 7, 23, 0, 0, 0, time.UTC).In(tokyo)
	end := time.Date(2024, time.June, 8, 1, 0, 0, 0, time.UTC)
	assert.Equal(t, 0, BusinessDaysBetween(start, end))
}

func TestClassify(t *testing.T) {
	p := DefaultPolicy()
	assert.Equal(t, TierNormal, p.Classify(0))
	assert.Equal(t, TierNormal, p.Classify(3))
	assert.Equal(t, TierWarning, p.Classify(4))
	assert.Equal(t, TierWarning, p.Classify(10))
	assert.Equal(t, TierCritical, p.Classify(11))
}

func TestDaysOpen(t *testing.T) {
	resolvedAt := day(5, 12)
	ticket := &domain.Ticket{CreatedAt: day(3, 9), Status: domain.TicketStatusResolved, ResolvedAt: &resolvedAt}
	assert.Equal(t, 3, DaysOpen(ticket, day(14, 9), time.UTC))

	// Reopened tickets keep counting even though resolved_at stays set.
	ticket.Status = domain.TicketStatusInProgress
	assert.Equal(t, 10, DaysOpen(ticket, day(14, 9), time.UTC))

	open := &domain.Ticket{CreatedAt: day(3, 9), Status: domain.TicketStatusOpen}
	assert.Equal(t, 4, DaysOpen(open, day(6, 10), nil))

	// Closed without resolving, as a rejected request is.
	closedAt := day(4, 15)
	closed := &domain.Ticket{CreatedAt: day(3, 9), Status: domain.TicketStatusClosed, ClosedAt: &closedAt}
	assert.Equal(t, 2, DaysOpen(closed, day(14, 9), time.UTC))
}

func TestShouldNotifyUnassigned(t *testing.T) {
	p := DefaultPolicy()
	agent := "agent-1"

	// Created Monday 09:00, checked the following Thursday.
	ticket := &domain.Ticket{CreatedAt: day(3, 9), Status: domain.TicketStatusOpen}
	days := DaysOpen(ticket, day(6, 10), time.UTC)
	assert.Equal(t, 4, days)
	assert.True(t, p.ShouldNotifyUnassigned(ticket, days))
	assert.Equal(t, TierWarning, p.Classify(days))

	assert.False(t, p.ShouldNotifyUnassigned(ticket, 2))

	assigned := *ticket
	assigned.AssignedTo = &agent
	assert.False(t, p.ShouldNotifyUnassigned(&assigned, days))

	resolved := *ticket
	resolved.Status = domain.TicketStatusResolved
	assert.False(t, p.ShouldNotifyUnassigned(&resolved, days))

	pending := *ticket
	pending.ApprovalStatus = domain.ApprovalStatusPending
	assert.False(t, p.ShouldNotifyUnassigned(&pending, days))

	working := *ticket
	working.Status = domain.TicketStatusInProgress
	assert.True(t, p.ShouldNotifyUnassigned(&working, days))
}
