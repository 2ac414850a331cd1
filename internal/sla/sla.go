// Package sla implements business-day accounting and escalation tiers for tickets.
package sla

import (
	"time"

	"github.com/spec-kit/helpdesk-portal/internal/domain"
)

// Policy defaults.
const (
	EscalationWarningDays         = 3
	EscalationCriticalDays        = 10
	UnassignedNotifyThresholdDays = 2
)

// Tier classifies how overdue a ticket is.
type Tier string

const (
	TierNormal   Tier = "normal"
	TierWarning  Tier = "warning"
	TierCritical Tier = "critical"
)

// Policy carries the escalation thresholds, all in business days.
type Policy struct {
	WarningDays                   int
	CriticalDays                  int
	UnassignedNotifyThresholdDays int
}

// DefaultPolicy returns the stock thresholds.
func DefaultPolicy() Policy {
	return Policy{
		WarningDays:                   EscalationWarningDays,
		CriticalDays:                  EscalationCriticalDays,
		UnassignedNotifyThresholdDays: UnassignedNotifyThresholdDays,
	}
}

// BusinessDaysBetween counts the calendar days in [start, end], inclusive, that fall
// on Monday through Friday. Both instants are read as dates in start's location.
func BusinessDaysBetween(start, end time.Time) int {
	loc := start.Location()
	from := dateOf(start, loc)
	to := dateOf(end.In(loc), loc)
	if to.Before(from) {
		return 0
	}

	days := 0
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		if isWeekday(d.Weekday()) {
			days++
		}
	}
	return days
}

// DaysOpen returns the business days a ticket has been open. Inactive tickets stop
// counting at resolution, or at closing when they were never resolved.
func DaysOpen(t *domain.Ticket, now time.Time, loc *time.Location) int {
	if loc == nil {
		loc = time.UTC
	}
	end := now
	if !t.Active() {
		switch {
		case t.ResolvedAt != nil:
			end = *t.ResolvedAt
		case t.ClosedAt != nil:
			end = *t.ClosedAt
		}
	}
	return BusinessDaysBetween(t.CreatedAt.In(loc), end.In(loc))
}

// Classify maps business days open onto a tier.
func (p Policy) Classify(days int) Tier {
	switch {
	case days > p.CriticalDays:
		return TierCritical
	case days > p.WarningDays:
		return TierWarning
	default:
		return TierNormal
	}
}

// ShouldNotifyUnassigned reports whether an unassigned-ticket escalation is due.
func (p Policy) ShouldNotifyUnassigned(t *domain.Ticket, days int) bool {
	if t.PendingApproval() || !t.Unassigned() || !t.Active() {
		return false
	}
	return days > p.UnassignedNotifyThresholdDays
}

func dateOf(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

func isWeekday(d time.Weekday) bool {
	return d != time.Saturday && d != time.Sunday
}
