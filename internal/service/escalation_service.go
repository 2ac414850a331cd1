package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-portal/internal/domain"
	"github.com/spec-kit/helpdesk-portal/internal/events"
	"github.com/spec-kit/helpdesk-portal/internal/repository"
	"github.com/spec-kit/helpdesk-portal/internal/sla"
	apperrors "github.com/spec-kit/helpdesk-portal/pkg/util/errorutil"
)

const sweepPageSize = 200

// EscalationMarker records that a notification went out. MarkOnce reports false when
// key was already marked.
type EscalationMarker interface {
	MarkOnce(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

// EscalationService finds unassigned tickets that have waited too long.
type EscalationService struct {
	tickets    repository.TicketRepository
	marker     EscalationMarker
	dispatcher events.Dispatcher
	policy     sla.Policy
	location   *time.Location
	dedupeTTL  time.Duration
	logger     *zap.Logger
	now        Clock
}

// EscalationDependencies bundles collaborators for escalation service.
type EscalationDependencies struct {
	TicketRepo repository.TicketRepository
	Marker     EscalationMarker
	Dispatcher events.Dispatcher
	Policy     sla.Policy
	Location   *time.Location
	DedupeTTL  time.Duration
	Logger     *zap.Logger
	Clock      Clock
}

// SweepResult summarizes one escalation run.
type SweepResult struct {
	Scanned    int
	Due        int
	Notified   int
	Suppressed int
}

// NewEscalationService constructs the service.
func NewEscalationService(deps EscalationDependencies) *EscalationService {
	svc := &EscalationService{
		tickets:    deps.TicketRepo,
		marker:     deps.Marker,
		dispatcher: deps.Dispatcher,
		policy:     deps.Policy,
		location:   deps.Location,
		dedupeTTL:  deps.DedupeTTL,
		logger:     deps.Logger,
		now:        deps.Clock,
	}
	if svc.policy == (sla.Policy{}) {
		svc.policy = sla.DefaultPolicy()
	}
	if svc.location == nil {
		svc.location = time.UTC
	}
	if svc.dedupeTTL <= 0 {
		svc.dedupeTTL = 24 * time.Hour
	}
	if svc.logger == nil {
		svc.logger = zap.NewNop()
	}
	if svc.now == nil {
		svc.now = systemClock
	}
	return svc
}

// Assess returns the business days the ticket has been open and its tier.
func (s *EscalationService) Assess(t *domain.Ticket) (int, sla.Tier) {
	days := sla.DaysOpen(t, s.now(), s.location)
	return days, s.policy.Classify(days)
}

// Sweep publishes an unassigned_escalation event for every due ticket, at most once
// per ticket per calendar day.
func (s *EscalationService) Sweep(ctx context.Context) (SweepResult, error) {
	var result SweepResult
	now := s.now()
	day := now.In(s.location).Format("2006-01-02")

	for offset := 0; ; offset += sweepPageSize {
		page, err := s.tickets.ListWithFilter(ctx, repository.TicketFilter{
			Unassigned:     true,
			Statuses:       []domain.TicketStatus{domain.TicketStatusOpen, domain.TicketStatusInProgress},
			ExcludePending: true,
			OrderByCreated: true,
			Limit:          sweepPageSize,
			Offset:         offset,
		})
		if err != nil {
			return result, apperrors.MapError(err)
		}

		var due []events.Event
		for i := range page {
			t := &page[i]
			result.Scanned++
			days := sla.DaysOpen(t, now, s.location)
			if !s.policy.ShouldNotifyUnassigned(t, days) {
				continue
			}
			result.Due++
			if !s.claim(ctx, t.ID, day) {
				result.Suppressed++
				continue
			}
			result.Notified++
			due = append(due, events.Event{
				Type:     events.EventUnassignedEscalation,
				TicketID: t.ID,
				Payload: events.UnassignedEscalationPayload{
					TicketRef:        ticketRef(t),
					BusinessDaysOpen: days,
					Tier:             s.policy.Classify(days),
				},
			})
		}
		publishAll(ctx, s.dispatcher, s.logger, now, due)

		if len(page) < sweepPageSize {
			break
		}
	}

	return result, nil
}

// claim reports whether this run owns today's notification for the ticket. A marker
// failure lets the notification through.
func (s *EscalationService) claim(ctx context.Context, ticketID, day string) bool {
	if s.marker == nil {
		return true
	}
	key := fmt.Sprintf("escalation:unassigned:%s:%s", ticketID, day)
	ok, err := s.marker.MarkOnce(ctx, key, s.dedupeTTL)
	if err != nil {
		s.logger.Warn("escalation marker unavailable", zap.String("ticket_id", ticketID), zap.Error(err))
		return true
	}
	return ok
}
