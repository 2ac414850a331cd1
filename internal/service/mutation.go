package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-portal/internal/domain"
	"github.com/spec-kit/helpdesk-portal/internal/events"
	"github.com/spec-kit/helpdesk-portal/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-portal/pkg/util/errorutil"
)

// Clock returns the current time. Services take one so tests can pin it.
type Clock func() time.Time

func systemClock() time.Time {
	return time.Now().UTC()
}

// change is what a decision function wants written for one ticket mutation.
type change struct {
	noop       bool
	patch      repository.TicketPatch
	message    *domain.TicketMessage
	activities []domain.TicketActivity
	notify     func(updated *domain.Ticket) []events.Event
}

type decideFunc func(ctx context.Context, ticket *domain.Ticket) (change, error)

// applyChange locks the ticket, lets decide validate it, then writes the patch, the
// optional message and every activity in one transaction. Events are returned for
// publication after commit.
func applyChange(ctx context.Context, store repository.Store, ticketID string, now time.Time, decide decideFunc) (*domain.Ticket, []events.Event, error) {
	var (
		result  *domain.Ticket
		pending []events.Event
	)
	err := store.WithinTx(ctx, func(tx repository.Store) error {
		ticket, err := tx.Tickets().GetForUpdate(ctx, ticketID)
		if err != nil {
			return ticketLookupError(err, ticketID)
		}

		c, err := decide(ctx, ticket)
		if err != nil {
			return err
		}
		if c.noop {
			result = ticket
			return nil
		}

		if c.message != nil {
			c.message.TicketID = ticket.ID
			c.message.CreatedAt = now
			if err := tx.Messages().Create(ctx, c.message); err != nil {
				return err
			}
		}

		c.patch.UpdatedAt = now
		updated, err := tx.Tickets().Update(ctx, ticket.ID, c.patch)
		if err != nil {
			return err
		}

		for i := range c.activities {
			entry := c.activities[i]
			entry.TicketID = ticket.ID
			entry.CreatedAt = now
			if err := tx.Activities().Create(ctx, &entry); err != nil {
				return err
			}
		}

		result = updated
		if c.notify != nil {
			pending = c.notify(updated)
		}
		return nil
	})
	if err != nil {
		return nil, nil, apperrors.MapError(err)
	}
	return result, pending, nil
}

func ticketLookupError(err error, ticketID string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
	}
	return err
}

func publishAll(ctx context.Context, dispatcher events.Dispatcher, logger *zap.Logger, now time.Time, evts []events.Event) {
	if dispatcher == nil {
		return
	}
	for _, event := range evts {
		if event.ID == "" {
			event.ID = uuid.NewString()
		}
		if event.Timestamp.IsZero() {
			event.Timestamp = now
		}
		if err := dispatcher.Publish(ctx, event); err != nil {
			logger.Warn("publish event failed", zap.String("event_type", string(event.Type)), zap.Error(err))
		}
	}
}

func requireCaller(caller domain.Caller) error {
	if strings.TrimSpace(caller.UserID) == "" {
		return apperrors.NewUnauthorized("caller identity required")
	}
	return nil
}

func requirePrivileged(caller domain.Caller) error {
	if err := requireCaller(caller); err != nil {
		return err
	}
	if !caller.Privileged() {
		return apperrors.NewForbidden("admin or helpdesk role required")
	}
	return nil
}

func rejectPending(ticket *domain.Ticket) error {
	if ticket.PendingApproval() {
		return apperrors.NewInvalidTransition("ticket is awaiting approval", map[string]any{"ticket_id": ticket.ID})
	}
	return nil
}

func ticketRef(t *domain.Ticket) events.TicketRef {
	return events.TicketRef{
		ExternalKey: t.ExternalKey,
		Title:       t.Title,
		Priority:    t.Priority,
		SubmitterID: t.CreatedBy,
	}
}

func newActivity(action domain.ActivityAction, actorID string, oldValue, newValue *string) domain.TicketActivity {
	entry := domain.TicketActivity{ActionType: action, OldValue: oldValue, NewValue: newValue}
	if actorID != "" {
		entry.ActorID = strPtr(actorID)
	}
	return entry
}

func strPtr(s string) *string {
	return &s
}

func copyPtr(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	v := *s
	return &v
}

func stringPreview(body string, max int) string {
	body = strings.TrimSpace(body)
	runes := []rune(body)
	if len(runes) <= max {
		return body
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}

func generateTicketKey() string {
	return "TCK-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}
