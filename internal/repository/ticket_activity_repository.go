package repository

import (
	"context"

	"github.com/spec-kit/helpdesk-portal/internal/domain"
)

// TicketActivityRepository stores append-only audit entries.
type TicketActivityRepository interface {
	Create(ctx context.Context, entry *domain.TicketActivity) error
	ListByTicket(ctx context.Context, ticketID string) ([]domain.TicketActivity, error)
}

type ticketActivityRepository struct {
	q Querier
}

func (r *ticketActivityRepository) Create(ctx context.Context, entry *domain.TicketActivity) error {
	const query = `
        INSERT INTO ticket_activities (ticket_id, action_type, old_value, new_value, actor_id, created_at)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, seq`
	return r.q.QueryRow(ctx, query,
		entry.TicketID,
		entry.ActionType,
		entry.OldValue,
		entry.NewValue,
		entry.ActorID,
		entry.CreatedAt,
	).Scan(&entry.ID, &entry.Seq)
}

func (r *ticketActivityRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.TicketActivity, error) {
	const query = `
        SELECT id, seq, ticket_id, action_type, old_value, new_value, actor_id, created_at
        FROM ticket_activities WHERE ticket_id=$1 ORDER BY created_at ASC, seq ASC`
	rows, err := r.q.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.TicketActivity
	for rows.Next() {
		var entry domain.TicketActivity
		if err := rows.Scan(
			&entry.ID,
			&entry.Seq,
			&entry.TicketID,
			&entry.ActionType,
			&entry.OldValue,
			&entry.NewValue,
			&entry.ActorID,
			&entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}
