package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store groups the ticket aggregate repositories so a mutation and its audit
// entries can commit together.
type Store interface {
	Tickets() TicketRepository
	Activities() TicketActivityRepository
	Messages() TicketMessageRepository
	// WithinTx runs fn against a transactional Store. Any error rolls back.
	WithinTx(ctx context.Context, fn func(tx Store) error) error
}

type pgStore struct {
	pool *pgxpool.Pool
	q    Querier
}

// NewStore builds a Store over the pool.
func NewStore(pool *pgxpool.Pool) Store {
	return &pgStore{pool: pool, q: pool}
}

func (s *pgStore) Tickets() TicketRepository {
	return &ticketRepository{q: s.q}
}

func (s *pgStore) Activities() TicketActivityRepository {
	return &ticketActivityRepository{q: s.q}
}

func (s *pgStore) Messages() TicketMessageRepository {
	return &ticketMessageRepository{q: s.q}
}

func (s *pgStore) WithinTx(ctx context.Context, fn func(tx Store) error) error {
	if _, inTx := s.q.(pgx.Tx); inTx {
		return fn(s)
	}
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		return fn(&pgStore{pool: s.pool, q: tx})
	})
}
