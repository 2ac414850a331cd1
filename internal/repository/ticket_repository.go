package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk-portal/internal/domain"
)

// TicketFilter captures listing parameters.
type TicketFilter struct {
	CreatedBy        *string
	AssignedTo       *string
	Unassigned       bool
	Statuses         []domain.TicketStatus
	Priorities       []domain.TicketPriority
	ApprovalStatuses []domain.ApprovalStatus
	ExcludePending   bool
	SubmitterTeamID  *string
	SearchTerm       *string
	CreatedFrom      *time.Time
	CreatedTo        *time.Time
	OrderByCreated   bool
	Limit            int
	Offset           int
}

// TicketPatch lists the fields an update writes. Nil fields are left untouched.
type TicketPatch struct {
	Status          *domain.TicketStatus
	Priority        *domain.TicketPriority
	SubCategory     *string
	AssignedTo      *string
	CreatedBy       *string
	ResolvedAt      *time.Time
	ClosedAt        *time.Time
	ClearClosedAt   bool
	ApprovalStatus  *domain.ApprovalStatus
	ApprovedBy      *string
	ApprovedAt      *time.Time
	RejectionReason *string
	UpdatedAt       time.Time
}

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	// GetForUpdate locks the row for the rest of the enclosing transaction.
	GetForUpdate(ctx context.Context, id string) (*domain.Ticket, error)
	Update(ctx context.Context, id string, patch TicketPatch) (*domain.Ticket, error)
	ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
}

type ticketRepository struct {
	q Querier
}

const ticketColumns = `t.id, t.external_key, t.title, t.description, t.main_category, t.sub_category,
       t.priority, t.status, t.approval_status, t.requires_approval, t.created_by, t.assigned_to,
       t.contact_phone, t.created_at, t.updated_at, t.resolved_at, t.closed_at, t.approved_at,
       t.approved_by, t.rejection_reason`

// Create inserts the ticket. The legacy category column mirrors sub_category.
func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (external_key, title, description, main_category, sub_category, category,
            priority, status, approval_status, requires_approval, created_by, contact_phone, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$5,$6,$7,$8,$9,$10,$11,$12,$12)
        RETURNING id`
	return r.q.QueryRow(ctx, query,
		ticket.ExternalKey,
		ticket.Title,
		ticket.Description,
		ticket.Category.Main,
		ticket.Category.Sub,
		ticket.Priority,
		ticket.Status,
		nullableApproval(ticket.ApprovalStatus),
		ticket.RequiresApproval,
		ticket.CreatedBy,
		ticket.ContactPhone,
		ticket.CreatedAt,
	).Scan(&ticket.ID)
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	if !validID(id) {
		return nil, pgx.ErrNoRows
	}
	query := `SELECT ` + ticketColumns + ` FROM tickets t WHERE t.id=$1`
	return scanTicket(r.q.QueryRow(ctx, query, id))
}

func (r *ticketRepository) GetForUpdate(ctx context.Context, id string) (*domain.Ticket, error) {
	if !validID(id) {
		return nil, pgx.ErrNoRows
	}
	query := `SELECT ` + ticketColumns + ` FROM tickets t WHERE t.id=$1 FOR UPDATE`
	return scanTicket(r.q.QueryRow(ctx, query, id))
}

func (r *ticketRepository) Update(ctx context.Context, id string, patch TicketPatch) (*domain.Ticket, error) {
	if !validID(id) {
		return nil, pgx.ErrNoRows
	}
	sets := []string{}
	args := []any{}
	set := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s=$%d", column, len(args)))
	}

	if patch.Status != nil {
		set("status", *patch.Status)
	}
	if patch.Priority != nil {
		set("priority", *patch.Priority)
	}
	if patch.SubCategory != nil {
		set("sub_category", *patch.SubCategory)
		set("category", *patch.SubCategory)
	}
	if patch.AssignedTo != nil {
		set("assigned_to", *patch.AssignedTo)
	}
	if patch.CreatedBy != nil {
		set("created_by", *patch.CreatedBy)
	}
	if patch.ResolvedAt != nil {
		set("resolved_at", *patch.ResolvedAt)
	}
	if patch.ClosedAt != nil {
		set("closed_at", *patch.ClosedAt)
	} else if patch.ClearClosedAt {
		sets = append(sets, "closed_at=NULL")
	}
	if patch.ApprovalStatus != nil {
		set("approval_status", nullableApproval(*patch.ApprovalStatus))
	}
	if patch.ApprovedBy != nil {
		set("approved_by", *patch.ApprovedBy)
	}
	if patch.ApprovedAt != nil {
		set("approved_at", *patch.ApprovedAt)
	}
	if patch.RejectionReason != nil {
		set("rejection_reason", *patch.RejectionReason)
	}
	if patch.UpdatedAt.IsZero() {
		sets = append(sets, "updated_at=NOW()")
	} else {
		set("updated_at", patch.UpdatedAt)
	}

	args = append(args, id)
	query := fmt.Sprintf(`UPDATE tickets t SET %s WHERE t.id=$%d RETURNING %s`,
		strings.Join(sets, ", "), len(args), ticketColumns)
	return scanTicket(r.q.QueryRow(ctx, query, args...))
}

func (r *ticketRepository) ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	for _, id := range []*string{filter.CreatedBy, filter.AssignedTo, filter.SubmitterTeamID} {
		if id != nil && !validID(*id) {
			return []domain.Ticket{}, nil
		}
	}
	base := `SELECT ` + ticketColumns + ` FROM tickets t`
	clauses := []string{"1=1"}
	args := []any{}

	if filter.SubmitterTeamID != nil {
		base += ` JOIN profiles p ON p.id = t.created_by`
		args = append(args, *filter.SubmitterTeamID)
		clauses = append(clauses, fmt.Sprintf("p.team_id=$%d", len(args)))
	}
	if filter.CreatedBy != nil {
		args = append(args, *filter.CreatedBy)
		clauses = append(clauses, fmt.Sprintf("t.created_by=$%d", len(args)))
	}
	if filter.AssignedTo != nil {
		args = append(args, *filter.AssignedTo)
		clauses = append(clauses, fmt.Sprintf("t.assigned_to=$%d", len(args)))
	}
	if filter.Unassigned {
		clauses = append(clauses, "t.assigned_to IS NULL")
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("t.status IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.Priorities) > 0 {
		placeholders := make([]string, len(filter.Priorities))
		for i, pr := range filter.Priorities {
			args = append(args, pr)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("t.priority IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.ApprovalStatuses) > 0 {
		parts := make([]string, 0, len(filter.ApprovalStatuses))
		for _, st := range filter.ApprovalStatuses {
			if st == domain.ApprovalStatusNone {
				parts = append(parts, "t.approval_status IS NULL")
				continue
			}
			args = append(args, st)
			parts = append(parts, fmt.Sprintf("t.approval_status=$%d", len(args)))
		}
		clauses = append(clauses, "("+strings.Join(parts, " OR ")+")")
	}
	if filter.ExcludePending {
		clauses = append(clauses, "t.approval_status IS DISTINCT FROM 'pending'")
	}
	if filter.CreatedFrom != nil {
		args = append(args, *filter.CreatedFrom)
		clauses = append(clauses, fmt.Sprintf("t.created_at >= $%d", len(args)))
	}
	if filter.CreatedTo != nil {
		args = append(args, *filter.CreatedTo)
		clauses = append(clauses, fmt.Sprintf("t.created_at <= $%d", len(args)))
	}
	if filter.SearchTerm != nil && strings.TrimSpace(*filter.SearchTerm) != "" {
		search := "%" + strings.ToLower(strings.TrimSpace(*filter.SearchTerm)) + "%"
		args = append(args, search)
		placeholder := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf("(LOWER(t.title) LIKE %s OR LOWER(t.description) LIKE %s OR LOWER(t.external_key) LIKE %s)",
			placeholder, placeholder, placeholder))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	order := "t.updated_at DESC"
	if filter.OrderByCreated {
		order = "t.created_at DESC"
	}

	query := fmt.Sprintf(`%s WHERE %s ORDER BY %s, t.id LIMIT %d OFFSET %d`,
		base, strings.Join(clauses, " AND "), order, limit, offset)

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Ticket
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *ticket)
	}
	return result, rows.Err()
}

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var (
		ticket   domain.Ticket
		approval *string
	)
	if err := row.Scan(
		&ticket.ID,
		&ticket.ExternalKey,
		&ticket.Title,
		&ticket.Description,
		&ticket.Category.Main,
		&ticket.Category.Sub,
		&ticket.Priority,
		&ticket.Status,
		&approval,
		&ticket.RequiresApproval,
		&ticket.CreatedBy,
		&ticket.AssignedTo,
		&ticket.ContactPhone,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
		&ticket.ResolvedAt,
		&ticket.ClosedAt,
		&ticket.ApprovedAt,
		&ticket.ApprovedBy,
		&ticket.RejectionReason,
	); err != nil {
		return nil, err
	}
	if approval != nil {
		ticket.ApprovalStatus = domain.ApprovalStatus(*approval)
	}
	return &ticket, nil
}

func nullableApproval(st domain.ApprovalStatus) *string {
	if st == domain.ApprovalStatusNone {
		return nil
	}
	s := string(st)
	return &s
}
