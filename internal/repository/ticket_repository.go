package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/deskflow/internal/domain"
)

// TicketFilter captures listing parameters.
type TicketFilter struct {
	CreatorID   *string
	AssigneeID  *string
	HeadID      *string
	CategoryID  *string
	Statuses    []domain.TicketStatus
	Priorities  []domain.TicketPriority
	SearchTerm  *string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	Limit       int
	Offset      int
}

// TicketRepository encapsulates ticket and link persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	Update(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, int, error)

	AddAssignee(ctx context.Context, ticketID, assigneeID string) error
	RemoveAssignee(ctx context.Context, ticketID, assigneeID string) (bool, error)
	ListAssigneeIDs(ctx context.Context, ticketID string) ([]string, error)

	AddHead(ctx context.Context, ticketID, headID string, primary bool) error
	ListHeads(ctx context.Context, ticketID string) ([]domain.HeadLink, error)
	HasHead(ctx context.Context, ticketID, headID string) (bool, error)

	ListOverdueCandidateIDs(ctx context.Context, now time.Time) ([]string, error)
	MarkOverdue(ctx context.Context, ticketID string, now time.Time) (bool, error)
}

type ticketRepository struct {
	db DB
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(db DB) TicketRepository {
	return &ticketRepository{db: db}
}

const ticketColumns = `id, external_key, title, content, category_id, creator_id, priority, status,
               cause_type_id, cause, implementation_plan, desired_complete_date,
               expected_start_date, expected_complete_date, created_at, updated_at, completed_at`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (external_key, title, content, category_id, creator_id, priority, status, desired_complete_date)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING id, created_at, updated_at`
	return r.db.QueryRow(ctx, query,
		ticket.ExternalKey,
		ticket.Title,
		ticket.Content,
		ticket.CategoryID,
		ticket.CreatorID,
		ticket.Priority,
		ticket.Status,
		ticket.DesiredCompleteDate,
	).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt)
}

func (r *ticketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        UPDATE tickets SET title=$1, content=$2, priority=$3, status=$4, cause_type_id=$5, cause=$6,
            implementation_plan=$7, expected_start_date=$8, expected_complete_date=$9,
            completed_at=$10, updated_at=NOW()
        WHERE id=$11`
	cmd, err := r.db.Exec(ctx, query,
		ticket.Title,
		ticket.Content,
		ticket.Priority,
		ticket.Status,
		ticket.CauseTypeID,
		ticket.Cause,
		ticket.ImplementationPlan,
		ticket.ExpectedStartDate,
		ticket.ExpectedCompleteDate,
		ticket.CompletedAt,
		ticket.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE id=$1`, ticketColumns)
	var ticket domain.Ticket
	if err := scanTicket(r.db.QueryRow(ctx, query, id), &ticket); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *ticketRepository) ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, int, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.CreatorID != nil {
		args = append(args, *filter.CreatorID)
		clauses = append(clauses, fmt.Sprintf("creator_id=$%d", len(args)))
	}
	if filter.AssigneeID != nil {
		args = append(args, *filter.AssigneeID)
		clauses = append(clauses, fmt.Sprintf("id IN (SELECT ticket_id FROM ticket_assignees WHERE assignee_id=$%d)", len(args)))
	}
	if filter.HeadID != nil {
		args = append(args, *filter.HeadID)
		clauses = append(clauses, fmt.Sprintf("id IN (SELECT ticket_id FROM ticket_heads WHERE head_id=$%d)", len(args)))
	}
	if filter.CategoryID != nil {
		args = append(args, *filter.CategoryID)
		clauses = append(clauses, fmt.Sprintf("category_id=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.Priorities) > 0 {
		placeholders := make([]string, len(filter.Priorities))
		for i, pr := range filter.Priorities {
			args = append(args, pr)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("priority IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.CreatedFrom != nil {
		args = append(args, *filter.CreatedFrom)
		clauses = append(clauses, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if filter.CreatedTo != nil {
		args = append(args, *filter.CreatedTo)
		clauses = append(clauses, fmt.Sprintf("created_at <= $%d", len(args)))
	}
	if filter.SearchTerm != nil && strings.TrimSpace(*filter.SearchTerm) != "" {
		search := "%" + strings.ToLower(strings.TrimSpace(*filter.SearchTerm)) + "%"
		args = append(args, search)
		placeholder := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf("(LOWER(title) LIKE %s OR LOWER(content) LIKE %s)", placeholder, placeholder))
	}

	where := strings.Join(clauses, " AND ")

	var total int
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM tickets WHERE %s`, where)
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE %s ORDER BY created_at DESC LIMIT %d OFFSET %d`,
		ticketColumns, where, limit, offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var result []domain.Ticket
	for rows.Next() {
		var ticket domain.Ticket
		if err := scanTicket(rows, &ticket); err != nil {
			return nil, 0, err
		}
		result = append(result, ticket)
	}
	return result, total, rows.Err()
}

func (r *ticketRepository) AddAssignee(ctx context.Context, ticketID, assigneeID string) error {
	const query = `
        INSERT INTO ticket_assignees (ticket_id, assignee_id)
        VALUES ($1,$2)
        ON CONFLICT (ticket_id, assignee_id) DO NOTHING`
	_, err := r.db.Exec(ctx, query, ticketID, assigneeID)
	return err
}

func (r *ticketRepository) RemoveAssignee(ctx context.Context, ticketID, assigneeID string) (bool, error) {
	const query = `DELETE FROM ticket_assignees WHERE ticket_id=$1 AND assignee_id=$2`
	cmd, err := r.db.Exec(ctx, query, ticketID, assigneeID)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

func (r *ticketRepository) ListAssigneeIDs(ctx context.Context, ticketID string) ([]string, error) {
	const query = `SELECT assignee_id FROM ticket_assignees WHERE ticket_id=$1 ORDER BY created_at`
	rows, err := r.db.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *ticketRepository) AddHead(ctx context.Context, ticketID, headID string, primary bool) error {
	const query = `
        INSERT INTO ticket_heads (ticket_id, head_id, is_primary)
        VALUES ($1,$2,$3)
        ON CONFLICT (ticket_id, head_id) DO NOTHING`
	_, err := r.db.Exec(ctx, query, ticketID, headID, primary)
	return err
}

func (r *ticketRepository) ListHeads(ctx context.Context, ticketID string) ([]domain.HeadLink, error) {
	const query = `
        SELECT ticket_id, head_id, is_primary, created_at
        FROM ticket_heads WHERE ticket_id=$1 ORDER BY created_at`
	rows, err := r.db.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var links []domain.HeadLink
	for rows.Next() {
		var link domain.HeadLink
		if err := rows.Scan(&link.TicketID, &link.HeadID, &link.IsPrimary, &link.CreatedAt); err != nil {
			return nil, err
		}
		links = append(links, link)
	}
	return links, rows.Err()
}

func (r *ticketRepository) HasHead(ctx context.Context, ticketID, headID string) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM ticket_heads WHERE ticket_id=$1 AND head_id=$2)`
	var exists bool
	if err := r.db.QueryRow(ctx, query, ticketID, headID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (r *ticketRepository) ListOverdueCandidateIDs(ctx context.Context, now time.Time) ([]string, error) {
	const query = `
        SELECT id FROM tickets
        WHERE expected_complete_date IS NOT NULL
          AND expected_complete_date < $1
          AND status NOT IN ('CLOSED','REJECTED','OVERDUE')`
	rows, err := r.db.Query(ctx, query, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// MarkOverdue flips one ticket to OVERDUE. The status predicate is part of
// the statement so a ticket closed between selection and write is left alone.
func (r *ticketRepository) MarkOverdue(ctx context.Context, ticketID string, now time.Time) (bool, error) {
	const query = `
        UPDATE tickets SET status='OVERDUE', updated_at=NOW()
        WHERE id=$1
          AND expected_complete_date IS NOT NULL
          AND expected_complete_date < $2
          AND status NOT IN ('CLOSED','REJECTED','OVERDUE')`
	cmd, err := r.db.Exec(ctx, query, ticketID, now)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

func scanTicket(row pgx.Row, ticket *domain.Ticket) error {
	return row.Scan(
		&ticket.ID,
		&ticket.ExternalKey,
		&ticket.Title,
		&ticket.Content,
		&ticket.CategoryID,
		&ticket.CreatorID,
		&ticket.Priority,
		&ticket.Status,
		&ticket.CauseTypeID,
		&ticket.Cause,
		&ticket.ImplementationPlan,
		&ticket.DesiredCompleteDate,
		&ticket.ExpectedStartDate,
		&ticket.ExpectedCompleteDate,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
		&ticket.CompletedAt,
	)
}
