package repository

import (
	"context"

	"github.com/spec-kit/deskflow/internal/domain"
)

// ProgressRepository stores the append-only audit trail.
type ProgressRepository interface {
	Create(ctx context.Context, entry *domain.ProgressEntry) error
	ListByTicket(ctx context.Context, ticketID string) ([]domain.ProgressEntry, error)
}

type progressRepository struct {
	db DB
}

// NewProgressRepository builds repository.
func NewProgressRepository(db DB) ProgressRepository {
	return &progressRepository{db: db}
}

func (r *progressRepository) Create(ctx context.Context, entry *domain.ProgressEntry) error {
	const query = `
        INSERT INTO ticket_progress (ticket_id, kind, ticket_status, note, actor_name)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at`
	return r.db.QueryRow(ctx, query,
		entry.TicketID,
		entry.Kind,
		entry.TicketStatus,
		entry.Note,
		entry.ActorName,
	).Scan(&entry.ID, &entry.CreatedAt)
}

func (r *progressRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.ProgressEntry, error) {
	const query = `
        SELECT id, ticket_id, kind, ticket_status, note, actor_name, created_at
        FROM ticket_progress WHERE ticket_id=$1 ORDER BY created_at ASC, id ASC`
	rows, err := r.db.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.ProgressEntry
	for rows.Next() {
		var entry domain.ProgressEntry
		if err := rows.Scan(
			&entry.ID,
			&entry.TicketID,
			&entry.Kind,
			&entry.TicketStatus,
			&entry.Note,
			&entry.ActorName,
			&entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}
