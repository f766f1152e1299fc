package repository

import (
	"context"

	"github.com/spec-kit/deskflow/internal/domain"
)

// AttachmentRepository stores uploaded-file references for tickets.
type AttachmentRepository interface {
	Create(ctx context.Context, att *domain.Attachment) error
	ListByTicket(ctx context.Context, ticketID string) ([]domain.Attachment, error)
	DeleteByURL(ctx context.Context, ticketID, url string) (bool, error)
}

type attachmentRepository struct {
	db DB
}

// NewAttachmentRepository builds the repository.
func NewAttachmentRepository(db DB) AttachmentRepository {
	return &attachmentRepository{db: db}
}

func (r *attachmentRepository) Create(ctx context.Context, att *domain.Attachment) error {
	const query = `
        INSERT INTO ticket_attachments (ticket_id, url, content_type)
        VALUES ($1,$2,$3)
        RETURNING id, created_at`
	return r.db.QueryRow(ctx, query,
		att.TicketID,
		att.URL,
		att.ContentType,
	).Scan(&att.ID, &att.CreatedAt)
}

func (r *attachmentRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.Attachment, error) {
	const query = `
        SELECT id, ticket_id, url, content_type, created_at
        FROM ticket_attachments WHERE ticket_id=$1 ORDER BY created_at`
	rows, err := r.db.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Attachment
	for rows.Next() {
		var att domain.Attachment
		if err := rows.Scan(&att.ID, &att.TicketID, &att.URL, &att.ContentType, &att.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, att)
	}
	return result, rows.Err()
}

func (r *attachmentRepository) DeleteByURL(ctx context.Context, ticketID, url string) (bool, error) {
	const query = `DELETE FROM ticket_attachments WHERE ticket_id=$1 AND url=$2`
	cmd, err := r.db.Exec(ctx, query, ticketID, url)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}
