package repository

import (
	"context"

	"github.com/spec-kit/deskflow/internal/domain"
)

// CommentRepository stores ticket discussion entries and their attachment
// URLs.
type CommentRepository interface {
	Create(ctx context.Context, comment *domain.Comment) error
	AddAttachment(ctx context.Context, commentID, url string) error
	ListByTicket(ctx context.Context, ticketID string) ([]domain.Comment, error)
}

type commentRepository struct {
	db DB
}

// NewCommentRepository builds the repository.
func NewCommentRepository(db DB) CommentRepository {
	return &commentRepository{db: db}
}

func (r *commentRepository) Create(ctx context.Context, comment *domain.Comment) error {
	const query = `
        INSERT INTO ticket_comments (ticket_id, author_id, content)
        VALUES ($1,$2,$3)
        RETURNING id, created_at`
	return r.db.QueryRow(ctx, query,
		comment.TicketID,
		comment.AuthorID,
		comment.Content,
	).Scan(&comment.ID, &comment.CreatedAt)
}

func (r *commentRepository) AddAttachment(ctx context.Context, commentID, url string) error {
	const query = `INSERT INTO comment_attachments (comment_id, url) VALUES ($1,$2)`
	_, err := r.db.Exec(ctx, query, commentID, url)
	return err
}

// ListByTicket returns comments newest first, each with its author and
// attachment URLs resolved.
func (r *commentRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.Comment, error) {
	const query = `
        SELECT c.id, c.ticket_id, c.author_id, u.name, u.email, c.content, c.created_at
        FROM ticket_comments c
        JOIN users u ON u.id = c.author_id
        WHERE c.ticket_id=$1
        ORDER BY c.created_at DESC`
	rows, err := r.db.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var comments []domain.Comment
	index := make(map[string]int)
	for rows.Next() {
		var c domain.Comment
		if err := rows.Scan(&c.ID, &c.TicketID, &c.AuthorID, &c.AuthorName, &c.AuthorEmail, &c.Content, &c.CreatedAt); err != nil {
			return nil, err
		}
		index[c.ID] = len(comments)
		comments = append(comments, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(comments) == 0 {
		return nil, nil
	}

	const attQuery = `
        SELECT a.comment_id, a.url
        FROM comment_attachments a
        JOIN ticket_comments c ON c.id = a.comment_id
        WHERE c.ticket_id=$1
        ORDER BY a.created_at`
	attRows, err := r.db.Query(ctx, attQuery, ticketID)
	if err != nil {
		return nil, err
	}
	defer attRows.Close()

	for attRows.Next() {
		var commentID, url string
		if err := attRows.Scan(&commentID, &url); err != nil {
			return nil, err
		}
		if i, ok := index[commentID]; ok {
			comments[i].FileURLs = append(comments[i].FileURLs, url)
		}
	}
	return comments, attRows.Err()
}
