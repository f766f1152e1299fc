package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/deskflow/internal/domain"
	"github.com/spec-kit/deskflow/internal/files"
	"github.com/spec-kit/deskflow/internal/repository"
	apperrors "github.com/spec-kit/deskflow/pkg/util"
)

// AddComment posts a discussion entry on a ticket. The comment commits before
// any attachment upload is attempted, so an upload failure leaves a comment
// without files rather than no comment.
func (e *WorkflowEngine) AddComment(ctx context.Context, actor *domain.User, ticketID, content string, attachments []files.Upload) (*domain.Comment, error) {
	comment := &domain.Comment{
		TicketID: ticketID,
		AuthorID: actor.ID,
		Content:  strings.TrimSpace(content),
	}
	if comment.Content == "" {
		return nil, apperrors.NewValidationError("content required", nil)
	}

	err := e.tx.Do(ctx, func(r *repository.Repos) error {
		if _, err := getTicket(ctx, r, ticketID); err != nil {
			return err
		}
		if err := r.Comments.Create(ctx, comment); err != nil {
			return apperrors.MapError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	comment.AuthorName = actor.Name
	comment.AuthorEmail = actor.Email

	if len(attachments) > 0 {
		urls, upErr := e.files.UploadFiles(ctx, attachments)
		if upErr != nil {
			e.logger.Error("attachment upload failed after comment commit",
				zap.String("ticket_id", ticketID), zap.String("comment_id", comment.ID), zap.Error(upErr))
			return nil, apperrors.NewTransient("attachment upload failed", upErr)
		}
		for _, url := range urls {
			if err := e.repos.Comments.AddAttachment(ctx, comment.ID, url); err != nil {
				return nil, apperrors.MapError(err)
			}
			comment.FileURLs = append(comment.FileURLs, url)
		}
	}
	return comment, nil
}

// ListComments returns a ticket's comments newest first.
func (e *WorkflowEngine) ListComments(ctx context.Context, ticketID string) ([]domain.Comment, error) {
	var comments []domain.Comment
	err := e.tx.Do(ctx, func(r *repository.Repos) error {
		if _, err := getTicket(ctx, r, ticketID); err != nil {
			return err
		}
		var err error
		if comments, err = r.Comments.ListByTicket(ctx, ticketID); err != nil {
			return apperrors.MapError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return comments, nil
}
