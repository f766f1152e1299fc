package service

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/deskflow/internal/domain"
	"github.com/spec-kit/deskflow/internal/repository"
	apperrors "github.com/spec-kit/deskflow/pkg/util"
)

// RoutingResolver maps a ticket category to the department head who owns
// triage for it, and answers head-authorization questions for tickets.
type RoutingResolver struct {
	categories repository.CategoryRepository
	users      repository.UserRepository
	tickets    repository.TicketRepository
}

// NewRoutingResolver constructs the resolver.
func NewRoutingResolver(categories repository.CategoryRepository, users repository.UserRepository, tickets repository.TicketRepository) *RoutingResolver {
	return &RoutingResolver{categories: categories, users: users, tickets: tickets}
}

// ResolveHeadForCategory returns the head of the department owning the
// category. A department without a head is an operator mistake, surfaced as
// a CONFIGURATION error rather than NOT_FOUND.
func (r *RoutingResolver) ResolveHeadForCategory(ctx context.Context, categoryID string) (*domain.User, error) {
	category, err := r.categories.GetByID(ctx, categoryID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("category", map[string]any{"category_id": categoryID})
		}
		return nil, apperrors.MapError(err)
	}

	head, err := r.users.GetHeadOfDepartment(ctx, category.DepartmentID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewConfiguration("department has no head", map[string]any{
				"department_id": category.DepartmentID,
				"category_id":   categoryID,
			})
		}
		return nil, apperrors.MapError(err)
	}
	return head, nil
}

// AuthorizeHeadAction reports whether the actor is in the ticket's head set.
func (r *RoutingResolver) AuthorizeHeadAction(ctx context.Context, ticketID, actorID string) (bool, error) {
	return r.tickets.HasHead(ctx, ticketID, actorID)
}
