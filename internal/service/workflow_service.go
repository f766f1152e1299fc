package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/deskflow/internal/cache"
	"github.com/spec-kit/deskflow/internal/domain"
	"github.com/spec-kit/deskflow/internal/files"
	"github.com/spec-kit/deskflow/internal/repository"
	"github.com/spec-kit/deskflow/internal/worker"
	apperrors "github.com/spec-kit/deskflow/pkg/util"
)

// WorkflowEngine orchestrates the ticket lifecycle: create, assign,
// escalate, reject, handle, complete. Every mutating operation runs inside
// one transaction so the ticket, its links and the audit entry commit
// together; notifications are enqueued only after the commit.
type WorkflowEngine struct {
	repos    *repository.Repos
	tx       repository.TxRunner
	routing  *RoutingResolver
	notifier worker.Notifier
	tasks    *worker.TaskQueue
	files    files.Store
	cache    *cache.TicketCache
	logger   *zap.Logger

	// Clock is injectable for tests; defaults to time.Now.
	Clock func() time.Time
}

// WorkflowDependencies bundles collaborators for the engine.
type WorkflowDependencies struct {
	Repos    *repository.Repos
	Tx       repository.TxRunner
	Routing  *RoutingResolver
	Notifier worker.Notifier
	Tasks    *worker.TaskQueue
	Files    files.Store
	Cache    *cache.TicketCache
	Logger   *zap.Logger
}

// NewWorkflowEngine constructs the engine.
func NewWorkflowEngine(deps WorkflowDependencies) *WorkflowEngine {
	return &WorkflowEngine{
		repos:    deps.Repos,
		tx:       deps.Tx,
		routing:  deps.Routing,
		notifier: deps.Notifier,
		tasks:    deps.Tasks,
		files:    deps.Files,
		cache:    deps.Cache,
		logger:   deps.Logger,
		Clock:    time.Now,
	}
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	Title               string
	CategoryID          string
	Content             string
	Priority            domain.TicketPriority
	DesiredCompleteDate time.Time
	Attachments         []files.Upload
}

// TicketUpdateInput carries the triage/annotation fields; nil means "leave
// unchanged".
type TicketUpdateInput struct {
	CauseTypeID          *string
	Cause                *string
	ImplementationPlan   *string
	ExpectedStartDate    *time.Time
	ExpectedCompleteDate *time.Time
	AddFiles             []files.Upload
	RemoveFileURLs       []string
}

// TicketListFilter describes listing parameters relative to the caller.
type TicketListFilter struct {
	AssignedToMe bool
	CreatedByMe  bool
	HeadedByMe   bool
	Statuses     []domain.TicketStatus
	Priorities   []domain.TicketPriority
	CategoryID   *string
	SearchTerm   *string
	Page         int
	PageSize     int
}

// HeadInfo is a head attached to a ticket.
type HeadInfo struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	IsPrimary bool   `json:"is_primary"`
}

// AssigneeInfo is an employee working a ticket.
type AssigneeInfo struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// TicketDetail aggregates everything a detail view needs. It is also the
// cache payload, hence the JSON tags.
type TicketDetail struct {
	Ticket       domain.Ticket          `json:"ticket"`
	CategoryName string                 `json:"category_name"`
	CreatorName  string                 `json:"creator_name"`
	Heads        []HeadInfo             `json:"heads"`
	Assignees    []AssigneeInfo         `json:"assignees"`
	Progress     []domain.ProgressEntry `json:"progress"`
	FileURLs     []string               `json:"file_urls"`
}

// Create files a new ticket: routes it to the category's department head,
// records the initial audit entry, uploads attachments and notifies the
// head. The ticket and its audit entry commit before the attachment upload
// is attempted, so an upload failure leaves a ticket without attachments
// rather than no ticket.
func (e *WorkflowEngine) Create(ctx context.Context, creator *domain.User, input TicketCreateInput) (*domain.Ticket, error) {
	head, err := e.routing.ResolveHeadForCategory(ctx, input.CategoryID)
	if err != nil {
		return nil, err
	}

	ticket := &domain.Ticket{
		ExternalKey:         generateTicketKey(),
		Title:               strings.TrimSpace(input.Title),
		Content:             strings.TrimSpace(input.Content),
		CategoryID:          input.CategoryID,
		CreatorID:           creator.ID,
		Priority:            input.Priority,
		Status:              domain.TicketStatusPending,
		DesiredCompleteDate: input.DesiredCompleteDate,
	}
	if ticket.Priority == "" {
		ticket.Priority = domain.TicketPriorityMedium
	}

	err = e.tx.Do(ctx, func(r *repository.Repos) error {
		if err := r.Tickets.Create(ctx, ticket); err != nil {
			return apperrors.MapError(err)
		}
		if err := r.Tickets.AddHead(ctx, ticket.ID, head.ID, true); err != nil {
			return apperrors.MapError(err)
		}
		return e.appendProgress(ctx, r, ticket, domain.ProgressCreated, creator.Name,
			fmt.Sprintf("%s created the ticket", creator.Name))
	})
	if err != nil {
		return nil, err
	}

	if len(input.Attachments) > 0 {
		urls, upErr := e.files.UploadFiles(ctx, input.Attachments)
		if upErr != nil {
			e.logger.Error("attachment upload failed after ticket commit",
				zap.String("ticket_id", ticket.ID), zap.Error(upErr))
			return nil, apperrors.NewTransient("attachment upload failed", upErr)
		}
		for _, url := range urls {
			att := &domain.Attachment{TicketID: ticket.ID, URL: url, ContentType: "file"}
			if err := e.repos.Attachments.Create(ctx, att); err != nil {
				return nil, apperrors.MapError(err)
			}
		}
	}

	e.notifier.Enqueue(domain.NotificationRequest{
		Kind:           domain.NotifyTicketCreated,
		TicketID:       ticket.ID,
		TicketKey:      ticket.ExternalKey,
		TicketTitle:    ticket.Title,
		Priority:       ticket.Priority,
		ActorName:      creator.Name,
		RecipientName:  head.Name,
		RecipientEmail: head.Email,
	})
	return ticket, nil
}

// Assign delegates a ticket to one or more employees. Only a head attached
// to the ticket may assign. Already-assigned employees are skipped; if every
// requested employee is already assigned the call is a conflict, not a
// silent no-op. The first assignment moves the ticket into progress.
func (e *WorkflowEngine) Assign(ctx context.Context, actor *domain.User, ticketID string, assigneeIDs []string, note string) (*domain.Ticket, error) {
	if len(assigneeIDs) == 0 {
		return nil, apperrors.NewValidationError("assignee_ids required", nil)
	}
	if err := e.requireHeadOfTicket(ctx, ticketID, actor); err != nil {
		return nil, err
	}

	var (
		ticket   *domain.Ticket
		newbies  []domain.User
		notifies []domain.NotificationRequest
	)
	err := e.tx.Do(ctx, func(r *repository.Repos) error {
		var err error
		ticket, err = getTicket(ctx, r, ticketID)
		if err != nil {
			return err
		}

		current, err := r.Tickets.ListAssigneeIDs(ctx, ticketID)
		if err != nil {
			return apperrors.MapError(err)
		}
		newIDs := missingIDs(assigneeIDs, current)
		if len(newIDs) == 0 {
			return apperrors.NewConflict("ALREADY_ASSIGNED", "all requested employees are already assigned", map[string]any{
				"ticket_id": ticketID,
			})
		}

		newbies, err = r.Users.GetByIDs(ctx, newIDs)
		if err != nil {
			return apperrors.MapError(err)
		}
		if len(newbies) != len(newIDs) {
			return apperrors.NewNotFound("assignee", map[string]any{"assignee_ids": newIDs})
		}

		for _, user := range newbies {
			if err := r.Tickets.AddAssignee(ctx, ticketID, user.ID); err != nil {
				return apperrors.MapError(err)
			}
		}

		if len(current) == 0 &&
			(ticket.Status == domain.TicketStatusPending || ticket.Status == domain.TicketStatusReceived) {
			ticket.Status = domain.TicketStatusInProgress
			if err := r.Tickets.Update(ctx, ticket); err != nil {
				return apperrors.MapError(err)
			}
		}

		entryNote := fmt.Sprintf("%s assigned the ticket to %s", actor.Name, joinNames(newbies))
		if strings.TrimSpace(note) != "" {
			entryNote += ": " + strings.TrimSpace(note)
		}
		return e.appendProgress(ctx, r, ticket, domain.ProgressAssigned, actor.Name, entryNote)
	})
	if err != nil {
		return nil, err
	}

	for _, user := range newbies {
		notifies = append(notifies, domain.NotificationRequest{
			Kind:           domain.NotifyTicketAssigned,
			TicketID:       ticket.ID,
			TicketKey:      ticket.ExternalKey,
			TicketTitle:    ticket.Title,
			Priority:       ticket.Priority,
			ActorName:      actor.Name,
			RecipientName:  user.Name,
			RecipientEmail: user.Email,
			Note:           note,
		})
	}
	for _, req := range notifies {
		e.notifier.Enqueue(req)
	}
	e.invalidateLater(ticket.ID)
	return ticket, nil
}

// Unassign removes one employee from a ticket.
func (e *WorkflowEngine) Unassign(ctx context.Context, actor *domain.User, ticketID, employeeID string) (*domain.Ticket, error) {
	if err := e.requireHeadOfTicket(ctx, ticketID, actor); err != nil {
		return nil, err
	}

	var ticket *domain.Ticket
	err := e.tx.Do(ctx, func(r *repository.Repos) error {
		var err error
		ticket, err = getTicket(ctx, r, ticketID)
		if err != nil {
			return err
		}

		removed, err := r.Tickets.RemoveAssignee(ctx, ticketID, employeeID)
		if err != nil {
			return apperrors.MapError(err)
		}
		if !removed {
			return apperrors.NewConflict("NOT_ASSIGNED", "employee is not assigned to this ticket", map[string]any{
				"ticket_id":   ticketID,
				"employee_id": employeeID,
			})
		}

		name := employeeID
		if user, err := r.Users.GetByID(ctx, employeeID); err == nil {
			name = user.Name
		}
		return e.appendProgress(ctx, r, ticket, domain.ProgressUnassigned, actor.Name,
			fmt.Sprintf("%s removed %s from the ticket", actor.Name, name))
	})
	if err != nil {
		return nil, err
	}

	e.invalidateLater(ticket.ID)
	return ticket, nil
}

// HandleTicket lets a caller acknowledge a ticket. An assignee acknowledges
// work in progress; a head "takes" an unassigned ticket, moving it to
// Received and attaching themselves as a non-primary head.
func (e *WorkflowEngine) HandleTicket(ctx context.Context, actor *domain.User, ticketID string) (*domain.Ticket, error) {
	var ticket *domain.Ticket
	err := e.tx.Do(ctx, func(r *repository.Repos) error {
		var err error
		ticket, err = getTicket(ctx, r, ticketID)
		if err != nil {
			return err
		}

		assignees, err := r.Tickets.ListAssigneeIDs(ctx, ticketID)
		if err != nil {
			return apperrors.MapError(err)
		}

		kind := domain.ProgressReceived
		if len(assignees) > 0 {
			if !containsID(assignees, actor.ID) {
				return apperrors.NewUnauthorized("only an assignee may handle this ticket")
			}
			// acknowledgement of work already in flight, not a receive
			kind = domain.ProgressHandled
		} else {
			if !actor.IsHead() {
				return apperrors.NewUnauthorized("ticket has no assignees; head capability required to take it")
			}
			if domain.CanTransition(ticket.Status, domain.TicketStatusReceived) {
				ticket.Status = domain.TicketStatusReceived
				if err := r.Tickets.Update(ctx, ticket); err != nil {
					return apperrors.MapError(err)
				}
			}
		}

		if actor.IsHead() {
			attached, err := r.Tickets.HasHead(ctx, ticketID, actor.ID)
			if err != nil {
				return apperrors.MapError(err)
			}
			if !attached {
				if err := r.Tickets.AddHead(ctx, ticketID, actor.ID, false); err != nil {
					return apperrors.MapError(err)
				}
			}
		}

		return e.appendProgress(ctx, r, ticket, kind, actor.Name,
			fmt.Sprintf("%s is handling the ticket", actor.Name))
	})
	if err != nil {
		return nil, err
	}

	e.invalidateLater(ticket.ID)
	return ticket, nil
}

// AddHead escalates a ticket to additional department heads. Heads already
// attached are skipped; requesting only already-attached heads is a no-op.
func (e *WorkflowEngine) AddHead(ctx context.Context, actor *domain.User, ticketID string, headIDs []string, note string) (*domain.Ticket, error) {
	if len(headIDs) == 0 {
		return nil, apperrors.NewValidationError("head_ids required", nil)
	}
	if err := e.requireHeadOfTicket(ctx, ticketID, actor); err != nil {
		return nil, err
	}

	var (
		ticket  *domain.Ticket
		newbies []domain.User
	)
	err := e.tx.Do(ctx, func(r *repository.Repos) error {
		var err error
		ticket, err = getTicket(ctx, r, ticketID)
		if err != nil {
			return err
		}

		links, err := r.Tickets.ListHeads(ctx, ticketID)
		if err != nil {
			return apperrors.MapError(err)
		}
		attached := make([]string, 0, len(links))
		for _, link := range links {
			attached = append(attached, link.HeadID)
		}

		newIDs := missingIDs(headIDs, attached)
		if len(newIDs) == 0 {
			return nil
		}

		newbies, err = r.Users.GetByIDs(ctx, newIDs)
		if err != nil {
			return apperrors.MapError(err)
		}
		if len(newbies) != len(newIDs) {
			return apperrors.NewNotFound("head", map[string]any{"head_ids": newIDs})
		}
		for _, user := range newbies {
			if !user.IsHead() {
				return apperrors.NewValidationError("user lacks head capability", map[string]any{"user_id": user.ID})
			}
			if err := r.Tickets.AddHead(ctx, ticketID, user.ID, false); err != nil {
				return apperrors.MapError(err)
			}
		}

		all, err := r.Users.GetByIDs(ctx, append(attached, newIDs...))
		if err != nil {
			return apperrors.MapError(err)
		}
		entryNote := fmt.Sprintf("support requested; heads attached: %s", joinNames(all))
		if strings.TrimSpace(note) != "" {
			entryNote += ": " + strings.TrimSpace(note)
		}
		return e.appendProgress(ctx, r, ticket, domain.ProgressEscalated, actor.Name, entryNote)
	})
	if err != nil {
		return nil, err
	}

	for _, user := range newbies {
		e.notifier.Enqueue(domain.NotificationRequest{
			Kind:           domain.NotifyTicketEscalated,
			TicketID:       ticket.ID,
			TicketKey:      ticket.ExternalKey,
			TicketTitle:    ticket.Title,
			Priority:       ticket.Priority,
			ActorName:      actor.Name,
			RecipientName:  user.Name,
			RecipientEmail: user.Email,
			Note:           note,
		})
	}
	if len(newbies) > 0 {
		e.invalidateLater(ticket.ID)
	}
	return ticket, nil
}

// RejectTicket moves a ticket to the terminal Rejected state and notifies
// the creator with the reason.
func (e *WorkflowEngine) RejectTicket(ctx context.Context, actor *domain.User, ticketID, reason string) (*domain.Ticket, error) {
	if err := e.requireHeadOfTicket(ctx, ticketID, actor); err != nil {
		return nil, err
	}

	var (
		ticket  *domain.Ticket
		creator *domain.User
	)
	err := e.tx.Do(ctx, func(r *repository.Repos) error {
		var err error
		ticket, err = getTicket(ctx, r, ticketID)
		if err != nil {
			return err
		}
		if !domain.CanTransition(ticket.Status, domain.TicketStatusRejected) {
			return apperrors.NewConflict("CONFLICT", "ticket cannot be rejected in its current status", map[string]any{
				"ticket_id": ticketID,
				"status":    ticket.Status,
			})
		}
		ticket.Status = domain.TicketStatusRejected
		if err := r.Tickets.Update(ctx, ticket); err != nil {
			return apperrors.MapError(err)
		}

		creator, err = r.Users.GetByID(ctx, ticket.CreatorID)
		if err != nil {
			return apperrors.MapError(err)
		}
		return e.appendProgress(ctx, r, ticket, domain.ProgressRejected, actor.Name,
			fmt.Sprintf("%s rejected the ticket: %s", actor.Name, strings.TrimSpace(reason)))
	})
	if err != nil {
		return nil, err
	}

	e.notifier.Enqueue(domain.NotificationRequest{
		Kind:           domain.NotifyTicketRejected,
		TicketID:       ticket.ID,
		TicketKey:      ticket.ExternalKey,
		TicketTitle:    ticket.Title,
		Priority:       ticket.Priority,
		ActorName:      actor.Name,
		RecipientName:  creator.Name,
		RecipientEmail: creator.Email,
		Note:           reason,
	})
	e.invalidateLater(ticket.ID)
	return ticket, nil
}

// CompleteTicket moves a ticket to the terminal Closed state, stamps the
// completion time and notifies the creator.
func (e *WorkflowEngine) CompleteTicket(ctx context.Context, actor *domain.User, ticketID, note string) (*domain.Ticket, error) {
	var (
		ticket  *domain.Ticket
		creator *domain.User
	)
	err := e.tx.Do(ctx, func(r *repository.Repos) error {
		var err error
		ticket, err = getTicket(ctx, r, ticketID)
		if err != nil {
			return err
		}

		isHead, err := r.Tickets.HasHead(ctx, ticketID, actor.ID)
		if err != nil {
			return apperrors.MapError(err)
		}
		if !isHead {
			assignees, err := r.Tickets.ListAssigneeIDs(ctx, ticketID)
			if err != nil {
				return apperrors.MapError(err)
			}
			if !containsID(assignees, actor.ID) {
				return apperrors.NewUnauthorized("only an attached head or assignee may complete the ticket")
			}
		}

		if !domain.CanTransition(ticket.Status, domain.TicketStatusClosed) {
			return apperrors.NewConflict("CONFLICT", "ticket cannot be completed in its current status", map[string]any{
				"ticket_id": ticketID,
				"status":    ticket.Status,
			})
		}
		now := e.Clock()
		ticket.Status = domain.TicketStatusClosed
		ticket.CompletedAt = &now
		if err := r.Tickets.Update(ctx, ticket); err != nil {
			return apperrors.MapError(err)
		}

		creator, err = r.Users.GetByID(ctx, ticket.CreatorID)
		if err != nil {
			return apperrors.MapError(err)
		}
		return e.appendProgress(ctx, r, ticket, domain.ProgressCompleted, actor.Name,
			fmt.Sprintf("%s completed the ticket: %s", actor.Name, strings.TrimSpace(note)))
	})
	if err != nil {
		return nil, err
	}

	e.notifier.Enqueue(domain.NotificationRequest{
		Kind:           domain.NotifyTicketCompleted,
		TicketID:       ticket.ID,
		TicketKey:      ticket.ExternalKey,
		TicketTitle:    ticket.Title,
		Priority:       ticket.Priority,
		ActorName:      actor.Name,
		RecipientName:  creator.Name,
		RecipientEmail: creator.Email,
		Note:           note,
	})
	e.invalidateLater(ticket.ID)
	return ticket, nil
}

// Update merges triage fields into a ticket without changing its status and
// applies attachment deltas. File removals run as deferred work; file
// additions upload after the field commit, best-effort like Create.
func (e *WorkflowEngine) Update(ctx context.Context, actor *domain.User, ticketID string, input TicketUpdateInput) (*domain.Ticket, error) {
	if err := e.requireHeadOfTicket(ctx, ticketID, actor); err != nil {
		return nil, err
	}

	var ticket *domain.Ticket
	err := e.tx.Do(ctx, func(r *repository.Repos) error {
		var err error
		ticket, err = getTicket(ctx, r, ticketID)
		if err != nil {
			return err
		}

		if input.CauseTypeID != nil {
			if _, err := r.CauseTypes.GetByID(ctx, *input.CauseTypeID); err != nil {
				if errors.Is(err, pgx.ErrNoRows) {
					return apperrors.NewNotFound("cause type", map[string]any{"cause_type_id": *input.CauseTypeID})
				}
				return apperrors.MapError(err)
			}
			ticket.CauseTypeID = input.CauseTypeID
		}
		if input.Cause != nil {
			ticket.Cause = input.Cause
		}
		if input.ImplementationPlan != nil {
			ticket.ImplementationPlan = input.ImplementationPlan
		}
		if input.ExpectedStartDate != nil {
			ticket.ExpectedStartDate = input.ExpectedStartDate
		}
		if input.ExpectedCompleteDate != nil {
			ticket.ExpectedCompleteDate = input.ExpectedCompleteDate
		}
		if err := r.Tickets.Update(ctx, ticket); err != nil {
			return apperrors.MapError(err)
		}
		return e.appendProgress(ctx, r, ticket, domain.ProgressUpdated, actor.Name,
			fmt.Sprintf("%s updated triage details", actor.Name))
	})
	if err != nil {
		return nil, err
	}

	for _, url := range input.RemoveFileURLs {
		ticketID, url := ticketID, url
		e.tasks.Enqueue(func(ctx context.Context) error {
			_, err := e.repos.Attachments.DeleteByURL(ctx, ticketID, url)
			return err
		})
	}

	if len(input.AddFiles) > 0 {
		urls, upErr := e.files.UploadFiles(ctx, input.AddFiles)
		if upErr != nil {
			e.logger.Error("attachment upload failed after ticket update",
				zap.String("ticket_id", ticket.ID), zap.Error(upErr))
			return nil, apperrors.NewTransient("attachment upload failed", upErr)
		}
		for _, url := range urls {
			att := &domain.Attachment{TicketID: ticket.ID, URL: url, ContentType: "file"}
			if err := e.repos.Attachments.Create(ctx, att); err != nil {
				return nil, apperrors.MapError(err)
			}
		}
	}

	e.invalidateLater(ticket.ID)
	return ticket, nil
}

// GetTicketDetail returns the full aggregate view, read through the cache.
func (e *WorkflowEngine) GetTicketDetail(ctx context.Context, ticketID string) (*TicketDetail, error) {
	var cached TicketDetail
	if e.cache.GetDetail(ctx, ticketID, &cached) {
		return &cached, nil
	}

	ticket, err := getTicket(ctx, e.repos, ticketID)
	if err != nil {
		return nil, err
	}

	detail := &TicketDetail{Ticket: *ticket}

	if category, err := e.repos.Categories.GetByID(ctx, ticket.CategoryID); err == nil {
		detail.CategoryName = category.Name
	}
	if creator, err := e.repos.Users.GetByID(ctx, ticket.CreatorID); err == nil {
		detail.CreatorName = creator.Name
	}

	links, err := e.repos.Tickets.ListHeads(ctx, ticketID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	headIDs := make([]string, 0, len(links))
	primary := make(map[string]bool, len(links))
	for _, link := range links {
		headIDs = append(headIDs, link.HeadID)
		primary[link.HeadID] = link.IsPrimary
	}
	heads, err := e.repos.Users.GetByIDs(ctx, headIDs)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	for _, head := range heads {
		detail.Heads = append(detail.Heads, HeadInfo{
			ID: head.ID, Name: head.Name, Email: head.Email, IsPrimary: primary[head.ID],
		})
	}

	assigneeIDs, err := e.repos.Tickets.ListAssigneeIDs(ctx, ticketID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	assignees, err := e.repos.Users.GetByIDs(ctx, assigneeIDs)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	for _, user := range assignees {
		detail.Assignees = append(detail.Assignees, AssigneeInfo{ID: user.ID, Name: user.Name, Email: user.Email})
	}

	detail.Progress, err = e.repos.Progress.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	attachments, err := e.repos.Attachments.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	for _, att := range attachments {
		detail.FileURLs = append(detail.FileURLs, att.URL)
	}

	e.cache.SetDetail(ctx, ticketID, detail)
	return detail, nil
}

// GetTicketList returns tickets visible under the filter plus a total count.
func (e *WorkflowEngine) GetTicketList(ctx context.Context, actor *domain.User, filter TicketListFilter) ([]domain.Ticket, int, error) {
	repoFilter := repository.TicketFilter{
		Statuses:   filter.Statuses,
		Priorities: filter.Priorities,
		CategoryID: filter.CategoryID,
		SearchTerm: filter.SearchTerm,
	}
	if filter.AssignedToMe {
		repoFilter.AssigneeID = &actor.ID
	}
	if filter.CreatedByMe {
		repoFilter.CreatorID = &actor.ID
	}
	if filter.HeadedByMe {
		repoFilter.HeadID = &actor.ID
	}

	page := filter.Page
	if page <= 0 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}
	repoFilter.Limit = pageSize
	repoFilter.Offset = (page - 1) * pageSize

	return e.repos.Tickets.ListWithFilter(ctx, repoFilter)
}

// GetTicketProgress returns the audit trail in insertion order.
func (e *WorkflowEngine) GetTicketProgress(ctx context.Context, ticketID string) ([]domain.ProgressEntry, error) {
	if _, err := getTicket(ctx, e.repos, ticketID); err != nil {
		return nil, err
	}
	entries, err := e.repos.Progress.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return entries, nil
}

func (e *WorkflowEngine) requireHeadOfTicket(ctx context.Context, ticketID string, actor *domain.User) error {
	ok, err := e.routing.AuthorizeHeadAction(ctx, ticketID, actor.ID)
	if err != nil {
		return apperrors.MapError(err)
	}
	if !ok {
		return apperrors.NewUnauthorized("actor is not a head attached to this ticket")
	}
	return nil
}

// appendProgress records one audit entry with the ticket's status after the
// mutation.
func (e *WorkflowEngine) appendProgress(ctx context.Context, r *repository.Repos, ticket *domain.Ticket, kind domain.ProgressKind, actorName, note string) error {
	entry := &domain.ProgressEntry{
		TicketID:     ticket.ID,
		Kind:         kind,
		TicketStatus: ticket.Status,
		Note:         note,
		ActorName:    actorName,
	}
	if err := r.Progress.Create(ctx, entry); err != nil {
		return apperrors.MapError(err)
	}
	return nil
}

func (e *WorkflowEngine) invalidateLater(ticketID string) {
	e.tasks.Enqueue(func(ctx context.Context) error {
		return e.cache.Invalidate(ctx, ticketID)
	})
}

func getTicket(ctx context.Context, r *repository.Repos, ticketID string) (*domain.Ticket, error) {
	ticket, err := r.Tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}
	return ticket, nil
}

func generateTicketKey() string {
	return "TCK-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

func missingIDs(requested, existing []string) []string {
	present := make(map[string]struct{}, len(existing))
	for _, id := range existing {
		present[id] = struct{}{}
	}
	var result []string
	seen := make(map[string]struct{}, len(requested))
	for _, id := range requested {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if _, ok := present[id]; !ok {
			result = append(result, id)
		}
	}
	return result
}

func containsID(ids []string, id string) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}

func joinNames(users []domain.User) string {
	names := make([]string, 0, len(users))
	for _, user := range users {
		names = append(names, user.Name)
	}
	return strings.Join(names, ", ")
}
