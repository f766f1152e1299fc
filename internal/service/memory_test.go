package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/deskflow/internal/cache"
	"github.com/spec-kit/deskflow/internal/domain"
	"github.com/spec-kit/deskflow/internal/files"
	"github.com/spec-kit/deskflow/internal/observability"
	"github.com/spec-kit/deskflow/internal/repository"
	"github.com/spec-kit/deskflow/internal/worker"
)

// memStore backs in-memory repository implementations for engine tests.
type memStore struct {
	mu          sync.Mutex
	seq         int
	tickets     map[string]*domain.Ticket
	assignees   map[string][]string
	heads       map[string][]domain.HeadLink
	progress    map[string][]domain.ProgressEntry
	users       map[string]*domain.User
	categories  map[string]*domain.Category
	departments map[string]*domain.Department
	causeTypes  map[string]*domain.CauseType
	attachments map[string][]domain.Attachment
	comments    map[string][]domain.Comment
}

func newMemStore() *memStore {
	return &memStore{
		tickets:     make(map[string]*domain.Ticket),
		assignees:   make(map[string][]string),
		heads:       make(map[string][]domain.HeadLink),
		progress:    make(map[string][]domain.ProgressEntry),
		users:       make(map[string]*domain.User),
		categories:  make(map[string]*domain.Category),
		departments: make(map[string]*domain.Department),
		causeTypes:  make(map[string]*domain.CauseType),
		attachments: make(map[string][]domain.Attachment),
		comments:    make(map[string][]domain.Comment),
	}
}

func (s *memStore) nextID(prefix string) string {
	s.seq++
	return fmt.Sprintf("%s-%d", prefix, s.seq)
}

func (s *memStore) addUser(name string, role domain.UserRole, departmentID string) *domain.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	user := &domain.User{
		ID:           s.nextID("user"),
		Name:         name,
		Email:        strings.ToLower(name) + "@example.com",
		Role:         role,
		DepartmentID: departmentID,
		Active:       true,
		CreatedAt:    time.Now(),
	}
	s.users[user.ID] = user
	return user
}

func (s *memStore) addDepartment(name string) *domain.Department {
	s.mu.Lock()
	defer s.mu.Unlock()
	dept := &domain.Department{ID: s.nextID("dept"), Name: name, IsActive: true}
	s.departments[dept.ID] = dept
	return dept
}

func (s *memStore) addCategory(departmentID, name string) *domain.Category {
	s.mu.Lock()
	defer s.mu.Unlock()
	category := &domain.Category{ID: s.nextID("cat"), DepartmentID: departmentID, Name: name}
	s.categories[category.ID] = category
	return category
}

func (s *memStore) repos() *repository.Repos {
	return &repository.Repos{
		Tickets:     &memTicketRepo{s},
		Progress:    &memProgressRepo{s},
		Users:       &memUserRepo{s},
		Categories:  &memCategoryRepo{s},
		Departments: &memDepartmentRepo{s},
		CauseTypes:  &memCauseTypeRepo{s},
		Attachments: &memAttachmentRepo{s},
		Comments:    &memCommentRepo{s},
	}
}

type memTicketRepo struct{ s *memStore }

func (r *memTicketRepo) Create(_ context.Context, ticket *domain.Ticket) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ticket.ID = r.s.nextID("ticket")
	ticket.CreatedAt = time.Now()
	ticket.UpdatedAt = ticket.CreatedAt
	r.s.tickets[ticket.ID] = ticket
	return nil
}

func (r *memTicketRepo) Update(_ context.Context, ticket *domain.Ticket) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.tickets[ticket.ID]; !ok {
		return pgx.ErrNoRows
	}
	ticket.UpdatedAt = time.Now()
	r.s.tickets[ticket.ID] = ticket
	return nil
}

func (r *memTicketRepo) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ticket, ok := r.s.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *ticket
	return &clone, nil
}

func (r *memTicketRepo) ListWithFilter(_ context.Context, filter repository.TicketFilter) ([]domain.Ticket, int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var result []domain.Ticket
	for _, ticket := range r.s.tickets {
		if filter.CreatorID != nil && ticket.CreatorID != *filter.CreatorID {
			continue
		}
		if filter.AssigneeID != nil && !contains(r.s.assignees[ticket.ID], *filter.AssigneeID) {
			continue
		}
		if filter.HeadID != nil && !r.hasHeadLocked(ticket.ID, *filter.HeadID) {
			continue
		}
		if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, ticket.Status) {
			continue
		}
		result = append(result, *ticket)
	}
	return result, len(result), nil
}

func (r *memTicketRepo) AddAssignee(_ context.Context, ticketID, assigneeID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if contains(r.s.assignees[ticketID], assigneeID) {
		return nil
	}
	r.s.assignees[ticketID] = append(r.s.assignees[ticketID], assigneeID)
	return nil
}

func (r *memTicketRepo) RemoveAssignee(_ context.Context, ticketID, assigneeID string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	current := r.s.assignees[ticketID]
	for i, id := range current {
		if id == assigneeID {
			r.s.assignees[ticketID] = append(current[:i], current[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (r *memTicketRepo) ListAssigneeIDs(_ context.Context, ticketID string) ([]string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return append([]string(nil), r.s.assignees[ticketID]...), nil
}

func (r *memTicketRepo) AddHead(_ context.Context, ticketID, headID string, primary bool) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.hasHeadLocked(ticketID, headID) {
		return nil
	}
	r.s.heads[ticketID] = append(r.s.heads[ticketID], domain.HeadLink{
		TicketID: ticketID, HeadID: headID, IsPrimary: primary, CreatedAt: time.Now(),
	})
	return nil
}

func (r *memTicketRepo) ListHeads(_ context.Context, ticketID string) ([]domain.HeadLink, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return append([]domain.HeadLink(nil), r.s.heads[ticketID]...), nil
}

func (r *memTicketRepo) HasHead(_ context.Context, ticketID, headID string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.hasHeadLocked(ticketID, headID), nil
}

func (r *memTicketRepo) hasHeadLocked(ticketID, headID string) bool {
	for _, link := range r.s.heads[ticketID] {
		if link.HeadID == headID {
			return true
		}
	}
	return false
}

func (r *memTicketRepo) ListOverdueCandidateIDs(_ context.Context, now time.Time) ([]string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var ids []string
	for id, ticket := range r.s.tickets {
		if ticket.Status.IsTerminal() || ticket.Status == domain.TicketStatusOverdue {
			continue
		}
		if ticket.ExpectedCompleteDate != nil && !ticket.ExpectedCompleteDate.After(now) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (r *memTicketRepo) MarkOverdue(_ context.Context, ticketID string, now time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ticket, ok := r.s.tickets[ticketID]
	if !ok {
		return false, nil
	}
	if ticket.Status.IsTerminal() || ticket.Status == domain.TicketStatusOverdue {
		return false, nil
	}
	ticket.Status = domain.TicketStatusOverdue
	ticket.UpdatedAt = now
	return true, nil
}

type memProgressRepo struct{ s *memStore }

func (r *memProgressRepo) Create(_ context.Context, entry *domain.ProgressEntry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	entry.ID = r.s.nextID("prog")
	entry.CreatedAt = time.Now()
	r.s.progress[entry.TicketID] = append(r.s.progress[entry.TicketID], *entry)
	return nil
}

func (r *memProgressRepo) ListByTicket(_ context.Context, ticketID string) ([]domain.ProgressEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return append([]domain.ProgressEntry(nil), r.s.progress[ticketID]...), nil
}

type memUserRepo struct{ s *memStore }

func (r *memUserRepo) Create(_ context.Context, user *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	user.ID = r.s.nextID("user")
	user.CreatedAt = time.Now()
	r.s.users[user.ID] = user
	return nil
}

func (r *memUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	user, ok := r.s.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return user, nil
}

func (r *memUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, user := range r.s.users {
		if user.Email == email {
			return user, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *memUserRepo) GetByIDs(_ context.Context, ids []string) ([]domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var result []domain.User
	for _, id := range ids {
		if user, ok := r.s.users[id]; ok {
			result = append(result, *user)
		}
	}
	return result, nil
}

func (r *memUserRepo) GetHeadOfDepartment(_ context.Context, departmentID string) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, user := range r.s.users {
		if user.DepartmentID == departmentID && user.Role == domain.RoleHead && user.Active {
			return user, nil
		}
	}
	return nil, pgx.ErrNoRows
}

type memCategoryRepo struct{ s *memStore }

func (r *memCategoryRepo) Create(_ context.Context, category *domain.Category) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	category.ID = r.s.nextID("cat")
	r.s.categories[category.ID] = category
	return nil
}

func (r *memCategoryRepo) GetByID(_ context.Context, id string) (*domain.Category, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	category, ok := r.s.categories[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return category, nil
}

func (r *memCategoryRepo) List(_ context.Context) ([]domain.Category, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var result []domain.Category
	for _, category := range r.s.categories {
		result = append(result, *category)
	}
	return result, nil
}

type memDepartmentRepo struct{ s *memStore }

func (r *memDepartmentRepo) Create(_ context.Context, dept *domain.Department) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	dept.ID = r.s.nextID("dept")
	r.s.departments[dept.ID] = dept
	return nil
}

func (r *memDepartmentRepo) GetByID(_ context.Context, id string) (*domain.Department, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	dept, ok := r.s.departments[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return dept, nil
}

func (r *memDepartmentRepo) ListActive(_ context.Context) ([]domain.Department, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var result []domain.Department
	for _, dept := range r.s.departments {
		if dept.IsActive {
			result = append(result, *dept)
		}
	}
	return result, nil
}

type memCauseTypeRepo struct{ s *memStore }

func (r *memCauseTypeRepo) Create(_ context.Context, ct *domain.CauseType) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ct.ID = r.s.nextID("cause")
	r.s.causeTypes[ct.ID] = ct
	return nil
}

func (r *memCauseTypeRepo) GetByID(_ context.Context, id string) (*domain.CauseType, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ct, ok := r.s.causeTypes[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return ct, nil
}

func (r *memCauseTypeRepo) List(_ context.Context) ([]domain.CauseType, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var result []domain.CauseType
	for _, ct := range r.s.causeTypes {
		result = append(result, *ct)
	}
	return result, nil
}

type memAttachmentRepo struct{ s *memStore }

func (r *memAttachmentRepo) Create(_ context.Context, att *domain.Attachment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	att.ID = r.s.nextID("att")
	att.CreatedAt = time.Now()
	r.s.attachments[att.TicketID] = append(r.s.attachments[att.TicketID], *att)
	return nil
}

func (r *memAttachmentRepo) ListByTicket(_ context.Context, ticketID string) ([]domain.Attachment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return append([]domain.Attachment(nil), r.s.attachments[ticketID]...), nil
}

func (r *memAttachmentRepo) DeleteByURL(_ context.Context, ticketID, url string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	current := r.s.attachments[ticketID]
	for i, att := range current {
		if att.URL == url {
			r.s.attachments[ticketID] = append(current[:i], current[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

type memCommentRepo struct{ s *memStore }

func (r *memCommentRepo) Create(_ context.Context, comment *domain.Comment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.tickets[comment.TicketID]; !ok {
		return pgx.ErrNoRows
	}
	comment.ID = r.s.nextID("comment")
	comment.CreatedAt = time.Now()
	r.s.comments[comment.TicketID] = append(r.s.comments[comment.TicketID], *comment)
	return nil
}

func (r *memCommentRepo) AddAttachment(_ context.Context, commentID, url string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for ticketID, list := range r.s.comments {
		for i := range list {
			if list[i].ID == commentID {
				list[i].FileURLs = append(list[i].FileURLs, url)
				r.s.comments[ticketID] = list
				return nil
			}
		}
	}
	return pgx.ErrNoRows
}

// ListByTicket mirrors the SQL ordering: newest first, author resolved.
func (r *memCommentRepo) ListByTicket(_ context.Context, ticketID string) ([]domain.Comment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored := r.s.comments[ticketID]
	result := make([]domain.Comment, 0, len(stored))
	for i := len(stored) - 1; i >= 0; i-- {
		comment := stored[i]
		if author, ok := r.s.users[comment.AuthorID]; ok {
			comment.AuthorName = author.Name
			comment.AuthorEmail = author.Email
		}
		result = append(result, comment)
	}
	return result, nil
}

// memTx runs the function against the same store; per-test stores never see
// concurrent writers, so transactional isolation is not simulated.
type memTx struct{ repos *repository.Repos }

func (t *memTx) Do(_ context.Context, fn func(r *repository.Repos) error) error {
	return fn(t.repos)
}

type fakeNotifier struct {
	mu       sync.Mutex
	requests []domain.NotificationRequest
}

func (n *fakeNotifier) Enqueue(req domain.NotificationRequest) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.requests = append(n.requests, req)
}

func (n *fakeNotifier) all() []domain.NotificationRequest {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]domain.NotificationRequest(nil), n.requests...)
}

type fakeFileStore struct {
	fail bool
}

func (f *fakeFileStore) UploadFiles(_ context.Context, uploads []files.Upload) ([]string, error) {
	if f.fail {
		return nil, fmt.Errorf("upload endpoint unavailable")
	}
	urls := make([]string, 0, len(uploads))
	for _, upload := range uploads {
		urls = append(urls, "https://files.example.com/"+upload.Name)
	}
	return urls, nil
}

type engineFixture struct {
	engine   *WorkflowEngine
	store    *memStore
	notifier *fakeNotifier
	files    *fakeFileStore
}

func newEngineFixture() *engineFixture {
	store := newMemStore()
	repos := store.repos()
	notifier := &fakeNotifier{}
	fileStore := &fakeFileStore{}
	logger := zap.NewNop()
	engine := NewWorkflowEngine(WorkflowDependencies{
		Repos:    repos,
		Tx:       &memTx{repos: repos},
		Routing:  NewRoutingResolver(repos.Categories, repos.Users, repos.Tickets),
		Notifier: notifier,
		Tasks:    worker.NewTaskQueue(64, logger, observability.NewMetrics()),
		Files:    fileStore,
		Cache:    cache.NewTicketCache(nil, logger),
		Logger:   logger,
	})
	return &engineFixture{engine: engine, store: store, notifier: notifier, files: fileStore}
}

func contains(ids []string, id string) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}

func containsStatus(statuses []domain.TicketStatus, status domain.TicketStatus) bool {
	for _, candidate := range statuses {
		if candidate == status {
			return true
		}
	}
	return false
}
