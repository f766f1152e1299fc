package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/deskflow/internal/domain"
	"github.com/spec-kit/deskflow/internal/files"
	"github.com/spec-kit/deskflow/internal/repository"
	apperrors "github.com/spec-kit/deskflow/pkg/util"
)

type workflowWorld struct {
	*engineFixture
	dept     *domain.Department
	head     *domain.User
	creator  *domain.User
	category *domain.Category
}

func newWorkflowWorld(t *testing.T) *workflowWorld {
	t.Helper()
	fixture := newEngineFixture()
	dept := fixture.store.addDepartment("IT")
	head := fixture.store.addUser("Avery", domain.RoleHead, dept.ID)
	creator := fixture.store.addUser("Blake", domain.RoleEmployee, dept.ID)
	category := fixture.store.addCategory(dept.ID, "Hardware")
	return &workflowWorld{
		engineFixture: fixture,
		dept:          dept,
		head:          head,
		creator:       creator,
		category:      category,
	}
}

func (w *workflowWorld) createTicket(t *testing.T) *domain.Ticket {
	t.Helper()
	ticket, err := w.engine.Create(context.Background(), w.creator, TicketCreateInput{
		Title:               "Broken laptop",
		CategoryID:          w.category.ID,
		Content:             "Screen does not turn on",
		Priority:            domain.TicketPriorityHigh,
		DesiredCompleteDate: time.Now().Add(72 * time.Hour),
	})
	require.NoError(t, err)
	return ticket
}

func domainCode(t *testing.T, err error) string {
	t.Helper()
	require.Error(t, err)
	domainErr := apperrors.ToDomainError(err)
	return domainErr.Code
}

func TestCreateTicket_RoutesToPrimaryHead(t *testing.T) {
	w := newWorkflowWorld(t)
	ticket := w.createTicket(t)

	assert.Equal(t, domain.TicketStatusPending, ticket.Status)
	assert.NotEmpty(t, ticket.ExternalKey)

	heads, err := w.store.repos().Tickets.ListHeads(context.Background(), ticket.ID)
	require.NoError(t, err)
	require.Len(t, heads, 1)
	assert.Equal(t, w.head.ID, heads[0].HeadID)
	assert.True(t, heads[0].IsPrimary)

	progress, err := w.store.repos().Progress.ListByTicket(context.Background(), ticket.ID)
	require.NoError(t, err)
	require.Len(t, progress, 1)
	assert.Equal(t, domain.ProgressCreated, progress[0].Kind)
	assert.Equal(t, domain.TicketStatusPending, progress[0].TicketStatus)

	requests := w.notifier.all()
	require.Len(t, requests, 1)
	assert.Equal(t, domain.NotifyTicketCreated, requests[0].Kind)
	assert.Equal(t, w.head.Email, requests[0].RecipientEmail)
}

func TestCreateTicket_UnknownCategory(t *testing.T) {
	w := newWorkflowWorld(t)
	_, err := w.engine.Create(context.Background(), w.creator, TicketCreateInput{
		Title:               "x",
		CategoryID:          "missing",
		Content:             "y",
		DesiredCompleteDate: time.Now(),
	})
	assert.Equal(t, "NOT_FOUND", domainCode(t, err))
}

func TestCreateTicket_DepartmentWithoutHead(t *testing.T) {
	w := newWorkflowWorld(t)
	orphan := w.store.addDepartment("Facilities")
	category := w.store.addCategory(orphan.ID, "Plumbing")

	_, err := w.engine.Create(context.Background(), w.creator, TicketCreateInput{
		Title:               "Leak",
		CategoryID:          category.ID,
		Content:             "Water everywhere",
		DesiredCompleteDate: time.Now(),
	})
	assert.Equal(t, "CONFIGURATION", domainCode(t, err))
}

func TestCreateTicket_UploadFailureKeepsTicket(t *testing.T) {
	w := newWorkflowWorld(t)
	w.files.fail = true

	_, err := w.engine.Create(context.Background(), w.creator, TicketCreateInput{
		Title:               "With files",
		CategoryID:          w.category.ID,
		Content:             "body",
		DesiredCompleteDate: time.Now(),
		Attachments:         []files.Upload{{Name: "log.txt", Data: []byte("x")}},
	})
	assert.Equal(t, "TRANSIENT", domainCode(t, err))

	// the ticket itself committed before the upload was attempted
	tickets, total, listErr := w.store.repos().Tickets.ListWithFilter(context.Background(), ticketFilterForCreator(w.creator.ID))
	require.NoError(t, listErr)
	assert.Equal(t, 1, total)
	assert.Empty(t, w.store.attachments[tickets[0].ID])
}

func TestAssign_MovesPendingToInProgress(t *testing.T) {
	w := newWorkflowWorld(t)
	ticket := w.createTicket(t)
	worker1 := w.store.addUser("Casey", domain.RoleEmployee, w.dept.ID)
	worker2 := w.store.addUser("Drew", domain.RoleEmployee, w.dept.ID)

	updated, err := w.engine.Assign(context.Background(), w.head, ticket.ID, []string{worker1.ID, worker2.ID}, "please split this")
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusInProgress, updated.Status)

	ids, err := w.store.repos().Tickets.ListAssigneeIDs(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{worker1.ID, worker2.ID}, ids)

	progress, err := w.store.repos().Progress.ListByTicket(context.Background(), ticket.ID)
	require.NoError(t, err)
	require.Len(t, progress, 2)
	assert.Equal(t, domain.ProgressAssigned, progress[1].Kind)

	var assignedMails int
	for _, req := range w.notifier.all() {
		if req.Kind == domain.NotifyTicketAssigned {
			assignedMails++
		}
	}
	assert.Equal(t, 2, assignedMails)
}

func TestAssign_SkipsDuplicatesNotifiesOnlyNew(t *testing.T) {
	w := newWorkflowWorld(t)
	ticket := w.createTicket(t)
	worker1 := w.store.addUser("Casey", domain.RoleEmployee, w.dept.ID)
	worker2 := w.store.addUser("Drew", domain.RoleEmployee, w.dept.ID)

	_, err := w.engine.Assign(context.Background(), w.head, ticket.ID, []string{worker1.ID}, "")
	require.NoError(t, err)

	before := len(w.notifier.all())
	_, err = w.engine.Assign(context.Background(), w.head, ticket.ID, []string{worker1.ID, worker2.ID}, "")
	require.NoError(t, err)

	after := w.notifier.all()
	require.Len(t, after, before+1)
	assert.Equal(t, worker2.Email, after[len(after)-1].RecipientEmail)
}

func TestAssign_AllDuplicatesIsConflict(t *testing.T) {
	w := newWorkflowWorld(t)
	ticket := w.createTicket(t)
	worker1 := w.store.addUser("Casey", domain.RoleEmployee, w.dept.ID)

	_, err := w.engine.Assign(context.Background(), w.head, ticket.ID, []string{worker1.ID}, "")
	require.NoError(t, err)

	progressBefore, _ := w.store.repos().Progress.ListByTicket(context.Background(), ticket.ID)
	mailsBefore := len(w.notifier.all())

	_, err = w.engine.Assign(context.Background(), w.head, ticket.ID, []string{worker1.ID}, "")
	assert.Equal(t, "ALREADY_ASSIGNED", domainCode(t, err))

	progressAfter, _ := w.store.repos().Progress.ListByTicket(context.Background(), ticket.ID)
	assert.Len(t, progressAfter, len(progressBefore))
	assert.Len(t, w.notifier.all(), mailsBefore)
}

func TestAssign_RequiresAttachedHead(t *testing.T) {
	w := newWorkflowWorld(t)
	ticket := w.createTicket(t)
	otherDept := w.store.addDepartment("HR")
	otherHead := w.store.addUser("Ellis", domain.RoleHead, otherDept.ID)
	worker1 := w.store.addUser("Casey", domain.RoleEmployee, w.dept.ID)

	_, err := w.engine.Assign(context.Background(), otherHead, ticket.ID, []string{worker1.ID}, "")
	assert.Equal(t, "UNAUTHORIZED", domainCode(t, err))
}

func TestUnassign_NotAssignedIsConflict(t *testing.T) {
	w := newWorkflowWorld(t)
	ticket := w.createTicket(t)
	worker1 := w.store.addUser("Casey", domain.RoleEmployee, w.dept.ID)

	_, err := w.engine.Unassign(context.Background(), w.head, ticket.ID, worker1.ID)
	assert.Equal(t, "NOT_ASSIGNED", domainCode(t, err))
}

func TestUnassign_RemovesEmployee(t *testing.T) {
	w := newWorkflowWorld(t)
	ticket := w.createTicket(t)
	worker1 := w.store.addUser("Casey", domain.RoleEmployee, w.dept.ID)

	_, err := w.engine.Assign(context.Background(), w.head, ticket.ID, []string{worker1.ID}, "")
	require.NoError(t, err)
	_, err = w.engine.Unassign(context.Background(), w.head, ticket.ID, worker1.ID)
	require.NoError(t, err)

	ids, err := w.store.repos().Tickets.ListAssigneeIDs(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.Empty(t, ids)

	progress, _ := w.store.repos().Progress.ListByTicket(context.Background(), ticket.ID)
	assert.Equal(t, domain.ProgressUnassigned, progress[len(progress)-1].Kind)
}

func TestHandleTicket_HeadTakesUnassignedTicket(t *testing.T) {
	w := newWorkflowWorld(t)
	ticket := w.createTicket(t)
	otherHead := w.store.addUser("Ellis", domain.RoleHead, w.dept.ID)

	updated, err := w.engine.HandleTicket(context.Background(), otherHead, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusReceived, updated.Status)

	progress, _ := w.store.repos().Progress.ListByTicket(context.Background(), ticket.ID)
	assert.Equal(t, domain.ProgressReceived, progress[len(progress)-1].Kind)

	heads, _ := w.store.repos().Tickets.ListHeads(context.Background(), ticket.ID)
	require.Len(t, heads, 2)
	for _, link := range heads {
		if link.HeadID == otherHead.ID {
			assert.False(t, link.IsPrimary)
		}
	}
}

func TestHandleTicket_AssigneeAcknowledgesWithoutStatusChange(t *testing.T) {
	w := newWorkflowWorld(t)
	ticket := w.createTicket(t)
	worker1 := w.store.addUser("Casey", domain.RoleEmployee, w.dept.ID)

	_, err := w.engine.Assign(context.Background(), w.head, ticket.ID, []string{worker1.ID}, "")
	require.NoError(t, err)

	updated, err := w.engine.HandleTicket(context.Background(), worker1, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusInProgress, updated.Status)

	// an acknowledgement of assigned work is tagged HANDLED, not RECEIVED
	progress, _ := w.store.repos().Progress.ListByTicket(context.Background(), ticket.ID)
	require.NotEmpty(t, progress)
	last := progress[len(progress)-1]
	assert.Equal(t, domain.ProgressHandled, last.Kind)
	assert.Equal(t, domain.TicketStatusInProgress, last.TicketStatus)
}

func TestHandleTicket_NonAssigneeRejectedWhenAssigneesExist(t *testing.T) {
	w := newWorkflowWorld(t)
	ticket := w.createTicket(t)
	worker1 := w.store.addUser("Casey", domain.RoleEmployee, w.dept.ID)
	bystander := w.store.addUser("Frankie", domain.RoleEmployee, w.dept.ID)

	_, err := w.engine.Assign(context.Background(), w.head, ticket.ID, []string{worker1.ID}, "")
	require.NoError(t, err)

	_, err = w.engine.HandleTicket(context.Background(), bystander, ticket.ID)
	assert.Equal(t, "UNAUTHORIZED", domainCode(t, err))
}

func TestAddHead_AttachesAndNotifiesNewHeadsOnly(t *testing.T) {
	w := newWorkflowWorld(t)
	ticket := w.createTicket(t)
	otherHead := w.store.addUser("Ellis", domain.RoleHead, w.dept.ID)

	mailsBefore := len(w.notifier.all())
	_, err := w.engine.AddHead(context.Background(), w.head, ticket.ID, []string{otherHead.ID}, "need your team")
	require.NoError(t, err)

	heads, _ := w.store.repos().Tickets.ListHeads(context.Background(), ticket.ID)
	assert.Len(t, heads, 2)

	mails := w.notifier.all()
	require.Len(t, mails, mailsBefore+1)
	assert.Equal(t, domain.NotifyTicketEscalated, mails[len(mails)-1].Kind)

	progress, _ := w.store.repos().Progress.ListByTicket(context.Background(), ticket.ID)
	assert.Equal(t, domain.ProgressEscalated, progress[len(progress)-1].Kind)
}

func TestAddHead_AllExistingIsNoOp(t *testing.T) {
	w := newWorkflowWorld(t)
	ticket := w.createTicket(t)

	progressBefore, _ := w.store.repos().Progress.ListByTicket(context.Background(), ticket.ID)
	mailsBefore := len(w.notifier.all())

	_, err := w.engine.AddHead(context.Background(), w.head, ticket.ID, []string{w.head.ID}, "")
	require.NoError(t, err)

	progressAfter, _ := w.store.repos().Progress.ListByTicket(context.Background(), ticket.ID)
	assert.Len(t, progressAfter, len(progressBefore))
	assert.Len(t, w.notifier.all(), mailsBefore)
}

func TestAddHead_RejectsNonHeadCandidate(t *testing.T) {
	w := newWorkflowWorld(t)
	ticket := w.createTicket(t)
	employee := w.store.addUser("Casey", domain.RoleEmployee, w.dept.ID)

	_, err := w.engine.AddHead(context.Background(), w.head, ticket.ID, []string{employee.ID}, "")
	assert.Equal(t, "VALIDATION_FAILED", domainCode(t, err))
}

func TestRejectTicket(t *testing.T) {
	w := newWorkflowWorld(t)
	ticket := w.createTicket(t)

	updated, err := w.engine.RejectTicket(context.Background(), w.head, ticket.ID, "duplicate request")
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusRejected, updated.Status)

	mails := w.notifier.all()
	last := mails[len(mails)-1]
	assert.Equal(t, domain.NotifyTicketRejected, last.Kind)
	assert.Equal(t, w.creator.Email, last.RecipientEmail)

	// terminal; a second rejection must conflict
	_, err = w.engine.RejectTicket(context.Background(), w.head, ticket.ID, "again")
	assert.Equal(t, "CONFLICT", domainCode(t, err))
}

func TestCompleteTicket_ByAssigneeStampsCompletion(t *testing.T) {
	w := newWorkflowWorld(t)
	ticket := w.createTicket(t)
	worker1 := w.store.addUser("Casey", domain.RoleEmployee, w.dept.ID)

	_, err := w.engine.Assign(context.Background(), w.head, ticket.ID, []string{worker1.ID}, "")
	require.NoError(t, err)

	frozen := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	w.engine.Clock = func() time.Time { return frozen }

	updated, err := w.engine.CompleteTicket(context.Background(), worker1, ticket.ID, "replaced the screen")
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusClosed, updated.Status)
	require.NotNil(t, updated.CompletedAt)
	assert.Equal(t, frozen, *updated.CompletedAt)

	mails := w.notifier.all()
	assert.Equal(t, domain.NotifyTicketCompleted, mails[len(mails)-1].Kind)
}

func TestCompleteTicket_PendingCannotClose(t *testing.T) {
	w := newWorkflowWorld(t)
	ticket := w.createTicket(t)

	_, err := w.engine.CompleteTicket(context.Background(), w.head, ticket.ID, "")
	assert.Equal(t, "CONFLICT", domainCode(t, err))
}

func TestCompleteTicket_BystanderUnauthorized(t *testing.T) {
	w := newWorkflowWorld(t)
	ticket := w.createTicket(t)
	bystander := w.store.addUser("Frankie", domain.RoleEmployee, w.dept.ID)

	_, err := w.engine.CompleteTicket(context.Background(), bystander, ticket.ID, "")
	assert.Equal(t, "UNAUTHORIZED", domainCode(t, err))
}

func TestUpdate_MergesTriageFields(t *testing.T) {
	w := newWorkflowWorld(t)
	ticket := w.createTicket(t)

	causeType := &domain.CauseType{Name: "Wear"}
	require.NoError(t, w.store.repos().CauseTypes.Create(context.Background(), causeType))

	cause := "hinge fatigue"
	expected := time.Now().Add(48 * time.Hour)
	updated, err := w.engine.Update(context.Background(), w.head, ticket.ID, TicketUpdateInput{
		CauseTypeID:          &causeType.ID,
		Cause:                &cause,
		ExpectedCompleteDate: &expected,
	})
	require.NoError(t, err)
	require.NotNil(t, updated.CauseTypeID)
	assert.Equal(t, causeType.ID, *updated.CauseTypeID)
	assert.Equal(t, cause, *updated.Cause)
	assert.Equal(t, domain.TicketStatusPending, updated.Status)

	progress, _ := w.store.repos().Progress.ListByTicket(context.Background(), ticket.ID)
	assert.Equal(t, domain.ProgressUpdated, progress[len(progress)-1].Kind)
}

func TestUpdate_UnknownCauseType(t *testing.T) {
	w := newWorkflowWorld(t)
	ticket := w.createTicket(t)

	missing := "nope"
	_, err := w.engine.Update(context.Background(), w.head, ticket.ID, TicketUpdateInput{CauseTypeID: &missing})
	assert.Equal(t, "NOT_FOUND", domainCode(t, err))
}

func TestGetTicketDetail_Aggregates(t *testing.T) {
	w := newWorkflowWorld(t)
	ticket := w.createTicket(t)
	worker1 := w.store.addUser("Casey", domain.RoleEmployee, w.dept.ID)
	_, err := w.engine.Assign(context.Background(), w.head, ticket.ID, []string{worker1.ID}, "")
	require.NoError(t, err)

	detail, err := w.engine.GetTicketDetail(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, ticket.ID, detail.Ticket.ID)
	assert.Equal(t, w.category.Name, detail.CategoryName)
	assert.Equal(t, w.creator.Name, detail.CreatorName)
	require.Len(t, detail.Heads, 1)
	assert.True(t, detail.Heads[0].IsPrimary)
	require.Len(t, detail.Assignees, 1)
	assert.Equal(t, worker1.ID, detail.Assignees[0].ID)
	assert.Len(t, detail.Progress, 2)
}

func TestGetTicketDetail_MissingTicket(t *testing.T) {
	w := newWorkflowWorld(t)
	_, err := w.engine.GetTicketDetail(context.Background(), "missing")
	assert.Equal(t, "NOT_FOUND", domainCode(t, err))
}

func TestGetTicketList_ScopesToActor(t *testing.T) {
	w := newWorkflowWorld(t)
	ticket := w.createTicket(t)
	worker1 := w.store.addUser("Casey", domain.RoleEmployee, w.dept.ID)
	_, err := w.engine.Assign(context.Background(), w.head, ticket.ID, []string{worker1.ID}, "")
	require.NoError(t, err)

	mine, total, err := w.engine.GetTicketList(context.Background(), worker1, TicketListFilter{AssignedToMe: true})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, mine, 1)
	assert.Equal(t, ticket.ID, mine[0].ID)

	none, total, err := w.engine.GetTicketList(context.Background(), w.creator, TicketListFilter{AssignedToMe: true})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, none)
}

func ticketFilterForCreator(creatorID string) repository.TicketFilter {
	return repository.TicketFilter{CreatorID: &creatorID}
}
