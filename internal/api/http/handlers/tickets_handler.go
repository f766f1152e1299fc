package handlers

import (
	"encoding/base64"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/deskflow/internal/api/dto"
	"github.com/spec-kit/deskflow/internal/auth"
	"github.com/spec-kit/deskflow/internal/domain"
	"github.com/spec-kit/deskflow/internal/files"
	"github.com/spec-kit/deskflow/internal/service"
	apperrors "github.com/spec-kit/deskflow/pkg/util"
)

// TicketsHandler exposes the ticket lifecycle endpoints.
type TicketsHandler struct {
	engine *service.WorkflowEngine
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(engine *service.WorkflowEngine) *TicketsHandler {
	return &TicketsHandler{engine: engine}
}

// CreateTicket POST /tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	actor, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("user required")
	}
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.Title) == "" || req.CategoryID == "" || strings.TrimSpace(req.Content) == "" {
		return apperrors.NewValidationError("title, category_id, content required", nil)
	}
	if req.DesiredCompleteDate.IsZero() {
		return apperrors.NewValidationError("desired_complete_date required", nil)
	}

	uploads, err := decodeUploads(req.Attachments)
	if err != nil {
		return err
	}
	input := service.TicketCreateInput{
		Title:               req.Title,
		CategoryID:          req.CategoryID,
		Content:             req.Content,
		Priority:            domain.ParsePriority(req.Priority),
		DesiredCompleteDate: req.DesiredCompleteDate,
		Attachments:         uploads,
	}
	ticket, err := h.engine.Create(c.UserContext(), actor, input)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": ticketSummary(ticket)})
}

// ListTickets GET /tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	actor, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("user required")
	}
	filter := parseTicketQuery(c)
	tickets, total, err := h.engine.GetTicketList(c.UserContext(), actor, filter)
	if err != nil {
		return err
	}
	items := make([]dto.TicketSummary, 0, len(tickets))
	for i := range tickets {
		items = append(items, ticketSummary(&tickets[i]))
	}
	return c.JSON(fiber.Map{"data": dto.TicketListResponse{
		Items:    items,
		Total:    total,
		Page:     maxInt(filter.Page, 1),
		PageSize: filter.PageSize,
	}})
}

// GetTicket GET /tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	if _, ok := auth.UserFromContext(c); !ok {
		return apperrors.NewUnauthorized("user required")
	}
	detail, err := h.engine.GetTicketDetail(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketDetail(detail)})
}

// GetProgress GET /tickets/:id/progress.
func (h *TicketsHandler) GetProgress(c *fiber.Ctx) error {
	if _, ok := auth.UserFromContext(c); !ok {
		return apperrors.NewUnauthorized("user required")
	}
	entries, err := h.engine.GetTicketProgress(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": progressResponses(entries)})
}

// UpdateTicket PATCH /tickets/:id.
func (h *TicketsHandler) UpdateTicket(c *fiber.Ctx) error {
	actor, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("user required")
	}
	var req dto.UpdateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	uploads, err := decodeUploads(req.AddFiles)
	if err != nil {
		return err
	}
	input := service.TicketUpdateInput{
		CauseTypeID:          req.CauseTypeID,
		Cause:                req.Cause,
		ImplementationPlan:   req.ImplementationPlan,
		ExpectedStartDate:    req.ExpectedStartDate,
		ExpectedCompleteDate: req.ExpectedCompleteDate,
		AddFiles:             uploads,
		RemoveFileURLs:       req.RemoveFileURLs,
	}
	ticket, err := h.engine.Update(c.UserContext(), actor, c.Params("id"), input)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketSummary(ticket)})
}

// AssignTicket POST /tickets/:id/assignees.
func (h *TicketsHandler) AssignTicket(c *fiber.Ctx) error {
	actor, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("user required")
	}
	var req dto.AssignTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.engine.Assign(c.UserContext(), actor, c.Params("id"), req.AssigneeIDs, req.Note)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketSummary(ticket)})
}

// UnassignEmployee DELETE /tickets/:id/assignees/:employeeID.
func (h *TicketsHandler) UnassignEmployee(c *fiber.Ctx) error {
	actor, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("user required")
	}
	ticket, err := h.engine.Unassign(c.UserContext(), actor, c.Params("id"), c.Params("employeeID"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketSummary(ticket)})
}

// AddHeads POST /tickets/:id/heads.
func (h *TicketsHandler) AddHeads(c *fiber.Ctx) error {
	actor, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("user required")
	}
	var req dto.AddHeadRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.engine.AddHead(c.UserContext(), actor, c.Params("id"), req.HeadIDs, req.Note)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketSummary(ticket)})
}

// HandleTicket POST /tickets/:id/handle.
func (h *TicketsHandler) HandleTicket(c *fiber.Ctx) error {
	actor, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("user required")
	}
	ticket, err := h.engine.HandleTicket(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketSummary(ticket)})
}

// RejectTicket POST /tickets/:id/reject.
func (h *TicketsHandler) RejectTicket(c *fiber.Ctx) error {
	actor, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("user required")
	}
	var req dto.RejectTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.Reason) == "" {
		return apperrors.NewValidationError("reason required", nil)
	}
	ticket, err := h.engine.RejectTicket(c.UserContext(), actor, c.Params("id"), req.Reason)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketSummary(ticket)})
}

// CompleteTicket POST /tickets/:id/complete.
func (h *TicketsHandler) CompleteTicket(c *fiber.Ctx) error {
	actor, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("user required")
	}
	var req dto.CompleteTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.engine.CompleteTicket(c.UserContext(), actor, c.Params("id"), req.Note)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketSummary(ticket)})
}

// AddComment POST /tickets/:id/comments.
func (h *TicketsHandler) AddComment(c *fiber.Ctx) error {
	actor, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("user required")
	}
	var req dto.CreateCommentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.Content) == "" {
		return apperrors.NewValidationError("content required", nil)
	}
	uploads, err := decodeUploads(req.Attachments)
	if err != nil {
		return err
	}
	comment, err := h.engine.AddComment(c.UserContext(), actor, c.Params("id"), req.Content, uploads)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": commentResponse(comment)})
}

// ListComments GET /tickets/:id/comments.
func (h *TicketsHandler) ListComments(c *fiber.Ctx) error {
	if _, ok := auth.UserFromContext(c); !ok {
		return apperrors.NewUnauthorized("user required")
	}
	comments, err := h.engine.ListComments(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	resp := make([]dto.CommentResponse, 0, len(comments))
	for i := range comments {
		resp = append(resp, commentResponse(&comments[i]))
	}
	return c.JSON(fiber.Map{"data": resp})
}

func parseTicketQuery(c *fiber.Ctx) service.TicketListFilter {
	filter := service.TicketListFilter{
		AssignedToMe: c.QueryBool("assigned_to_me"),
		CreatedByMe:  c.QueryBool("created_by_me"),
		HeadedByMe:   c.QueryBool("headed_by_me"),
	}
	if statusStr := c.Query("status"); statusStr != "" {
		for _, part := range strings.Split(statusStr, ",") {
			filter.Statuses = append(filter.Statuses, domain.TicketStatus(strings.ToUpper(strings.TrimSpace(part))))
		}
	}
	if priorityStr := c.Query("priority"); priorityStr != "" {
		for _, part := range strings.Split(priorityStr, ",") {
			filter.Priorities = append(filter.Priorities, domain.ParsePriority(strings.TrimSpace(part)))
		}
	}
	if categoryID := c.Query("category_id"); categoryID != "" {
		filter.CategoryID = &categoryID
	}
	if search := c.Query("search"); search != "" {
		filter.SearchTerm = &search
	}
	filter.Page = parseInt(c.Query("page"), 1)
	filter.PageSize = parseInt(c.Query("page_size"), 20)
	return filter
}

func decodeUploads(reqs []dto.FileUploadRequest) ([]files.Upload, error) {
	uploads := make([]files.Upload, 0, len(reqs))
	for _, req := range reqs {
		if req.FileName == "" {
			return nil, apperrors.NewValidationError("file_name required", nil)
		}
		data, err := base64.StdEncoding.DecodeString(req.ContentBase64)
		if err != nil {
			return nil, apperrors.NewValidationError("invalid base64 content", map[string]any{"file_name": req.FileName})
		}
		uploads = append(uploads, files.Upload{Name: req.FileName, Data: data})
	}
	return uploads, nil
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func ticketSummary(ticket *domain.Ticket) dto.TicketSummary {
	return dto.TicketSummary{
		ID:                  ticket.ID,
		ExternalKey:         ticket.ExternalKey,
		Title:               ticket.Title,
		CategoryID:          ticket.CategoryID,
		Status:              ticket.Status,
		Priority:            ticket.Priority,
		DesiredCompleteDate: ticket.DesiredCompleteDate,
		CreatedAt:           ticket.CreatedAt,
		UpdatedAt:           ticket.UpdatedAt,
	}
}

func ticketDetail(detail *service.TicketDetail) dto.TicketDetailResponse {
	ticket := detail.Ticket
	return dto.TicketDetailResponse{
		ID:                   ticket.ID,
		ExternalKey:          ticket.ExternalKey,
		Title:                ticket.Title,
		Content:              ticket.Content,
		CategoryID:           ticket.CategoryID,
		CategoryName:         detail.CategoryName,
		CreatorName:          detail.CreatorName,
		Status:               ticket.Status,
		Priority:             ticket.Priority,
		CauseTypeID:          ticket.CauseTypeID,
		Cause:                ticket.Cause,
		ImplementationPlan:   ticket.ImplementationPlan,
		DesiredCompleteDate:  ticket.DesiredCompleteDate,
		ExpectedStartDate:    ticket.ExpectedStartDate,
		ExpectedCompleteDate: ticket.ExpectedCompleteDate,
		CompletedAt:          ticket.CompletedAt,
		CreatedAt:            ticket.CreatedAt,
		UpdatedAt:            ticket.UpdatedAt,
		Heads:                detail.Heads,
		Assignees:            detail.Assignees,
		Progress:             progressResponses(detail.Progress),
		FileURLs:             detail.FileURLs,
	}
}

func commentResponse(comment *domain.Comment) dto.CommentResponse {
	return dto.CommentResponse{
		ID:          comment.ID,
		TicketID:    comment.TicketID,
		Content:     comment.Content,
		AuthorName:  comment.AuthorName,
		AuthorEmail: comment.AuthorEmail,
		FileURLs:    comment.FileURLs,
		CreatedAt:   comment.CreatedAt,
	}
}

func progressResponses(entries []domain.ProgressEntry) []dto.ProgressEntryResponse {
	resp := make([]dto.ProgressEntryResponse, 0, len(entries))
	for i, entry := range entries {
		resp = append(resp, dto.ProgressEntryResponse{
			ID:           entry.ID,
			Step:         i + 1,
			Kind:         entry.Kind,
			TicketStatus: entry.TicketStatus,
			Note:         entry.Note,
			ActorName:    entry.ActorName,
			CreatedAt:    entry.CreatedAt,
		})
	}
	return resp
}
