package dto

import (
	"time"

	"github.com/spec-kit/deskflow/internal/domain"
	"github.com/spec-kit/deskflow/internal/service"
)

// FileUploadRequest carries one attachment, base64 encoded.
type FileUploadRequest struct {
	FileName      string `json:"file_name"`
	ContentBase64 string `json:"content_base64"`
}

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Title               string              `json:"title"`
	CategoryID          string              `json:"category_id"`
	Content             string              `json:"content"`
	Priority            string              `json:"priority"`
	DesiredCompleteDate time.Time           `json:"desired_complete_date"`
	Attachments         []FileUploadRequest `json:"attachments"`
}

// UpdateTicketRequest carries triage fields; absent fields stay unchanged.
type UpdateTicketRequest struct {
	CauseTypeID          *string             `json:"cause_type_id"`
	Cause                *string             `json:"cause"`
	ImplementationPlan   *string             `json:"implementation_plan"`
	ExpectedStartDate    *time.Time          `json:"expected_start_date"`
	ExpectedCompleteDate *time.Time          `json:"expected_complete_date"`
	AddFiles             []FileUploadRequest `json:"add_files"`
	RemoveFileURLs       []string            `json:"remove_file_urls"`
}

// AssignTicketRequest payload.
type AssignTicketRequest struct {
	AssigneeIDs []string `json:"assignee_ids"`
	Note        string   `json:"note"`
}

// UnassignTicketRequest payload.
type UnassignTicketRequest struct {
	EmployeeID string `json:"employee_id"`
}

// AddHeadRequest payload.
type AddHeadRequest struct {
	HeadIDs []string `json:"head_ids"`
	Note    string   `json:"note"`
}

// RejectTicketRequest payload.
type RejectTicketRequest struct {
	Reason string `json:"reason"`
}

// CompleteTicketRequest payload.
type CompleteTicketRequest struct {
	Note string `json:"note"`
}

// TicketSummary response.
type TicketSummary struct {
	ID                  string                `json:"id"`
	ExternalKey         string                `json:"external_key"`
	Title               string                `json:"title"`
	CategoryID          string                `json:"category_id"`
	Status              domain.TicketStatus   `json:"status"`
	Priority            domain.TicketPriority `json:"priority"`
	DesiredCompleteDate time.Time             `json:"desired_complete_date"`
	CreatedAt           time.Time             `json:"created_at"`
	UpdatedAt           time.Time             `json:"updated_at"`
}

// TicketListResponse pages summaries.
type TicketListResponse struct {
	Items    []TicketSummary `json:"items"`
	Total    int             `json:"total"`
	Page     int             `json:"page"`
	PageSize int             `json:"page_size"`
}

// ProgressEntryResponse is one audit trail entry. Step is 1-based in
// insertion order.
type ProgressEntryResponse struct {
	ID           string              `json:"id"`
	Step         int                 `json:"step"`
	Kind         domain.ProgressKind `json:"kind"`
	TicketStatus domain.TicketStatus `json:"ticket_status"`
	Note         string              `json:"note"`
	ActorName    string              `json:"actor_name"`
	CreatedAt    time.Time           `json:"created_at"`
}

// TicketDetailResponse provides full ticket info.
type TicketDetailResponse struct {
	ID                   string                  `json:"id"`
	ExternalKey          string                  `json:"external_key"`
	Title                string                  `json:"title"`
	Content              string                  `json:"content"`
	CategoryID           string                  `json:"category_id"`
	CategoryName         string                  `json:"category_name"`
	CreatorName          string                  `json:"creator_name"`
	Status               domain.TicketStatus     `json:"status"`
	Priority             domain.TicketPriority   `json:"priority"`
	CauseTypeID          *string                 `json:"cause_type_id"`
	Cause                *string                 `json:"cause"`
	ImplementationPlan   *string                 `json:"implementation_plan"`
	DesiredCompleteDate  time.Time               `json:"desired_complete_date"`
	ExpectedStartDate    *time.Time              `json:"expected_start_date"`
	ExpectedCompleteDate *time.Time              `json:"expected_complete_date"`
	CompletedAt          *time.Time              `json:"completed_at"`
	CreatedAt            time.Time               `json:"created_at"`
	UpdatedAt            time.Time               `json:"updated_at"`
	Heads                []service.HeadInfo      `json:"heads"`
	Assignees            []service.AssigneeInfo  `json:"assignees"`
	Progress             []ProgressEntryResponse `json:"progress"`
	FileURLs             []string                `json:"file_urls"`
}
