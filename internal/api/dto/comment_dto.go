package dto

import "time"

// CreateCommentRequest posts a discussion entry on a ticket.
type CreateCommentRequest struct {
	Content     string              `json:"content"`
	Attachments []FileUploadRequest `json:"attachments"`
}

// CommentResponse is one discussion entry with its author and files.
type CommentResponse struct {
	ID          string    `json:"id"`
	TicketID    string    `json:"ticket_id"`
	Content     string    `json:"content"`
	AuthorName  string    `json:"author_name"`
	AuthorEmail string    `json:"author_email"`
	FileURLs    []string  `json:"file_urls,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}
