package domain

import "time"

// Comment is a discussion entry on a ticket. AuthorName and AuthorEmail are
// resolved from the users table on read; FileURLs come from the comment's
// attachment records.
type Comment struct {
	ID          string
	TicketID    string
	AuthorID    string
	AuthorName  string
	AuthorEmail string
	Content     string
	FileURLs    []string
	CreatedAt   time.Time
}
