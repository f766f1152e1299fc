package domain

import "time"

// ProgressKind tags what a progress entry records, so consumers never have
// to pattern-match note text to recover what happened.
type ProgressKind string

const (
	ProgressCreated    ProgressKind = "CREATED"
	ProgressAssigned   ProgressKind = "ASSIGNED"
	ProgressUnassigned ProgressKind = "UNASSIGNED"
	ProgressReceived   ProgressKind = "RECEIVED"
	ProgressHandled    ProgressKind = "HANDLED"
	ProgressEscalated  ProgressKind = "ESCALATED"
	ProgressRejected   ProgressKind = "REJECTED"
	ProgressCompleted  ProgressKind = "COMPLETED"
	ProgressUpdated    ProgressKind = "UPDATED"
	ProgressOverdue    ProgressKind = "OVERDUE"
)

// ProgressEntry is an immutable audit-trail record. TicketStatus snapshots
// the ticket's status after the mutation that produced the entry.
type ProgressEntry struct {
	ID           string
	TicketID     string
	Kind         ProgressKind
	TicketStatus TicketStatus
	Note         string
	ActorName    string
	CreatedAt    time.Time
}
