package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusPending    TicketStatus = "PENDING"
	TicketStatusReceived   TicketStatus = "RECEIVED"
	TicketStatusInProgress TicketStatus = "IN_PROGRESS"
	TicketStatusOverdue    TicketStatus = "OVERDUE"
	TicketStatusRejected   TicketStatus = "REJECTED"
	TicketStatusClosed     TicketStatus = "CLOSED"
)

// IsTerminal reports whether no further transition may leave the status.
func (s TicketStatus) IsTerminal() bool {
	return s == TicketStatusRejected || s == TicketStatusClosed
}

var allowedTransitions = map[TicketStatus][]TicketStatus{
	TicketStatusPending:    {TicketStatusReceived, TicketStatusInProgress, TicketStatusRejected, TicketStatusOverdue},
	TicketStatusReceived:   {TicketStatusInProgress, TicketStatusRejected, TicketStatusClosed, TicketStatusOverdue},
	TicketStatusInProgress: {TicketStatusRejected, TicketStatusClosed, TicketStatusOverdue},
	TicketStatusOverdue:    {TicketStatusInProgress, TicketStatusRejected, TicketStatusClosed},
	TicketStatusRejected:   {},
	TicketStatusClosed:     {},
}

// CanTransition reports whether the status machine permits current -> next.
func CanTransition(current, next TicketStatus) bool {
	for _, candidate := range allowedTransitions[current] {
		if candidate == next {
			return true
		}
	}
	return false
}

// TicketPriority enumerates urgency, ordered Critical > High > Medium > Low.
type TicketPriority string

const (
	TicketPriorityCritical TicketPriority = "CRITICAL"
	TicketPriorityHigh     TicketPriority = "HIGH"
	TicketPriorityMedium   TicketPriority = "MEDIUM"
	TicketPriorityLow      TicketPriority = "LOW"
)

// Rank returns the ordering weight of a priority; higher is more urgent.
func (p TicketPriority) Rank() int {
	switch p {
	case TicketPriorityCritical:
		return 4
	case TicketPriorityHigh:
		return 3
	case TicketPriorityMedium:
		return 2
	case TicketPriorityLow:
		return 1
	default:
		return 0
	}
}

// ParsePriority maps a label to a priority, defaulting to Medium.
func ParsePriority(label string) TicketPriority {
	switch TicketPriority(label) {
	case TicketPriorityCritical, TicketPriorityHigh, TicketPriorityMedium, TicketPriorityLow:
		return TicketPriority(label)
	}
	return TicketPriorityMedium
}

// Ticket is the aggregate for departmental service requests.
type Ticket struct {
	ID                   string
	ExternalKey          string
	Title                string
	Content              string
	CategoryID           string
	CreatorID            string
	Priority             TicketPriority
	Status               TicketStatus
	CauseTypeID          *string
	Cause                *string
	ImplementationPlan   *string
	DesiredCompleteDate  time.Time
	ExpectedStartDate    *time.Time
	ExpectedCompleteDate *time.Time
	CreatedAt            time.Time
	UpdatedAt            time.Time
	CompletedAt          *time.Time
}

// AssignmentLink ties a ticket to an employee working it.
type AssignmentLink struct {
	TicketID   string
	AssigneeID string
	CreatedAt  time.Time
}

// HeadLink ties a ticket to a department head. Exactly one link per ticket
// is primary: the head resolved from the category at creation time.
type HeadLink struct {
	TicketID  string
	HeadID    string
	IsPrimary bool
	CreatedAt time.Time
}

// Attachment stores a retrieval URL for a file uploaded with a ticket.
type Attachment struct {
	ID          string
	TicketID    string
	URL         string
	ContentType string
	CreatedAt   time.Time
}
