package domain

// NotificationKind selects the outbound mail template.
type NotificationKind string

const (
	NotifyTicketCreated   NotificationKind = "TICKET_CREATED"
	NotifyTicketAssigned  NotificationKind = "TICKET_ASSIGNED"
	NotifyTicketEscalated NotificationKind = "TICKET_ESCALATED"
	NotifyTicketRejected  NotificationKind = "TICKET_REJECTED"
	NotifyTicketCompleted NotificationKind = "TICKET_COMPLETED"
)

// NotificationRequest is the value the workflow engine hands to the
// dispatcher. It carries everything delivery needs and is never persisted;
// requests still queued at shutdown are lost.
type NotificationRequest struct {
	Kind           NotificationKind
	TicketID       string
	TicketKey      string
	TicketTitle    string
	Priority       TicketPriority
	ActorName      string
	RecipientName  string
	RecipientEmail string
	Note           string
}
