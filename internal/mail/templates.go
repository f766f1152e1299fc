package mail

import (
	"fmt"

	"github.com/spec-kit/deskflow/internal/domain"
)

// Render produces the subject and HTML body for a notification request.
// baseURL points at the ticket detail page for the "view ticket" link.
func Render(req domain.NotificationRequest, baseURL string) (subject, html string) {
	link := fmt.Sprintf("%s/%s", baseURL, req.TicketID)
	switch req.Kind {
	case domain.NotifyTicketCreated:
		subject = fmt.Sprintf("[%s] New ticket: %s", req.TicketKey, req.TicketTitle)
		html = render(req, link, "A new ticket has been routed to your department and needs review.")
	case domain.NotifyTicketAssigned:
		subject = fmt.Sprintf("[%s] Ticket assigned to you: %s", req.TicketKey, req.TicketTitle)
		html = render(req, link, fmt.Sprintf("%s assigned this ticket to you.", req.ActorName))
	case domain.NotifyTicketEscalated:
		subject = fmt.Sprintf("[%s] Support requested: %s", req.TicketKey, req.TicketTitle)
		html = render(req, link, fmt.Sprintf("%s requested your department's support on this ticket.", req.ActorName))
	case domain.NotifyTicketRejected:
		subject = fmt.Sprintf("[%s] Ticket rejected: %s", req.TicketKey, req.TicketTitle)
		html = render(req, link, fmt.Sprintf("Your ticket was rejected by %s. Reason: %s", req.ActorName, req.Note))
	case domain.NotifyTicketCompleted:
		subject = fmt.Sprintf("[%s] Ticket completed: %s", req.TicketKey, req.TicketTitle)
		html = render(req, link, fmt.Sprintf("Your ticket was completed by %s. %s", req.ActorName, req.Note))
	default:
		subject = fmt.Sprintf("[%s] Ticket update: %s", req.TicketKey, req.TicketTitle)
		html = render(req, link, "There is an update on this ticket.")
	}
	return subject, html
}

func render(req domain.NotificationRequest, link, lead string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; margin: 0; padding: 20px;">
  <div style="max-width: 600px; margin: 0 auto;">
    <h2>Hello %s,</h2>
    <p>%s</p>
    <div style="border: 1px solid #dee2e6; padding: 15px; margin: 15px 0;">
      <ul>
        <li><strong>Ticket:</strong> %s</li>
        <li><strong>Title:</strong> %s</li>
        <li><strong>Priority:</strong> %s</li>
      </ul>
    </div>
    <p style="text-align: center; margin: 30px 0;">
      <a href="%s" style="background-color: #007bff; color: white; padding: 10px 20px; text-decoration: none; border-radius: 5px;">View ticket</a>
    </p>
    <p style="font-size: 12px; color: #6c757d;">This email was sent automatically by the ticket system.</p>
  </div>
</body>
</html>`, req.RecipientName, lead, req.TicketKey, req.TicketTitle, req.Priority, link)
}
