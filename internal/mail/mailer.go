package mail

import "context"

// Message is one outbound e-mail.
type Message struct {
	From    string
	To      string
	Subject string
	HTML    string
}

// Mailer performs delivery. The notification worker owns failure handling;
// implementations just report the error.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}
