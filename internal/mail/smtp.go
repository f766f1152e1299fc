package mail

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/spec-kit/deskflow/internal/config"
)

// SMTPMailer delivers messages over plain SMTP with optional auth.
type SMTPMailer struct {
	cfg config.MailConfig
}

// NewSMTPMailer builds the mailer from config.
func NewSMTPMailer(cfg config.MailConfig) *SMTPMailer {
	return &SMTPMailer{cfg: cfg}
}

// Send delivers one message. net/smtp has no context support, so
// cancellation is checked only before the dial.
func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	from := msg.From
	if from == "" {
		from = m.cfg.From
	}

	var body strings.Builder
	body.WriteString("From: " + from + "\r\n")
	body.WriteString("To: " + msg.To + "\r\n")
	body.WriteString("Subject: " + msg.Subject + "\r\n")
	body.WriteString("MIME-Version: 1.0\r\n")
	body.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	body.WriteString("\r\n")
	body.WriteString(msg.HTML)

	addr := fmt.Sprintf("%s:%s", m.cfg.Host, m.cfg.Port)
	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}
	return smtp.SendMail(addr, auth, from, []string{msg.To}, []byte(body.String()))
}
