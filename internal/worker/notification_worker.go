package worker

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/deskflow/internal/config"
	"github.com/spec-kit/deskflow/internal/domain"
	"github.com/spec-kit/deskflow/internal/mail"
	"github.com/spec-kit/deskflow/internal/observability"
)

// Notifier is what the workflow engine sees: fire-and-forget enqueue.
type Notifier interface {
	Enqueue(req domain.NotificationRequest)
}

// NotificationQueue is a bounded queue of notification requests drained by
// a single worker that delivers via the Mailer. Delivery gets one attempt;
// a failure is logged and never re-queued, so a lost notification can never
// roll back the ticket mutation that produced it.
type NotificationQueue struct {
	requests chan domain.NotificationRequest
	mailer   mail.Mailer
	cfg      config.MailConfig
	logger   *zap.Logger
	metrics  *observability.Metrics
}

// NewNotificationQueue sizes the queue.
func NewNotificationQueue(capacity int, mailer mail.Mailer, cfg config.MailConfig, logger *zap.Logger, metrics *observability.Metrics) *NotificationQueue {
	if capacity <= 0 {
		capacity = 100
	}
	return &NotificationQueue{
		requests: make(chan domain.NotificationRequest, capacity),
		mailer:   mailer,
		cfg:      cfg,
		logger:   logger,
		metrics:  metrics,
	}
}

// Enqueue adds a request without blocking. A full queue drops the request;
// notifications are best-effort by contract.
func (q *NotificationQueue) Enqueue(req domain.NotificationRequest) {
	select {
	case q.requests <- req:
		q.logger.Debug("notification queued",
			zap.String("ticket_id", req.TicketID),
			zap.String("kind", string(req.Kind)))
	default:
		q.logger.Warn("notification queue full; dropping",
			zap.String("ticket_id", req.TicketID),
			zap.String("kind", string(req.Kind)))
		q.metrics.RecordNotification(false)
	}
}

// Run delivers queued requests in enqueue order until ctx is cancelled.
func (q *NotificationQueue) Run(ctx context.Context) error {
	q.logger.Info("notification worker started")
	for {
		select {
		case <-ctx.Done():
			q.logger.Info("notification worker stopped")
			return nil
		case req := <-q.requests:
			q.deliver(ctx, req)
		}
	}
}

func (q *NotificationQueue) deliver(ctx context.Context, req domain.NotificationRequest) {
	subject, html := mail.Render(req, q.cfg.BaseURL)
	msg := mail.Message{
		From:    q.cfg.From,
		To:      req.RecipientEmail,
		Subject: subject,
		HTML:    html,
	}
	if err := q.mailer.Send(ctx, msg); err != nil {
		q.logger.Error("notification delivery failed",
			zap.String("ticket_id", req.TicketID),
			zap.String("kind", string(req.Kind)),
			zap.String("recipient", req.RecipientEmail),
			zap.Error(err))
		q.metrics.RecordNotification(false)
		return
	}
	q.logger.Info("notification delivered",
		zap.String("ticket_id", req.TicketID),
		zap.String("kind", string(req.Kind)),
		zap.String("recipient", req.RecipientEmail))
	q.metrics.RecordNotification(true)
}
