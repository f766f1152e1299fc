package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/deskflow/internal/domain"
	"github.com/spec-kit/deskflow/internal/observability"
	"github.com/spec-kit/deskflow/internal/repository"
)

const systemActorName = "system"

// OverdueScanner periodically re-derives ticket state from wall-clock time:
// any non-terminal ticket whose expected completion has passed is flipped to
// OVERDUE. The flip is a guarded UPDATE, so a ticket closed between
// selection and write is never overwritten.
type OverdueScanner struct {
	tickets  repository.TicketRepository
	progress repository.ProgressRepository
	interval time.Duration
	logger   *zap.Logger
	metrics  *observability.Metrics

	// Clock is injectable for tests; defaults to time.Now.
	Clock func() time.Time
}

// NewOverdueScanner builds the scanner.
func NewOverdueScanner(tickets repository.TicketRepository, progress repository.ProgressRepository, interval time.Duration, logger *zap.Logger, metrics *observability.Metrics) *OverdueScanner {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &OverdueScanner{
		tickets:  tickets,
		progress: progress,
		interval: interval,
		logger:   logger,
		metrics:  metrics,
		Clock:    time.Now,
	}
}

// Run scans on a fixed interval until ctx is cancelled.
func (s *OverdueScanner) Run(ctx context.Context) error {
	s.logger.Info("overdue scanner started", zap.Duration("interval", s.interval))
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("overdue scanner stopped")
			return nil
		case <-ticker.C:
			s.Scan(ctx)
		}
	}
}

// Scan runs one pass. A failure on one ticket is logged and the batch
// continues; scan errors never propagate.
func (s *OverdueScanner) Scan(ctx context.Context) {
	now := s.Clock()
	ids, err := s.tickets.ListOverdueCandidateIDs(ctx, now)
	if err != nil {
		s.logger.Error("overdue candidate query failed", zap.Error(err))
		return
	}
	if len(ids) == 0 {
		return
	}
	s.logger.Info("overdue candidates found", zap.Int("count", len(ids)))

	flipped := 0
	for _, id := range ids {
		ok, err := s.tickets.MarkOverdue(ctx, id, now)
		if err != nil {
			s.logger.Error("overdue update failed", zap.String("ticket_id", id), zap.Error(err))
			continue
		}
		if !ok {
			// closed or already flipped since selection
			continue
		}
		flipped++
		entry := &domain.ProgressEntry{
			TicketID:     id,
			Kind:         domain.ProgressOverdue,
			TicketStatus: domain.TicketStatusOverdue,
			Note:         "expected completion date passed",
			ActorName:    systemActorName,
		}
		if err := s.progress.Create(ctx, entry); err != nil {
			s.logger.Error("overdue progress entry failed", zap.String("ticket_id", id), zap.Error(err))
		}
	}
	if flipped > 0 {
		s.metrics.RecordOverdue(flipped)
		s.logger.Info("tickets marked overdue", zap.Int("count", flipped))
	}
}
