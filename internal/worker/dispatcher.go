package worker

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/deskflow/internal/observability"
)

// Task is one deferred work item.
type Task func(ctx context.Context) error

// TaskQueue is a bounded queue drained by a single worker. Each item gets
// exactly one attempt; a failure is logged and the loop moves on. Items
// still queued when the process stops are lost.
type TaskQueue struct {
	tasks   chan Task
	logger  *zap.Logger
	metrics *observability.Metrics
}

// NewTaskQueue sizes the queue.
func NewTaskQueue(capacity int, logger *zap.Logger, metrics *observability.Metrics) *TaskQueue {
	if capacity <= 0 {
		capacity = 100
	}
	return &TaskQueue{
		tasks:   make(chan Task, capacity),
		logger:  logger,
		metrics: metrics,
	}
}

// Enqueue adds a task without blocking the caller. When the queue is full
// the task is dropped and logged; deferred work is best-effort and must
// never stall the request path.
func (q *TaskQueue) Enqueue(task Task) {
	if task == nil {
		return
	}
	select {
	case q.tasks <- task:
	default:
		q.logger.Warn("task queue full; dropping task")
		q.metrics.RecordTask(false)
	}
}

// Run drains the queue until ctx is cancelled. The in-flight task runs to
// completion; queued tasks behind it are abandoned.
func (q *TaskQueue) Run(ctx context.Context) error {
	q.logger.Info("task worker started")
	for {
		select {
		case <-ctx.Done():
			q.logger.Info("task worker stopped")
			return nil
		case task := <-q.tasks:
			if err := task(ctx); err != nil {
				q.logger.Error("task failed", zap.Error(err))
				q.metrics.RecordTask(false)
				continue
			}
			q.metrics.RecordTask(true)
		}
	}
}
