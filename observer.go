package jobq

import (
	"context"
	"log/slog"
	"time"
)

// Observer receives job lifecycle events from workers. Implementations
// must be safe for concurrent use; methods are called on worker
// goroutines and should not block.
type Observer interface {
	JobStarted(ctx context.Context, job Job)
	JobCompleted(ctx context.Context, job Job, elapsed time.Duration)
	JobWillBeRetried(ctx context.Context, job Job, after time.Duration, err error)
	JobFailed(ctx context.Context, job Job, err error)
	JobsPromoted(ctx context.Context, queue string, count int)
	QueueIsEmpty(ctx context.Context)
	WorkerError(ctx context.Context, err error)
}

type NoopObserver struct {
}

func (n NoopObserver) JobStarted(ctx context.Context, job Job) {
}

func (n NoopObserver) JobCompleted(ctx context.Context, job Job, elapsed time.Duration) {
}

func (n NoopObserver) JobWillBeRetried(ctx context.Context, job Job, after time.Duration, err error) {
}

func (n NoopObserver) JobFailed(ctx context.Context, job Job, err error) {
}

func (n NoopObserver) JobsPromoted(ctx context.Context, queue string, count int) {
}

func (n NoopObserver) QueueIsEmpty(ctx context.Context) {
}

func (n NoopObserver) WorkerError(ctx context.Context, err error) {
}

func NewNoopObserver() NoopObserver {
	return NoopObserver{}
}

// LogObserver logs lifecycle events through slog.
type LogObserver struct {
	NoopObserver

	logger *slog.Logger
}

func NewLogObserver(logger *slog.Logger) *LogObserver {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogObserver{logger: logger}
}

func (o *LogObserver) JobStarted(ctx context.Context, job Job) {
	o.logger.InfoContext(ctx, "job started",
		"job_id", job.Id, "queue", job.Queue, "type", job.Type, "attempt", job.Attempt)
}

func (o *LogObserver) JobCompleted(ctx context.Context, job Job, elapsed time.Duration) {
	o.logger.InfoContext(ctx, "job completed",
		"job_id", job.Id, "queue", job.Queue, "type", job.Type, "elapsed", elapsed)
}

func (o *LogObserver) JobWillBeRetried(ctx context.Context, job Job, after time.Duration, err error) {
	o.logger.WarnContext(ctx, "job will be retried",
		"job_id", job.Id, "queue", job.Queue, "type", job.Type,
		"attempt", job.Attempt, "after", after, "error", err)
}

func (o *LogObserver) JobFailed(ctx context.Context, job Job, err error) {
	o.logger.ErrorContext(ctx, "job failed",
		"job_id", job.Id, "queue", job.Queue, "type", job.Type,
		"attempt", job.Attempt, "error", err)
}

func (o *LogObserver) JobsPromoted(ctx context.Context, queue string, count int) {
	o.logger.DebugContext(ctx, "scheduled jobs promoted", "queue", queue, "count", count)
}

func (o *LogObserver) WorkerError(ctx context.Context, err error) {
	o.logger.ErrorContext(ctx, "worker error", "error", err)
}

// MultiObserver fans events out to several observers in order.
type MultiObserver struct {
	observers []Observer
}

func NewMultiObserver(observers ...Observer) *MultiObserver {
	return &MultiObserver{observers: observers}
}

func (m *MultiObserver) JobStarted(ctx context.Context, job Job) {
	for _, o := range m.observers {
		o.JobStarted(ctx, job)
	}
}

func (m *MultiObserver) JobCompleted(ctx context.Context, job Job, elapsed time.Duration) {
	for _, o := range m.observers {
		o.JobCompleted(ctx, job, elapsed)
	}
}

func (m *MultiObserver) JobWillBeRetried(ctx context.Context, job Job, after time.Duration, err error) {
	for _, o := range m.observers {
		o.JobWillBeRetried(ctx, job, after, err)
	}
}

func (m *MultiObserver) JobFailed(ctx context.Context, job Job, err error) {
	for _, o := range m.observers {
		o.JobFailed(ctx, job, err)
	}
}

func (m *MultiObserver) JobsPromoted(ctx context.Context, queue string, count int) {
	for _, o := range m.observers {
		o.JobsPromoted(ctx, queue, count)
	}
}

func (m *MultiObserver) QueueIsEmpty(ctx context.Context) {
	for _, o := range m.observers {
		o.QueueIsEmpty(ctx)
	}
}

func (m *MultiObserver) WorkerError(ctx context.Context, err error) {
	for _, o := range m.observers {
		o.WorkerError(ctx, err)
	}
}
