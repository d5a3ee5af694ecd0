package jobq

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/time/rate"
)

type WorkerState string

const (
	WorkerStopped WorkerState = "stopped"
	WorkerRunning WorkerState = "running"
)

// WorkerStatus is a point-in-time snapshot of a worker.
type WorkerStatus struct {
	Id        string
	Queue     string
	State     WorkerState
	StartedAt time.Time
}

var workerSeq atomic.Int64

// Worker is a polling loop over one queue name: it promotes due delayed
// jobs on a scheduled interval, claims ready jobs, dispatches them to
// registered handlers and applies the retry policy to failures.
//
// A worker never preempts a handler: a slow job occupies the worker
// until the handler returns, and Stop waits for the in-flight job.
type Worker struct {
	id                string
	queue             Queue
	store             Store
	registry          *Registry
	queueName         string
	pollInterval      time.Duration
	scheduledInterval time.Duration
	policy            RetryPolicy
	observer          Observer
	limiter           *rate.Limiter

	wg       sync.WaitGroup
	close    chan struct{}
	stopOnce sync.Once

	mu        sync.Mutex
	state     WorkerState
	startedAt time.Time
}

func NewWorker(queue Queue, store Store, registry *Registry, queueName string, opts ...WorkerOption) *Worker {
	w := &Worker{
		id:                fmt.Sprintf("worker-%d", workerSeq.Add(1)),
		queue:             queue,
		store:             store,
		registry:          registry,
		queueName:         queueName,
		pollInterval:      1 * time.Second,
		scheduledInterval: 5 * time.Second,
		policy:            DefaultRetryPolicy(),
		observer:          NewNoopObserver(),
		close:             make(chan struct{}),
		state:             WorkerStopped,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run starts the poll loop on its own goroutine. Calling Run on a
// running worker is a no-op.
func (w *Worker) Run(ctx context.Context) {
	w.mu.Lock()
	if w.state == WorkerRunning {
		w.mu.Unlock()
		return
	}
	w.state = WorkerRunning
	w.startedAt = timeNow()
	w.mu.Unlock()

	w.wg.Add(1)
	go w.run(ctx)
}

func (w *Worker) run(ctx context.Context) {
	defer w.wg.Done()
	defer w.setStopped()

	var lastPromote time.Time
	for {
		select {
		case <-w.close:
			return
		case <-ctx.Done():
			return
		default:
		}

		now := timeNow()
		if now.Sub(lastPromote) >= w.scheduledInterval {
			promoted, err := w.queue.PromoteDue(ctx, w.queueName, now)
			if err != nil {
				w.observer.WorkerError(ctx, err)
			} else if promoted > 0 {
				w.observer.JobsPromoted(ctx, w.queueName, promoted)
			}
			lastPromote = now
		}

		if w.limiter != nil {
			err := w.limiter.Wait(ctx)
			if err != nil {
				return
			}
		}

		job, err := w.queue.Dequeue(ctx, w.queueName)
		if err != nil {
			if err == ErrEmptyQueue {
				w.observer.QueueIsEmpty(ctx)
			} else {
				w.observer.WorkerError(ctx, err)
			}

			select {
			case <-w.close:
				return
			case <-ctx.Done():
				return
			case <-time.After(w.pollInterval):
			}
			continue
		}

		// A failing job is isolated per iteration; the loop keeps polling.
		err = w.Process(ctx, job)
		if err != nil {
			w.observer.WorkerError(ctx, err)
		}
	}
}

// Process claims and executes a single job synchronously, producing the
// same state transitions as the poll loop. The job must already be
// invisible to other workers (dequeued or never enqueued).
func (w *Worker) Process(ctx context.Context, job *Job) error {
	job.Attempt++
	job.Status = StatusRunning
	job.ExecuteAt = nil
	err := w.store.Save(ctx, job)
	if err != nil {
		return errors.WithMessagef(err, "claim job %s", job.Id)
	}
	w.observer.JobStarted(ctx, *job)

	handler, ok := w.registry.Handler(job.Type)
	if !ok {
		// A missing handler cannot appear mid-retry-cycle, so this is
		// terminal immediately instead of burning the retry budget.
		msg := fmt.Sprintf("No handler registered for job type %q", job.Type)
		return w.finalizeFailed(ctx, job, NewError(ErrorTypeNoHandler, msg))
	}

	started := timeNow()
	result := invoke(ctx, handler, *job)
	elapsed := time.Since(started)

	if result.success {
		job.Status = StatusCompleted
		job.Result = result.value
		job.LastError = nil
		err = w.store.Save(ctx, job)
		if err != nil {
			return errors.WithMessagef(err, "complete job %s", job.Id)
		}
		w.observer.JobCompleted(ctx, *job, elapsed)
		return nil
	}

	herr := result.err
	if herr == nil {
		// Zero-value Result counts as an untyped failure.
		herr = NewError("error", "handler failed")
	}
	if ShouldRetry(job.Attempt, job.MaxRetries+1, herr.Type, w.policy) {
		return w.scheduleRetry(ctx, job, herr)
	}
	return w.finalizeFailed(ctx, job, herr)
}

func (w *Worker) scheduleRetry(ctx context.Context, job *Job, herr *Error) error {
	delay := CalculateBackoff(job.Attempt-1, w.policy.BaseDelay, w.policy.MaxDelay)
	at := timeNow().Add(delay)
	job.Status = StatusScheduled
	job.ExecuteAt = &at
	msg := herr.Error()
	job.LastError = &msg

	err := w.store.Save(ctx, job)
	if err != nil {
		return errors.WithMessagef(err, "reschedule job %s", job.Id)
	}
	err = w.queue.Enqueue(ctx, job)
	if err != nil {
		return errors.WithMessagef(err, "requeue job %s", job.Id)
	}
	w.observer.JobWillBeRetried(ctx, *job, delay, herr)
	return nil
}

func (w *Worker) finalizeFailed(ctx context.Context, job *Job, herr *Error) error {
	job.Status = StatusFailed
	job.ExecuteAt = nil
	msg := herr.Error()
	job.LastError = &msg

	err := w.store.Save(ctx, job)
	if err != nil {
		return errors.WithMessagef(err, "fail job %s", job.Id)
	}
	w.observer.JobFailed(ctx, *job, herr)
	return nil
}

// invoke guards the handler call: a panic is coerced into a failed
// Result so downstream retry logic never sees control-flow exceptions.
func invoke(ctx context.Context, handler Handler, job Job) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			result = Fail(NewError(ErrorTypePanic, fmt.Sprintf("handler panic: %v", r)))
		}
	}()
	return handler.Handle(ctx, job)
}

// Stop halts polling and waits for any in-flight job to finish.
// Idempotent: calling Stop twice is a no-op.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() {
		close(w.close)
	})
	w.wg.Wait()
}

func (w *Worker) setStopped() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.state = WorkerStopped
}

// Status returns a snapshot of the worker.
func (w *Worker) Status() WorkerStatus {
	w.mu.Lock()
	defer w.mu.Unlock()
	return WorkerStatus{
		Id:        w.id,
		Queue:     w.queueName,
		State:     w.state,
		StartedAt: w.startedAt,
	}
}
