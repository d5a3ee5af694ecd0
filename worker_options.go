package jobq

import (
	"time"

	"golang.org/x/time/rate"
)

type WorkerOption func(w *Worker)

// WithPollInterval sets how long the worker sleeps when the queue is empty.
func WithPollInterval(interval time.Duration) WorkerOption {
	return func(w *Worker) {
		w.pollInterval = interval
	}
}

// WithScheduledInterval sets how often delayed jobs are promoted to the
// ready set. Usually longer than the poll interval.
func WithScheduledInterval(interval time.Duration) WorkerOption {
	return func(w *Worker) {
		w.scheduledInterval = interval
	}
}

// WithRetryPolicy replaces the default backoff/retry policy.
func WithRetryPolicy(policy RetryPolicy) WorkerOption {
	return func(w *Worker) {
		w.policy = policy
	}
}

// WithObserver sets the lifecycle observer, default is noop.
func WithObserver(observer Observer) WorkerOption {
	return func(w *Worker) {
		w.observer = observer
	}
}

// WithRateLimit caps how many jobs per second the worker dequeues.
// Useful to keep a shared store from being hammered by a large pool.
func WithRateLimit(perSecond float64, burst int) WorkerOption {
	return func(w *Worker) {
		if burst <= 0 {
			burst = 1
		}
		w.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}
