package jobq

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsObserver exports job lifecycle metrics in Prometheus format.
// Combine with a LogObserver through NewMultiObserver.
type MetricsObserver struct {
	NoopObserver //events without a metric stay noop

	completed *prometheus.CounterVec
	failed    *prometheus.CounterVec
	retried   *prometheus.CounterVec
	duration  prometheus.Histogram
}

func NewMetricsObserver(reg prometheus.Registerer) *MetricsObserver {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &MetricsObserver{
		completed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jobq_jobs_completed_total",
				Help: "Total number of jobs that completed successfully.",
			},
			[]string{"queue", "type"},
		),
		failed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jobq_jobs_failed_total",
				Help: "Total number of jobs that reached terminal failure.",
			},
			[]string{"queue", "type"},
		),
		retried: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jobq_jobs_retried_total",
				Help: "Total number of retry attempts scheduled.",
			},
			[]string{"queue", "type"},
		),
		duration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "jobq_job_duration_seconds",
				Help:    "Handler execution time in seconds.",
				Buckets: prometheus.DefBuckets,
			},
		),
	}
}

func (m *MetricsObserver) JobCompleted(_ context.Context, job Job, elapsed time.Duration) {
	m.completed.WithLabelValues(job.Queue, job.Type).Inc()
	m.duration.Observe(elapsed.Seconds())
}

func (m *MetricsObserver) JobWillBeRetried(_ context.Context, job Job, _ time.Duration, _ error) {
	m.retried.WithLabelValues(job.Queue, job.Type).Inc()
}

func (m *MetricsObserver) JobFailed(_ context.Context, job Job, _ error) {
	m.failed.WithLabelValues(job.Queue, job.Type).Inc()
}
