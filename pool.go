package jobq

import (
	"context"
	"sync"
	"time"
)

// PoolConfig sizes a worker pool against one logical queue.
type PoolConfig struct {
	QueueName         string
	WorkerCount       int
	PollInterval      time.Duration
	ScheduledInterval time.Duration
}

// Pool runs N independent workers against the same queue, store and
// registry. Jobs are not pinned to a worker: any idle worker may claim
// any ready job, load balancing falls out of contention on Dequeue.
type Pool struct {
	workers []*Worker
}

func NewPool(cfg PoolConfig, queue Queue, store Store, registry *Registry, opts ...WorkerOption) *Pool {
	if cfg.QueueName == "" {
		cfg.QueueName = "default"
	}
	if cfg.WorkerCount < 1 {
		cfg.WorkerCount = 1
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 1 * time.Second
	}
	if cfg.ScheduledInterval <= 0 {
		cfg.ScheduledInterval = 5 * time.Second
	}

	workers := make([]*Worker, 0, cfg.WorkerCount)
	for i := 0; i < cfg.WorkerCount; i++ {
		workerOpts := append([]WorkerOption{
			WithPollInterval(cfg.PollInterval),
			WithScheduledInterval(cfg.ScheduledInterval),
		}, opts...)
		workers = append(workers, NewWorker(queue, store, registry, cfg.QueueName, workerOpts...))
	}
	return &Pool{workers: workers}
}

// Run starts every worker. Non-blocking, call once.
func (p *Pool) Run(ctx context.Context) {
	for _, w := range p.workers {
		w.Run(ctx)
	}
}

// Shutdown stops every worker and returns once all of them have
// finished their in-flight jobs and transitioned to stopped.
func (p *Pool) Shutdown() {
	wg := sync.WaitGroup{}
	for _, w := range p.workers {
		wg.Add(1)
		go func(w *Worker) {
			defer wg.Done()
			w.Stop()
		}(w)
	}
	wg.Wait()
}

// Status returns a snapshot of every worker in the pool.
func (p *Pool) Status() []WorkerStatus {
	statuses := make([]WorkerStatus, 0, len(p.workers))
	for _, w := range p.workers {
		statuses = append(statuses, w.Status())
	}
	return statuses
}

// Workers exposes the underlying workers, mainly for direct Process calls.
func (p *Pool) Workers() []*Worker {
	return p.workers
}
