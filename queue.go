package jobq

import (
	"container/heap"
	"context"
	"sync"
	"time"
)

// Queue hands out the highest-priority ready job per queue name and holds
// jobs with an ExecuteAt in a delayed area until PromoteDue moves them
// to the ready set.
//
// Implementations must be safe for concurrent use. Dequeue must be
// atomic: a job returned to one caller is invisible to every other
// caller until it is re-enqueued.
type Queue interface {
	// Enqueue makes the job visible on its queue, immediately when it has
	// no ExecuteAt, otherwise after promotion. Jobs without a type or
	// queue name, or with an invalid priority, are rejected synchronously.
	Enqueue(ctx context.Context, job *Job) error

	// Dequeue removes and returns the ready job with the highest
	// priority, FIFO within equal priority. Returns ErrEmptyQueue when
	// nothing is ready.
	Dequeue(ctx context.Context, queue string) (*Job, error)

	// Size returns the number of ready (non-delayed) jobs.
	Size(ctx context.Context, queue string) (int, error)

	// PromoteDue moves delayed jobs whose ExecuteAt is not after now into
	// the ready set and returns how many were moved.
	PromoteDue(ctx context.Context, queue string, now time.Time) (int, error)
}

func validateJob(job *Job) error {
	if job.Queue == "" {
		return ErrQueueIsRequired
	}
	if job.Type == "" {
		return ErrTypeIsRequired
	}
	if !job.Priority.Valid() {
		return ErrInvalidPriority
	}
	return nil
}

type readyItem struct {
	job *Job
	seq uint64
}

// readyHeap orders by priority descending, then enqueue sequence ascending.
type readyHeap []*readyItem

func (h readyHeap) Len() int { return len(h) }

func (h readyHeap) Less(i, j int) bool {
	if h[i].job.Priority != h[j].job.Priority {
		return h[i].job.Priority > h[j].job.Priority
	}
	return h[i].seq < h[j].seq
}

func (h readyHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *readyHeap) Push(x any) { *h = append(*h, x.(*readyItem)) }

func (h *readyHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return item
}

type delayedItem struct {
	job *Job
	at  time.Time
	seq uint64
}

// delayedHeap orders by ExecuteAt ascending, then enqueue sequence.
type delayedHeap []*delayedItem

func (h delayedHeap) Len() int { return len(h) }

func (h delayedHeap) Less(i, j int) bool {
	if !h[i].at.Equal(h[j].at) {
		return h[i].at.Before(h[j].at)
	}
	return h[i].seq < h[j].seq
}

func (h delayedHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *delayedHeap) Push(x any) { *h = append(*h, x.(*delayedItem)) }

func (h *delayedHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return item
}

type memQueue struct {
	ready   readyHeap
	delayed delayedHeap
}

// MemoryQueue is an in-process Queue built on a mutex-guarded priority
// heap plus a delayed min-heap per queue name. Delayed jobs keep their
// original enqueue sequence, so promotion preserves FIFO order within a
// priority.
//
// The claim contract is at-least-once: Dequeue removes the job under the
// queue lock so it can never reach two workers in one process, but a job
// lost between claim and completion (process crash) is gone. Handlers
// should be idempotent.
type MemoryQueue struct {
	mu     sync.Mutex
	seq    uint64
	queues map[string]*memQueue
}

var _ Queue = (*MemoryQueue)(nil)

func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{
		queues: make(map[string]*memQueue),
	}
}

func (q *MemoryQueue) queue(name string) *memQueue {
	mq, ok := q.queues[name]
	if !ok {
		mq = &memQueue{}
		q.queues[name] = mq
	}
	return mq
}

func (q *MemoryQueue) Enqueue(_ context.Context, job *Job) error {
	err := validateJob(job)
	if err != nil {
		return err
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	mq := q.queue(job.Queue)
	q.seq++
	cp := *job
	if cp.ExecuteAt != nil {
		heap.Push(&mq.delayed, &delayedItem{job: &cp, at: *cp.ExecuteAt, seq: q.seq})
	} else {
		heap.Push(&mq.ready, &readyItem{job: &cp, seq: q.seq})
	}
	return nil
}

func (q *MemoryQueue) Dequeue(_ context.Context, queue string) (*Job, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	mq, ok := q.queues[queue]
	if !ok || mq.ready.Len() == 0 {
		return nil, ErrEmptyQueue
	}
	item := heap.Pop(&mq.ready).(*readyItem)
	cp := *item.job
	return &cp, nil
}

func (q *MemoryQueue) Size(_ context.Context, queue string) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	mq, ok := q.queues[queue]
	if !ok {
		return 0, nil
	}
	return mq.ready.Len(), nil
}

func (q *MemoryQueue) PromoteDue(_ context.Context, queue string, now time.Time) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	mq, ok := q.queues[queue]
	if !ok {
		return 0, nil
	}

	promoted := 0
	for mq.delayed.Len() > 0 && !mq.delayed[0].at.After(now) {
		item := heap.Pop(&mq.delayed).(*delayedItem)
		item.job.Status = StatusPending
		heap.Push(&mq.ready, &readyItem{job: item.job, seq: item.seq})
		promoted++
	}
	return promoted, nil
}
