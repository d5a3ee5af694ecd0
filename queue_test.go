package jobq_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/taskforge/jobq"
)

func newJob(id string, priority jobq.Priority) *jobq.Job {
	return &jobq.Job{
		Id:       id,
		Queue:    "test",
		Type:     "test",
		Priority: priority,
		Status:   jobq.StatusPending,
	}
}

func TestMemoryQueue_PriorityOrder(t *testing.T) {
	require := require.New(t)
	q := jobq.NewMemoryQueue()
	ctx := context.Background()

	require.NoError(q.Enqueue(ctx, newJob("low", jobq.PriorityLow)))
	require.NoError(q.Enqueue(ctx, newJob("normal", jobq.PriorityNormal)))
	require.NoError(q.Enqueue(ctx, newJob("high", jobq.PriorityHigh)))
	require.NoError(q.Enqueue(ctx, newJob("critical", jobq.PriorityCritical)))

	order := make([]string, 0, 4)
	for i := 0; i < 4; i++ {
		job, err := q.Dequeue(ctx, "test")
		require.NoError(err)
		order = append(order, job.Id)
	}
	require.Equal([]string{"critical", "high", "normal", "low"}, order)

	_, err := q.Dequeue(ctx, "test")
	require.EqualValues(jobq.ErrEmptyQueue, err)
}

func TestMemoryQueue_FifoWithinPriority(t *testing.T) {
	require := require.New(t)
	q := jobq.NewMemoryQueue()
	ctx := context.Background()

	require.NoError(q.Enqueue(ctx, newJob("a", jobq.PriorityNormal)))
	require.NoError(q.Enqueue(ctx, newJob("b", jobq.PriorityNormal)))

	first, err := q.Dequeue(ctx, "test")
	require.NoError(err)
	second, err := q.Dequeue(ctx, "test")
	require.NoError(err)
	require.Equal("a", first.Id)
	require.Equal("b", second.Id)
}

func TestMemoryQueue_Validation(t *testing.T) {
	require := require.New(t)
	q := jobq.NewMemoryQueue()
	ctx := context.Background()

	err := q.Enqueue(ctx, &jobq.Job{Type: "test", Priority: jobq.PriorityNormal})
	require.EqualValues(jobq.ErrQueueIsRequired, err)

	err = q.Enqueue(ctx, &jobq.Job{Queue: "test", Priority: jobq.PriorityNormal})
	require.EqualValues(jobq.ErrTypeIsRequired, err)

	err = q.Enqueue(ctx, &jobq.Job{Queue: "test", Type: "test", Priority: 42})
	require.EqualValues(jobq.ErrInvalidPriority, err)
}

func TestMemoryQueue_DelayedHeldUntilPromotion(t *testing.T) {
	require := require.New(t)
	q := jobq.NewMemoryQueue()
	ctx := context.Background()

	at := time.Now().UTC().Add(-1 * time.Second) //already due, still held
	job := newJob("delayed", jobq.PriorityNormal)
	job.Status = jobq.StatusScheduled
	job.ExecuteAt = &at
	require.NoError(q.Enqueue(ctx, job))

	_, err := q.Dequeue(ctx, "test")
	require.EqualValues(jobq.ErrEmptyQueue, err)

	size, err := q.Size(ctx, "test")
	require.NoError(err)
	require.Equal(0, size)

	promoted, err := q.PromoteDue(ctx, "test", time.Now().UTC())
	require.NoError(err)
	require.Equal(1, promoted)

	size, err = q.Size(ctx, "test")
	require.NoError(err)
	require.Equal(1, size)

	got, err := q.Dequeue(ctx, "test")
	require.NoError(err)
	require.Equal("delayed", got.Id)
	require.Equal(jobq.StatusPending, got.Status)
}

func TestMemoryQueue_PromoteDueKeepsFutureJobs(t *testing.T) {
	require := require.New(t)
	q := jobq.NewMemoryQueue()
	ctx := context.Background()

	now := time.Now().UTC()
	due := now.Add(-time.Second)
	future := now.Add(time.Hour)

	dueJob := newJob("due", jobq.PriorityNormal)
	dueJob.ExecuteAt = &due
	futureJob := newJob("future", jobq.PriorityNormal)
	futureJob.ExecuteAt = &future
	require.NoError(q.Enqueue(ctx, dueJob))
	require.NoError(q.Enqueue(ctx, futureJob))

	promoted, err := q.PromoteDue(ctx, "test", now)
	require.NoError(err)
	require.Equal(1, promoted)

	got, err := q.Dequeue(ctx, "test")
	require.NoError(err)
	require.Equal("due", got.Id)

	_, err = q.Dequeue(ctx, "test")
	require.EqualValues(jobq.ErrEmptyQueue, err)
}

func TestMemoryQueue_PromotionPreservesEnqueueOrder(t *testing.T) {
	require := require.New(t)
	q := jobq.NewMemoryQueue()
	ctx := context.Background()

	past := time.Now().UTC().Add(-time.Minute)
	first := newJob("first", jobq.PriorityNormal)
	first.ExecuteAt = &past
	require.NoError(q.Enqueue(ctx, first))
	require.NoError(q.Enqueue(ctx, newJob("second", jobq.PriorityNormal)))

	_, err := q.PromoteDue(ctx, "test", time.Now().UTC())
	require.NoError(err)

	got, err := q.Dequeue(ctx, "test")
	require.NoError(err)
	require.Equal("first", got.Id)
}

func TestMemoryQueue_SeparateQueueNames(t *testing.T) {
	require := require.New(t)
	q := jobq.NewMemoryQueue()
	ctx := context.Background()

	a := newJob("a", jobq.PriorityNormal)
	a.Queue = "emails"
	b := newJob("b", jobq.PriorityCritical)
	b.Queue = "reports"
	require.NoError(q.Enqueue(ctx, a))
	require.NoError(q.Enqueue(ctx, b))

	got, err := q.Dequeue(ctx, "emails")
	require.NoError(err)
	require.Equal("a", got.Id)

	_, err = q.Dequeue(ctx, "emails")
	require.EqualValues(jobq.ErrEmptyQueue, err)
}
