package jobq_test

import (
	"context"
	"testing"
	"time"

	"github.com/taskforge/jobq"
)

func TestClient_Enqueue(t *testing.T) {
	require, queue, _, _, cli := prepareTest(t)

	req := jobq.EnqueueRequest{
		Queue: "test",
	}
	_, err := cli.Enqueue(context.Background(), req)
	require.EqualValues(jobq.ErrTypeIsRequired, err)

	req = jobq.EnqueueRequest{
		Type: "test",
	}
	_, err = cli.Enqueue(context.Background(), req)
	require.EqualValues(jobq.ErrQueueIsRequired, err)

	req = jobq.EnqueueRequest{
		Queue:    "test",
		Type:     "test",
		Priority: 42,
	}
	_, err = cli.Enqueue(context.Background(), req)
	require.EqualValues(jobq.ErrInvalidPriority, err)

	req = jobq.EnqueueRequest{
		Id:         "123",
		Queue:      "name",
		Type:       "test",
		Args:       []byte(`{"simpleJson": 1}`),
		MaxRetries: 2,
	}
	id, err := cli.Enqueue(context.Background(), req)
	require.NoError(err)
	require.Equal("123", id)

	job, err := cli.Find(context.Background(), "123")
	require.NoError(err)
	require.Equal("123", job.Id)
	require.Equal("name", job.Queue)
	require.Equal("test", job.Type)
	require.Equal([]byte(`{"simpleJson": 1}`), job.Args)
	require.Equal(jobq.PriorityNormal, job.Priority) //defaulted
	require.Equal(jobq.StatusPending, job.Status)
	require.EqualValues(0, job.Attempt)
	require.EqualValues(2, job.MaxRetries)
	require.Nil(job.ExecuteAt)
	require.Nil(job.LastError)

	size, err := queue.Size(context.Background(), "name")
	require.NoError(err)
	require.Equal(1, size)
}

func TestClient_EnqueueConflict(t *testing.T) {
	require, _, _, _, cli := prepareTest(t)

	req := jobq.EnqueueRequest{
		Id:    "123",
		Queue: "name",
		Type:  "test",
	}
	_, err := cli.Enqueue(context.Background(), req)
	require.NoError(err)

	_, err = cli.Enqueue(context.Background(), req)
	require.EqualValues(jobq.ErrJobAlreadyExist, err)
}

func TestClient_EnqueueDelayed(t *testing.T) {
	require, queue, _, _, cli := prepareTest(t)

	id, err := cli.Enqueue(context.Background(), jobq.EnqueueRequest{
		Queue: "test",
		Type:  "test",
		Delay: 5 * time.Second,
	})
	require.NoError(err)

	job, err := cli.Find(context.Background(), id)
	require.NoError(err)
	require.Equal(jobq.StatusScheduled, job.Status)
	require.NotNil(job.ExecuteAt)
	require.True(job.ExecuteAt.After(time.Now().UTC()))

	size, err := queue.Size(context.Background(), "test")
	require.NoError(err)
	require.Equal(0, size)
}

func TestClient_BulkEnqueue(t *testing.T) {
	require, queue, _, _, cli := prepareTest(t)

	_, err := cli.BulkEnqueue(context.Background(), nil)
	require.Error(err)

	ids, err := cli.BulkEnqueue(context.Background(), []jobq.EnqueueRequest{
		{Queue: "test", Type: "a"},
		{Queue: "test", Type: "b", Priority: jobq.PriorityHigh},
	})
	require.NoError(err)
	require.Len(ids, 2)
	require.NotEmpty(ids[0]) //generated

	size, err := queue.Size(context.Background(), "test")
	require.NoError(err)
	require.Equal(2, size)

	// Higher priority wins regardless of enqueue order.
	job, err := queue.Dequeue(context.Background(), "test")
	require.NoError(err)
	require.Equal("b", job.Type)
}

func TestClient_FindNotFound(t *testing.T) {
	require, _, _, _, cli := prepareTest(t)

	_, err := cli.Find(context.Background(), "missing")
	require.EqualValues(jobq.ErrJobNotFound, err)
}
