package jobq

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/pkg/errors"
)

// Enqueuer is the producer-side contract. Application modules that
// schedule work (email sending, report generation) should take an
// Enqueuer as a constructor parameter instead of reaching for a concrete
// Client, so the engine stays an injectable collaborator.
type Enqueuer interface {
	Enqueue(ctx context.Context, req EnqueueRequest) (string, error)
}

// Client is the producer surface over a queue/store pair: it validates
// requests, constructs jobs, records them in the store and makes them
// visible on the queue.
type Client struct {
	queue Queue
	store Store
}

var _ Enqueuer = (*Client)(nil)

func NewClient(queue Queue, store Store) *Client {
	return &Client{
		queue: queue,
		store: store,
	}
}

// Enqueue submits one job and returns its id.
func (c *Client) Enqueue(ctx context.Context, req EnqueueRequest) (string, error) {
	ids, err := c.BulkEnqueue(ctx, []EnqueueRequest{req})
	if err != nil {
		return "", err
	}
	return ids[0], nil
}

// BulkEnqueue submits jobs in order and returns their ids. Validation
// errors reject the whole batch before anything is written.
func (c *Client) BulkEnqueue(ctx context.Context, list []EnqueueRequest) ([]string, error) {
	jobs, err := requestsToJobs(list)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(jobs))
	for i := range jobs {
		job := &jobs[i]
		_, err := c.store.Find(ctx, job.Id)
		if err == nil {
			return nil, ErrJobAlreadyExist
		}
		if err != ErrJobNotFound {
			return nil, errors.WithMessagef(err, "find job %s", job.Id)
		}

		err = c.store.Save(ctx, job)
		if err != nil {
			return nil, errors.WithMessagef(err, "save job %s", job.Id)
		}
		err = c.queue.Enqueue(ctx, job)
		if err != nil {
			return nil, errors.WithMessagef(err, "enqueue job %s", job.Id)
		}
		ids = append(ids, job.Id)
	}

	return ids, nil
}

// Find returns the current state of a job, including terminal result or
// error payloads.
func (c *Client) Find(ctx context.Context, id string) (*Job, error) {
	return c.store.Find(ctx, id)
}

func nextId() (string, error) {
	arr := make([]byte, 24)
	_, err := rand.Read(arr)
	if err != nil {
		return "", fmt.Errorf("read rand: %w", err)
	}
	id := hex.EncodeToString(arr)
	return id, nil
}

func timeNow() time.Time {
	return time.Now().UTC()
}
