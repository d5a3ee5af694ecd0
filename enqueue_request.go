package jobq

import (
	"errors"
	"fmt"
	"time"
)

type EnqueueRequest struct {
	Id         string        //optional, generated when empty
	Queue      string        //required
	Type       string        //required
	Args       []byte        //optional, opaque payload for the handler
	Priority   Priority      //optional, defaults to PriorityNormal
	MaxRetries int32         //attempts allowed beyond the first, 0 = no retry
	Delay      time.Duration //optional, delays execution
	ExecuteAt  *time.Time    //optional, absolute alternative to Delay
}

func requestsToJobs(list []EnqueueRequest) ([]Job, error) {
	if len(list) == 0 {
		return nil, errors.New("list is empty. at least one job is expected")
	}

	jobs := make([]Job, 0, len(list))
	now := timeNow()
	for _, req := range list {
		if req.Queue == "" {
			return nil, ErrQueueIsRequired
		}
		if req.Type == "" {
			return nil, ErrTypeIsRequired
		}

		priority := req.Priority
		if priority == 0 {
			priority = PriorityNormal
		}
		if !priority.Valid() {
			return nil, ErrInvalidPriority
		}

		id := req.Id
		if id == "" {
			generated, err := nextId()
			if err != nil {
				return nil, fmt.Errorf("generate id: %w", err)
			}
			id = generated
		}

		executeAt := req.ExecuteAt
		if executeAt == nil && req.Delay > 0 {
			at := now.Add(req.Delay)
			executeAt = &at
		}
		status := StatusPending
		if executeAt != nil {
			status = StatusScheduled
		}

		job := Job{
			Id:         id,
			Queue:      req.Queue,
			Type:       req.Type,
			Args:       req.Args,
			Priority:   priority,
			Status:     status,
			Attempt:    0,
			MaxRetries: req.MaxRetries,
			ExecuteAt:  executeAt,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		jobs = append(jobs, job)
	}

	return jobs, nil
}
