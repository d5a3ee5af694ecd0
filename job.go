package jobq

import (
	"time"
)

// Priority orders jobs within a queue. Higher values are dequeued first.
type Priority int32

const (
	PriorityLow      Priority = 1
	PriorityNormal   Priority = 2
	PriorityHigh     Priority = 3
	PriorityCritical Priority = 4
)

// Valid reports whether p is one of the defined priority levels.
func (p Priority) Valid() bool {
	return p >= PriorityLow && p <= PriorityCritical
}

func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityNormal:
		return "normal"
	case PriorityHigh:
		return "high"
	case PriorityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// Status is the lifecycle state of a job.
//
// scheduled -> pending -> running -> (completed | failed)
//
// A job with a future ExecuteAt sits as scheduled until promotion moves
// it to pending. Completed and failed are terminal.
type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Terminal reports whether the status is final.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Job is one unit of work. The store owns its state after creation;
// the queue owns only dispatch order.
type Job struct {
	Id         string
	Queue      string
	Type       string
	Args       []byte
	Priority   Priority
	Status     Status
	Attempt    int32
	MaxRetries int32
	ExecuteAt  *time.Time
	Result     []byte
	LastError  *string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Due reports whether the job is eligible for execution at the given time.
func (j *Job) Due(now time.Time) bool {
	return j.ExecuteAt == nil || !j.ExecuteAt.After(now)
}
