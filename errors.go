package jobq

import (
	"errors"
)

var (
	ErrQueueIsRequired = errors.New("queue is required")
	ErrTypeIsRequired  = errors.New("type is required")
	ErrInvalidPriority = errors.New("invalid priority")
	ErrEmptyQueue      = errors.New("queue is empty")
	ErrJobAlreadyExist = errors.New("job already exist")
	ErrJobNotFound     = errors.New("job not found")
)
