package jobq

import (
	"context"
	"sync"
)

// Store is the durable source of truth for job state. Save is called on
// every transition: claim, completion, failure, reschedule.
type Store interface {
	// Find returns the job by id, or ErrJobNotFound.
	Find(ctx context.Context, id string) (*Job, error)

	// Save upserts the full job state and bumps UpdatedAt.
	Save(ctx context.Context, job *Job) error
}

// MemoryStore keeps jobs in a map. Safe for concurrent use. Jobs are
// copied on the way in and out so callers never share memory with the
// store.
type MemoryStore struct {
	mu   sync.RWMutex
	jobs map[string]*Job
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		jobs: make(map[string]*Job),
	}
}

func (s *MemoryStore) Find(_ context.Context, id string) (*Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[id]
	if !ok {
		return nil, ErrJobNotFound
	}
	cp := *job
	return &cp, nil
}

func (s *MemoryStore) Save(_ context.Context, job *Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *job
	cp.UpdatedAt = timeNow()
	s.jobs[cp.Id] = &cp
	return nil
}
