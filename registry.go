package jobq

import (
	"context"
	"sync"
)

// Handler executes one job. It must not be assumed to run on a single
// goroutine: a pool with more than one worker may run the same handler
// concurrently for different jobs.
type Handler interface {
	Handle(ctx context.Context, job Job) Result
}

type HandlerFunc func(ctx context.Context, job Job) Result

func (h HandlerFunc) Handle(ctx context.Context, job Job) Result {
	return h(ctx, job)
}

// Registry maps job types to handlers. It is safe for concurrent use.
// The last registration for a type wins.
type Registry struct {
	mu   sync.RWMutex
	data map[string]Handler
}

func NewRegistry() *Registry {
	return &Registry{
		data: make(map[string]Handler),
	}
}

// Register binds a handler to a job type, replacing any previous binding.
func (r *Registry) Register(jobType string, handler Handler) *Registry {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data[jobType] = handler
	return r
}

// Unregister removes the handler for a job type. It reports whether a
// handler was actually removed.
func (r *Registry) Unregister(jobType string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.data[jobType]
	delete(r.data, jobType)
	return ok
}

// Handler returns the handler bound to the job type.
func (r *Registry) Handler(jobType string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.data[jobType]
	return h, ok
}

// Types returns all registered job types.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]string, 0, len(r.data))
	for jobType := range r.data {
		types = append(types, jobType)
	}
	return types
}
