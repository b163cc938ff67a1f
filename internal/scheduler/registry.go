// Package scheduler contains the execution core: the handler registry,
// retry backoff, recurrence rules, the executor and the due-job dispatcher.
package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// Handler is the pluggable business logic for one job type. It receives the
// job payload verbatim and returns an optional result payload. The engine
// treats it as a black box: an error (or a panic) is a failed run.
type Handler func(ctx context.Context, payload json.RawMessage) (json.RawMessage, error)

// Registry maps job types to handlers. Safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		handlers: make(map[string]Handler),
	}
}

// Register adds a handler for a job type.
// Returns an error if the type is already registered.
func (r *Registry) Register(jobType string, h Handler) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.handlers[jobType]; exists {
		return fmt.Errorf("duplicate handler for job type %q", jobType)
	}
	r.handlers[jobType] = h
	return nil
}

// Resolve returns the handler for the given job type.
// Returns false if no handler is registered.
func (r *Registry) Resolve(jobType string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[jobType]
	return h, ok
}

// Names returns all registered job types.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	return names
}
