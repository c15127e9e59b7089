package jobs

import (
	"errors"
	"fmt"
	"sync"
)

// ErrUnknownJobType is returned when no factory is registered for an envelope type.
var ErrUnknownJobType = errors.New("unknown job type")

// Factory rebuilds a job from its envelope.
type Factory func(env Envelope) (Job, error)

// Registry maps job types to the factories that build them.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register installs the factory for jobType, replacing any previous one.
func (r *Registry) Register(jobType string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[jobType] = factory
}

// Build creates the job described by env.
func (r *Registry) Build(env Envelope) (Job, error) {
	r.mu.RLock()
	factory, ok := r.factories[env.Type]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownJobType, env.Type)
	}
	job, err := factory(env)
	if err != nil {
		return nil, fmt.Errorf("failed to build %s job: %w", env.Type, err)
	}
	return job, nil
}
