package events

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"
)

// subscription is a handler and the job types it receives. An empty type
// list receives every request.
type subscription struct {
	handler  EventHandler
	jobTypes []string
}

func (s subscription) accepts(jobType string) bool {
	return len(s.jobTypes) == 0 || slices.Contains(s.jobTypes, jobType)
}

// InMemoryEventEmitter dispatches job requests synchronously to the
// handlers subscribed to their type.
type InMemoryEventEmitter struct {
	mu            sync.RWMutex
	subscriptions []subscription
	logger        *slog.Logger
}

var _ EventEmitter = (*InMemoryEventEmitter)(nil)

// NewInMemoryEventEmitter creates a new instance of InMemoryEventEmitter.
func NewInMemoryEventEmitter(logger *slog.Logger) *InMemoryEventEmitter {
	return &InMemoryEventEmitter{
		logger: logger.With("component", "in_memory_event_emitter"),
	}
}

// RegisterHandler subscribes handler to requests of the given job types, or
// to every request when none are given.
func (e *InMemoryEventEmitter) RegisterHandler(handler EventHandler, jobTypes ...string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.subscriptions = append(e.subscriptions, subscription{
		handler:  handler,
		jobTypes: slices.Clone(jobTypes),
	})
	e.logger.Debug("registered event handler",
		"handler_count", len(e.subscriptions),
		"job_types", jobTypes)
}

// EmitEvent delivers the request to every subscribed handler. A failing
// handler does not stop delivery to the others; all failures are joined
// into the returned error. A request nobody subscribes to is dropped with a
// warning.
func (e *InMemoryEventEmitter) EmitEvent(ctx context.Context, event *JobRequest) error {
	e.mu.RLock()
	var handlers []EventHandler
	for _, sub := range e.subscriptions {
		if sub.accepts(event.Type) {
			handlers = append(handlers, sub.handler)
		}
	}
	e.mu.RUnlock()

	if len(handlers) == 0 {
		e.logger.Warn("no handlers registered for event",
			"event_id", event.ID,
			"job_type", event.Type)
		return nil
	}

	var errs []error
	for i, handler := range handlers {
		if err := handler.HandleEvent(ctx, event); err != nil {
			e.logger.Error("handler failed to process event",
				"error", err,
				"handler_index", i,
				"event_id", event.ID,
				"job_type", event.Type)
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
