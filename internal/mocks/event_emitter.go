package mocks

import (
	"context"
	"sync"

	"github.com/phrazzld/measure-api/internal/events"
)

// MockEventEmitter implements events.EventEmitter for testing
type MockEventEmitter struct {
	// EmitEventFn allows test cases to mock the EmitEvent behavior
	EmitEventFn func(ctx context.Context, event *events.JobRequest) error

	mu     sync.Mutex
	events []*events.JobRequest
}

var _ events.EventEmitter = (*MockEventEmitter)(nil)

// EmitEvent implements the events.EventEmitter interface
func (m *MockEventEmitter) EmitEvent(ctx context.Context, event *events.JobRequest) error {
	m.mu.Lock()
	m.events = append(m.events, event)
	m.mu.Unlock()

	if m.EmitEventFn != nil {
		return m.EmitEventFn(ctx, event)
	}
	return nil
}

// Events returns the emitted requests in order.
func (m *MockEventEmitter) Events() []*events.JobRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*events.JobRequest(nil), m.events...)
}
