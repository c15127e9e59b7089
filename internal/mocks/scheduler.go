package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/phrazzld/measure-api/internal/jobs"
)

// ScheduledEnvelope is one recorded ScheduleAfter call.
type ScheduledEnvelope struct {
	Delay    time.Duration
	Envelope jobs.Envelope
}

// RecordingScheduler implements jobs.Scheduler by recording every call
// without ever delivering.
type RecordingScheduler struct {
	mu        sync.Mutex
	scheduled []ScheduledEnvelope

	// Err is returned from every ScheduleAfter call when set
	Err error
}

var _ jobs.Scheduler = (*RecordingScheduler)(nil)

// ScheduleAfter implements jobs.Scheduler.
func (s *RecordingScheduler) ScheduleAfter(ctx context.Context, delay time.Duration, env jobs.Envelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scheduled = append(s.scheduled, ScheduledEnvelope{Delay: delay, Envelope: env})
	return s.Err
}

// Scheduled returns the recorded calls.
func (s *RecordingScheduler) Scheduled() []ScheduledEnvelope {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ScheduledEnvelope(nil), s.scheduled...)
}
