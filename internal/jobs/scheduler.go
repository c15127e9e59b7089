package jobs

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrSchedulerStopped is returned by schedulers that no longer accept work.
var ErrSchedulerStopped = errors.New("scheduler is stopped")

// Scheduler delivers an envelope after a delay. Scheduling is
// fire-and-forget: the caller is not told when or whether delivery succeeds.
type Scheduler interface {
	ScheduleAfter(ctx context.Context, delay time.Duration, env Envelope) error
}

// DeliverFunc hands a due envelope back to the runner.
type DeliverFunc func(ctx context.Context, env Envelope) error

// InMemoryScheduler keeps pending envelopes in process timers. Pending
// envelopes are lost on restart; recovery picks their photos up again.
type InMemoryScheduler struct {
	mu      sync.Mutex
	timers  map[uuid.UUID]*time.Timer
	stopped bool
	deliver DeliverFunc
	logger  *slog.Logger
}

var _ Scheduler = (*InMemoryScheduler)(nil)

// NewInMemoryScheduler creates a scheduler that calls deliver when an envelope is due.
func NewInMemoryScheduler(deliver DeliverFunc, logger *slog.Logger) *InMemoryScheduler {
	return &InMemoryScheduler{
		timers:  make(map[uuid.UUID]*time.Timer),
		deliver: deliver,
		logger:  logger.With("component", "in_memory_scheduler"),
	}
}

// ScheduleAfter implements Scheduler.
func (s *InMemoryScheduler) ScheduleAfter(ctx context.Context, delay time.Duration, env Envelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return ErrSchedulerStopped
	}

	s.timers[env.ID] = time.AfterFunc(delay, func() {
		s.mu.Lock()
		delete(s.timers, env.ID)
		stopped := s.stopped
		s.mu.Unlock()
		if stopped {
			return
		}

		if err := s.deliver(context.Background(), env); err != nil {
			s.logger.Error("failed to deliver scheduled job",
				"job_id", env.ID,
				"job_type", env.Type,
				"attempt", env.Attempt,
				"error", err)
		}
	})

	s.logger.Debug("job scheduled",
		"job_id", env.ID,
		"job_type", env.Type,
		"attempt", env.Attempt,
		"delay", delay.String())
	return nil
}

// Pending returns the number of envelopes not yet delivered.
func (s *InMemoryScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// Stop cancels every pending delivery.
func (s *InMemoryScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopped = true
	for id, timer := range s.timers {
		timer.Stop()
		delete(s.timers, id)
	}
}
