package pipeline

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/measure-api/internal/domain"
	"github.com/phrazzld/measure-api/internal/jobs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingRunner struct {
	mu        sync.Mutex
	submitted []jobs.Job
	capacity  int
}

func (r *recordingRunner) Submit(ctx context.Context, job jobs.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.capacity > 0 && len(r.submitted) >= r.capacity {
		return jobs.ErrQueueFull
	}
	r.submitted = append(r.submitted, job)
	return nil
}

func TestRecovererResubmitsInterruptedPhotos(t *testing.T) {
	t.Parallel()

	f := newFixture(t, DefaultConfig())
	now := time.Now().UTC()

	put := func(state domain.ProcessingState, attempts int, age time.Duration) uuid.UUID {
		photo, err := domain.NewPhoto(f.task.ID, "photos/x.jpg", 1, 1, domain.PhotoMetadata{})
		require.NoError(t, err)
		photo.State = state
		photo.Attempts = attempts
		photo.UpdatedAt = now.Add(-age)
		f.store.PutPhoto(photo)
		return photo.ID
	}

	// The fixture photo was just uploaded and is not stuck
	stuckUpload := put(domain.ProcessingStateUploaded, 0, time.Hour)
	stuckDispatch := put(domain.ProcessingStateDispatched, 2, time.Hour)
	overdueRetry := put(domain.ProcessingStateFailedRetryable, 1, 3*time.Minute)
	put(domain.ProcessingStateFailedRetryable, 1, 30*time.Second)
	put(domain.ProcessingStateDispatched, 1, time.Minute)
	put(domain.ProcessingStateSucceeded, 1, time.Hour)
	put(domain.ProcessingStateFailedTerminal, 3, time.Hour)

	runner := &recordingRunner{}
	recoverer := NewRecoverer(f.store.Stores().Photos, runner, f.processor, testLogger())
	recoverer.now = func() time.Time { return now }

	require.NoError(t, recoverer.Recover(context.Background()))

	attempts := map[uuid.UUID]int{}
	for _, job := range runner.submitted {
		attempts[job.(*PhotoProcessingJob).PhotoID()] = job.Attempt()
	}
	assert.Equal(t, map[uuid.UUID]int{
		stuckUpload:   1,
		stuckDispatch: 3,
		overdueRetry:  2,
	}, attempts)
}

func TestRecovererStopsWhenQueueIsFull(t *testing.T) {
	t.Parallel()

	f := newFixture(t, DefaultConfig())
	for i := 0; i < 3; i++ {
		photo, err := domain.NewPhoto(f.task.ID, "photos/x.jpg", 1, 1, domain.PhotoMetadata{})
		require.NoError(t, err)
		photo.UpdatedAt = time.Now().Add(-time.Hour)
		f.store.PutPhoto(photo)
	}

	runner := &recordingRunner{capacity: 1}
	recoverer := NewRecoverer(f.store.Stores().Photos, runner, f.processor, testLogger())

	require.NoError(t, recoverer.Recover(context.Background()))
	assert.Len(t, runner.submitted, 1)
}
