package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/measure-api/internal/domain"
	"github.com/phrazzld/measure-api/internal/jobs"
	"github.com/phrazzld/measure-api/internal/store"
)

// jobSubmitter is the part of jobs.Runner the recoverer needs.
type jobSubmitter interface {
	Submit(ctx context.Context, job jobs.Job) error
}

// Recoverer resubmits photos whose processing was interrupted: photos left in
// uploaded or dispatched longer than the stuck age, and failed_retryable
// photos whose scheduled retry is overdue by more than one retry delay.
type Recoverer struct {
	photos    store.PhotoStore
	runner    jobSubmitter
	processor photoProcessor
	config    Config
	logger    *slog.Logger
	now       func() time.Time
}

var _ jobs.Recoverer = (*Recoverer)(nil)

// NewRecoverer creates a Recoverer submitting to runner.
func NewRecoverer(photos store.PhotoStore, runner jobSubmitter, processor *Processor, logger *slog.Logger) *Recoverer {
	return &Recoverer{
		photos:    photos,
		runner:    runner,
		processor: processor,
		config:    processor.Config(),
		logger:    logger.With("component", "photo_recoverer"),
		now:       time.Now,
	}
}

// Recover implements jobs.Recoverer. Each photo is resubmitted with the
// attempt after the last one it recorded.
func (r *Recoverer) Recover(ctx context.Context) error {
	now := r.now().UTC()

	stuck, err := r.photos.ListRecoverable(ctx,
		[]domain.ProcessingState{domain.ProcessingStateUploaded, domain.ProcessingStateDispatched},
		now.Add(-r.config.StuckAge), r.config.RecoveryBatch)
	if err != nil {
		return err
	}

	overdue, err := r.photos.ListRecoverable(ctx,
		[]domain.ProcessingState{domain.ProcessingStateFailedRetryable},
		now.Add(-2*r.config.RetryDelay), r.config.RecoveryBatch)
	if err != nil {
		return err
	}

	photos := append(stuck, overdue...)
	if len(photos) == 0 {
		return nil
	}

	r.logger.Info("recovering interrupted photo processing",
		"stuck_count", len(stuck),
		"overdue_retry_count", len(overdue))

	for _, photo := range photos {
		job := NewPhotoProcessingJob(uuid.New(), photo.ID, photo.Attempts+1, r.processor)
		if err := r.runner.Submit(ctx, job); err != nil {
			if errors.Is(err, jobs.ErrQueueFull) {
				r.logger.Warn("job queue full, remaining photos wait for the next recovery pass",
					"photo_id", photo.ID)
				return nil
			}
			return err
		}
		r.logger.Debug("photo resubmitted",
			"photo_id", photo.ID,
			"state", photo.State,
			"attempt", job.Attempt())
	}
	return nil
}
