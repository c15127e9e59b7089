package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/phrazzld/measure-api/internal/platform/logger"
)

// RunnerConfig holds configuration for the job runner
type RunnerConfig struct {
	// WorkerCount determines how many concurrent workers process jobs
	WorkerCount int

	// QueueSize determines the buffer size for the in-memory job queue
	QueueSize int

	// JobTimeout bounds a single Execute call
	JobTimeout time.Duration

	// RecoveryInterval defines how often the recoverer is asked to resubmit
	// abandoned work. If zero, defaults to 5 minutes
	RecoveryInterval time.Duration
}

// DefaultRunnerConfig returns a RunnerConfig with reasonable defaults
func DefaultRunnerConfig() RunnerConfig {
	return RunnerConfig{
		WorkerCount:      2,
		QueueSize:        100,
		JobTimeout:       2 * time.Minute,
		RecoveryInterval: 5 * time.Minute,
	}
}

// Recoverer resubmits work that was interrupted or abandoned. It runs once
// when the runner starts and then on every recovery interval.
type Recoverer interface {
	Recover(ctx context.Context) error
}

// Runner manages background job processing
type Runner struct {
	queue      *Queue
	registry   *Registry
	recoverer  Recoverer
	ctx        context.Context
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
	config     RunnerConfig
	logger     *slog.Logger
	errHandler func(job Job, err error)
}

// NewRunner creates a new Runner. The registry is used by SubmitEnvelope and
// may be nil when only Submit is used.
func NewRunner(config RunnerConfig, registry *Registry, log *slog.Logger) *Runner {
	defaults := DefaultRunnerConfig()
	if config.WorkerCount <= 0 {
		log.Warn("invalid worker count specified, using default",
			"specified_count", config.WorkerCount,
			"default_count", defaults.WorkerCount)
		config.WorkerCount = defaults.WorkerCount
	}
	if config.QueueSize <= 0 {
		config.QueueSize = defaults.QueueSize
	}
	if config.JobTimeout <= 0 {
		config.JobTimeout = defaults.JobTimeout
	}
	if config.RecoveryInterval <= 0 {
		config.RecoveryInterval = defaults.RecoveryInterval
	}

	log = log.With("component", "job_runner")
	ctx, cancel := context.WithCancel(context.Background())

	return &Runner{
		queue:      NewQueue(config.QueueSize, log),
		registry:   registry,
		ctx:        ctx,
		cancelFunc: cancel,
		config:     config,
		logger:     log,
		errHandler: func(job Job, err error) {
			log.Error("job execution failed",
				"job_id", job.ID(),
				"job_type", job.Type(),
				"attempt", job.Attempt(),
				"error", err)
		},
	}
}

// SetErrorHandler allows setting a custom error handler function
func (r *Runner) SetErrorHandler(handler func(job Job, err error)) {
	r.errHandler = handler
}

// SetRecoverer installs the recoverer consulted at start and on every interval.
func (r *Runner) SetRecoverer(recoverer Recoverer) {
	r.recoverer = recoverer
}

// Submit adds a job to the queue. It returns ErrQueueFull when the buffer
// is exhausted and ErrQueueClosed after Stop.
func (r *Runner) Submit(ctx context.Context, job Job) error {
	if err := r.queue.Enqueue(job); err != nil {
		return fmt.Errorf("failed to submit %s job: %w", job.Type(), err)
	}
	return nil
}

// SubmitEnvelope rebuilds the job described by env and submits it.
// It satisfies DeliverFunc so schedulers can hand due envelopes back.
func (r *Runner) SubmitEnvelope(ctx context.Context, env Envelope) error {
	if r.registry == nil {
		return fmt.Errorf("%w: %q (no registry)", ErrUnknownJobType, env.Type)
	}
	job, err := r.registry.Build(env)
	if err != nil {
		return err
	}
	return r.Submit(ctx, job)
}

// Start runs the recoverer once, then starts the workers and the recovery monitor.
func (r *Runner) Start() error {
	if r.recoverer != nil {
		if err := r.recoverer.Recover(r.ctx); err != nil {
			return fmt.Errorf("failed to recover jobs: %w", err)
		}
	}

	for i := 0; i < r.config.WorkerCount; i++ {
		r.wg.Add(1)
		go r.worker(i)
	}

	if r.recoverer != nil {
		r.wg.Add(1)
		go r.recoveryMonitor()
	}

	r.logger.Info("job runner started", "worker_count", r.config.WorkerCount)
	return nil
}

// Stop gracefully shuts down the runner. Jobs already executing finish;
// jobs still queued are dropped.
func (r *Runner) Stop() {
	r.cancelFunc()
	r.wg.Wait()
	r.queue.Close()
}

// worker processes jobs from the queue
func (r *Runner) worker(id int) {
	defer r.wg.Done()

	r.logger.Debug("starting worker", "worker_id", id)

	for {
		select {
		case <-r.ctx.Done():
			r.logger.Debug("stopping worker", "worker_id", id)
			return

		case job, ok := <-r.queue.Channel():
			if !ok {
				r.logger.Debug("job channel closed, stopping worker", "worker_id", id)
				return
			}
			r.processJob(job, id)
		}
	}
}

// processJob handles execution of a single job under the per-job timeout
func (r *Runner) processJob(job Job, workerID int) {
	log := r.logger.With(
		"job_id", job.ID(),
		"job_type", job.Type(),
		"attempt", job.Attempt(),
		"worker_id", workerID,
	)

	ctx, cancel := context.WithTimeout(context.Background(), r.config.JobTimeout)
	defer cancel()
	ctx = logger.WithLogger(ctx, log)

	log.Info("processing job")

	err := func() (err error) {
		defer func() {
			if p := recover(); p != nil {
				err = fmt.Errorf("job panicked: %v", p)
			}
		}()
		return job.Execute(ctx)
	}()

	if err != nil {
		r.errHandler(job, err)
		return
	}
	log.Info("job completed successfully")
}

// recoveryMonitor periodically asks the recoverer to resubmit abandoned work
func (r *Runner) recoveryMonitor() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.config.RecoveryInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.ctx.Done():
			return

		case <-ticker.C:
			if err := r.recoverer.Recover(r.ctx); err != nil {
				r.logger.Error("failed to recover abandoned jobs", "error", err)
			}
		}
	}
}
