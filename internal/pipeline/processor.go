package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/measure-api/internal/domain"
	"github.com/phrazzld/measure-api/internal/geometry"
	"github.com/phrazzld/measure-api/internal/jobs"
	"github.com/phrazzld/measure-api/internal/measure"
	"github.com/phrazzld/measure-api/internal/notify"
	"github.com/phrazzld/measure-api/internal/platform/logger"
	"github.com/phrazzld/measure-api/internal/storage"
	"github.com/phrazzld/measure-api/internal/store"
	"github.com/phrazzld/measure-api/internal/vision"
)

// ErrProcessingFailedTerminal is returned when the last allowed attempt fails.
var ErrProcessingFailedTerminal = errors.New("photo processing failed permanently")

// errAttemptLimit settles a photo delivered after its attempts are used up.
var errAttemptLimit = errors.New("attempt limit reached")

// errAlreadyProcessed aborts the result transaction when another delivery won.
var errAlreadyProcessed = errors.New("photo already processed")

// Outcome describes how a single Process call ended.
type Outcome string

// Possible outcomes
const (
	OutcomeSkipped        Outcome = "skipped"
	OutcomeSimulated      Outcome = "simulated"
	OutcomeSucceeded      Outcome = "succeeded"
	OutcomeNoMarker       Outcome = "no_marker"
	OutcomeRetryScheduled Outcome = "retry_scheduled"
	OutcomeFailedTerminal Outcome = "failed_terminal"
)

// Config holds the pipeline tunables.
type Config struct {
	// MaxAttempts is the number of vision calls allowed per photo
	MaxAttempts int

	// RetryDelay is the flat delay before a retryable failure is attempted again
	RetryDelay time.Duration

	// VisionTimeout bounds the storage read plus the vision call of one attempt
	VisionTimeout time.Duration

	// Simulated skips the vision call entirely and marks photos processed
	Simulated bool

	// StuckAge is how long a photo may sit in uploaded or dispatched before
	// recovery resubmits it
	StuckAge time.Duration

	// RecoveryBatch caps how many photos a single recovery pass resubmits
	RecoveryBatch int
}

// DefaultConfig returns a Config with the production defaults.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:   3,
		RetryDelay:    60 * time.Second,
		VisionTimeout: 60 * time.Second,
		StuckAge:      30 * time.Minute,
		RecoveryBatch: 100,
	}
}

// Notifier records a notification log entry.
type Notifier interface {
	Record(ctx context.Context, entry *domain.NotificationLog) error
}

// Dependencies are the collaborators of a Processor.
type Dependencies struct {
	Stores     store.Stores
	Transactor store.Transactor
	Objects    storage.ObjectStorage
	Analyzer   vision.Analyzer
	Scheduler  jobs.Scheduler
	Notifier   Notifier
}

func (d Dependencies) validate(simulated bool) error {
	switch {
	case d.Stores.Photos == nil || d.Stores.Tasks == nil:
		return errors.New("photo and task stores cannot be nil")
	case d.Transactor == nil:
		return errors.New("transactor cannot be nil")
	case d.Scheduler == nil:
		return errors.New("scheduler cannot be nil")
	case d.Notifier == nil:
		return errors.New("notifier cannot be nil")
	case !simulated && (d.Objects == nil || d.Analyzer == nil):
		return errors.New("object storage and analyzer are required outside simulation mode")
	}
	return nil
}

// Processor runs one processing attempt for a photo.
type Processor struct {
	deps   Dependencies
	config Config
	logger *slog.Logger
}

// NewProcessor creates a Processor. Zero config fields take their defaults.
func NewProcessor(deps Dependencies, config Config, log *slog.Logger) (*Processor, error) {
	if err := deps.validate(config.Simulated); err != nil {
		return nil, err
	}

	defaults := DefaultConfig()
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = defaults.MaxAttempts
	}
	if config.RetryDelay < 0 {
		config.RetryDelay = defaults.RetryDelay
	}
	if config.VisionTimeout <= 0 {
		config.VisionTimeout = defaults.VisionTimeout
	}
	if config.StuckAge <= 0 {
		config.StuckAge = defaults.StuckAge
	}
	if config.RecoveryBatch <= 0 {
		config.RecoveryBatch = defaults.RecoveryBatch
	}

	if log == nil {
		log = slog.Default()
	}

	return &Processor{
		deps:   deps,
		config: config,
		logger: log.With("component", "photo_processor"),
	}, nil
}

// Config returns the effective configuration.
func (p *Processor) Config() Config {
	return p.config
}

// Process runs attempt for the photo. Retryable failures are recorded and
// rescheduled and do not produce an error; the final failed attempt returns
// ErrProcessingFailedTerminal.
func (p *Processor) Process(ctx context.Context, photoID uuid.UUID, attempt int) (Outcome, error) {
	log := logger.FromContextOrDefault(ctx, p.logger).With(
		slog.String("photo_id", photoID.String()),
		slog.Int("attempt", attempt),
	)
	ctx = logger.WithLogger(ctx, log)

	photo, err := p.deps.Stores.Photos.GetByID(ctx, photoID)
	if err != nil {
		return "", fmt.Errorf("failed to load photo %s: %w", photoID, err)
	}

	if photo.Processed || photo.State == domain.ProcessingStateFailedTerminal {
		log.Debug("photo already settled, skipping", slog.String("state", string(photo.State)))
		return OutcomeSkipped, nil
	}

	task, err := p.deps.Stores.Tasks.GetByID(ctx, photo.TaskID)
	if err != nil {
		return "", fmt.Errorf("failed to load task of photo %s: %w", photoID, err)
	}

	if p.config.Simulated {
		return p.simulate(ctx, photo, task)
	}

	if attempt > p.config.MaxAttempts {
		log.Warn("attempt limit exceeded before dispatch",
			slog.Int("max_attempts", p.config.MaxAttempts),
			slog.Int("stored_attempts", photo.Attempts))
		return p.fail(ctx, photo, p.config.MaxAttempts, errAttemptLimit)
	}

	photo.MarkDispatched(attempt)
	if err := p.deps.Stores.Photos.Update(ctx, photo); err != nil {
		return "", fmt.Errorf("failed to record dispatch: %w", err)
	}

	result, err := p.analyze(ctx, photo)
	if err != nil {
		return p.fail(ctx, photo, attempt, err)
	}

	if !result.Succeeded() {
		return p.recordNoMarker(ctx, photo, task, result)
	}

	created, err := p.recordSuccess(ctx, photo, result)
	if errors.Is(err, errAlreadyProcessed) {
		log.Info("photo processed by a concurrent delivery, discarding result")
		return OutcomeSkipped, nil
	}
	if err != nil {
		return p.fail(ctx, photo, attempt, err)
	}

	log.Info("photo processed",
		slog.Bool("scale_detected", result.MarkerScale() != nil),
		slog.Int("measurements", created))

	p.record(ctx)(notify.MarkerDetected(task, photo.ID, created, rawResult(result)))
	p.advanceTask(ctx, task.ID)

	return OutcomeSucceeded, nil
}

func (p *Processor) simulate(ctx context.Context, photo *domain.Photo, task *domain.Task) (Outcome, error) {
	photo.MarkSimulated()
	if err := p.deps.Stores.Photos.Update(ctx, photo); err != nil {
		return "", fmt.Errorf("failed to record simulated processing: %w", err)
	}

	logger.FromContextOrDefault(ctx, p.logger).Info("vision service not configured, photo marked processed")
	p.advanceTask(ctx, task.ID)
	return OutcomeSimulated, nil
}

// analyze reads the photo bytes and calls the vision service under the
// per-attempt timeout.
func (p *Processor) analyze(ctx context.Context, photo *domain.Photo) (*vision.Result, error) {
	ctx, cancel := context.WithTimeout(ctx, p.config.VisionTimeout)
	defer cancel()

	image, err := p.deps.Objects.Get(ctx, photo.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read photo from storage: %w", err)
	}

	filename := photo.Metadata.OriginalName
	if filename == "" {
		filename = path.Base(photo.Path)
	}

	result, err := p.deps.Analyzer.Analyze(ctx, vision.AnalyzeRequest{
		PhotoID:      photo.ID,
		TaskID:       photo.TaskID,
		Filename:     filename,
		ContentType:  photo.Metadata.MimeType,
		Image:        image,
		ExpectMarker: vision.ExpectMarkerA4,
	})
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, fmt.Errorf("%w: empty result", vision.ErrInvalidResponse)
	}
	return result, nil
}

func (p *Processor) recordNoMarker(
	ctx context.Context,
	photo *domain.Photo,
	task *domain.Task,
	result *vision.Result,
) (Outcome, error) {
	reason := result.FailureReason()
	photo.MarkNoMarker(reason)
	if err := p.deps.Stores.Photos.Update(ctx, photo); err != nil {
		return "", fmt.Errorf("failed to record detection failure: %w", err)
	}

	logger.FromContextOrDefault(ctx, p.logger).Info("marker not detected", slog.String("reason", reason))

	p.record(ctx)(notify.DetectionFailed(task, photo.ID, reason, rawResult(result)))
	p.advanceTask(ctx, task.ID)

	return OutcomeNoMarker, nil
}

// recordSuccess persists the scale, the marker and the suggested
// measurements in one transaction. It returns the number of measurements created.
func (p *Processor) recordSuccess(ctx context.Context, photo *domain.Photo, result *vision.Result) (int, error) {
	log := logger.FromContextOrDefault(ctx, p.logger)
	created := 0

	err := p.deps.Transactor.WithinTx(ctx, func(ctx context.Context, tx store.Stores) error {
		created = 0

		current, err := tx.Photos.GetByID(ctx, photo.ID)
		if err != nil {
			return err
		}
		if current.Processed {
			return errAlreadyProcessed
		}

		for _, pm := range result.PreliminaryMeasurements {
			m, err := measure.BuildPreliminary(photo.TaskID, photo.ID, preliminaryFrom(result, pm))
			if err != nil {
				log.Warn("skipping unusable preliminary measurement",
					slog.String("type", pm.Type),
					slog.String("error", err.Error()))
				continue
			}
			if err := tx.Measurements.Create(ctx, m); err != nil {
				return fmt.Errorf("failed to store preliminary measurement: %w", err)
			}
			created++
		}

		updated := *photo
		updated.MarkSucceeded(result.MarkerScale(), markerFrom(result.Marker), result.AnnotatedImageURL)
		if err := tx.Photos.Update(ctx, &updated); err != nil {
			return fmt.Errorf("failed to store detection result: %w", err)
		}
		*photo = updated
		return nil
	})
	if err != nil {
		return 0, err
	}
	return created, nil
}

// fail records a failed attempt. Before the attempt limit it schedules the
// next attempt; at the limit it settles the photo as failed_terminal.
func (p *Processor) fail(ctx context.Context, photo *domain.Photo, attempt int, cause error) (Outcome, error) {
	log := logger.FromContextOrDefault(ctx, p.logger)

	// The attempt context may already be past its deadline
	ctx = context.WithoutCancel(ctx)

	if attempt >= p.config.MaxAttempts {
		reason := fmt.Sprintf("failed after %d attempts: %v", attempt, cause)
		photo.MarkTerminalFailure(reason)
		if err := p.deps.Stores.Photos.Update(ctx, photo); err != nil {
			log.Error("failed to record terminal failure", slog.String("error", err.Error()))
		}

		log.Error("photo processing failed permanently", slog.String("error", cause.Error()))

		p.record(ctx)(notify.ProcessingFailed(photo.TaskID, photo.ID, reason))
		return OutcomeFailedTerminal, fmt.Errorf("%w: %s", ErrProcessingFailedTerminal, reason)
	}

	photo.MarkRetryableFailure(cause.Error())
	if err := p.deps.Stores.Photos.Update(ctx, photo); err != nil {
		log.Error("failed to record retryable failure", slog.String("error", err.Error()))
	}

	env, err := NewEnvelope(photo.ID, attempt+1)
	if err != nil {
		return "", err
	}
	if err := p.deps.Scheduler.ScheduleAfter(ctx, p.config.RetryDelay, env); err != nil {
		// Recovery resubmits failed_retryable photos, so the retry is delayed, not lost
		log.Error("failed to schedule retry", slog.String("error", err.Error()))
	}

	log.Warn("photo processing failed, retry scheduled",
		slog.String("error", cause.Error()),
		slog.Int("next_attempt", attempt+1),
		slog.Duration("delay", p.config.RetryDelay))
	return OutcomeRetryScheduled, nil
}

// record returns a sink for a freshly built notification entry. Build and
// store failures are logged and never change the outcome.
func (p *Processor) record(ctx context.Context) func(*domain.NotificationLog, error) {
	return func(entry *domain.NotificationLog, err error) {
		if err == nil {
			err = p.deps.Notifier.Record(ctx, entry)
		}
		if err != nil {
			logger.FromContextOrDefault(ctx, p.logger).Error("failed to record notification",
				slog.String("error", err.Error()))
		}
	}
}

// advanceTask moves the task from waiting to in_progress. Tasks in any other
// status are left alone.
func (p *Processor) advanceTask(ctx context.Context, taskID uuid.UUID) {
	log := logger.FromContextOrDefault(ctx, p.logger)
	flipped, err := p.deps.Stores.Tasks.MarkInProgressIfWaiting(ctx, taskID)
	if err != nil {
		log.Error("failed to advance task status", slog.String("error", err.Error()))
		return
	}
	if flipped {
		log.Info("task moved to in_progress", slog.String("task_id", taskID.String()))
	}
}

func preliminaryFrom(result *vision.Result, pm vision.PreliminaryMeasurement) measure.Preliminary {
	var points []geometry.Point
	if poly := result.PointsFor(pm); poly != nil {
		points = make([]geometry.Point, len(poly))
		for i, xy := range poly {
			points[i] = geometry.Point{X: xy[0], Y: xy[1]}
		}
	}

	return measure.Preliminary{
		Type: domain.MeasurementType(pm.Type),
		Values: measure.Values{
			ValueMm:  pm.ValueMm,
			ValueMm2: pm.ValueMm2,
			ValueM2:  pm.ValueM2,
		},
		Confidence:    pm.Confidence,
		Points:        points,
		AnnotatedPath: result.AnnotatedImageURL,
	}
}

func markerFrom(m *vision.Marker) *domain.Marker {
	if m == nil {
		return nil
	}
	marker := &domain.Marker{Corners: m.Corners}
	if m.Confidence != nil {
		marker.Confidence = *m.Confidence
	}
	return marker
}

func rawResult(result *vision.Result) json.RawMessage {
	data, err := json.Marshal(result)
	if err != nil {
		return nil
	}
	return data
}
