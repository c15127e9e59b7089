package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/phrazzld/measure-api/internal/domain"
	"github.com/phrazzld/measure-api/internal/geometry"
	"github.com/phrazzld/measure-api/internal/measure"
	"github.com/phrazzld/measure-api/internal/platform/logger"
	"github.com/phrazzld/measure-api/internal/scale"
	"github.com/phrazzld/measure-api/internal/store"
)

// DefaultManualConfidence is recorded when a manual submission omits a confidence.
const DefaultManualConfidence = 1.0

var validate = validator.New()

// Submission is a manual measurement drawn by a user on a processed photo.
// When the value group matching Type is complete it is stored as given and
// Points are kept for display only.
type Submission struct {
	Type             domain.MeasurementType `json:"type"              validate:"required,oneof=length area"`
	Points           []geometry.Point       `json:"points"            validate:"required,min=1"`
	ValueMm          *float64               `json:"value_mm,omitempty"`
	ValueMm2         *float64               `json:"value_mm2,omitempty"`
	ValueM2          *float64               `json:"value_m2,omitempty"`
	Confidence       *float64               `json:"confidence,omitempty" validate:"omitempty,gte=0,lte=1"`
	ProcessorVersion string                 `json:"processor_version,omitempty" validate:"omitempty,max=50"`
	SubtaskID        *uuid.UUID             `json:"subtask_id,omitempty"`
	MaskPath         string                 `json:"mask_path,omitempty"`
	AnnotatedPath    string                 `json:"annotated_path,omitempty"`
}

// SubmitResult is the recorded measurement with its display value.
type SubmitResult struct {
	Measurement    *domain.Measurement `json:"measurement"`
	FormattedValue string              `json:"formatted_value"`
}

// Revision replaces the mutable attributes of a measurement. Nil fields are
// left unchanged.
type Revision struct {
	Points     []geometry.Point `json:"points,omitempty"     validate:"omitempty,min=1"`
	Confidence *float64         `json:"confidence,omitempty" validate:"omitempty,gte=0,lte=1"`
}

// MeasurementService provides the measurement operations used by the
// annotation UI.
type MeasurementService interface {
	// Submit records a manual measurement on photoID, which must belong to taskID.
	// Returns scale.ErrScaleUnavailable when the photo has no calibration, in
	// which case nothing is persisted.
	Submit(ctx context.Context, taskID, photoID uuid.UUID, submission Submission) (*SubmitResult, error)

	// Revise updates the points and confidence of an existing measurement.
	Revise(ctx context.Context, id uuid.UUID, revision Revision) (*domain.Measurement, error)

	// Get returns a measurement by ID.
	Get(ctx context.Context, id uuid.UUID) (*domain.Measurement, error)

	// Delete removes a measurement.
	Delete(ctx context.Context, id uuid.UUID) error
}

// measurementServiceImpl implements the MeasurementService interface
type measurementServiceImpl struct {
	stores     store.Stores
	transactor store.Transactor
	logger     *slog.Logger
}

// NewMeasurementService creates a new MeasurementService.
// It returns an error if any of the required dependencies are nil.
func NewMeasurementService(
	stores store.Stores,
	transactor store.Transactor,
	logger *slog.Logger,
) (MeasurementService, error) {
	if stores.Photos == nil || stores.Measurements == nil || stores.Subtasks == nil {
		return nil, &MeasurementServiceError{Operation: "create_service", Message: "stores cannot be nil"}
	}
	if transactor == nil {
		return nil, &MeasurementServiceError{Operation: "create_service", Message: "transactor cannot be nil"}
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &measurementServiceImpl{
		stores:     stores,
		transactor: transactor,
		logger:     logger.With("component", "measurement_service"),
	}, nil
}

// Submit implements MeasurementService.Submit
func (s *measurementServiceImpl) Submit(
	ctx context.Context,
	taskID, photoID uuid.UUID,
	submission Submission,
) (*SubmitResult, error) {
	log := logger.FromContextOrDefault(ctx, s.logger).With("task_id", taskID, "photo_id", photoID)

	if err := validate.Struct(submission); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	if err := geometry.ValidatePoints(submission.Points); err != nil {
		return nil, err
	}

	photo, err := s.stores.Photos.GetByID(ctx, photoID)
	if err != nil {
		return nil, NewMeasurementServiceError("submit", "failed to load photo", err)
	}
	if photo.TaskID != taskID {
		log.Warn("photo does not belong to task", "photo_task_id", photo.TaskID)
		return nil, ErrOwnershipMismatch
	}

	var subtask *domain.Subtask
	if submission.SubtaskID != nil {
		subtask, err = s.stores.Subtasks.GetByID(ctx, *submission.SubtaskID)
		if err != nil {
			return nil, NewMeasurementServiceError("submit", "failed to load subtask", err)
		}
		if subtask.TaskID != taskID {
			log.Warn("subtask does not belong to task",
				"subtask_id", subtask.ID,
				"subtask_task_id", subtask.TaskID)
			return nil, ErrOwnershipMismatch
		}
	}

	sc, err := scale.FromPhoto(photo)
	if err != nil {
		return nil, err
	}

	values, err := measure.Resolve(submission.Type, submission.Points, measure.Values{
		ValueMm:  submission.ValueMm,
		ValueMm2: submission.ValueMm2,
		ValueM2:  submission.ValueM2,
	}, sc)
	if err != nil {
		return nil, err
	}

	confidence := DefaultManualConfidence
	if submission.Confidence != nil {
		confidence = *submission.Confidence
	}
	version := submission.ProcessorVersion
	if version == "" {
		version = domain.ProcessorVersionManual
	}

	now := time.Now().UTC()
	measurement := &domain.Measurement{
		ID:               uuid.New(),
		TaskID:           taskID,
		PhotoID:          &photo.ID,
		SubtaskID:        submission.SubtaskID,
		Type:             submission.Type,
		ValueMm:          values.ValueMm,
		ValueMm2:         values.ValueMm2,
		ValueM2:          values.ValueM2,
		Points:           submission.Points,
		Confidence:       confidence,
		ProcessorVersion: version,
		MaskPath:         submission.MaskPath,
		AnnotatedPath:    submission.AnnotatedPath,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := measurement.Validate(); err != nil {
		return nil, err
	}

	err = s.transactor.WithinTx(ctx, func(ctx context.Context, tx store.Stores) error {
		if err := tx.Measurements.Create(ctx, measurement); err != nil {
			return err
		}
		if subtask == nil {
			return nil
		}
		value, _ := measurement.ValueInUnit()
		subtask.Complete(value)
		return tx.Subtasks.Update(ctx, subtask)
	})
	if err != nil {
		log.Error("failed to record measurement", "error", err)
		return nil, NewMeasurementServiceError("submit", "failed to record measurement", err)
	}

	log.Info("measurement recorded",
		"measurement_id", measurement.ID,
		"type", measurement.Type,
		"subtask_id", submission.SubtaskID)

	return &SubmitResult{
		Measurement:    measurement,
		FormattedValue: measurement.FormattedValue(),
	}, nil
}

// Revise implements MeasurementService.Revise
func (s *measurementServiceImpl) Revise(
	ctx context.Context,
	id uuid.UUID,
	revision Revision,
) (*domain.Measurement, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := validate.Struct(revision); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	if revision.Points != nil {
		if err := geometry.ValidatePoints(revision.Points); err != nil {
			return nil, err
		}
	}

	measurement, err := s.stores.Measurements.GetByID(ctx, id)
	if err != nil {
		return nil, NewMeasurementServiceError("revise", "failed to load measurement", err)
	}

	if err := measurement.Revise(revision.Points, revision.Confidence); err != nil {
		return nil, err
	}

	if err := s.stores.Measurements.UpdateRevision(ctx, measurement); err != nil {
		log.Error("failed to update measurement", "error", err, "measurement_id", id)
		return nil, NewMeasurementServiceError("revise", "failed to update measurement", err)
	}

	return measurement, nil
}

// Get implements MeasurementService.Get
func (s *measurementServiceImpl) Get(ctx context.Context, id uuid.UUID) (*domain.Measurement, error) {
	measurement, err := s.stores.Measurements.GetByID(ctx, id)
	if err != nil {
		return nil, NewMeasurementServiceError("get", "failed to load measurement", err)
	}
	return measurement, nil
}

// Delete implements MeasurementService.Delete
func (s *measurementServiceImpl) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.stores.Measurements.Delete(ctx, id); err != nil {
		logger.FromContextOrDefault(ctx, s.logger).
			Debug("failed to delete measurement", "error", err, "measurement_id", id)
		return NewMeasurementServiceError("delete", "failed to delete measurement", err)
	}
	return nil
}
