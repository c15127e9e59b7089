package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/phrazzld/measure-api/internal/domain"
)

// MeasurementStore defines the interface for measurement data persistence.
type MeasurementStore interface {
	// Create saves a new measurement to the store.
	// Returns validation errors from the domain Measurement if data is invalid.
	Create(ctx context.Context, measurement *domain.Measurement) error

	// GetByID retrieves a measurement by its unique ID.
	// Returns ErrMeasurementNotFound if the measurement does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Measurement, error)

	// UpdateRevision saves the points and confidence of an existing measurement.
	// No other column is written.
	// Returns ErrMeasurementNotFound if the measurement does not exist.
	UpdateRevision(ctx context.Context, measurement *domain.Measurement) error

	// Delete removes a measurement.
	// Returns ErrMeasurementNotFound if the measurement does not exist.
	Delete(ctx context.Context, id uuid.UUID) error

	// ListByPhoto returns the measurements taken on a photo, oldest first.
	ListByPhoto(ctx context.Context, photoID uuid.UUID) ([]*domain.Measurement, error)

	// WithTx returns a new MeasurementStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) MeasurementStore
}
