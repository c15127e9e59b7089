package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/measure-api/internal/domain"
)

// PhotoStore defines the interface for photo data persistence.
type PhotoStore interface {
	// Create saves a new photo to the store.
	Create(ctx context.Context, photo *domain.Photo) error

	// GetByID retrieves a photo by its unique ID.
	// Returns ErrPhotoNotFound if the photo does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Photo, error)

	// Update saves the processing fields of an existing photo: processed flag,
	// state, attempts and metadata.
	// Returns ErrPhotoNotFound if the photo does not exist.
	Update(ctx context.Context, photo *domain.Photo) error

	// Delete removes a photo. Measurements referencing it keep existing with
	// their photo reference cleared.
	// Returns ErrPhotoNotFound if the photo does not exist.
	Delete(ctx context.Context, id uuid.UUID) error

	// CountByTask returns the number of photos attached to a task.
	CountByTask(ctx context.Context, taskID uuid.UUID) (int, error)

	// HasProcessed reports whether at least one photo of the task is processed.
	HasProcessed(ctx context.Context, taskID uuid.UUID) (bool, error)

	// ListRecoverable returns up to limit photos in one of states whose last
	// update happened before updatedBefore, oldest first.
	ListRecoverable(
		ctx context.Context,
		states []domain.ProcessingState,
		updatedBefore time.Time,
		limit int,
	) ([]*domain.Photo, error)

	// WithTx returns a new PhotoStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) PhotoStore
}
