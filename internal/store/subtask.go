package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/phrazzld/measure-api/internal/domain"
)

// SubtaskStore defines the interface for subtask data persistence.
type SubtaskStore interface {
	// Create saves a new subtask to the store.
	Create(ctx context.Context, subtask *domain.Subtask) error

	// GetByID retrieves a subtask by its unique ID.
	// Returns ErrSubtaskNotFound if the subtask does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Subtask, error)

	// Update saves the value and status of an existing subtask.
	// Returns ErrSubtaskNotFound if the subtask does not exist.
	Update(ctx context.Context, subtask *domain.Subtask) error

	// WithTx returns a new SubtaskStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) SubtaskStore
}
