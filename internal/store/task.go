package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/phrazzld/measure-api/internal/domain"
)

// TaskStore defines the interface for task data persistence.
type TaskStore interface {
	// Create saves a new task to the store.
	// Returns validation errors from the domain Task if data is invalid.
	Create(ctx context.Context, task *domain.Task) error

	// GetByID retrieves a task by its unique ID.
	// Returns ErrTaskNotFound if the task does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error)

	// GetByGuestToken retrieves the task a guest token was issued for.
	// Expiry is not checked here.
	// Returns ErrTaskNotFound if no task carries the token.
	GetByGuestToken(ctx context.Context, token string) (*domain.Task, error)

	// UpdateMetadata replaces the metadata of an existing task.
	// Returns ErrTaskNotFound if the task does not exist.
	UpdateMetadata(ctx context.Context, id uuid.UUID, metadata domain.TaskMetadata) error

	// MarkInProgressIfWaiting atomically moves the task from waiting to
	// in_progress. It reports whether this call performed the transition;
	// a task in any other status is left untouched and yields false.
	MarkInProgressIfWaiting(ctx context.Context, id uuid.UUID) (bool, error)

	// WithTx returns a new TaskStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) TaskStore
}
