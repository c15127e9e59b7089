package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/phrazzld/measure-api/internal/domain"
)

// NotificationLogStore defines the interface for the append-only notification log.
type NotificationLogStore interface {
	// Create appends a notification log entry.
	Create(ctx context.Context, entry *domain.NotificationLog) error

	// ListByTask returns the entries recorded for a task, oldest first.
	ListByTask(ctx context.Context, taskID uuid.UUID) ([]*domain.NotificationLog, error)

	// WithTx returns a new NotificationLogStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) NotificationLogStore
}
