package postgres

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/measure-api/internal/domain"
	"github.com/phrazzld/measure-api/internal/platform/logger"
	"github.com/phrazzld/measure-api/internal/store"
)

// PostgresSubtaskStore implements the store.SubtaskStore interface
// using a PostgreSQL database as the storage backend.
type PostgresSubtaskStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresSubtaskStore creates a new PostgreSQL implementation of the SubtaskStore interface.
func NewPostgresSubtaskStore(db store.DBTX, logger *slog.Logger) *PostgresSubtaskStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresSubtaskStore{
		db:     db,
		logger: logger.With(slog.String("component", "subtask_store")),
	}
}

var _ store.SubtaskStore = (*PostgresSubtaskStore)(nil)

// Create implements store.SubtaskStore.Create
func (s *PostgresSubtaskStore) Create(ctx context.Context, subtask *domain.Subtask) error {
	if err := subtask.Validate(); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO subtasks (id, task_id, title, type, value, unit, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		subtask.ID,
		subtask.TaskID,
		subtask.Title,
		subtask.Type,
		subtask.Value,
		subtask.Unit,
		subtask.Status,
		subtask.CreatedAt,
		subtask.UpdatedAt,
	)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to create subtask",
			slog.String("error", err.Error()),
			slog.String("subtask_id", subtask.ID.String()))
		return MapError(err)
	}
	return nil
}

// GetByID implements store.SubtaskStore.GetByID
func (s *PostgresSubtaskStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Subtask, error) {
	var subtask domain.Subtask
	err := s.db.QueryRowContext(ctx, `
		SELECT id, task_id, title, type, value, unit, status, created_at, updated_at
		FROM subtasks
		WHERE id = $1
	`, id).Scan(
		&subtask.ID,
		&subtask.TaskID,
		&subtask.Title,
		&subtask.Type,
		&subtask.Value,
		&subtask.Unit,
		&subtask.Status,
		&subtask.CreatedAt,
		&subtask.UpdatedAt,
	)
	if err != nil {
		return nil, mapEntityError(err, store.ErrSubtaskNotFound)
	}
	return &subtask, nil
}

// Update implements store.SubtaskStore.Update
func (s *PostgresSubtaskStore) Update(ctx context.Context, subtask *domain.Subtask) error {
	if err := subtask.Validate(); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE subtasks
		SET value = $1, status = $2, updated_at = $3
		WHERE id = $4
	`, subtask.Value, subtask.Status, subtask.UpdatedAt, subtask.ID)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to update subtask",
			slog.String("error", err.Error()),
			slog.String("subtask_id", subtask.ID.String()))
		return MapError(err)
	}

	return checkRowsAffected(result, store.ErrSubtaskNotFound)
}

// WithTx implements store.SubtaskStore.WithTx
func (s *PostgresSubtaskStore) WithTx(tx *sql.Tx) store.SubtaskStore {
	return &PostgresSubtaskStore{
		db:     tx,
		logger: s.logger,
	}
}
