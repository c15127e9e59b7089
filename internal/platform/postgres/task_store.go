package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/measure-api/internal/domain"
	"github.com/phrazzld/measure-api/internal/platform/logger"
	"github.com/phrazzld/measure-api/internal/store"
)

// PostgresTaskStore implements the store.TaskStore interface
// using a PostgreSQL database as the storage backend.
type PostgresTaskStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresTaskStore creates a new PostgreSQL implementation of the TaskStore interface.
// If logger is nil, a default logger will be used.
func NewPostgresTaskStore(db store.DBTX, logger *slog.Logger) *PostgresTaskStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresTaskStore{
		db:     db,
		logger: logger.With(slog.String("component", "task_store")),
	}
}

// Ensure PostgresTaskStore implements store.TaskStore interface
var _ store.TaskStore = (*PostgresTaskStore)(nil)

const taskColumns = `id, owner_id, assignee_id, title, description, status,
	guest_token, guest_expires_at, metadata, created_at, updated_at`

// Create implements store.TaskStore.Create
func (s *PostgresTaskStore) Create(ctx context.Context, task *domain.Task) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := task.Validate(); err != nil {
		log.Warn("task validation failed during create",
			slog.String("error", err.Error()),
			slog.String("task_id", task.ID.String()))
		return err
	}

	metadata, err := json.Marshal(task.Metadata)
	if err != nil {
		return fmt.Errorf("failed to encode task metadata: %w", err)
	}

	query := `
		INSERT INTO tasks (` + taskColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err = s.db.ExecContext(ctx, query,
		task.ID,
		task.OwnerID,
		task.AssigneeID,
		task.Title,
		task.Description,
		task.Status,
		nullString(task.GuestToken),
		task.GuestExpiresAt,
		metadata,
		task.CreatedAt,
		task.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return fmt.Errorf("%w: %v", store.ErrGuestTokenExists, err)
		}
		log.Error("failed to create task",
			slog.String("error", err.Error()),
			slog.String("task_id", task.ID.String()))
		return MapError(err)
	}

	log.Info("task created successfully", slog.String("task_id", task.ID.String()))
	return nil
}

// GetByID implements store.TaskStore.GetByID
func (s *PostgresTaskStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1`
	return s.getOne(ctx, query, id)
}

// GetByGuestToken implements store.TaskStore.GetByGuestToken
func (s *PostgresTaskStore) GetByGuestToken(ctx context.Context, token string) (*domain.Task, error) {
	if token == "" {
		return nil, store.ErrTaskNotFound
	}
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE guest_token = $1`
	return s.getOne(ctx, query, token)
}

func (s *PostgresTaskStore) getOne(ctx context.Context, query string, arg any) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var (
		task       domain.Task
		guestToken sql.NullString
		metadata   []byte
	)
	err := s.db.QueryRowContext(ctx, query, arg).Scan(
		&task.ID,
		&task.OwnerID,
		&task.AssigneeID,
		&task.Title,
		&task.Description,
		&task.Status,
		&guestToken,
		&task.GuestExpiresAt,
		&metadata,
		&task.CreatedAt,
		&task.UpdatedAt,
	)
	if err != nil {
		mapped := mapEntityError(err, store.ErrTaskNotFound)
		if mapped != store.ErrTaskNotFound {
			log.Error("failed to get task", slog.String("error", err.Error()))
		}
		return nil, mapped
	}

	task.GuestToken = guestToken.String
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &task.Metadata); err != nil {
			return nil, fmt.Errorf("failed to decode task metadata: %w", err)
		}
	}

	return &task, nil
}

// UpdateMetadata implements store.TaskStore.UpdateMetadata
func (s *PostgresTaskStore) UpdateMetadata(ctx context.Context, id uuid.UUID, metadata domain.TaskMetadata) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	encoded, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("failed to encode task metadata: %w", err)
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE tasks SET metadata = $1, updated_at = NOW() WHERE id = $2`,
		encoded, id)
	if err != nil {
		log.Error("failed to update task metadata",
			slog.String("error", err.Error()),
			slog.String("task_id", id.String()))
		return MapError(err)
	}

	return checkRowsAffected(result, store.ErrTaskNotFound)
}

// MarkInProgressIfWaiting implements store.TaskStore.MarkInProgressIfWaiting
// as a single conditional UPDATE so concurrent callers cannot race.
func (s *PostgresTaskStore) MarkInProgressIfWaiting(ctx context.Context, id uuid.UUID) (bool, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx, `
		UPDATE tasks
		SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status = $3
	`, domain.TaskStatusInProgress, id, domain.TaskStatusWaiting)
	if err != nil {
		log.Error("failed to move task to in_progress",
			slog.String("error", err.Error()),
			slog.String("task_id", id.String()))
		return false, MapError(err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rows > 0 {
		log.Info("task moved to in_progress", slog.String("task_id", id.String()))
	}
	return rows > 0, nil
}

// WithTx implements store.TaskStore.WithTx
func (s *PostgresTaskStore) WithTx(tx *sql.Tx) store.TaskStore {
	return &PostgresTaskStore{
		db:     tx,
		logger: s.logger,
	}
}

func nullString(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}
