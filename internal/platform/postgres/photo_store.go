package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/measure-api/internal/domain"
	"github.com/phrazzld/measure-api/internal/platform/logger"
	"github.com/phrazzld/measure-api/internal/store"
)

// PostgresPhotoStore implements the store.PhotoStore interface
// using a PostgreSQL database as the storage backend.
type PostgresPhotoStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresPhotoStore creates a new PostgreSQL implementation of the PhotoStore interface.
// If logger is nil, a default logger will be used.
func NewPostgresPhotoStore(db store.DBTX, logger *slog.Logger) *PostgresPhotoStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresPhotoStore{
		db:     db,
		logger: logger.With(slog.String("component", "photo_store")),
	}
}

// Ensure PostgresPhotoStore implements store.PhotoStore interface
var _ store.PhotoStore = (*PostgresPhotoStore)(nil)

const photoColumns = `id, task_id, path, width, height, exif, processed,
	processing_state, attempts, metadata, created_at, updated_at`

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// Create implements store.PhotoStore.Create
// Returns store.ErrInvalidEntity if the task does not exist.
func (s *PostgresPhotoStore) Create(ctx context.Context, photo *domain.Photo) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := photo.Validate(); err != nil {
		log.Warn("photo validation failed during create",
			slog.String("error", err.Error()),
			slog.String("photo_id", photo.ID.String()))
		return err
	}

	metadata, err := json.Marshal(photo.Metadata)
	if err != nil {
		return fmt.Errorf("failed to encode photo metadata: %w", err)
	}

	query := `
		INSERT INTO photos (` + photoColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err = s.db.ExecContext(ctx, query,
		photo.ID,
		photo.TaskID,
		photo.Path,
		photo.Width,
		photo.Height,
		nullJSON(photo.Exif),
		photo.Processed,
		photo.State,
		photo.Attempts,
		metadata,
		photo.CreatedAt,
		photo.UpdatedAt,
	)
	if err != nil {
		if IsForeignKeyViolation(err) {
			log.Warn("foreign key violation during photo creation",
				slog.String("photo_id", photo.ID.String()),
				slog.String("task_id", photo.TaskID.String()))
			return fmt.Errorf("%w: task with ID %s not found", store.ErrInvalidEntity, photo.TaskID)
		}
		log.Error("failed to create photo",
			slog.String("error", err.Error()),
			slog.String("photo_id", photo.ID.String()))
		return MapError(err)
	}

	log.Debug("photo created",
		slog.String("photo_id", photo.ID.String()),
		slog.String("task_id", photo.TaskID.String()))
	return nil
}

// GetByID implements store.PhotoStore.GetByID
func (s *PostgresPhotoStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Photo, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	row := s.db.QueryRowContext(ctx, `SELECT `+photoColumns+` FROM photos WHERE id = $1`, id)
	photo, err := scanPhoto(row)
	if err != nil {
		mapped := mapEntityError(err, store.ErrPhotoNotFound)
		if mapped != store.ErrPhotoNotFound {
			log.Error("failed to get photo",
				slog.String("error", err.Error()),
				slog.String("photo_id", id.String()))
		}
		return nil, mapped
	}
	return photo, nil
}

// Update implements store.PhotoStore.Update
func (s *PostgresPhotoStore) Update(ctx context.Context, photo *domain.Photo) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := photo.Validate(); err != nil {
		return err
	}

	metadata, err := json.Marshal(photo.Metadata)
	if err != nil {
		return fmt.Errorf("failed to encode photo metadata: %w", err)
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE photos
		SET processed = $1, processing_state = $2, attempts = $3, metadata = $4, updated_at = $5
		WHERE id = $6
	`, photo.Processed, photo.State, photo.Attempts, metadata, photo.UpdatedAt, photo.ID)
	if err != nil {
		log.Error("failed to update photo",
			slog.String("error", err.Error()),
			slog.String("photo_id", photo.ID.String()))
		return MapError(err)
	}

	return checkRowsAffected(result, store.ErrPhotoNotFound)
}

// Delete implements store.PhotoStore.Delete
func (s *PostgresPhotoStore) Delete(ctx context.Context, id uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx, `DELETE FROM photos WHERE id = $1`, id)
	if err != nil {
		log.Error("failed to delete photo",
			slog.String("error", err.Error()),
			slog.String("photo_id", id.String()))
		return MapError(err)
	}

	return checkRowsAffected(result, store.ErrPhotoNotFound)
}

// CountByTask implements store.PhotoStore.CountByTask
func (s *PostgresPhotoStore) CountByTask(ctx context.Context, taskID uuid.UUID) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM photos WHERE task_id = $1`, taskID).Scan(&count)
	if err != nil {
		return 0, MapError(err)
	}
	return count, nil
}

// HasProcessed implements store.PhotoStore.HasProcessed
func (s *PostgresPhotoStore) HasProcessed(ctx context.Context, taskID uuid.UUID) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM photos WHERE task_id = $1 AND processed)`,
		taskID).Scan(&exists)
	if err != nil {
		return false, MapError(err)
	}
	return exists, nil
}

// ListRecoverable implements store.PhotoStore.ListRecoverable
func (s *PostgresPhotoStore) ListRecoverable(
	ctx context.Context,
	states []domain.ProcessingState,
	updatedBefore time.Time,
	limit int,
) ([]*domain.Photo, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if len(states) == 0 {
		return []*domain.Photo{}, nil
	}
	if limit <= 0 {
		limit = 100
	}

	names := make([]string, len(states))
	for i, state := range states {
		names[i] = string(state)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+photoColumns+`
		FROM photos
		WHERE processing_state = ANY($1) AND updated_at < $2
		ORDER BY updated_at ASC
		LIMIT $3
	`, names, updatedBefore, limit)
	if err != nil {
		log.Error("failed to query recoverable photos", slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			log.Error("failed to close rows", slog.String("error", err.Error()))
		}
	}()

	photos := []*domain.Photo{}
	for rows.Next() {
		photo, err := scanPhoto(rows)
		if err != nil {
			log.Error("failed to scan photo row", slog.String("error", err.Error()))
			return nil, err
		}
		photos = append(photos, photo)
	}

	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}

	return photos, nil
}

// WithTx implements store.PhotoStore.WithTx
func (s *PostgresPhotoStore) WithTx(tx *sql.Tx) store.PhotoStore {
	return &PostgresPhotoStore{
		db:     tx,
		logger: s.logger,
	}
}

func scanPhoto(row rowScanner) (*domain.Photo, error) {
	var (
		photo    domain.Photo
		exif     []byte
		metadata []byte
	)
	err := row.Scan(
		&photo.ID,
		&photo.TaskID,
		&photo.Path,
		&photo.Width,
		&photo.Height,
		&exif,
		&photo.Processed,
		&photo.State,
		&photo.Attempts,
		&metadata,
		&photo.CreatedAt,
		&photo.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(exif) > 0 {
		photo.Exif = json.RawMessage(exif)
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &photo.Metadata); err != nil {
			return nil, fmt.Errorf("failed to decode photo metadata: %w", err)
		}
	}
	return &photo, nil
}

// nullJSON maps an empty document to SQL NULL.
func nullJSON(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return []byte(raw)
}
