package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/measure-api/internal/domain"
	"github.com/phrazzld/measure-api/internal/geometry"
	"github.com/phrazzld/measure-api/internal/platform/logger"
	"github.com/phrazzld/measure-api/internal/store"
)

// PostgresMeasurementStore implements the store.MeasurementStore interface
// using a PostgreSQL database as the storage backend.
type PostgresMeasurementStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresMeasurementStore creates a new PostgreSQL implementation of the MeasurementStore interface.
// If logger is nil, a default logger will be used.
func NewPostgresMeasurementStore(db store.DBTX, logger *slog.Logger) *PostgresMeasurementStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresMeasurementStore{
		db:     db,
		logger: logger.With(slog.String("component", "measurement_store")),
	}
}

// Ensure PostgresMeasurementStore implements store.MeasurementStore interface
var _ store.MeasurementStore = (*PostgresMeasurementStore)(nil)

const measurementColumns = `id, task_id, photo_id, subtask_id, type, value_mm, value_mm2, value_m2,
	points, confidence, processor_version, mask_path, annotated_path, created_at, updated_at`

// Create implements store.MeasurementStore.Create
func (s *PostgresMeasurementStore) Create(ctx context.Context, m *domain.Measurement) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := m.Validate(); err != nil {
		log.Warn("measurement validation failed during create",
			slog.String("error", err.Error()),
			slog.String("measurement_id", m.ID.String()))
		return err
	}

	points, err := encodePoints(m.Points)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO measurements (` + measurementColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`
	_, err = s.db.ExecContext(ctx, query,
		m.ID,
		m.TaskID,
		m.PhotoID,
		m.SubtaskID,
		m.Type,
		m.ValueMm,
		m.ValueMm2,
		m.ValueM2,
		points,
		m.Confidence,
		m.ProcessorVersion,
		m.MaskPath,
		m.AnnotatedPath,
		m.CreatedAt,
		m.UpdatedAt,
	)
	if err != nil {
		log.Error("failed to create measurement",
			slog.String("error", err.Error()),
			slog.String("measurement_id", m.ID.String()))
		return MapError(err)
	}

	log.Debug("measurement created",
		slog.String("measurement_id", m.ID.String()),
		slog.String("type", string(m.Type)),
		slog.String("processor_version", m.ProcessorVersion))
	return nil
}

// GetByID implements store.MeasurementStore.GetByID
func (s *PostgresMeasurementStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Measurement, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+measurementColumns+` FROM measurements WHERE id = $1`, id)
	m, err := scanMeasurement(row)
	if err != nil {
		return nil, mapEntityError(err, store.ErrMeasurementNotFound)
	}
	return m, nil
}

// UpdateRevision implements store.MeasurementStore.UpdateRevision
func (s *PostgresMeasurementStore) UpdateRevision(ctx context.Context, m *domain.Measurement) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	points, err := encodePoints(m.Points)
	if err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE measurements
		SET points = $1, confidence = $2, updated_at = $3
		WHERE id = $4
	`, points, m.Confidence, m.UpdatedAt, m.ID)
	if err != nil {
		log.Error("failed to update measurement",
			slog.String("error", err.Error()),
			slog.String("measurement_id", m.ID.String()))
		return MapError(err)
	}

	return checkRowsAffected(result, store.ErrMeasurementNotFound)
}

// Delete implements store.MeasurementStore.Delete
func (s *PostgresMeasurementStore) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM measurements WHERE id = $1`, id)
	if err != nil {
		return MapError(err)
	}
	return checkRowsAffected(result, store.ErrMeasurementNotFound)
}

// ListByPhoto implements store.MeasurementStore.ListByPhoto
func (s *PostgresMeasurementStore) ListByPhoto(ctx context.Context, photoID uuid.UUID) ([]*domain.Measurement, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+measurementColumns+` FROM measurements WHERE photo_id = $1 ORDER BY created_at ASC`,
		photoID)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			log.Error("failed to close rows", slog.String("error", err.Error()))
		}
	}()

	measurements := []*domain.Measurement{}
	for rows.Next() {
		m, err := scanMeasurement(rows)
		if err != nil {
			return nil, err
		}
		measurements = append(measurements, m)
	}

	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}
	return measurements, nil
}

// WithTx implements store.MeasurementStore.WithTx
func (s *PostgresMeasurementStore) WithTx(tx *sql.Tx) store.MeasurementStore {
	return &PostgresMeasurementStore{
		db:     tx,
		logger: s.logger,
	}
}

func scanMeasurement(row rowScanner) (*domain.Measurement, error) {
	var (
		m        domain.Measurement
		points   []byte
		mask     sql.NullString
		annotate sql.NullString
	)
	err := row.Scan(
		&m.ID,
		&m.TaskID,
		&m.PhotoID,
		&m.SubtaskID,
		&m.Type,
		&m.ValueMm,
		&m.ValueMm2,
		&m.ValueM2,
		&points,
		&m.Confidence,
		&m.ProcessorVersion,
		&mask,
		&annotate,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	m.MaskPath = mask.String
	m.AnnotatedPath = annotate.String
	m.Points = []geometry.Point{}
	if len(points) > 0 {
		if err := json.Unmarshal(points, &m.Points); err != nil {
			return nil, fmt.Errorf("failed to decode measurement points: %w", err)
		}
	}
	return &m, nil
}

func encodePoints(points []geometry.Point) ([]byte, error) {
	if points == nil {
		points = []geometry.Point{}
	}
	encoded, err := json.Marshal(points)
	if err != nil {
		return nil, fmt.Errorf("failed to encode measurement points: %w", err)
	}
	return encoded, nil
}
