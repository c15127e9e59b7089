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

// PostgresNotificationLogStore implements the store.NotificationLogStore interface.
type PostgresNotificationLogStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresNotificationLogStore creates a new PostgreSQL implementation of the NotificationLogStore interface.
func NewPostgresNotificationLogStore(db store.DBTX, logger *slog.Logger) *PostgresNotificationLogStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresNotificationLogStore{
		db:     db,
		logger: logger.With(slog.String("component", "notification_log_store")),
	}
}

var _ store.NotificationLogStore = (*PostgresNotificationLogStore)(nil)

// Create implements store.NotificationLogStore.Create
func (s *PostgresNotificationLogStore) Create(ctx context.Context, entry *domain.NotificationLog) error {
	if err := entry.Validate(); err != nil {
		return err
	}

	payload, err := json.Marshal(entry.Payload)
	if err != nil {
		return fmt.Errorf("failed to encode notification payload: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO notification_logs (id, task_id, channel, payload, sent_at, status)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, entry.ID, entry.TaskID, entry.Channel, payload, entry.SentAt, entry.Status)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to create notification log",
			slog.String("error", err.Error()),
			slog.String("notification_id", entry.ID.String()))
		return MapError(err)
	}
	return nil
}

// ListByTask implements store.NotificationLogStore.ListByTask
func (s *PostgresNotificationLogStore) ListByTask(ctx context.Context, taskID uuid.UUID) ([]*domain.NotificationLog, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, task_id, channel, payload, sent_at, status
		FROM notification_logs
		WHERE task_id = $1
		ORDER BY sent_at ASC
	`, taskID)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			log.Error("failed to close rows", slog.String("error", err.Error()))
		}
	}()

	entries := []*domain.NotificationLog{}
	for rows.Next() {
		var (
			entry   domain.NotificationLog
			payload []byte
		)
		if err := rows.Scan(&entry.ID, &entry.TaskID, &entry.Channel, &payload, &entry.SentAt, &entry.Status); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(payload, &entry.Payload); err != nil {
			return nil, fmt.Errorf("failed to decode notification payload: %w", err)
		}
		entries = append(entries, &entry)
	}

	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}
	return entries, nil
}

// WithTx implements store.NotificationLogStore.WithTx
func (s *PostgresNotificationLogStore) WithTx(tx *sql.Tx) store.NotificationLogStore {
	return &PostgresNotificationLogStore{
		db:     tx,
		logger: s.logger,
	}
}
