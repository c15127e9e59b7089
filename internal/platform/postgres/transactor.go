package postgres

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/phrazzld/measure-api/internal/store"
)

// Transactor implements store.Transactor on top of store.RunInTransaction.
type Transactor struct {
	db     *sql.DB
	stores store.Stores
}

// NewTransactor returns a Transactor whose stores are rebound to each transaction.
func NewTransactor(db *sql.DB, logger *slog.Logger) *Transactor {
	return &Transactor{
		db:     db,
		stores: NewStores(db, logger),
	}
}

// NewStores builds every PostgreSQL store over db.
func NewStores(db store.DBTX, logger *slog.Logger) store.Stores {
	return store.Stores{
		Tasks:         NewPostgresTaskStore(db, logger),
		Photos:        NewPostgresPhotoStore(db, logger),
		Measurements:  NewPostgresMeasurementStore(db, logger),
		Subtasks:      NewPostgresSubtaskStore(db, logger),
		Notifications: NewPostgresNotificationLogStore(db, logger),
	}
}

var _ store.Transactor = (*Transactor)(nil)

// Stores returns the non-transactional stores.
func (t *Transactor) Stores() store.Stores {
	return t.stores
}

// WithinTx implements store.Transactor.WithinTx
func (t *Transactor) WithinTx(ctx context.Context, fn func(ctx context.Context, tx store.Stores) error) error {
	return store.RunInTransaction(ctx, t.db, func(ctx context.Context, tx *sql.Tx) error {
		return fn(ctx, store.Stores{
			Tasks:         t.stores.Tasks.WithTx(tx),
			Photos:        t.stores.Photos.WithTx(tx),
			Measurements:  t.stores.Measurements.WithTx(tx),
			Subtasks:      t.stores.Subtasks.WithTx(tx),
			Notifications: t.stores.Notifications.WithTx(tx),
		})
	})
}
