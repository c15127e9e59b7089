package store

import "context"

// Stores groups the stores that take part in a unit of work. Inside
// Transactor.WithinTx every field is bound to the same transaction.
type Stores struct {
	Tasks         TaskStore
	Photos        PhotoStore
	Measurements  MeasurementStore
	Subtasks      SubtaskStore
	Notifications NotificationLogStore
}

// Transactor runs a function against transaction-bound stores. The
// transaction is committed when fn returns nil and rolled back otherwise.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Stores) error) error
}
