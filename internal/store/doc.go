// Package store defines interfaces for data persistence operations.
// These interfaces abstract the underlying data storage mechanism from
// the application's core logic, allowing business rules to remain
// independent of specific database technologies or persistence details.
//
// Multi-entity units of work go through Transactor, which hands the
// callback a Stores value bound to one transaction.
package store
