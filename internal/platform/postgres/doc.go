// Package postgres provides PostgreSQL-specific implementations for the data
// storage interfaces (repositories) defined in the internal/store package.
// It handles the details of query execution, error mapping and data mapping
// between domain entities and database records. JSON-shaped attributes
// (photo and task metadata, measurement points, notification payloads) are
// stored in jsonb columns.
package postgres
