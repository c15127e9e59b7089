// Package config handles configuration loading, parsing, and validation
// from various sources (environment variables, .env and config files). It provides
// type-safe access to the settings needed by the server, the processing workers and
// their external collaborators while keeping configuration details separate from
// business logic.
package config
