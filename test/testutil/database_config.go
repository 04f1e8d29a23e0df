// Package testutil provides shared helpers for matilda's Postgres
// integration tests, following melange's own test/testutil conventions.
package testutil

import "os"

// DatabaseConfig holds configuration for connecting to a database.
type DatabaseConfig struct {
	URL string
}

// GetDatabaseConfig reads database configuration from the environment.
// If DATABASE_URL is set, it returns configuration for a remote database.
// Otherwise it returns an empty config, which signals the caller to fall
// back to testcontainers.
func GetDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{URL: os.Getenv("DATABASE_URL")}
}
