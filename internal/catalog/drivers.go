package catalog

import (
	"database/sql"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver
	_ "github.com/lib/pq"              // registers the "postgres" driver
	_ "modernc.org/sqlite"             // registers the "sqlite" driver
)

// Open opens a database handle for databaseURL (when set, a PostgreSQL
// connection via pgx) or sqlitePath (a SQLite file, the minimum-target
// engine), and returns the matching Dialect for introspection.
func Open(databaseURL, sqlitePath string) (*sql.DB, Dialect, error) {
	if databaseURL != "" {
		db, err := sql.Open("pgx", databaseURL)
		if err != nil {
			return nil, nil, err
		}
		return db, PostgresDialect{}, nil
	}
	db, err := sql.Open("sqlite", sqlitePath)
	if err != nil {
		return nil, nil, err
	}
	return db, SQLiteDialect{}, nil
}

// OpenWithLibPQ opens a PostgreSQL connection using the lib/pq driver, kept
// as a secondary pure-Go driver path alongside pgx under the same Dialect.
// Nothing in this module calls it; Open always uses pgx for a URL.
func OpenWithLibPQ(databaseURL string) (*sql.DB, Dialect, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, nil, err
	}
	return db, PostgresDialect{}, nil
}
