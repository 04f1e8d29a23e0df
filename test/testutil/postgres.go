package testutil

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
	"sync"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// Singleton container state, following melange's test/testutil.go
// ensureSingleton pattern: one container per test binary run, a fresh
// database per test.
var (
	singletonOnce sync.Once
	singletonDSN  string
	singletonErr  error
)

func ensureSingleton() (string, error) {
	singletonOnce.Do(func() {
		ctx := context.Background()

		container, err := postgres.Run(ctx,
			"postgres:18-alpine",
			postgres.WithDatabase("postgres"),
			postgres.WithUsername("test"),
			postgres.WithPassword("test"),
			testcontainers.WithEnv(map[string]string{
				"POSTGRES_INITDB_ARGS": "--auth-host=trust",
			}),
			testcontainers.WithWaitStrategy(
				wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2).
					WithStartupTimeout(60*time.Second),
			),
		)
		if err != nil {
			singletonErr = fmt.Errorf("starting postgres container: %w", err)
			return
		}

		dsn, err := container.ConnectionString(ctx, "sslmode=disable")
		if err != nil {
			_ = container.Terminate(ctx)
			singletonErr = fmt.Errorf("getting postgres connection string: %w", err)
			return
		}
		singletonDSN = dsn
	})
	return singletonDSN, singletonErr
}

// PostgresDB returns an open connection to a freshly created, empty
// PostgreSQL database: either the one named by DATABASE_URL (CI's
// preferred path) or a uniquely named database inside a locally managed
// testcontainers instance. The testcontainers database is dropped when the
// test completes; for a remote DATABASE_URL target only the connection is
// closed, and its tables are neither dropped nor truncated.
func PostgresDB(tb testing.TB) *sql.DB {
	tb.Helper()

	if cfg := GetDatabaseConfig(); cfg.URL != "" {
		db, err := sql.Open("pgx", cfg.URL)
		require.NoError(tb, err, "opening remote postgres database")
		require.NoError(tb, db.Ping(), "pinging remote postgres database")
		tb.Cleanup(func() { _ = db.Close() })
		return db
	}

	adminDSN, err := ensureSingleton()
	require.NoError(tb, err, "starting postgres container")

	dbName := uniqueDBName("matilda_test")
	admin, err := sql.Open("pgx", adminDSN)
	require.NoError(tb, err)
	defer func() { _ = admin.Close() }()
	_, err = admin.Exec(fmt.Sprintf("CREATE DATABASE %s", dbName))
	require.NoError(tb, err, "creating test database")

	db, err := sql.Open("pgx", replaceDBName(adminDSN, dbName))
	require.NoError(tb, err)
	require.NoError(tb, db.Ping(), "pinging test database")

	tb.Cleanup(func() {
		_ = db.Close()
		a, err := sql.Open("pgx", adminDSN)
		if err == nil {
			_, _ = a.Exec(fmt.Sprintf("DROP DATABASE IF EXISTS %s", dbName))
			_ = a.Close()
		}
	})

	return db
}

func uniqueDBName(prefix string) string {
	b := make([]byte, 6)
	_, _ = rand.Read(b)
	return fmt.Sprintf("%s_%s", prefix, hex.EncodeToString(b))
}

// replaceDBName swaps the trailing /dbname path segment of a PostgreSQL
// DSN, preserving any query parameters.
func replaceDBName(dsn, newDB string) string {
	for i := len(dsn) - 1; i >= 0; i-- {
		if dsn[i] == '/' {
			rest := ""
			for j := i + 1; j < len(dsn); j++ {
				if dsn[j] == '?' {
					rest = dsn[j:]
					break
				}
			}
			return dsn[:i+1] + newDB + rest
		}
	}
	return dsn
}
