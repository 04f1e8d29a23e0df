package catalog

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/matilda-project/matilda/internal/rule"
)

// PostgresDialect introspects a PostgreSQL catalog via information_schema,
// reachable through either the pgx or lib/pq driver (the dialect only
// issues standard SQL, so it is driver-agnostic once a *sql.DB is open).
type PostgresDialect struct{}

func (PostgresDialect) Name() string { return "postgres" }

func (PostgresDialect) ListRelations(db *sql.DB) ([]string, error) {
	rows, err := db.Query(`
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = 'public' AND table_type = 'BASE TABLE'
		ORDER BY table_name`)
	if err != nil {
		return nil, fmt.Errorf("listing relations: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scanning relation name: %w", err)
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

func (PostgresDialect) ListColumns(db *sql.DB, relation string) ([]rule.Column, error) {
	rows, err := db.Query(`
		SELECT column_name, data_type
		FROM information_schema.columns
		WHERE table_schema = 'public' AND table_name = $1
		ORDER BY ordinal_position`, relation)
	if err != nil {
		return nil, fmt.Errorf("listing columns of %s: %w", relation, err)
	}
	defer rows.Close()

	var out []rule.Column
	for rows.Next() {
		var name, dataType string
		if err := rows.Scan(&name, &dataType); err != nil {
			return nil, fmt.Errorf("scanning column info for %s: %w", relation, err)
		}
		out = append(out, rule.Column{Name: name, Domain: classifySQLDomain(dataType)})
	}
	return out, rows.Err()
}

func (PostgresDialect) QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
