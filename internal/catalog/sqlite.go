package catalog

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/matilda-project/matilda/internal/rule"
)

// SQLiteDialect introspects a modernc.org/sqlite-backed catalog: the
// minimum-target engine named by the database boundary contract, and the
// engine used for bundled demo databases.
type SQLiteDialect struct{}

func (SQLiteDialect) Name() string { return "sqlite" }

func (SQLiteDialect) ListRelations(db *sql.DB) ([]string, error) {
	rows, err := db.Query(`SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`)
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

func (SQLiteDialect) ListColumns(db *sql.DB, relation string) ([]rule.Column, error) {
	rows, err := db.Query(fmt.Sprintf(`PRAGMA table_info(%s)`, SQLiteDialect{}.QuoteIdent(relation)))
	if err != nil {
		return nil, fmt.Errorf("listing columns of %s: %w", relation, err)
	}
	defer rows.Close()

	var out []rule.Column
	for rows.Next() {
		var (
			cid       int
			name      string
			colType   string
			notNull   int
			dfltValue any
			pk        int
		)
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dfltValue, &pk); err != nil {
			return nil, fmt.Errorf("scanning column info for %s: %w", relation, err)
		}
		out = append(out, rule.Column{Name: name, Domain: classifySQLDomain(colType)})
	}
	return out, rows.Err()
}

func (SQLiteDialect) QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
