package catalog

import (
	"database/sql"
	"strings"

	"github.com/matilda-project/matilda/internal/rule"
)

// Dialect isolates the handful of engine-specific queries the catalog needs
// (listing tables/columns and mapping a declared column type to one of the
// domain tags). QueryEngine itself issues the same SELECT/EXISTS shapes
// regardless of dialect — only introspection differs.
type Dialect interface {
	Name() string
	// ListRelations returns every base table name visible to the catalog.
	ListRelations(db *sql.DB) ([]string, error)
	// ListColumns returns the ordered columns of relation.
	ListColumns(db *sql.DB, relation string) ([]rule.Column, error)
	// QuoteIdent quotes an identifier for safe interpolation into FROM/JOIN
	// clauses (identifiers cannot be bound parameters in any SQL dialect).
	QuoteIdent(name string) string
}

func classifySQLDomain(rawType string) rule.Domain {
	t := strings.ToUpper(strings.TrimSpace(rawType))
	switch {
	case strings.Contains(t, "CHAR"), strings.Contains(t, "TEXT"), strings.Contains(t, "CLOB"), strings.Contains(t, "UUID"):
		return rule.Text
	case strings.Contains(t, "INT"), strings.Contains(t, "SERIAL"):
		return rule.Integer
	case strings.Contains(t, "REAL"), strings.Contains(t, "FLOA"), strings.Contains(t, "DOUB"), strings.Contains(t, "NUMERIC"), strings.Contains(t, "DECIMAL"):
		return rule.Real
	case strings.Contains(t, "BLOB"), strings.Contains(t, "BYTEA"), strings.Contains(t, "BINARY"):
		return rule.Blob
	default:
		return rule.Text
	}
}
