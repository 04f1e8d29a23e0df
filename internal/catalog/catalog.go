// Package catalog introspects a relational database's schema and
// per-column statistics over an already-open connection, and exposes the
// three parameterized SQL aggregates (count, count_distinct, sample_values)
// the rest of the discovery pipeline needs. Physical connection management
// (choosing a driver, building a DSN) lives in the CLI layer; Catalog only
// ever sees a *sql.DB.
package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"hash/fnv"
	"sort"

	"github.com/matilda-project/matilda/internal/clierr"
	"github.com/matilda-project/matilda/internal/rule"
)

const defaultSampleSize = 500

// RelationStats holds the per-relation statistics the constraint graph is
// built from: row count and, per column, a declared domain and a bounded
// reservoir of sampled value hashes used for overlap estimation.
type RelationStats struct {
	Relation rule.Relation
	RowCount uint64
	Samples  map[string][]uint64 // column name -> sampled value hashes
}

// Catalog is the read-only, immutable-after-load view of a database's
// schema and statistics. A single instance is owned by the orchestrator and
// shared (as a non-owning reference) by every other component.
type Catalog struct {
	db      *sql.DB
	dialect Dialect
	stats   map[string]RelationStats // relation name -> stats
	order   []string                 // relation names in load order (deterministic)
}

// Load introspects every base table visible through db, fetching column
// names/domains and sampling per-column statistics (row count, a bounded
// reservoir of value hashes for cross-column overlap estimation).
func Load(ctx context.Context, db *sql.DB, dialect Dialect, sampleSize int) (*Catalog, error) {
	if sampleSize <= 0 {
		sampleSize = defaultSampleSize
	}

	names, err := dialect.ListRelations(db)
	if err != nil {
		return nil, clierr.SchemaError("listing relations", err)
	}
	sort.Strings(names)

	c := &Catalog{
		db:      db,
		dialect: dialect,
		stats:   make(map[string]RelationStats, len(names)),
		order:   names,
	}

	for _, name := range names {
		columns, err := dialect.ListColumns(db, name)
		if err != nil {
			return nil, clierr.SchemaError(fmt.Sprintf("listing columns of %s", name), err)
		}
		rel := rule.Relation{Name: name, Columns: columns}

		rowCount, err := c.countRows(ctx, name)
		if err != nil {
			return nil, clierr.SchemaError(fmt.Sprintf("counting rows of %s", name), err)
		}

		samples := make(map[string][]uint64, len(columns))
		for _, col := range columns {
			hashes, err := c.sampleColumnHashes(ctx, name, col.Name, sampleSize)
			if err != nil {
				return nil, clierr.SchemaError(fmt.Sprintf("sampling %s.%s", name, col.Name), err)
			}
			samples[col.Name] = hashes
		}

		c.stats[name] = RelationStats{Relation: rel, RowCount: rowCount, Samples: samples}
	}

	return c, nil
}

// Relations returns every relation, in deterministic load order.
func (c *Catalog) Relations() []rule.Relation {
	out := make([]rule.Relation, 0, len(c.order))
	for _, name := range c.order {
		out = append(out, c.stats[name].Relation)
	}
	return out
}

// RelationNames returns every relation name, in deterministic order.
func (c *Catalog) RelationNames() []string {
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// Stats returns the statistics for relation, if loaded.
func (c *Catalog) Stats(relation string) (RelationStats, bool) {
	s, ok := c.stats[relation]
	return s, ok
}

// Dialect returns the dialect the catalog was loaded with.
func (c *Catalog) Dialect() Dialect { return c.dialect }

// DB returns the underlying database handle, for components (the
// QueryEngine, the validator) that issue further parameterized queries.
func (c *Catalog) DB() *sql.DB { return c.db }

func (c *Catalog) countRows(ctx context.Context, relation string) (uint64, error) {
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s", c.dialect.QuoteIdent(relation))
	var n uint64
	if err := c.db.QueryRowContext(ctx, query).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (c *Catalog) sampleColumnHashes(ctx context.Context, relation, column string, limit int) ([]uint64, error) {
	query := fmt.Sprintf(
		"SELECT %s FROM %s WHERE %s IS NOT NULL LIMIT %d",
		c.dialect.QuoteIdent(column), c.dialect.QuoteIdent(relation), c.dialect.QuoteIdent(column), limit,
	)
	rows, err := c.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []uint64
	for rows.Next() {
		var v any
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, hashValue(v))
	}
	return out, rows.Err()
}

func hashValue(v any) uint64 {
	h := fnv.New64a()
	fmt.Fprintf(h, "%v", v)
	return h.Sum64()
}
