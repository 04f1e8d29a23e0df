package catalog

import (
	"context"
	"errors"
	"time"

	"github.com/matilda-project/matilda/internal/clierr"
)

// CancelChecker reports whether the run's cooperative cancel flag has been
// set. QueryEngine checks it immediately before dispatching every query;
// satisfied by *monitor.Monitor without QueryEngine importing that package.
type CancelChecker interface {
	Cancelled() bool
}

// QueryEngine exposes exactly the three parameterized SQL operations the
// discovery pipeline needs: count, count_distinct, and sample_values. Every
// call checks the cancel flag before dispatch and applies a per-statement
// timeout, so a single query can never outlive the run's resource budget.
type QueryEngine struct {
	catalog *Catalog
	cancel  CancelChecker
	timeout time.Duration
}

// NewQueryEngine builds a QueryEngine over catalog's open connection.
// statementTimeout bounds every individual SQL call; cancel is consulted
// before each dispatch.
func NewQueryEngine(catalog *Catalog, cancel CancelChecker, statementTimeout time.Duration) *QueryEngine {
	return &QueryEngine{catalog: catalog, cancel: cancel, timeout: statementTimeout}
}

// Count executes "SELECT COUNT(*) ..." (or any single-column aggregate
// query compiled by internal/sqlgen) and returns the scalar result.
func (q *QueryEngine) Count(ctx context.Context, sqlText string, params []any) (uint64, error) {
	if q.cancel != nil && q.cancel.Cancelled() {
		return 0, clierr.PartialSuccessError("query skipped: run cancelled", nil)
	}

	qctx := ctx
	var done func()
	if q.timeout > 0 {
		qctx, done = context.WithTimeout(ctx, q.timeout)
		defer done()
	}

	var n uint64
	err := q.catalog.DB().QueryRowContext(qctx, sqlText, params...).Scan(&n)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return 0, clierr.QueryTimeoutError("query timed out", err)
		}
		return 0, clierr.QueryDriverError("query failed", err)
	}
	return n, nil
}

// CountDistinct is Count's counterpart for queries whose SQL text already
// names the DISTINCT column or derived table being counted (the
// compiler in internal/sqlgen always renders a complete SELECT, so this is
// presently a thin alias kept for interface symmetry with the spec's
// three-operation contract).
func (q *QueryEngine) CountDistinct(ctx context.Context, sqlText string, params []any) (uint64, error) {
	return q.Count(ctx, sqlText, params)
}

// SampleValues returns the catalog's cached reservoir of sampled value
// hashes for relation.column, truncated to n.
func (q *QueryEngine) SampleValues(relation, column string, n int) ([]uint64, error) {
	stats, ok := q.catalog.Stats(relation)
	if !ok {
		return nil, clierr.SchemaError("sampling unknown relation "+relation, nil)
	}
	hashes, ok := stats.Samples[column]
	if !ok {
		return nil, clierr.SchemaError("sampling unknown column "+relation+"."+column, nil)
	}
	if n > 0 && n < len(hashes) {
		return hashes[:n], nil
	}
	return hashes, nil
}
