// Package sqlgen compiles a candidate rule into the two SQL queries the
// validator needs: a support query (distinct body-variable bindings) and a
// body-and-head query (the same, further constrained by the head holding).
// It is an adaptation of internal/sqlgen/sqldsl's typed expression builder
// to conjunctive-query atoms: each atom becomes a joined table, each shared
// variable becomes an equi-join predicate, and existential head atoms
// become correlated EXISTS subqueries.
package sqlgen

import (
	"fmt"

	"github.com/matilda-project/matilda/internal/rule"
	"github.com/matilda-project/matilda/internal/sqlgen/sqldsl"
)

// Quoter quotes a raw identifier for safe interpolation as a table name.
// Satisfied by catalog.Dialect without sqlgen importing the catalog
// package.
type Quoter interface {
	QuoteIdent(name string) string
}

type binding struct {
	col sqldsl.Col
}

// CompileSupport builds "SELECT COUNT(DISTINCT <body var>) FROM <body
// atoms, cross-joined> WHERE <equi-joins>" for rule r's body; with two or
// more body variables it counts the rows of a SELECT DISTINCT derived
// table instead (see countDistinctSQL).
func CompileSupport(r rule.Rule, relations map[string]rule.Relation, q Quoter) (string, error) {
	stmt, _, err := compileBody(r, relations, q)
	if err != nil {
		return "", err
	}
	return countDistinctSQL(stmt), nil
}

// CompileConfidence builds the same query as CompileSupport, further
// constrained by every head atom holding: existential-free head atoms are
// joined in directly; head atoms with at least one existential variable
// become a correlated EXISTS subquery.
func CompileConfidence(r rule.Rule, relations map[string]rule.Relation, q Quoter) (string, error) {
	stmt, bindings, err := compileBody(r, relations, q)
	if err != nil {
		return "", err
	}

	existentials := map[string]struct{}{}
	for _, e := range r.Existentials {
		existentials[e] = struct{}{}
	}

	extraAlias := len(r.Body)
	var extraPredicates []sqldsl.Expr

	for _, atom := range r.Head {
		rel, ok := relations[atom.Relation]
		if !ok {
			return "", fmt.Errorf("unknown relation %q in head atom", atom.Relation)
		}

		hasExistential := false
		for _, v := range atom.Variables() {
			if _, ok := existentials[v]; ok {
				hasExistential = true
				break
			}
		}

		if !hasExistential {
			alias := fmt.Sprintf("t%d", extraAlias)
			extraAlias++
			preds, err := joinAtom(atom, rel, alias, bindings, q)
			if err != nil {
				return "", err
			}
			stmt.Joins = append(stmt.Joins, sqldsl.JoinClause{
				Type:      "CROSS",
				TableExpr: sqldsl.TableAs(q.QuoteIdent(rel.Name), alias),
			})
			extraPredicates = append(extraPredicates, preds...)
			continue
		}

		existsSQL, err := compileExistentialHead(atom, rel, bindings, existentials, q)
		if err != nil {
			return "", err
		}
		extraPredicates = append(extraPredicates, sqldsl.Raw(existsSQL))
	}

	if len(extraPredicates) > 0 {
		all := append([]sqldsl.Expr{stmt.Where}, extraPredicates...)
		stmt.Where = sqldsl.And(all...)
	}

	return countDistinctSQL(stmt), nil
}

// compileBody builds the cross-joined FROM/WHERE shape shared by both the
// support and confidence queries, and returns the per-variable canonical
// column binding used to project the distinct body-variable tuple.
func compileBody(r rule.Rule, relations map[string]rule.Relation, q Quoter) (sqldsl.SelectStmt, map[string]binding, error) {
	if len(r.Body) == 0 {
		return sqldsl.SelectStmt{}, nil, fmt.Errorf("rule has an empty body")
	}

	bindings := map[string]binding{}
	var predicates []sqldsl.Expr
	var joins []sqldsl.JoinClause
	var fromExpr sqldsl.TableExpr

	for i, atom := range r.Body {
		rel, ok := relations[atom.Relation]
		if !ok {
			return sqldsl.SelectStmt{}, nil, fmt.Errorf("unknown relation %q in body atom", atom.Relation)
		}
		alias := fmt.Sprintf("t%d", i)

		preds, err := joinAtom(atom, rel, alias, bindings, q)
		if err != nil {
			return sqldsl.SelectStmt{}, nil, err
		}
		predicates = append(predicates, preds...)

		if i == 0 {
			fromExpr = sqldsl.TableAs(q.QuoteIdent(rel.Name), alias)
		} else {
			joins = append(joins, sqldsl.JoinClause{Type: "CROSS", TableExpr: sqldsl.TableAs(q.QuoteIdent(rel.Name), alias)})
		}
	}

	bodyVars := r.BodyVariables()
	projection := make([]sqldsl.Expr, 0, len(bodyVars))
	for _, v := range bodyVars {
		projection = append(projection, bindings[v].col)
	}

	stmt := sqldsl.SelectStmt{
		Distinct:    true,
		ColumnExprs: projection,
		FromExpr:    fromExpr,
		Joins:       joins,
		Where:       sqldsl.And(predicates...),
	}
	return stmt, bindings, nil
}

// joinAtom binds (or constrains) each of atom's term positions against the
// running set of canonical variable bindings, assuming atom is referenced
// under the given alias. The first occurrence of a variable anywhere in the
// rule becomes its canonical binding; every later occurrence contributes an
// equality predicate against that binding instead.
func joinAtom(atom rule.Atom, rel rule.Relation, alias string, bindings map[string]binding, q Quoter) ([]sqldsl.Expr, error) {
	if len(atom.Terms) != len(rel.Columns) {
		return nil, fmt.Errorf("atom %s has %d terms but relation %s has arity %d", atom.Relation, len(atom.Terms), rel.Name, len(rel.Columns))
	}

	var predicates []sqldsl.Expr
	for pos, term := range atom.Terms {
		if !term.IsVariable() {
			continue
		}
		col := sqldsl.Col{Table: alias, Column: q.QuoteIdent(rel.Columns[pos].Name)}
		if existing, ok := bindings[term.Name]; ok {
			predicates = append(predicates, sqldsl.Eq{Left: col, Right: existing.col})
			continue
		}
		bindings[term.Name] = binding{col: col}
	}
	return predicates, nil
}

// compileExistentialHead renders "EXISTS (SELECT 1 FROM relation AS e
// WHERE ...)" for a head atom that introduces at least one existential
// variable, correlated against the outer query's bound body variables.
func compileExistentialHead(atom rule.Atom, rel rule.Relation, bindings map[string]binding, existentials map[string]struct{}, q Quoter) (string, error) {
	if len(atom.Terms) != len(rel.Columns) {
		return "", fmt.Errorf("head atom %s has %d terms but relation %s has arity %d", atom.Relation, len(atom.Terms), rel.Name, len(rel.Columns))
	}

	const alias = "e"
	local := map[string]sqldsl.Col{}
	var predicates []sqldsl.Expr

	for pos, term := range atom.Terms {
		if !term.IsVariable() {
			continue
		}
		col := sqldsl.Col{Table: alias, Column: q.QuoteIdent(rel.Columns[pos].Name)}

		if outer, ok := bindings[term.Name]; ok {
			// Correlated against the outer (body-bound) value.
			predicates = append(predicates, sqldsl.Eq{Left: col, Right: outer.col})
			continue
		}

		// Existential variable: free on first occurrence within this atom,
		// equated to its local binding on any repeat occurrence.
		if existing, ok := local[term.Name]; ok {
			predicates = append(predicates, sqldsl.Eq{Left: col, Right: existing})
			continue
		}
		local[term.Name] = col
	}

	inner := sqldsl.SelectStmt{
		ColumnExprs: []sqldsl.Expr{sqldsl.Int(1)},
		FromExpr:    sqldsl.TableAs(q.QuoteIdent(rel.Name), alias),
		Where:       sqldsl.And(predicates...),
	}
	return inner.Exists(), nil
}

// countDistinctSQL wraps a body SelectStmt's projection in
// COUNT(DISTINCT ...), per the spec's required aggregate shape.
//
// A single body variable counts directly: COUNT(DISTINCT t0.col). Two or
// more don't: SQLite has no row-value form usable as an aggregate
// function's argument (its row-value support is limited to comparisons and
// IN lists), so COUNT(DISTINCT (a, b)) parses on Postgres but not on
// SQLite. Projecting the distinct tuples into a derived table and counting
// its rows from the outer query is the form both dialects accept.
func countDistinctSQL(stmt sqldsl.SelectStmt) string {
	if len(stmt.ColumnExprs) == 1 {
		countExpr := fmt.Sprintf("COUNT(DISTINCT %s)", stmt.ColumnExprs[0].SQL())
		wrapped := sqldsl.SelectStmt{
			ColumnExprs: []sqldsl.Expr{sqldsl.Raw(countExpr)},
			FromExpr:    stmt.FromExpr,
			Joins:       stmt.Joins,
			Where:       stmt.Where,
		}
		return wrapped.SQL()
	}

	inner := sqldsl.SelectStmt{
		Distinct:    true,
		ColumnExprs: stmt.ColumnExprs,
		FromExpr:    stmt.FromExpr,
		Joins:       stmt.Joins,
		Where:       stmt.Where,
	}
	outer := sqldsl.SelectStmt{
		ColumnExprs: []sqldsl.Expr{sqldsl.Raw("COUNT(*)")},
		FromExpr:    subqueryTable{stmt: inner, alias: "distinct_bindings"},
	}
	return outer.SQL()
}

// subqueryTable adapts a SelectStmt into an aliased derived table so it can
// be used as countDistinctSQL's outer FromExpr; sqldsl.SelectStmt.TableSQL
// renders the parenthesized subquery but carries no alias of its own.
type subqueryTable struct {
	stmt  sqldsl.SelectStmt
	alias string
}

func (s subqueryTable) TableSQL() string   { return s.stmt.TableSQL() + " AS " + s.alias }
func (s subqueryTable) TableAlias() string { return s.alias }
