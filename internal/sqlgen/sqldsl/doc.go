// Package sqldsl provides a type-safe DSL for building the SQL queries the
// validator issues against a candidate database.
//
// # Overview
//
// Rather than constructing SQL strings through concatenation or templating,
// this package provides typed building blocks that compose together to form
// complete queries. The DSL models conjunctive-query concepts directly —
// atoms become joined tables, shared variables become equi-join predicates,
// existential head variables become correlated EXISTS subqueries — making it
// easier to construct correct queries and avoiding SQL injection.
//
// # Core Interfaces
//
// All DSL types implement one of two interfaces:
//
//   - Expr: Represents SQL expressions (columns, literals, operators, raw SQL)
//   - SQLer / TableExpr: Represents complete statements and table sources
//
// Both interfaces define a SQL()-shaped method that renders the dialect's SQL
// syntax (the DSL itself targets a Postgres/SQLite common subset; dialect
// quirks are handled by the caller, not the DSL).
//
// # Expression Types
//
// Basic expressions:
//
//	Col{Table: "t0", Column: "id"}    // column reference: t0.id
//	Int(42)                           // integer literal: 42
//	Raw("CURRENT_TIMESTAMP")          // raw SQL (escape hatch)
//
// Operators:
//
//	Eq{Left: col, Right: col2}        // t0.x = t1.y   (equi-join predicate)
//	And(expr1, expr2, expr3)          // (expr1 AND expr2 AND expr3)
//
// # Statement Types
//
// SELECT statements:
//
//	SelectStmt{
//	    Distinct:    true,
//	    ColumnExprs: []Expr{Col{Table: "t0", Column: "x"}},
//	    FromExpr:    TableAs("enrollment", "t0"),
//	    Joins:       []JoinClause{{Type: "INNER", TableExpr: TableAs("student", "t1"), On: joinPred}},
//	    Where:       bodyPredicate,
//	}
//
// A SelectStmt itself implements TableExpr, so a candidate's body query can
// be reused unmodified as the correlated source of a head EXISTS subquery.
//
// # Design Rationale
//
// Type safety: the compiler catches many errors that would otherwise only be
// found at runtime when executing the generated SQL against a live catalog.
//
// Composition: every candidate rule compiles to the same small set of
// building blocks regardless of its shape (body atom count, number of shared
// variables, presence of an existential head) — the validator's compiler
// assembles a SelectStmt from a Rule without per-shape special-casing.
//
// SQL visibility: unlike heavy ORMs, the DSL stays close to SQL syntax. A
// compiled query can be logged and read directly to debug a support or
// confidence result.
package sqldsl
