package sqlgen

import (
	"strings"
	"testing"

	"github.com/matilda-project/matilda/internal/catalog"
	"github.com/matilda-project/matilda/internal/rule"
	"github.com/stretchr/testify/require"
)

func testRelations() map[string]rule.Relation {
	return map[string]rule.Relation{
		"enrollment": {
			Name: "enrollment",
			Columns: []rule.Column{
				{Name: "enrollment_id", Domain: rule.Integer},
				{Name: "student_id", Domain: rule.Integer},
				{Name: "course_id", Domain: rule.Integer},
			},
		},
		"student": {
			Name: "student",
			Columns: []rule.Column{
				{Name: "student_id", Domain: rule.Integer},
				{Name: "name", Domain: rule.Text},
				{Name: "year", Domain: rule.Integer},
				{Name: "dept_id", Domain: rule.Integer},
			},
		},
		"advisor": {
			Name: "advisor",
			Columns: []rule.Column{
				{Name: "student_id", Domain: rule.Integer},
				{Name: "advisor_id", Domain: rule.Integer},
			},
		},
	}
}

func enrollmentToStudentRule() rule.Rule {
	return rule.Rule{
		Body: []rule.Atom{
			{Relation: "enrollment", Terms: []rule.Term{rule.Anon(), rule.Var("x"), rule.Anon()}},
		},
		Head: []rule.Atom{
			{Relation: "student", Terms: []rule.Term{rule.Var("x"), rule.Var("n"), rule.Var("y"), rule.Var("d")}},
		},
		Existentials: []string{"n", "y", "d"},
	}
}

func enrollmentImpliesAdvisorRule() rule.Rule {
	return rule.Rule{
		Body: []rule.Atom{
			{Relation: "enrollment", Terms: []rule.Term{rule.Anon(), rule.Var("x"), rule.Anon()}},
		},
		Head: []rule.Atom{
			{Relation: "advisor", Terms: []rule.Term{rule.Var("x"), rule.Anon()}},
		},
	}
}

func TestCompileSupport_SingleBodyAtom(t *testing.T) {
	r := enrollmentToStudentRule()
	sql, err := CompileSupport(r, testRelations(), catalog.SQLiteDialect{})
	require.NoError(t, err)

	require.Contains(t, sql, `COUNT(DISTINCT t0."student_id")`)
	require.Contains(t, sql, `FROM "enrollment" AS t0`)
	require.NotContains(t, sql, "JOIN")
}

func TestCompileConfidence_ExistentialHeadBecomesExists(t *testing.T) {
	r := enrollmentToStudentRule()
	sql, err := CompileConfidence(r, testRelations(), catalog.SQLiteDialect{})
	require.NoError(t, err)

	require.Contains(t, sql, "EXISTS")
	require.Contains(t, sql, `FROM "student" AS e`)
	require.Contains(t, sql, `e."student_id" = t0."student_id"`)
}

func TestCompileConfidence_NonExistentialHeadIsJoinedDirectly(t *testing.T) {
	r := enrollmentImpliesAdvisorRule()
	sql, err := CompileConfidence(r, testRelations(), catalog.SQLiteDialect{})
	require.NoError(t, err)

	require.Contains(t, sql, `CROSS JOIN "advisor" AS t1`)
	require.Contains(t, sql, `t1."student_id" = t0."student_id"`)
	require.NotContains(t, sql, "EXISTS")
}

// TestCompileSupport_MultipleBodyVariablesCountDerivedTable guards the
// portable shape for two or more distinct body variables: SQLite has no
// row-value form usable as an aggregate argument, so COUNT(DISTINCT (a, b))
// would fail there even though it parses on Postgres. Counting the rows of
// a "SELECT DISTINCT a, b ..." derived table works on both.
func TestCompileSupport_MultipleBodyVariablesCountDerivedTable(t *testing.T) {
	r := rule.Rule{
		Body: []rule.Atom{
			{Relation: "enrollment", Terms: []rule.Term{rule.Anon(), rule.Var("s"), rule.Var("c")}},
		},
		Head: []rule.Atom{
			{Relation: "advisor", Terms: []rule.Term{rule.Var("s"), rule.Anon()}},
		},
	}
	sql, err := CompileSupport(r, testRelations(), catalog.SQLiteDialect{})
	require.NoError(t, err)
	require.NotContains(t, sql, "COUNT(DISTINCT (")
	require.Contains(t, sql, `SELECT DISTINCT t0."student_id", t0."course_id"`)
	require.Contains(t, sql, "COUNT(*)")
	require.Contains(t, sql, "AS distinct_bindings")
}

func TestCompileSupport_UnknownRelationErrors(t *testing.T) {
	r := rule.Rule{
		Body: []rule.Atom{{Relation: "ghost", Terms: []rule.Term{rule.Var("x")}}},
		Head: []rule.Atom{{Relation: "student", Terms: []rule.Term{rule.Var("x")}}},
	}
	_, err := CompileSupport(r, testRelations(), catalog.SQLiteDialect{})
	require.Error(t, err)
	require.True(t, strings.Contains(err.Error(), "ghost"))
}
