package validator

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/matilda-project/matilda/internal/catalog"
	"github.com/matilda-project/matilda/internal/rule"
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

// fakeCounter answers Count calls by inspecting the SQL text, so tests don't
// need a live database. bodyCount applies whenever the text has no
// EXISTS/CROSS JOIN (the support query); headCount applies to the
// body-and-head variant.
type fakeCounter struct {
	calls     []string
	bodyCount uint64
	headCount uint64
	err       error
}

func (f *fakeCounter) Count(_ context.Context, sqlText string, _ []any) (uint64, error) {
	f.calls = append(f.calls, sqlText)
	if f.err != nil {
		return 0, f.err
	}
	if strings.Contains(sqlText, "EXISTS") || strings.Contains(sqlText, "CROSS JOIN") {
		return f.headCount, nil
	}
	return f.bodyCount, nil
}

func TestValidate_SupportBelowFloorSkipsConfidenceQuery(t *testing.T) {
	counter := &fakeCounter{bodyCount: 1, headCount: 1}
	v, err := New(counter, catalog.SQLiteDialect{}, testRelations(), 5, 1.0, 16)
	require.NoError(t, err)

	verdict, err := v.Validate(context.Background(), enrollmentImpliesAdvisorRule())
	require.NoError(t, err)

	require.False(t, verdict.Valid)
	require.Equal(t, uint64(1), verdict.Support)
	require.Equal(t, float64(0), verdict.Confidence)
	require.Len(t, counter.calls, 1, "confidence query must not be issued once support < nb_occurrence")
}

func TestValidate_ExistentialHeadShortCircuitsConfidenceToOne(t *testing.T) {
	counter := &fakeCounter{bodyCount: 76}
	v, err := New(counter, catalog.SQLiteDialect{}, testRelations(), 2, 0.9, 16)
	require.NoError(t, err)

	// Every head variable is existential: nothing in the head correlates
	// back to the body binding of x.
	purelyExistential := rule.Rule{
		Body: []rule.Atom{
			{Relation: "enrollment", Terms: []rule.Term{rule.Anon(), rule.Var("x"), rule.Anon()}},
		},
		Head: []rule.Atom{
			{Relation: "student", Terms: []rule.Term{rule.Var("s"), rule.Var("n"), rule.Var("y"), rule.Var("d")}},
		},
		Existentials: []string{"s", "n", "y", "d"},
	}

	verdict, err := v.Validate(context.Background(), purelyExistential)
	require.NoError(t, err)

	require.True(t, verdict.Valid)
	require.Equal(t, uint64(76), verdict.Support)
	require.Equal(t, 1.0, verdict.Confidence)
	require.Len(t, counter.calls, 1, "existential-head confidence must short-circuit without a second query")
}

func TestValidate_NonExistentialHeadComputesRatio(t *testing.T) {
	counter := &fakeCounter{bodyCount: 48, headCount: 45}
	v, err := New(counter, catalog.SQLiteDialect{}, testRelations(), 2, 0.9, 16)
	require.NoError(t, err)

	verdict, err := v.Validate(context.Background(), enrollmentImpliesAdvisorRule())
	require.NoError(t, err)

	require.True(t, verdict.Valid)
	require.Equal(t, uint64(48), verdict.Support)
	require.InDelta(t, 45.0/48.0, verdict.Confidence, confidenceTolerance)
	require.Len(t, counter.calls, 2)
}

func TestValidate_ConfidenceBelowThresholdIsInvalid(t *testing.T) {
	counter := &fakeCounter{bodyCount: 48, headCount: 10}
	v, err := New(counter, catalog.SQLiteDialect{}, testRelations(), 2, 0.9, 16)
	require.NoError(t, err)

	verdict, err := v.Validate(context.Background(), enrollmentImpliesAdvisorRule())
	require.NoError(t, err)
	require.False(t, verdict.Valid)
}

func TestValidate_NbOccurrenceZeroStillRequiresSupportAtLeastOne(t *testing.T) {
	counter := &fakeCounter{bodyCount: 0}
	v, err := New(counter, catalog.SQLiteDialect{}, testRelations(), 0, 1.0, 16)
	require.NoError(t, err)

	verdict, err := v.Validate(context.Background(), enrollmentImpliesAdvisorRule())
	require.NoError(t, err)
	require.False(t, verdict.Valid)
	require.Equal(t, uint64(0), verdict.Support)
}

func TestValidate_RepeatedSupportQueryIsCached(t *testing.T) {
	counter := &fakeCounter{bodyCount: 76}
	v, err := New(counter, catalog.SQLiteDialect{}, testRelations(), 2, 0.9, 16)
	require.NoError(t, err)

	r := enrollmentToStudentRule()
	_, err = v.Validate(context.Background(), r)
	require.NoError(t, err)
	_, err = v.Validate(context.Background(), r)
	require.NoError(t, err)

	// The first validation issues the support query and the correlated
	// EXISTS confidence query once each; the second hits the cache for both.
	require.Len(t, counter.calls, 2, "second validation of the same rule should hit the SQL-text cache")
}

func TestValidate_PropagatesQueryError(t *testing.T) {
	counter := &fakeCounter{err: require.AnError}
	v, err := New(counter, catalog.SQLiteDialect{}, testRelations(), 2, 0.9, 16)
	require.NoError(t, err)

	_, err = v.Validate(context.Background(), enrollmentImpliesAdvisorRule())
	require.Error(t, err)
}
