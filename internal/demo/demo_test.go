package demo

import (
	"database/sql"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/stretchr/testify/require"
)

func openMemoryDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func countRows(t *testing.T, db *sql.DB, table string) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM "+table).Scan(&n))
	return n
}

func TestBuild_ImperfectDatabaseRowCounts(t *testing.T) {
	db := openMemoryDB(t)
	require.NoError(t, Build(db, Imperfect))

	require.Equal(t, numStudents, countRows(t, db, "student"))
	require.Equal(t, numEnrollments, countRows(t, db, "enrollment"))
	require.Equal(t, numAdvisors, countRows(t, db, "advisor"))
}

func TestBuild_ImperfectDatabaseHasExpectedViolationCounts(t *testing.T) {
	db := openMemoryDB(t)
	require.NoError(t, Build(db, Imperfect))

	var validEnrollments int
	require.NoError(t, db.QueryRow(
		`SELECT COUNT(*) FROM enrollment e WHERE EXISTS (SELECT 1 FROM student s WHERE s.student_id = e.student_id)`,
	).Scan(&validEnrollments))
	require.Equal(t, numEnrollments-numInvalidEnrollments, validEnrollments)

	var validAdvisors int
	require.NoError(t, db.QueryRow(
		`SELECT COUNT(*) FROM advisor a WHERE EXISTS (SELECT 1 FROM student s WHERE s.student_id = a.student_id)`,
	).Scan(&validAdvisors))
	require.Equal(t, numAdvisors-numInvalidAdvisors, validAdvisors)
}

func TestBuild_PerfectDatabaseHasNoViolations(t *testing.T) {
	db := openMemoryDB(t)
	require.NoError(t, Build(db, Perfect))

	var orphanEnrollments int
	require.NoError(t, db.QueryRow(
		`SELECT COUNT(*) FROM enrollment e WHERE NOT EXISTS (SELECT 1 FROM student s WHERE s.student_id = e.student_id)`,
	).Scan(&orphanEnrollments))
	require.Zero(t, orphanEnrollments)

	var orphanAdvisors int
	require.NoError(t, db.QueryRow(
		`SELECT COUNT(*) FROM advisor a WHERE NOT EXISTS (SELECT 1 FROM student s WHERE s.student_id = a.student_id)`,
	).Scan(&orphanAdvisors))
	require.Zero(t, orphanAdvisors)
}

func TestParseDataset(t *testing.T) {
	d, ok := ParseDataset("perfect_database")
	require.True(t, ok)
	require.Equal(t, Perfect, d)

	d, ok = ParseDataset("imperfect_database")
	require.True(t, ok)
	require.Equal(t, Imperfect, d)

	_, ok = ParseDataset("bogus")
	require.False(t, ok)
}

func TestDataset_String(t *testing.T) {
	require.Equal(t, "perfect_database", Perfect.String())
	require.Equal(t, "imperfect_database", Imperfect.String())
}
