package demo

import (
	"database/sql"
	"fmt"
	"strings"
)

// Fixed sizes matching spec.md §8 scenario A/B's literal expected counts.
const (
	numDepartments = 5
	numStudents    = 50
	numCourses     = 20
	numEnrollments = 81
	numAdvisors    = 48

	// Imperfect-only violation counts: these enrollment/advisor rows
	// reference a student_id with no matching row in student, by
	// construction (IDs above invalidStudentIDBase never appear there).
	numInvalidEnrollments = 5
	numInvalidAdvisors    = 3
	invalidStudentIDBase  = 9000
)

// fixtures batch-inserts the demo dataset's rows, following
// test/testutil/fixtures.go's multi-row INSERT-per-batch style (adapted to
// SQLite's positional `?` placeholders and fully deterministic content —
// no randomness, so repeated builds are byte-identical per spec.md §8
// invariant 2).
type fixtures struct {
	db *sql.DB
}

func (f *fixtures) loadDepartments() error {
	return f.batchInsert("INSERT INTO department (dept_id, name) VALUES", numDepartments, 2, func(i int) []any {
		id := i + 1
		return []any{id, fmt.Sprintf("Department %d", id)}
	})
}

func (f *fixtures) loadStudents() error {
	return f.batchInsert("INSERT INTO student (student_id, name, year, dept_id) VALUES", numStudents, 4, func(i int) []any {
		id := i + 1
		year := (i % 4) + 1
		dept := (i % numDepartments) + 1
		return []any{id, fmt.Sprintf("Student %d", id), year, dept}
	})
}

func (f *fixtures) loadCourses() error {
	return f.batchInsert("INSERT INTO course (course_id, title, dept_id) VALUES", numCourses, 3, func(i int) []any {
		id := i + 1
		dept := (i % numDepartments) + 1
		return []any{id, fmt.Sprintf("Course %d", id), dept}
	})
}

// loadEnrollments inserts numEnrollments rows. When imperfect is true, the
// final numInvalidEnrollments rows reference a student_id that doesn't
// exist in student, reproducing spec.md §8 Scenario A's "81 enrollments
// including 5 referencing non-existent students".
func (f *fixtures) loadEnrollments(imperfect bool) error {
	return f.batchInsert("INSERT INTO enrollment (enrollment_id, student_id, course_id) VALUES", numEnrollments, 3, func(i int) []any {
		id := i + 1
		course := (i % numCourses) + 1
		student := (i % numStudents) + 1
		if imperfect && i >= numEnrollments-numInvalidEnrollments {
			student = invalidStudentIDBase + (i - (numEnrollments - numInvalidEnrollments)) + 1
		}
		return []any{id, student, course}
	})
}

// loadAdvisors inserts numAdvisors rows. When imperfect is true, the final
// numInvalidAdvisors rows reference a nonexistent student_id, reproducing
// spec.md §8 Scenario B's "3 violating tuples out of 48".
func (f *fixtures) loadAdvisors(imperfect bool) error {
	return f.batchInsert("INSERT INTO advisor (advisor_id, dept_id, student_id) VALUES", numAdvisors, 3, func(i int) []any {
		id := i + 1
		dept := (i % numDepartments) + 1
		student := (i % numStudents) + 1
		if imperfect && i >= numAdvisors-numInvalidAdvisors {
			student = invalidStudentIDBase + (i - (numAdvisors - numInvalidAdvisors)) + 1
		}
		return []any{id, dept, student}
	})
}

// batchInsert issues total rows of arity columns through row, 500 rows per
// statement, mirroring the teacher's fixed-size-batch loop shape.
func (f *fixtures) batchInsert(prefix string, total, arity int, row func(i int) []any) error {
	const batchSize = 500
	for start := 0; start < total; start += batchSize {
		end := start + batchSize
		if end > total {
			end = total
		}
		if err := f.insertBatch(prefix, arity, start, end, row); err != nil {
			return fmt.Errorf("insert batch %d-%d: %w", start, end, err)
		}
	}
	return nil
}

func (f *fixtures) insertBatch(prefix string, arity, start, end int, row func(i int) []any) error {
	var sb strings.Builder
	sb.WriteString(prefix)

	args := make([]any, 0, (end-start)*arity)
	placeholder := "(" + strings.TrimSuffix(strings.Repeat("?,", arity), ",") + ")"
	for i := start; i < end; i++ {
		if i > start {
			sb.WriteString(", ")
		} else {
			sb.WriteString(" ")
		}
		sb.WriteString(placeholder)
		args = append(args, row(i)...)
	}

	_, err := f.db.Exec(sb.String(), args...)
	return err
}
