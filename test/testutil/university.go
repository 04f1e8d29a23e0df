package testutil

import (
	"database/sql"
	"fmt"
	"strings"
)

// University fixed sizes, matching internal/demo's own constants exactly so
// a Postgres-backed test and a SQLite-backed test assert the same
// support/confidence figures.
const (
	universityNumStudents        = 50
	universityNumEnrollments     = 81
	universityNumAdvisors        = 48
	universityNumInvalidEnrolled = 5
	universityNumInvalidAdvised  = 3
	universityInvalidIDBase      = 9000
)

// BuildUniversityPostgres creates the same department/student/course/
// enrollment/advisor schema and fixture rows as internal/demo, against a
// PostgreSQL database, using $N placeholders. It exists because
// internal/demo's batch-insert helper is SQLite-specific (positional `?`
// placeholders); the row-generation formulas below are kept identical to
// internal/demo/fixtures.go so the two backends are interchangeable in
// tests.
func BuildUniversityPostgres(db *sql.DB, imperfect bool) error {
	statements := []string{
		`CREATE TABLE department (dept_id INTEGER PRIMARY KEY, name TEXT NOT NULL)`,
		`CREATE TABLE student (student_id INTEGER PRIMARY KEY, name TEXT NOT NULL, year INTEGER NOT NULL, dept_id INTEGER NOT NULL)`,
		`CREATE TABLE course (course_id INTEGER PRIMARY KEY, title TEXT NOT NULL, dept_id INTEGER NOT NULL)`,
		`CREATE TABLE enrollment (enrollment_id INTEGER PRIMARY KEY, student_id INTEGER NOT NULL, course_id INTEGER NOT NULL)`,
		`CREATE TABLE advisor (advisor_id INTEGER PRIMARY KEY, dept_id INTEGER NOT NULL, student_id INTEGER NOT NULL)`,
	}
	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("creating schema: %w", err)
		}
	}

	for i := 0; i < 5; i++ {
		if _, err := db.Exec(`INSERT INTO department (dept_id, name) VALUES ($1, $2)`, i+1, fmt.Sprintf("Department %d", i+1)); err != nil {
			return err
		}
	}
	for i := 0; i < universityNumStudents; i++ {
		id := i + 1
		if _, err := db.Exec(`INSERT INTO student (student_id, name, year, dept_id) VALUES ($1, $2, $3, $4)`,
			id, fmt.Sprintf("Student %d", id), (i%4)+1, (i%5)+1); err != nil {
			return err
		}
	}
	for i := 0; i < 20; i++ {
		id := i + 1
		if _, err := db.Exec(`INSERT INTO course (course_id, title, dept_id) VALUES ($1, $2, $3)`,
			id, fmt.Sprintf("Course %d", id), (i%5)+1); err != nil {
			return err
		}
	}
	for i := 0; i < universityNumEnrollments; i++ {
		id := i + 1
		student := (i % universityNumStudents) + 1
		if imperfect && i >= universityNumEnrollments-universityNumInvalidEnrolled {
			student = universityInvalidIDBase + (i - (universityNumEnrollments - universityNumInvalidEnrolled)) + 1
		}
		if _, err := db.Exec(`INSERT INTO enrollment (enrollment_id, student_id, course_id) VALUES ($1, $2, $3)`,
			id, student, (i%20)+1); err != nil {
			return err
		}
	}
	for i := 0; i < universityNumAdvisors; i++ {
		id := i + 1
		student := (i % universityNumStudents) + 1
		if imperfect && i >= universityNumAdvisors-universityNumInvalidAdvised {
			student = universityInvalidIDBase + (i - (universityNumAdvisors - universityNumInvalidAdvised)) + 1
		}
		if _, err := db.Exec(`INSERT INTO advisor (advisor_id, dept_id, student_id) VALUES ($1, $2, $3)`,
			id, (i%5)+1, student); err != nil {
			return err
		}
	}

	return nil
}

// DropUniversityTables drops every table BuildUniversityPostgres creates,
// for tests that reuse a single database across cases instead of relying
// on PostgresDB's per-test database.
func DropUniversityTables(db *sql.DB) error {
	tables := []string{"enrollment", "advisor", "course", "student", "department"}
	_, err := db.Exec(fmt.Sprintf("DROP TABLE IF EXISTS %s CASCADE", strings.Join(tables, ", ")))
	return err
}
