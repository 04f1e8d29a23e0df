package demo

import "database/sql"

// createSchema issues the DDL for the bundled university demo database.
// This is the one place in MATILDA that writes schema: the read-only
// boundary spec.md §6 describes applies to the discovery run itself, not
// to generating the fixtures that run operates against.
func createSchema(db *sql.DB) error {
	statements := []string{
		`CREATE TABLE department (
			dept_id INTEGER PRIMARY KEY,
			name    TEXT NOT NULL
		)`,
		`CREATE TABLE student (
			student_id INTEGER PRIMARY KEY,
			name       TEXT NOT NULL,
			year       INTEGER NOT NULL,
			dept_id    INTEGER NOT NULL
		)`,
		`CREATE TABLE course (
			course_id INTEGER PRIMARY KEY,
			title     TEXT NOT NULL,
			dept_id   INTEGER NOT NULL
		)`,
		`CREATE TABLE enrollment (
			enrollment_id INTEGER PRIMARY KEY,
			student_id    INTEGER NOT NULL,
			course_id     INTEGER NOT NULL
		)`,
		`CREATE TABLE advisor (
			advisor_id INTEGER PRIMARY KEY,
			dept_id    INTEGER NOT NULL,
			student_id INTEGER NOT NULL
		)`,
	}
	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}
