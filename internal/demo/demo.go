// Package demo generates the bundled university demo databases spec.md §6
// and §8 name: a deterministic, fully reproducible SQLite schema and
// fixture set in two variants — a "perfect" instance with no dangling
// foreign keys and an "imperfect" instance seeded with the exact
// violation counts spec.md §8's Scenario A/B fixtures expect.
package demo

import "database/sql"

// Dataset selects which bundled demo variant to build.
type Dataset int

const (
	Imperfect Dataset = iota
	Perfect
)

// String renders the dataset name exactly as the --demo flag and the
// results/MATILDA_<db>_results.json filename expect it.
func (d Dataset) String() string {
	switch d {
	case Perfect:
		return "perfect_database"
	case Imperfect:
		return "imperfect_database"
	default:
		return "unknown_database"
	}
}

// ParseDataset maps the --demo flag's accepted values to a Dataset.
func ParseDataset(name string) (Dataset, bool) {
	switch name {
	case "perfect_database":
		return Perfect, true
	case "imperfect_database":
		return Imperfect, true
	default:
		return 0, false
	}
}

// Build creates the schema and loads the fixture rows for dataset into db,
// which must be an empty SQLite database (typically in-memory or a fresh
// file, per cmd/matilda's --demo handling).
func Build(db *sql.DB, dataset Dataset) error {
	if err := createSchema(db); err != nil {
		return err
	}

	f := &fixtures{db: db}
	imperfect := dataset == Imperfect

	if err := f.loadDepartments(); err != nil {
		return err
	}
	if err := f.loadStudents(); err != nil {
		return err
	}
	if err := f.loadCourses(); err != nil {
		return err
	}
	if err := f.loadEnrollments(imperfect); err != nil {
		return err
	}
	if err := f.loadAdvisors(imperfect); err != nil {
		return err
	}
	return nil
}
