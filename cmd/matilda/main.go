// Package main provides matilda's command-line entry point: a single
// discovery run against either a bundled demo dataset or a configured
// database catalog.
//
// Usage:
//
//	matilda [--config PATH] [--demo {perfect_database|imperfect_database}] [--database PATH]
//	matilda version
package main

func main() {
	Execute()
}
