package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matilda-project/matilda/internal/catalog"
	"github.com/matilda-project/matilda/internal/clierr"
	"github.com/matilda-project/matilda/internal/demo"
	"github.com/matilda-project/matilda/internal/discovery"
	"github.com/matilda-project/matilda/internal/tracking"
)

// runDiscover is rootCmd's RunE: it opens the configured (or demo)
// catalog, runs one full discovery pass, and writes the results
// artifacts, following doctor.go's "open db, run, print/save, map
// errors to exit codes" shape.
func runDiscover(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	db, dialect, database, err := openTarget()
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	if !quiet {
		fmt.Println("matilda - TGD Discovery")
	}

	params := discovery.Params{
		NbOccurrence:         uint64(cfg.Algorithm.NbOccurrence),
		MaxTable:             cfg.Algorithm.MaxTable,
		MaxVars:              cfg.Algorithm.MaxVars,
		ConfidenceThreshold:  cfg.Algorithm.ConfidenceThreshold,
		CacheSize:            4096,
		SampleSize:           1000,
		MemoryThresholdBytes: cfg.Monitor.MemoryThresholdBytes,
		Timeout:              cfg.Monitor.Timeout,
		StatementTimeout:     cfg.Monitor.Timeout,
		Tracker:              tracking.New(cfg.MLflow.Use, cfg.MLflow.TrackingURI, cfg.MLflow.ExperimentName),
	}

	orch := discovery.New(db, dialect, params)
	outcome, err := orch.Run(ctx, database)
	if err != nil {
		return mapRunError(err)
	}

	if outcome.TrackingErr != nil && !quiet {
		fmt.Fprintf(os.Stderr, "warning: experiment tracking failed: %v\n", outcome.TrackingErr)
	}

	jsonPath, markdownPath, err := outcome.Results.Save(cfg.Results.OutputDir)
	if err != nil {
		return clierr.GeneralError("writing results", err)
	}

	if !quiet {
		fmt.Printf("discovered %d rule(s) in %.2fs\n", outcome.Results.Metadata.TotalRules, outcome.Results.Metadata.ExecutionTimeSeconds)
		fmt.Printf("results written to %s and %s\n", jsonPath, markdownPath)
	}

	if outcome.Cancelled {
		return clierr.PartialSuccessError(fmt.Sprintf("run cancelled (%s), reporting already-accepted rules", outcome.Trigger), nil)
	}

	return nil
}

// openTarget resolves --demo, --database, or the loaded config into an
// open database handle, its dialect, and the database name results
// artifacts are keyed under.
func openTarget() (*sql.DB, catalog.Dialect, string, error) {
	if demoDataset != "" {
		dataset, ok := demo.ParseDataset(demoDataset)
		if !ok {
			return nil, nil, "", clierr.ConfigError(fmt.Sprintf("unknown --demo dataset %q (want perfect_database or imperfect_database)", demoDataset), nil)
		}

		db, err := sql.Open("sqlite", ":memory:")
		if err != nil {
			return nil, nil, "", clierr.GeneralError("opening demo database", err)
		}
		if err := demo.Build(db, dataset); err != nil {
			_ = db.Close()
			return nil, nil, "", clierr.SchemaError("building demo database", err)
		}
		return db, catalog.SQLiteDialect{}, dataset.String(), nil
	}

	dsn, err := cfg.DSN()
	if err != nil {
		return nil, nil, "", clierr.ConfigError("database configuration", err)
	}

	db, dialect, err := catalog.Open(cfg.Database.URL, dsn)
	if err != nil {
		return nil, nil, "", clierr.ConfigError("connecting to database", err)
	}

	database := cfg.Database.Name
	if database == "" {
		database = "database"
	}
	return db, dialect, database, nil
}

// mapRunError translates a fatal discovery error into the clierr exit-code
// taxonomy, per spec.md §7: schema problems and query failures keep
// whatever kind internal/catalog or internal/validator already assigned,
// anything else falls back to the general-error slot.
func mapRunError(err error) error {
	if clierr.IsConfigErr(err) || clierr.IsSchemaErr(err) || clierr.IsTimeoutErr(err) ||
		clierr.IsQueryDriverErr(err) || clierr.IsInternalInvariantErr(err) {
		return err
	}
	return clierr.GeneralError("running discovery", err)
}
