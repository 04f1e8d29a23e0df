package main

import (
	"github.com/spf13/cobra"

	"github.com/matilda-project/matilda/internal/clierr"
	"github.com/matilda-project/matilda/internal/config"
)

var (
	// Global state set during PersistentPreRunE
	cfg        *config.Config
	configPath string

	// Persistent flags
	cfgFile      string
	demoDataset  string
	databasePath string
	verbose      int
	quiet        bool
)

var rootCmd = &cobra.Command{
	Use:   "matilda",
	Short: "Discover tuple-generating dependencies from a relational catalog",
	Long: `matilda discovers tuple-generating dependencies (TGDs) by enumerating
bounded conjunctive-query candidates over a database's constraint graph and
validating each one with SQL support/confidence queries against the data.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "version" {
			return nil
		}

		var err error
		cfg, configPath, err = config.LoadConfig(cfgFile)
		if err != nil {
			return clierr.ConfigError("loading configuration", err)
		}

		if databasePath != "" {
			cfg.Database.URL = ""
			cfg.Database.Path = databasePath
			cfg.Database.Name = ""
		}

		return nil
	},
	RunE: runDiscover,

	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: auto-discover matilda.yaml)")
	rootCmd.PersistentFlags().StringVar(&demoDataset, "demo", "", "run against a bundled demo dataset: perfect_database or imperfect_database")
	rootCmd.PersistentFlags().StringVar(&databasePath, "database", "", "path to a SQLite catalog file (overrides database.path/database.name)")
	rootCmd.PersistentFlags().CountVarP(&verbose, "verbose", "v", "increase verbosity (can be repeated)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress non-error output")

	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		clierr.ExitWithError(err)
	}
}

// resolveString returns the first non-empty string from the provided values,
// so passing (flag, config, default) yields flag > config > default
// precedence. No flag is resolved through it: --database is applied
// directly in PersistentPreRunE.
func resolveString(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
