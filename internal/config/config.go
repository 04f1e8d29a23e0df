// Package config loads matilda's run configuration from a YAML file,
// environment variables, and defaults, following the same layering the
// teacher CLI uses for its own configuration.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const maxWalkDepth = 25

// Config is the full MATILDA run configuration, bound 1:1 onto the keys
// named by the specification.
type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Algorithm AlgorithmConfig `mapstructure:"algorithm"`
	Monitor   MonitorConfig   `mapstructure:"monitor"`
	Results   ResultsConfig   `mapstructure:"results"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	MLflow    MLflowConfig    `mapstructure:"mlflow"`
}

// DatabaseConfig names the catalog a run discovers rules against.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
	Name string `mapstructure:"name"`
	URL  string `mapstructure:"url"`
}

// AlgorithmConfig bounds the enumerator and validator.
type AlgorithmConfig struct {
	NbOccurrence        uint32  `mapstructure:"nb_occurrence"`
	MaxTable             uint32  `mapstructure:"max_table"`
	MaxVars              uint32  `mapstructure:"max_vars"`
	ConfidenceThreshold float64 `mapstructure:"confidence_threshold"`
}

// MonitorConfig bounds the resource watchdog.
type MonitorConfig struct {
	MemoryThresholdBytes uint64        `mapstructure:"memory_threshold"`
	Timeout              time.Duration `mapstructure:"timeout"`
}

// ResultsConfig names where run artifacts are written.
type ResultsConfig struct {
	OutputDir string `mapstructure:"output_dir"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	LogDir string `mapstructure:"log_dir"`
	Level  string `mapstructure:"level"`
}

// MLflowConfig configures optional experiment tracking.
type MLflowConfig struct {
	Use            bool   `mapstructure:"use"`
	TrackingURI    string `mapstructure:"tracking_uri"`
	ExperimentName string `mapstructure:"experiment_name"`
}

// LoadConfig discovers and loads configuration with precedence:
// flags (applied by the caller after this returns) > env > config file > defaults.
//
// Returns the loaded config, the path to the config file used (empty if
// none found), and any error encountered.
func LoadConfig(explicitConfigPath string) (*Config, string, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("MATILDA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	configPath, err := findConfigFile(explicitConfigPath)
	if err != nil {
		return nil, "", err
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, configPath, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, configPath, fmt.Errorf("unmarshaling config: %w", err)
	}

	return &cfg, configPath, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database.path", "")
	v.SetDefault("database.name", "")
	v.SetDefault("database.url", "")

	v.SetDefault("algorithm.nb_occurrence", 3)
	v.SetDefault("algorithm.max_table", 3)
	v.SetDefault("algorithm.max_vars", 6)
	v.SetDefault("algorithm.confidence_threshold", 1.0)

	v.SetDefault("monitor.memory_threshold", 15*1024*1024*1024) // 15 GiB
	v.SetDefault("monitor.timeout", "3600s")

	v.SetDefault("results.output_dir", "results")

	v.SetDefault("logging.log_dir", "")
	v.SetDefault("logging.level", "info")

	v.SetDefault("mlflow.use", false)
	v.SetDefault("mlflow.tracking_uri", "")
	v.SetDefault("mlflow.experiment_name", "matilda")
}

// findConfigFile finds the config file to use. If explicitPath is provided
// it must exist. Otherwise it walks up from cwd looking for matilda.yaml or
// matilda.yml, stopping at a .git boundary or after maxWalkDepth levels.
func findConfigFile(explicitPath string) (string, error) {
	if explicitPath != "" {
		if _, err := os.Stat(explicitPath); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicitPath)
		}
		return explicitPath, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("getting cwd: %w", err)
	}

	dir := cwd
	for i := 0; i < maxWalkDepth; i++ {
		for _, name := range []string{"matilda.yaml", "matilda.yml"} {
			path := filepath.Join(dir, name)
			if _, err := os.Stat(path); err == nil {
				return path, nil
			}
		}

		if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
			break
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", nil
}

// DSN returns the database connection string for drivers that accept a
// single URL (pgx, lib/pq). If database.url is set it is returned directly;
// otherwise database.path/database.name are combined into a sqlite file
// path, since the SQLite dialect takes a filesystem path rather than a URL.
func (c *Config) DSN() (string, error) {
	if c.Database.URL != "" {
		return c.Database.URL, nil
	}
	if c.Database.Path != "" && c.Database.Name == "" {
		// database.path named a complete SQLite file directly (e.g. via
		// --database), rather than a directory paired with database.name.
		return c.Database.Path, nil
	}
	if c.Database.Path == "" || c.Database.Name == "" {
		return "", fmt.Errorf("database.url, or both database.path and database.name, must be set")
	}
	return filepath.Join(c.Database.Path, c.Database.Name), nil
}

// IsPostgres reports whether the configured database URL names a postgres
// connection (vs. a bare SQLite file path).
func (c *Config) IsPostgres() bool {
	if c.Database.URL == "" {
		return false
	}
	u, err := url.Parse(c.Database.URL)
	if err != nil {
		return false
	}
	return u.Scheme == "postgres" || u.Scheme == "postgresql"
}
