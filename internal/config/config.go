package config

import (
	"os"
	"strconv"

	"permsig/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Experiment ExperimentConfig
	Database   DatabaseConfig
	Report     ReportConfig
}

// ExperimentConfig holds default experiment parameters; every value can be
// overridden per run from the CLI flags.
type ExperimentConfig struct {
	Trials int
	Alpha  float64
	Seed   int64
}

// DatabaseConfig holds the optional experiment-archive connection settings
type DatabaseConfig struct {
	URL     string // empty disables the archive
	SSLMode string
}

// ReportConfig holds report sink settings
type ReportConfig struct {
	Dir  string
	HTML bool
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{
		Experiment: ExperimentConfig{
			Trials: getEnvIntOrDefault("PERM_TRIALS", 500),
			Alpha:  getEnvFloatOrDefault("ALPHA", 0.05),
			Seed:   int64(getEnvIntOrDefault("SEED", 25325)),
		},
		Database: DatabaseConfig{
			URL:     getEnvOrDefault("DATABASE_URL", ""),
			SSLMode: getEnvOrDefault("SSL_MODE", "disable"),
		},
		Report: ReportConfig{
			Dir:  getEnvOrDefault("REPORT_DIR", "."),
			HTML: getEnvBoolOrDefault("REPORT_HTML", false),
		},
	}

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}

	return config, nil
}

func validateConfig(config *Config) error {
	if config.Experiment.Trials < 1 {
		return errors.ConfigInvalid("PERM_TRIALS must be at least 1")
	}
	if config.Experiment.Alpha <= 0 || config.Experiment.Alpha >= 1 {
		return errors.ConfigInvalid("ALPHA must be in (0, 1)")
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
