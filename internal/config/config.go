// Package config loads the small set of environment-carried values
// the solve pipeline, WAL, and frame registry need at process start:
// a Default() struct of sane fallbacks, a local .env overlay via
// godotenv, then OS environment variables on top.
package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config is the process-wide configuration surface.
type Config struct {
	// WALDir is the directory the Snapshot WAL rotates its per-type
	// daily files into.
	WALDir string
	// NotificationCooldownSeconds is read at this layer but consumed
	// only by the notification service, which runs out of process.
	NotificationCooldownSeconds int
	// DefaultProductGroup is the configured default product group name.
	// cmd/enginectl does not read it; its commands take an explicit
	// -frame path.
	DefaultProductGroup string
	// DefaultScenarioCount is the Monte Carlo scenario count used when a
	// run doesn't specify one.
	DefaultScenarioCount int
	// SolverBinaryPath is reserved for an external solver process
	// driven over the port protocol; unused by the in-process gonum
	// solver.
	SolverBinaryPath string
}

// Default returns the fallback configuration used when no environment
// override is present.
func Default() *Config {
	return &Config{
		WALDir:                      "data/wal",
		NotificationCooldownSeconds: 300,
		DefaultProductGroup:         "default",
		DefaultScenarioCount:        1000,
		SolverBinaryPath:            "",
	}
}

// Load builds a Config from Default(), overlaying a local .env file
// (a missing .env is not an error) and then OS environment variables.
func Load() *Config {
	_ = godotenv.Load()

	cfg := Default()
	if v := os.Getenv("TRADEDESK_WAL_DIR"); v != "" {
		cfg.WALDir = v
	}
	if v := os.Getenv("TRADEDESK_NOTIFICATION_COOLDOWN_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.NotificationCooldownSeconds = n
		}
	}
	if v := os.Getenv("TRADEDESK_DEFAULT_PRODUCT_GROUP"); v != "" {
		cfg.DefaultProductGroup = v
	}
	if v := os.Getenv("TRADEDESK_DEFAULT_SCENARIO_COUNT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.DefaultScenarioCount = n
		}
	}
	if v := os.Getenv("TRADEDESK_SOLVER_BINARY_PATH"); v != "" {
		cfg.SolverBinaryPath = v
	}
	return cfg
}
