// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() initializer to build a Config with defaults.
// - Load layers .env, YAML and PLACAR_ environment variables over the defaults.
// - Validation failures wrap ErrInvalidConfig.
package config

import (
	"fmt"
	"runtime"
	"strings"
	"time"
)

// Database drivers accepted by Validate.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log encoder: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// DBDriver is sqlite or postgres.
	DBDriver string `koanf:"db_driver"`

	// DBDSN is passed to the driver as is.
	DBDSN string `koanf:"db_dsn"`

	// QueueSize bounds the in-memory submission queue.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of store writers.
	WorkerCount int `koanf:"worker_count"`

	// DedupeSize sets how many client event ids are remembered. 0 disables the bound.
	DedupeSize int `koanf:"dedupe_size"`

	// DefaultLimit is the leaderboard length when a request does not set one.
	DefaultLimit int `koanf:"default_limit"`

	// MaxLimit caps GET /statistics?limit.
	MaxLimit int `koanf:"max_limit"`

	// EventWindow is how many recent goal events feed the scorer board. 0 reads all.
	EventWindow int `koanf:"event_window"`

	// StrictScores rejects negative scores at aggregation time.
	StrictScores bool `koanf:"strict_scores"`

	// Fallback labels for entities that never had a display name.
	UnknownPlayerName string `koanf:"unknown_player_name"`
	UnknownTeamName   string `koanf:"unknown_team_name"`

	// MetricsIntervalSeconds is how often runtime and intake gauges refresh.
	MetricsIntervalSeconds int `koanf:"metrics_interval_seconds"`

	// SummaryCron is the five-field schedule of the intake summary log line.
	// Empty disables it.
	SummaryCron string `koanf:"summary_cron"`

	// ShutdownTimeoutSeconds bounds the graceful drain on SIGTERM.
	ShutdownTimeoutSeconds int `koanf:"shutdown_timeout_seconds"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:               "info",
		LogFormat:              "text",
		Addr:                   ":9080",
		DBDriver:               DriverSQLite,
		DBDSN:                  "file:placar.db?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)",
		QueueSize:              10_000,
		WorkerCount:            runtime.NumCPU(),
		DedupeSize:             50_000,
		DefaultLimit:           10,
		MaxLimit:               100,
		EventWindow:            1000,
		UnknownPlayerName:      "Jogador desconhecido",
		UnknownTeamName:        "Equipe desconhecida",
		MetricsIntervalSeconds: 15,
		SummaryCron:            "0 * * * *",
		ShutdownTimeoutSeconds: 30,
	}
}

// MetricsInterval returns MetricsIntervalSeconds as a duration.
func (c *Config) MetricsInterval() time.Duration {
	return time.Duration(c.MetricsIntervalSeconds) * time.Second
}

// ShutdownTimeout returns ShutdownTimeoutSeconds as a duration.
func (c *Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.ShutdownTimeoutSeconds) * time.Second
}

// Validate reports the first invalid field.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return fmt.Errorf("addr must not be empty: %w", ErrInvalidConfig)
	case !knownDriver(c.DBDriver):
		return fmt.Errorf("db_driver %q: %w", c.DBDriver, ErrInvalidConfig)
	case strings.TrimSpace(c.DBDSN) == "":
		return fmt.Errorf("db_dsn must not be empty: %w", ErrInvalidConfig)
	case c.DefaultLimit < 1:
		return fmt.Errorf("default_limit must be at least 1: %w", ErrInvalidConfig)
	case c.MaxLimit < c.DefaultLimit:
		return fmt.Errorf("max_limit %d below default_limit %d: %w", c.MaxLimit, c.DefaultLimit, ErrInvalidConfig)
	case c.EventWindow < 0:
		return fmt.Errorf("event_window must not be negative: %w", ErrInvalidConfig)
	case c.MetricsIntervalSeconds < 1:
		return fmt.Errorf("metrics_interval_seconds must be at least 1: %w", ErrInvalidConfig)
	}
	return nil
}

func knownDriver(d string) bool {
	switch strings.ToLower(strings.TrimSpace(d)) {
	case DriverSQLite, "sqlite3", DriverPostgres, "postgresql", "pq":
		return true
	}
	return false
}
