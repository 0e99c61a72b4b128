/*
config.go - Service configuration

PURPOSE:
  Loads the YAML config file, fills defaults, applies ENFORCER_* environment
  overrides and validates the result. Analysis thresholds live under the
  "analysis" key in the factory.AnalysisSpec format so the same document
  shape is accepted by the API.

EXAMPLE:
  server:
    port: 8080
    read_timeout: 15s
    write_timeout: 60s
    cors_origins: ["http://localhost:3000"]
  store:
    driver: sqlite          # sqlite | postgres
    dsn: ./data/enforcer.db
  log:
    level: info
    format: json
    file: ./logs/enforcer.log
  fetch:
    page_size: 1000
    max_rows: 0
    max_attempts: 3
    backoff: 200ms
  scheduler:
    enabled: true
    interval: 24h
  team:
    concurrency: 4
  analysis:
    weekly_overtime_threshold: 40
    admin_codes: ["emails", "TEAM MEETINGS"]

ENVIRONMENT:
  ENFORCER_PORT, ENFORCER_DB_DRIVER, ENFORCER_DB_DSN, ENFORCER_LOG_LEVEL,
  ENFORCER_TODAY

SEE ALSO:
  - factory/analysis.go: AnalysisSpec
  - cmd/enforcer/root.go: --config flag
*/
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dpanfilo/enforcer/factory"
	"github.com/dpanfilo/enforcer/timesheet"
)

// Config is the root of the config file.
type Config struct {
	Server    ServerConfig         `yaml:"server"`
	Store     StoreConfig          `yaml:"store"`
	Log       LogConfig            `yaml:"log"`
	Fetch     FetchConfig          `yaml:"fetch"`
	Scheduler SchedulerConfig      `yaml:"scheduler"`
	Team      TeamConfig           `yaml:"team"`
	Analysis  factory.AnalysisSpec `yaml:"analysis"`
}

type ServerConfig struct {
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	CORSOrigins  []string      `yaml:"cors_origins"`
}

type StoreConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

type LogConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

type FetchConfig struct {
	PageSize    int           `yaml:"page_size"`
	MaxRows     int           `yaml:"max_rows"`
	MaxAttempts int           `yaml:"max_attempts"`
	Backoff     time.Duration `yaml:"backoff"`
}

type SchedulerConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Interval time.Duration `yaml:"interval"`
}

type TeamConfig struct {
	Concurrency int `yaml:"concurrency"`
}

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         8080,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 60 * time.Second,
		},
		Store: StoreConfig{Driver: DriverSQLite, DSN: "enforcer.db"},
		Log:   LogConfig{Level: "info", Format: "text", MaxSizeMB: 100, MaxBackups: 10, MaxAgeDays: 30},
		Fetch: FetchConfig{
			PageSize:    timesheet.DefaultPageSize,
			MaxAttempts: timesheet.DefaultMaxAttempts,
			Backoff:     timesheet.DefaultBackoff,
		},
		Scheduler: SchedulerConfig{Interval: 24 * time.Hour},
		Team:      TeamConfig{Concurrency: 4},
	}
}

// Load reads path (if non-empty) over the defaults, then applies the
// environment and validates.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, &timesheet.ConfigError{Field: "config", Message: err.Error()}
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup("ENFORCER_PORT"); ok {
		port, err := strconv.Atoi(v)
		if err != nil {
			return &timesheet.ConfigError{Field: "ENFORCER_PORT", Message: fmt.Sprintf("%q is not a number", v)}
		}
		c.Server.Port = port
	}
	if v, ok := lookup("ENFORCER_DB_DRIVER"); ok {
		c.Store.Driver = v
	}
	if v, ok := lookup("ENFORCER_DB_DSN"); ok {
		c.Store.DSN = v
	}
	if v, ok := lookup("ENFORCER_LOG_LEVEL"); ok {
		c.Log.Level = v
	}
	if v, ok := lookup("ENFORCER_TODAY"); ok {
		c.Analysis.Today = v
	}
	return nil
}

// Validate checks everything outside the analysis section, then builds the
// analysis section once to surface its errors at startup.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, &timesheet.ConfigError{Field: "server.port", Message: fmt.Sprintf("%d out of range", c.Server.Port)})
	}
	switch c.Store.Driver {
	case DriverSQLite, DriverPostgres:
	default:
		errs = append(errs, &timesheet.ConfigError{Field: "store.driver", Message: fmt.Sprintf("unknown driver %q", c.Store.Driver)})
	}
	if c.Store.DSN == "" {
		errs = append(errs, &timesheet.ConfigError{Field: "store.dsn", Message: "must be set"})
	}
	if c.Fetch.PageSize <= 0 {
		errs = append(errs, &timesheet.ConfigError{Field: "fetch.page_size", Message: "must be positive"})
	}
	if c.Fetch.MaxAttempts <= 0 {
		errs = append(errs, &timesheet.ConfigError{Field: "fetch.max_attempts", Message: "must be positive"})
	}
	if c.Scheduler.Enabled && c.Scheduler.Interval <= 0 {
		errs = append(errs, &timesheet.ConfigError{Field: "scheduler.interval", Message: "must be positive"})
	}
	if c.Team.Concurrency <= 0 {
		errs = append(errs, &timesheet.ConfigError{Field: "team.concurrency", Message: "must be positive"})
	}
	if _, err := factory.NewAnalysisFactory().FromSpec(c.Analysis); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Fetcher builds a row fetcher over src with the fetch settings.
func (c *Config) Fetcher(src timesheet.RowSource) *timesheet.Fetcher {
	f := timesheet.NewFetcher(src)
	f.PageSize = c.Fetch.PageSize
	f.MaxRows = c.Fetch.MaxRows
	f.MaxAttempts = c.Fetch.MaxAttempts
	f.Backoff = c.Fetch.Backoff
	return f
}
