package config

import (
	"fmt"
	"time"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config holds runtime settings for the diary application.
type Config struct {
	DatabaseDriver string
	DatabaseDSN    string

	// SeedOnCreate inserts three example entries the first time the
	// database schema is created.
	SeedOnCreate bool

	// Workers is the size of the background pool that runs store mutations.
	Workers int

	// QueryTimeout bounds each background storage task. Zero disables it.
	QueryTimeout time.Duration

	LogLevel   string
	LogFormat  string
	LogBackend string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.DatabaseDriver = DriverSQLite
	c.DatabaseDSN = "diary.db"
	c.SeedOnCreate = true
	c.Workers = 2
	c.QueryTimeout = 5 * time.Second
	c.LogLevel = "info"
	c.LogFormat = "text"
	c.LogBackend = "slog"
}

// Validate reports settings the application cannot run with.
func (c *Config) Validate() error {
	switch c.DatabaseDriver {
	case DriverSQLite, DriverPostgres:
	default:
		return fmt.Errorf("unsupported database driver %q", c.DatabaseDriver)
	}
	if c.DatabaseDSN == "" {
		return fmt.Errorf("database dsn is empty")
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be positive, got %d", c.Workers)
	}
	if c.QueryTimeout < 0 {
		return fmt.Errorf("query timeout must not be negative")
	}
	return nil
}

// LoadConfig builds a Config from defaults, then the config file (if any),
// then command-line flags. Later sources take precedence.
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseFile(cfg); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
