package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/gophdiary/internal/flagx"
	"github.com/dmitrijs2005/gophdiary/internal/timex"
	"gopkg.in/yaml.v3"
)

// FileConfig is the on-disk representation of Config. Pointer fields tell an
// absent key apart from a zero value, so a file only overrides what it sets.
type FileConfig struct {
	DatabaseDriver *string         `json:"database_driver" yaml:"database_driver"`
	DatabaseDSN    *string         `json:"database_dsn" yaml:"database_dsn"`
	SeedOnCreate   *bool           `json:"seed_on_create" yaml:"seed_on_create"`
	Workers        *int            `json:"workers" yaml:"workers"`
	QueryTimeout   *timex.Duration `json:"query_timeout" yaml:"query_timeout"`
	LogLevel       *string         `json:"log_level" yaml:"log_level"`
	LogFormat      *string         `json:"log_format" yaml:"log_format"`
	LogBackend     *string         `json:"log_backend" yaml:"log_backend"`
}

// parseFile overlays cfg with the file named by -c / -config, if present.
func parseFile(cfg *Config) error {
	path := flagx.ConfigFileFlag()
	if path == "" {
		return nil
	}
	return loadFile(cfg, path)
}

func loadFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	var fc FileConfig
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &fc)
	default:
		err = json.Unmarshal(data, &fc)
	}
	if err != nil {
		return fmt.Errorf("decode config file %s: %w", path, err)
	}

	fc.apply(cfg)
	return nil
}

func (fc *FileConfig) apply(cfg *Config) {
	if fc.DatabaseDriver != nil {
		cfg.DatabaseDriver = *fc.DatabaseDriver
	}
	if fc.DatabaseDSN != nil {
		cfg.DatabaseDSN = *fc.DatabaseDSN
	}
	if fc.SeedOnCreate != nil {
		cfg.SeedOnCreate = *fc.SeedOnCreate
	}
	if fc.Workers != nil {
		cfg.Workers = *fc.Workers
	}
	if fc.QueryTimeout != nil {
		cfg.QueryTimeout = fc.QueryTimeout.Duration
	}
	if fc.LogLevel != nil {
		cfg.LogLevel = *fc.LogLevel
	}
	if fc.LogFormat != nil {
		cfg.LogFormat = *fc.LogFormat
	}
	if fc.LogBackend != nil {
		cfg.LogBackend = *fc.LogBackend
	}
}
