// Package config loads runtime configuration for the diary application.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional config file selected with -c or -config. Files ending in
//     .yaml or .yml are read as YAML, anything else as JSON.
//  3. Command-line flags, which override earlier values.
//
// Supported flags
//
//	-d string     database DSN (file path for sqlite, URL for postgres)
//	-driver name  database driver: sqlite or postgres
//	-w int        number of background storage workers
//	-seed bool    seed example entries when the database is created
//	-l string     log level
//
// # File schema
//
//	{
//	  "database_driver": "sqlite",
//	  "database_dsn": "diary.db",
//	  "seed_on_create": true,
//	  "workers": 2,
//	  "query_timeout": "5s",
//	  "log_level": "info",
//	  "log_format": "text",
//	  "log_backend": "slog"
//	}
package config
