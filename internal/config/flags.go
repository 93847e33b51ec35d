package config

import (
	"flag"
	"fmt"
	"os"

	"github.com/dmitrijs2005/gophdiary/internal/flagx"
)

// parseFlags overlays cfg with the flags it knows about. Other arguments are
// filtered out with flagx.FilterArgs so they cannot break parsing.
func parseFlags(cfg *Config) error {
	args := flagx.FilterArgs(os.Args[1:], []string{"-d", "-driver", "-w", "-seed", "-l"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.DatabaseDSN, "d", cfg.DatabaseDSN, "database DSN")
	fs.StringVar(&cfg.DatabaseDriver, "driver", cfg.DatabaseDriver, "database driver (sqlite or postgres)")
	fs.IntVar(&cfg.Workers, "w", cfg.Workers, "background storage workers")
	fs.BoolVar(&cfg.SeedOnCreate, "seed", cfg.SeedOnCreate, "seed example entries on database creation")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}
	return nil
}
