package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophdiary/internal/common"
	"github.com/dmitrijs2005/gophdiary/internal/config"
	"github.com/dmitrijs2005/gophdiary/internal/filex"
	"github.com/dmitrijs2005/gophdiary/internal/logging"
	"github.com/dmitrijs2005/gophdiary/internal/migrations"
	"github.com/pressly/goose/v3"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// seedVersion is the goose version of the Go migration that inserts the
// example entries. It runs right after the schema is created and is recorded
// only when it succeeds, so a failed seed is retried by the next Open.
const seedVersion = 2

// Open connects to the database described by cfg, migrates it and returns a
// ready Store. When the schema is created by this call and cfg.SeedOnCreate
// is set, the example entries for now are inserted.
func Open(ctx context.Context, cfg *config.Config, log logging.Logger, now time.Time) (*Store, error) {
	db, err := openDB(cfg)
	if err != nil {
		return nil, common.NewStorageFault("open", err)
	}

	s, err := New(db, cfg.DatabaseDriver, log)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	var seeded int64
	seed := &goose.GoFunc{RunTx: func(ctx context.Context, tx *sql.Tx) error {
		if !cfg.SeedOnCreate {
			return nil
		}
		n, err := insertSeed(ctx, s.newRepo(tx), now)
		seeded = n
		return err
	}}

	applied, err := migrate(ctx, db, cfg.DatabaseDriver, seed)
	if err != nil {
		_ = db.Close()
		return nil, common.NewStorageFault("migrate", err)
	}
	if applied[seedVersion] && cfg.SeedOnCreate {
		s.log.Info(ctx, "database seeded", "driver", cfg.DatabaseDriver, "entries", seeded)
	}
	return s, nil
}

func openDB(cfg *config.Config) (*sql.DB, error) {
	switch cfg.DatabaseDriver {
	case config.DriverSQLite:
		dsn := cfg.DatabaseDSN
		if isFilePath(dsn) {
			if _, err := filex.EnsureParentDir(dsn); err != nil {
				return nil, fmt.Errorf("create data directory: %w", err)
			}
			dsn += "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
		}
		db, err := sql.Open("sqlite", dsn)
		if err != nil {
			return nil, err
		}
		// One connection: SQLite has a single writer, and ":memory:"
		// databases are per connection.
		db.SetMaxOpenConns(1)
		return db, nil
	case config.DriverPostgres:
		return sql.Open("pgx", cfg.DatabaseDSN)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.DatabaseDriver)
	}
}

func isFilePath(dsn string) bool {
	return dsn != ":memory:" && !strings.HasPrefix(dsn, "file:") && !strings.Contains(dsn, "?")
}

// migrate applies pending schema migrations followed by the seed migration
// and returns the versions applied by this run.
func migrate(ctx context.Context, db *sql.DB, driver string, seed *goose.GoFunc) (map[int64]bool, error) {
	dialect := goose.DialectSQLite3
	if driver == config.DriverPostgres {
		dialect = goose.DialectPostgres
	}

	fsys, err := migrations.ForDialect(string(dialect))
	if err != nil {
		return nil, err
	}
	p, err := goose.NewProvider(dialect, db, fsys,
		goose.WithGoMigrations(goose.NewGoMigration(seedVersion, seed, nil)))
	if err != nil {
		return nil, fmt.Errorf("create migration provider: %w", err)
	}

	results, err := p.Up(ctx)
	if err != nil {
		return nil, fmt.Errorf("apply migrations: %w", err)
	}
	applied := make(map[int64]bool, len(results))
	for _, r := range results {
		if r.Source != nil {
			applied[r.Source.Version] = true
		}
	}
	return applied, nil
}
