package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophdiary/internal/common"
	"github.com/dmitrijs2005/gophdiary/internal/config"
	"github.com/dmitrijs2005/gophdiary/internal/dbx"
	"github.com/dmitrijs2005/gophdiary/internal/live"
	"github.com/dmitrijs2005/gophdiary/internal/logging"
	"github.com/dmitrijs2005/gophdiary/internal/models"
	"github.com/dmitrijs2005/gophdiary/internal/repositories/entries"
)

// EntryList is the snapshot type delivered by the live listings.
type EntryList = []models.Entry

// Store persists entries and keeps live listings up to date.
type Store struct {
	db      *sql.DB
	repo    entries.Repository
	newRepo func(dbx.DBTX) entries.Repository
	log     logging.Logger

	desc *live.Query[EntryList]
	asc  *live.Query[EntryList]
}

// New wraps an already migrated database. driver selects the SQL dialect
// (config.DriverSQLite or config.DriverPostgres).
func New(db *sql.DB, driver string, log logging.Logger) (*Store, error) {
	var newRepo func(dbx.DBTX) entries.Repository
	switch driver {
	case config.DriverSQLite:
		newRepo = func(tx dbx.DBTX) entries.Repository { return entries.NewSQLiteRepository(tx) }
	case config.DriverPostgres:
		newRepo = func(tx dbx.DBTX) entries.Repository { return entries.NewPostgresRepository(tx) }
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	s := &Store{
		db:      db,
		repo:    newRepo(db),
		newRepo: newRepo,
		log:     log.With("component", "store"),
	}
	s.desc = live.NewQuery("entries_desc", s.lister(models.Descending), s.log)
	s.asc = live.NewQuery("entries_asc", s.lister(models.Ascending), s.log)
	return s, nil
}

func (s *Store) lister(order models.Order) live.Loader[EntryList] {
	return func(ctx context.Context) (EntryList, error) {
		list, err := s.repo.List(ctx, order)
		if err != nil {
			return nil, common.NewStorageFault("list "+order.String(), err)
		}
		return list, nil
	}
}

// ListDescending subscribes to all entries, newest date first.
func (s *Store) ListDescending(ctx context.Context) (*live.Subscription[EntryList], error) {
	return s.desc.Subscribe(ctx)
}

// ListAscending subscribes to all entries, oldest date first.
func (s *Store) ListAscending(ctx context.Context) (*live.Subscription[EntryList], error) {
	return s.asc.Subscribe(ctx)
}

// Insert stores e as a new entry and returns its id. e.ID is ignored.
func (s *Store) Insert(ctx context.Context, e models.Entry) (int64, error) {
	id, err := s.repo.Insert(ctx, &e)
	if err != nil {
		return 0, common.NewStorageFault("insert", err)
	}
	s.log.Debug(ctx, "entry inserted", "id", id, "date", e.Date)
	s.notify(ctx)
	return id, nil
}

// Update overwrites the entry with e.ID.
func (s *Store) Update(ctx context.Context, e models.Entry) error {
	if err := s.repo.Update(ctx, &e); err != nil {
		return common.NewStorageFault("update", err)
	}
	s.log.Debug(ctx, "entry updated", "id", e.ID)
	s.notify(ctx)
	return nil
}

// Get returns a single entry or common.ErrorNotFound.
func (s *Store) Get(ctx context.Context, id int64) (*models.Entry, error) {
	e, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, common.NewStorageFault("get", err)
	}
	return e, nil
}

// DeleteAll irreversibly removes every entry.
func (s *Store) DeleteAll(ctx context.Context) error {
	if err := s.repo.DeleteAll(ctx); err != nil {
		return common.NewStorageFault("delete all", err)
	}
	s.log.Info(ctx, "all entries deleted")
	s.notify(ctx)
	return nil
}

// ResetToSeed replaces all entries with the example entries for now, in one
// transaction.
func (s *Store) ResetToSeed(ctx context.Context, now time.Time) error {
	var n int64
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.newRepo(tx)
		if err := repo.DeleteAll(ctx); err != nil {
			return err
		}
		var err error
		n, err = insertSeed(ctx, repo, now)
		return err
	})
	if err != nil {
		return common.NewStorageFault("reset", err)
	}
	s.log.Info(ctx, "entries reset to seed data", "entries", n)
	s.notify(ctx)
	return nil
}

// Close ends all live subscriptions and closes the database.
func (s *Store) Close() error {
	s.log.Debug(context.Background(), "closing store",
		"subscribers", s.desc.Subscribers()+s.asc.Subscribers())
	s.desc.Close()
	s.asc.Close()
	return s.db.Close()
}

// notify refreshes both listings. The refresh is detached from ctx
// cancellation so a mutation that already happened is always published.
func (s *Store) notify(ctx context.Context) {
	ctx = context.WithoutCancel(ctx)
	errs := errors.Join(s.desc.Invalidate(ctx), s.asc.Invalidate(ctx))
	if errs != nil {
		s.log.Error(ctx, "failed to refresh live listings", "err", errs)
	}
}
