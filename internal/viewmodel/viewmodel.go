// Package viewmodel mediates between the entry store and the presentation
// layer.
//
// The ViewModel owns the entry currently being composed or viewed (the
// "selected" entry). Edits to it are plain in-memory updates. Everything that
// touches storage runs on the background pool and is fire-and-forget: the
// returned channel reports the outcome but callers do not have to read it.
// Storage faults are also logged and published on Errors.
//
// Live listings are delivered through the rendering loop, so callbacks passed
// to EntriesDescending and EntriesAscending always run on that loop.
package viewmodel

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophdiary/internal/dispatch"
	"github.com/dmitrijs2005/gophdiary/internal/live"
	"github.com/dmitrijs2005/gophdiary/internal/logging"
	"github.com/dmitrijs2005/gophdiary/internal/models"
)

// EntryStore is the part of the entry store the view-model uses.
type EntryStore interface {
	ListDescending(ctx context.Context) (*live.Subscription[[]models.Entry], error)
	ListAscending(ctx context.Context) (*live.Subscription[[]models.Entry], error)
	Insert(ctx context.Context, e models.Entry) (int64, error)
	Update(ctx context.Context, e models.Entry) error
	Get(ctx context.Context, id int64) (*models.Entry, error)
	DeleteAll(ctx context.Context) error
	ResetToSeed(ctx context.Context, now time.Time) error
}

const errorBuffer = 16

type ViewModel struct {
	store EntryStore
	loop  *dispatch.Loop
	pool  *dispatch.Pool
	log   logging.Logger
	now   func() time.Time

	mu       sync.Mutex
	selected models.Entry
	// gen changes whenever a different entry is selected, so a finished
	// insert only assigns its id to the draft it was started for.
	gen uint64

	// lastCommit is closed when the most recently queued commit finished.
	// Each commit waits for its predecessor, so commits apply in the order
	// they were made and a draft saved twice is inserted once.
	lastCommit chan struct{}

	errs chan error

	obsMu     sync.Mutex
	observers map[*observer]struct{}
	closed    bool
}

// Option customizes a ViewModel.
type Option func(*ViewModel)

// WithClock replaces time.Now, which dates new drafts and seed data.
func WithClock(now func() time.Time) Option {
	return func(vm *ViewModel) { vm.now = now }
}

func New(store EntryStore, loop *dispatch.Loop, pool *dispatch.Pool, log logging.Logger, opts ...Option) *ViewModel {
	vm := &ViewModel{
		store:     store,
		loop:      loop,
		pool:      pool,
		log:       log.With("component", "viewmodel"),
		now:       time.Now,
		selected:  models.Entry{ID: models.DraftID},
		errs:      make(chan error, errorBuffer),
		observers: make(map[*observer]struct{}),
	}
	for _, opt := range opts {
		opt(vm)
	}
	return vm
}

// Selected returns a copy of the selected entry.
func (vm *ViewModel) Selected() models.Entry {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.selected
}

// BeginNewEntry selects an empty draft dated today.
func (vm *ViewModel) BeginNewEntry() {
	vm.selectEntry(models.NewDraft(vm.now()))
}

// SelectExisting selects a copy of a persisted entry.
func (vm *ViewModel) SelectExisting(e models.Entry) {
	vm.selectEntry(e)
}

// SelectByID loads the entry with id in the background and selects it,
// unless another entry was selected while it loaded.
func (vm *ViewModel) SelectByID(id int64) <-chan error {
	vm.mu.Lock()
	gen := vm.gen
	vm.mu.Unlock()

	return vm.submit("select", func(ctx context.Context) error {
		e, err := vm.store.Get(ctx, id)
		if err != nil {
			return err
		}

		vm.mu.Lock()
		defer vm.mu.Unlock()
		if vm.gen != gen {
			vm.log.Debug(ctx, "selection changed while loading, skipped", "id", id)
			return nil
		}
		vm.selected = *e
		vm.gen++
		return nil
	})
}

func (vm *ViewModel) EditTitle(title string) {
	vm.edit(func(e *models.Entry) { e.Title = title })
}

func (vm *ViewModel) EditContent(content string) {
	vm.edit(func(e *models.Entry) { e.Content = content })
}

// EditDate replaces the date without validation; see models.ValidDate.
func (vm *ViewModel) EditDate(date string) {
	vm.edit(func(e *models.Entry) { e.Date = date })
}

// Commit saves the selected entry. Blank title or content are first replaced
// by placeholders. A draft is inserted and, once the store assigns an id,
// the selected draft takes that id; an existing entry is updated. Commits
// reach the store in the order they were made.
func (vm *ViewModel) Commit() <-chan error {
	vm.mu.Lock()
	vm.selected = vm.selected.WithPlaceholders()
	e := vm.selected
	gen := vm.gen
	prev := vm.lastCommit
	done := make(chan struct{})
	vm.lastCommit = done
	vm.mu.Unlock()

	return vm.submit("commit", func(ctx context.Context) error {
		defer close(done)
		if prev != nil {
			select {
			case <-prev:
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		if e.IsDraft() {
			if id, ok := vm.assignedID(gen); ok {
				e.ID = id
			}
		}
		if !e.IsDraft() {
			return vm.store.Update(ctx, e)
		}

		id, err := vm.store.Insert(ctx, e)
		if err != nil {
			return err
		}
		vm.mu.Lock()
		if vm.gen == gen && vm.selected.IsDraft() {
			vm.selected.ID = id
		}
		vm.mu.Unlock()
		return nil
	})
}

// DeleteAll removes every entry in the background.
func (vm *ViewModel) DeleteAll() <-chan error {
	return vm.submit("delete all", vm.store.DeleteAll)
}

// ResetToSeed replaces all entries with the example entries.
func (vm *ViewModel) ResetToSeed() <-chan error {
	return vm.submit("reset", func(ctx context.Context) error {
		return vm.store.ResetToSeed(ctx, vm.now())
	})
}

// Errors publishes faults of background operations. Faults are dropped
// when nobody drains the channel and its buffer is full; they are logged
// either way.
func (vm *ViewModel) Errors() <-chan error { return vm.errs }

// EntriesDescending calls fn on the rendering loop with every snapshot of
// the entries, newest first, until cancel is called.
func (vm *ViewModel) EntriesDescending(fn func([]models.Entry)) (cancel func()) {
	return vm.observe("desc", vm.store.ListDescending, fn)
}

// EntriesAscending is EntriesDescending with oldest entries first.
func (vm *ViewModel) EntriesAscending(fn func([]models.Entry)) (cancel func()) {
	return vm.observe("asc", vm.store.ListAscending, fn)
}

// Close cancels all live listings.
func (vm *ViewModel) Close() {
	vm.obsMu.Lock()
	obs := vm.observers
	vm.observers = make(map[*observer]struct{})
	vm.closed = true
	vm.obsMu.Unlock()

	for o := range obs {
		o.cancel()
	}
}

func (vm *ViewModel) selectEntry(e models.Entry) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	vm.selected = e
	vm.gen++
}

func (vm *ViewModel) edit(fn func(e *models.Entry)) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	fn(&vm.selected)
}

// assignedID returns the id given to the draft of generation gen by an
// earlier commit.
func (vm *ViewModel) assignedID(gen uint64) (int64, bool) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	if vm.gen != gen || vm.selected.IsDraft() {
		return 0, false
	}
	return vm.selected.ID, true
}

func (vm *ViewModel) submit(name string, task dispatch.Task) <-chan error {
	return vm.pool.Submit(name, func(ctx context.Context) error {
		err := task(ctx)
		if err != nil {
			vm.report(ctx, name, err)
		}
		return err
	})
}

func (vm *ViewModel) report(ctx context.Context, op string, err error) {
	vm.log.Error(ctx, "operation failed", "op", op, "err", err)
	select {
	case vm.errs <- err:
	default:
		vm.log.Warn(ctx, "error channel full, dropping error", "op", op)
	}
}

type subscribeFunc func(ctx context.Context) (*live.Subscription[[]models.Entry], error)

// observer tracks one live listing whose subscription is made on the pool.
type observer struct {
	mu        sync.Mutex
	cancelled bool
	stop      func()
}

func (o *observer) cancel() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.cancelled = true
	if o.stop != nil {
		o.stop()
	}
}

func (vm *ViewModel) observe(name string, subscribe subscribeFunc, fn func([]models.Entry)) func() {
	o := &observer{}

	vm.obsMu.Lock()
	if vm.closed {
		vm.obsMu.Unlock()
		return func() {}
	}
	vm.observers[o] = struct{}{}
	vm.obsMu.Unlock()

	vm.submit("subscribe "+name, func(ctx context.Context) error {
		sub, err := subscribe(context.WithoutCancel(ctx))
		if err != nil {
			return err
		}

		o.mu.Lock()
		defer o.mu.Unlock()
		if o.cancelled {
			sub.Close()
			return nil
		}
		o.stop = dispatch.Observe(vm.loop, sub, fn)
		vm.log.Debug(ctx, "listing started", "listing", name, "subscription", sub.ID())
		return nil
	})

	return func() {
		o.cancel()
		vm.obsMu.Lock()
		delete(vm.observers, o)
		vm.obsMu.Unlock()
	}
}

