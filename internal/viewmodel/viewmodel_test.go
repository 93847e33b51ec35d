package viewmodel

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophdiary/internal/common"
	"github.com/dmitrijs2005/gophdiary/internal/config"
	"github.com/dmitrijs2005/gophdiary/internal/dispatch"
	"github.com/dmitrijs2005/gophdiary/internal/live"
	"github.com/dmitrijs2005/gophdiary/internal/logging"
	"github.com/dmitrijs2005/gophdiary/internal/models"
	"github.com/dmitrijs2005/gophdiary/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var today = time.Date(2025, 6, 1, 9, 0, 0, 0, time.Local)

type harness struct {
	vm    *ViewModel
	store *store.Store
	loop  *dispatch.Loop
}

func newHarness(t *testing.T, seed bool) *harness {
	t.Helper()
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.DatabaseDSN = filepath.Join(t.TempDir(), "diary.db")
	cfg.SeedOnCreate = seed

	s, err := store.Open(context.Background(), cfg, logging.Nop(), today)
	require.NoError(t, err)

	loop := dispatch.NewLoop()
	done := make(chan struct{})
	go func() {
		loop.Run(context.Background())
		close(done)
	}()

	pool := dispatch.NewPool(2, time.Second, logging.Nop())
	vm := New(s, loop, pool, logging.Nop(), WithClock(func() time.Time { return today }))

	t.Cleanup(func() {
		vm.Close()
		_ = pool.Close()
		loop.Stop()
		<-done
		_ = s.Close()
	})
	return &harness{vm: vm, store: s, loop: loop}
}

// snapshots collects listing callbacks; it is written on the loop only.
type snapshots struct {
	mu   sync.Mutex
	all  [][]models.Entry
	seen chan struct{}
}

func newSnapshots() *snapshots {
	return &snapshots{seen: make(chan struct{}, 64)}
}

func (s *snapshots) add(es []models.Entry) {
	s.mu.Lock()
	s.all = append(s.all, es)
	s.mu.Unlock()
	s.seen <- struct{}{}
}

func (s *snapshots) last() ([]models.Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.all) == 0 {
		return nil, false
	}
	return s.all[len(s.all)-1], true
}

// waitFor blocks until a delivered snapshot satisfies ok.
func (s *snapshots) waitFor(t *testing.T, ok func([]models.Entry) bool) []models.Entry {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		last, have := s.last()
		if have && ok(last) {
			return last
		}
		select {
		case <-s.seen:
		case <-deadline:
			t.Fatalf("no matching snapshot, last: %+v", last)
		}
	}
}

func await(t *testing.T, ch <-chan error) error {
	t.Helper()
	select {
	case err := <-ch:
		return err
	case <-time.After(3 * time.Second):
		t.Fatal("background operation did not finish")
		return nil
	}
}

func titles(es []models.Entry) []string {
	out := make([]string, len(es))
	for i, e := range es {
		out[i] = e.Title
	}
	return out
}

func TestDefaultSelectionIsEmptyDraft(t *testing.T) {
	h := newHarness(t, false)
	assert.Equal(t, models.Entry{ID: models.DraftID}, h.vm.Selected())
}

func TestBeginNewEntryAndEdits(t *testing.T) {
	h := newHarness(t, false)

	h.vm.BeginNewEntry()
	assert.Equal(t, models.Entry{ID: models.DraftID, Date: "2025-06-01"}, h.vm.Selected())

	h.vm.EditTitle("Walk")
	h.vm.EditContent("Went to the park")
	h.vm.EditDate("2025-05-31")
	assert.Equal(t, models.Entry{ID: models.DraftID, Title: "Walk", Content: "Went to the park", Date: "2025-05-31"}, h.vm.Selected())
}

func TestSelectExisting_EditsDoNotTouchStore(t *testing.T) {
	h := newHarness(t, false)
	id, err := h.store.Insert(context.Background(), models.Entry{Title: "kept", Content: "c", Date: "2025-01-01"})
	require.NoError(t, err)

	h.vm.SelectExisting(models.Entry{ID: id, Title: "kept", Content: "c", Date: "2025-01-01"})
	h.vm.EditTitle("changed")
	assert.Equal(t, id, h.vm.Selected().ID)

	e, err := h.store.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "kept", e.Title)
}

func TestCommit_DraftIsInsertedWithPlaceholders(t *testing.T) {
	h := newHarness(t, false)
	snaps := newSnapshots()
	cancel := h.vm.EntriesDescending(snaps.add)
	defer cancel()

	h.vm.BeginNewEntry()
	h.vm.EditDate("2025-06-01")
	require.NoError(t, await(t, h.vm.Commit()))

	sel := h.vm.Selected()
	require.False(t, sel.IsDraft(), "draft takes the assigned id")
	assert.Equal(t, "no title", sel.Title)
	assert.Equal(t, "entry is empty", sel.Content)

	got := snaps.waitFor(t, func(es []models.Entry) bool { return len(es) == 1 })
	assert.Equal(t, sel, got[0])
}

func TestCommit_ExistingEntryIsUpdated(t *testing.T) {
	h := newHarness(t, false)
	h.vm.BeginNewEntry()
	h.vm.EditTitle("first")
	h.vm.EditContent("body")
	require.NoError(t, await(t, h.vm.Commit()))
	id := h.vm.Selected().ID

	h.vm.EditTitle("second")
	require.NoError(t, await(t, h.vm.Commit()))
	require.NoError(t, await(t, h.vm.Commit()))

	e, err := h.store.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, models.Entry{ID: id, Title: "second", Content: "body", Date: "2025-06-01"}, *e)
}

func TestCommit_DraftSavedTwiceBeforeCompletionIsInsertedOnce(t *testing.T) {
	h := newHarness(t, false)
	ctx := context.Background()

	const rounds = 50
	for i := 0; i < rounds; i++ {
		h.vm.BeginNewEntry()
		h.vm.EditTitle("v1")
		first := h.vm.Commit()
		h.vm.EditTitle("v2")
		second := h.vm.Commit()

		require.NoError(t, await(t, first))
		require.NoError(t, await(t, second))

		e, err := h.store.Get(ctx, h.vm.Selected().ID)
		require.NoError(t, err)
		require.Equal(t, "v2", e.Title, "round %d: the later save wins", i)
	}

	sub, err := h.store.ListAscending(ctx)
	require.NoError(t, err)
	defer sub.Close()
	assert.Len(t, <-sub.C(), rounds)
}

func TestCommit_AppliesInCallOrder(t *testing.T) {
	h := newHarness(t, false)
	fs := newFakeStore()
	fs.insertGate = make(chan struct{})
	h.vm.store = fs

	h.vm.BeginNewEntry()
	h.vm.EditTitle("v1")
	first := h.vm.Commit()
	h.vm.EditTitle("v2")
	second := h.vm.Commit()
	h.vm.EditTitle("v3")
	third := h.vm.Commit()

	// Let later commits reach the pool while the first insert is stuck.
	time.Sleep(20 * time.Millisecond)
	close(fs.insertGate)

	require.NoError(t, await(t, first))
	require.NoError(t, await(t, second))
	require.NoError(t, await(t, third))

	fs.mu.Lock()
	defer fs.mu.Unlock()
	require.Len(t, fs.rows, 1)
	assert.Equal(t, "v3", fs.rows[0].Title)
	assert.Equal(t, []string{"insert v1", "update v2", "update v3"}, fs.ops)
}

func TestCommit_IDNotAssignedToNewerSelection(t *testing.T) {
	h := newHarness(t, false)
	fs := newFakeStore()
	fs.insertGate = make(chan struct{})
	h.vm.store = fs

	h.vm.BeginNewEntry()
	h.vm.EditTitle("old draft")
	pending := h.vm.Commit()

	h.vm.BeginNewEntry()
	h.vm.EditTitle("new draft")
	close(fs.insertGate)
	require.NoError(t, await(t, pending))

	sel := h.vm.Selected()
	assert.True(t, sel.IsDraft())
	assert.Equal(t, "new draft", sel.Title)
}

func TestListings_OrderAndLiveUpdates(t *testing.T) {
	h := newHarness(t, false)
	desc := newSnapshots()
	asc := newSnapshots()
	defer h.vm.EntriesDescending(desc.add)()
	defer h.vm.EntriesAscending(asc.add)()

	for _, e := range []models.Entry{
		{Title: "A", Content: "x", Date: "2025-01-01"},
		{Title: "B", Content: "y", Date: "2025-01-03"},
		{Title: "C", Content: "z", Date: "2025-01-02"},
	} {
		h.vm.SelectExisting(models.Entry{ID: models.DraftID, Title: e.Title, Content: e.Content, Date: e.Date})
		require.NoError(t, await(t, h.vm.Commit()))
	}

	got := desc.waitFor(t, func(es []models.Entry) bool { return len(es) == 3 })
	assert.Equal(t, []string{"B", "C", "A"}, titles(got))
	got = asc.waitFor(t, func(es []models.Entry) bool { return len(es) == 3 })
	assert.Equal(t, []string{"A", "C", "B"}, titles(got))

	require.NoError(t, await(t, h.vm.DeleteAll()))
	desc.waitFor(t, func(es []models.Entry) bool { return len(es) == 0 })
}

func TestListings_CallbacksRunOnLoop(t *testing.T) {
	h := newHarness(t, true)

	// A value only ever touched from the loop: if callbacks ran elsewhere the
	// race detector would flag the unsynchronized access.
	var rendered []models.Entry
	got := make(chan int, 8)
	defer h.vm.EntriesDescending(func(es []models.Entry) {
		rendered = es
		got <- len(rendered)
	})()

	select {
	case n := <-got:
		assert.Equal(t, 3, n)
	case <-time.After(3 * time.Second):
		t.Fatal("no snapshot")
	}

	checked := make(chan int)
	h.loop.Post(func() { checked <- len(rendered) })
	assert.Equal(t, 3, <-checked)
}

func TestListings_CancelStopsDelivery(t *testing.T) {
	h := newHarness(t, false)
	snaps := newSnapshots()
	cancel := h.vm.EntriesDescending(snaps.add)
	snaps.waitFor(t, func(es []models.Entry) bool { return len(es) == 0 })
	cancel()

	_, err := h.store.Insert(context.Background(), models.Entry{Title: "unseen", Date: "2025-01-01"})
	require.NoError(t, err)

	flushed := make(chan struct{})
	h.loop.Post(func() { close(flushed) })
	<-flushed
	last, _ := snaps.last()
	assert.Empty(t, last)
}

func TestSelectByID(t *testing.T) {
	h := newHarness(t, false)
	id, err := h.store.Insert(context.Background(), models.Entry{Title: "find me", Content: "c", Date: "2025-01-01"})
	require.NoError(t, err)

	require.NoError(t, await(t, h.vm.SelectByID(id)))
	assert.Equal(t, models.Entry{ID: id, Title: "find me", Content: "c", Date: "2025-01-01"}, h.vm.Selected())

	err = await(t, h.vm.SelectByID(id+100))
	require.ErrorIs(t, err, common.ErrorNotFound)
	assert.ErrorIs(t, <-h.vm.Errors(), common.ErrorNotFound)
}

func TestSelectByID_SkippedWhenSelectionChanged(t *testing.T) {
	h := newHarness(t, false)
	fs := newFakeStore()
	h.vm.store = fs
	id, err := fs.Insert(context.Background(), models.Entry{Title: "slow", Content: "c", Date: "2025-01-01"})
	require.NoError(t, err)

	fs.getGate = make(chan struct{})
	pending := h.vm.SelectByID(id)
	h.vm.BeginNewEntry()
	h.vm.EditTitle("typed meanwhile")
	close(fs.getGate)

	require.NoError(t, await(t, pending))
	sel := h.vm.Selected()
	assert.True(t, sel.IsDraft())
	assert.Equal(t, "typed meanwhile", sel.Title)
}

func TestResetToSeed(t *testing.T) {
	h := newHarness(t, false)
	snaps := newSnapshots()
	defer h.vm.EntriesDescending(snaps.add)()

	require.NoError(t, await(t, h.vm.ResetToSeed()))
	got := snaps.waitFor(t, func(es []models.Entry) bool { return len(es) == 3 })
	assert.Equal(t, "2025-06-01", got[0].Date)
	assert.Equal(t, "2025-05-30", got[2].Date)
}

func TestCommit_StorageFaultIsReported(t *testing.T) {
	h := newHarness(t, false)
	fs := newFakeStore()
	fs.insertErr = common.NewStorageFault("insert", assert.AnError)
	h.vm.store = fs

	h.vm.BeginNewEntry()
	err := await(t, h.vm.Commit())
	require.ErrorIs(t, err, common.ErrStorageFault)

	select {
	case reported := <-h.vm.Errors():
		assert.ErrorIs(t, reported, common.ErrStorageFault)
	case <-time.After(time.Second):
		t.Fatal("fault not published")
	}
	assert.True(t, h.vm.Selected().IsDraft(), "failed insert leaves the draft unsaved")
}

func TestErrors_DropWhenBufferFull(t *testing.T) {
	h := newHarness(t, false)
	fs := newFakeStore()
	fs.updateErr = common.NewStorageFault("update", assert.AnError)
	h.vm.store = fs
	h.vm.SelectExisting(models.Entry{ID: 1, Title: "t", Content: "c", Date: "2025-01-01"})

	for i := 0; i < errorBuffer+4; i++ {
		require.Error(t, await(t, h.vm.Commit()))
	}
	assert.Len(t, h.vm.Errors(), errorBuffer)
}

func TestClose_CancelsListings(t *testing.T) {
	h := newHarness(t, false)
	fs := newFakeStore()
	h.vm.store = fs

	snaps := newSnapshots()
	h.vm.EntriesDescending(snaps.add)
	snaps.waitFor(t, func(es []models.Entry) bool { return true })

	h.vm.Close()
	assert.Eventually(t, func() bool { return fs.desc.Subscribers() == 0 }, time.Second, 10*time.Millisecond)

	cancel := h.vm.EntriesAscending(snaps.add)
	cancel()
}

// fakeStore is an in-memory EntryStore with injectable failures.
type fakeStore struct {
	mu     sync.Mutex
	nextID int64
	rows   []models.Entry

	insertErr  error
	updateErr  error
	insertGate chan struct{}
	getGate    chan struct{}

	// ops records successful writes as "insert <title>" or "update <title>".
	ops []string

	desc *live.Query[[]models.Entry]
	asc  *live.Query[[]models.Entry]
}

func newFakeStore() *fakeStore {
	fs := &fakeStore{nextID: 1}
	fs.desc = live.NewQuery("desc", fs.list(models.Descending), logging.Nop())
	fs.asc = live.NewQuery("asc", fs.list(models.Ascending), logging.Nop())
	return fs
}

func (f *fakeStore) list(order models.Order) live.Loader[[]models.Entry] {
	return func(context.Context) ([]models.Entry, error) {
		f.mu.Lock()
		defer f.mu.Unlock()
		out := append([]models.Entry{}, f.rows...)
		models.SortByDate(out, order)
		return out, nil
	}
}

func (f *fakeStore) changed() {
	_ = f.desc.Invalidate(context.Background())
	_ = f.asc.Invalidate(context.Background())
}

func (f *fakeStore) ListDescending(ctx context.Context) (*live.Subscription[[]models.Entry], error) {
	return f.desc.Subscribe(ctx)
}

func (f *fakeStore) ListAscending(ctx context.Context) (*live.Subscription[[]models.Entry], error) {
	return f.asc.Subscribe(ctx)
}

func (f *fakeStore) Insert(ctx context.Context, e models.Entry) (int64, error) {
	if f.insertGate != nil {
		<-f.insertGate
	}
	if f.insertErr != nil {
		return 0, f.insertErr
	}
	f.mu.Lock()
	e.ID = f.nextID
	f.nextID++
	f.rows = append(f.rows, e)
	f.ops = append(f.ops, "insert "+e.Title)
	f.mu.Unlock()
	f.changed()
	return e.ID, nil
}

func (f *fakeStore) Update(ctx context.Context, e models.Entry) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.rows {
		if f.rows[i].ID == e.ID {
			f.rows[i] = e
			f.ops = append(f.ops, "update "+e.Title)
			return nil
		}
	}
	return common.ErrorNotFound
}

func (f *fakeStore) Get(ctx context.Context, id int64) (*models.Entry, error) {
	if f.getGate != nil {
		<-f.getGate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.rows {
		if e.ID == id {
			return &e, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeStore) DeleteAll(ctx context.Context) error {
	f.mu.Lock()
	f.rows = nil
	f.mu.Unlock()
	f.changed()
	return nil
}

func (f *fakeStore) ResetToSeed(ctx context.Context, now time.Time) error {
	return f.DeleteAll(ctx)
}
