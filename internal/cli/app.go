package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/dmitrijs2005/gophdiary/internal/common"
	"github.com/dmitrijs2005/gophdiary/internal/dispatch"
	"github.com/dmitrijs2005/gophdiary/internal/logging"
	"github.com/dmitrijs2005/gophdiary/internal/models"
	"github.com/dmitrijs2005/gophdiary/internal/viewmodel"
)

var errLoopStopped = errors.New("rendering loop stopped")

type App struct {
	vm     *viewmodel.ViewModel
	loop   *dispatch.Loop
	log    logging.Logger
	reader *bufio.Reader
	out    io.Writer

	interactive bool

	mu      sync.Mutex
	listing *listing
}

// listing is one live view of the entries. entries is only touched on the
// loop; ready is closed once the first snapshot arrived there.
type listing struct {
	order   models.Order
	entries []models.Entry
	ready   chan struct{}
	once    sync.Once
	cancel  func()
}

func NewApp(vm *viewmodel.ViewModel, loop *dispatch.Loop, log logging.Logger, in io.Reader, out io.Writer) *App {
	return &App{
		vm:          vm,
		loop:        loop,
		log:         log.With("component", "cli"),
		reader:      bufio.NewReader(in),
		out:         &lockedWriter{w: out},
		interactive: isInteractive(in),
	}
}

// Run starts the live listing and the REPL and blocks until the user exits,
// the input ends or ctx is done.
func (a *App) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	a.watch(models.Descending)
	defer a.stopWatching()

	go a.reportErrors(ctx)

	a.printf("Diary (type 'help' for commands)\n")
	runREPL(ctx, a, a.prompt, a.reader, a.out)
}

func (a *App) prompt() string {
	if !a.interactive {
		return ""
	}
	sel := a.vm.Selected()
	if sel.IsDraft() {
		return "diary (new)> "
	}
	return fmt.Sprintf("diary #%d> ", sel.ID)
}

// watch replaces the live listing with one in the given order.
func (a *App) watch(order models.Order) {
	l := &listing{order: order, ready: make(chan struct{})}
	fn := func(es []models.Entry) {
		l.entries = es
		l.once.Do(func() { close(l.ready) })
	}
	if order == models.Ascending {
		l.cancel = a.vm.EntriesAscending(fn)
	} else {
		l.cancel = a.vm.EntriesDescending(fn)
	}

	a.mu.Lock()
	prev := a.listing
	a.listing = l
	a.mu.Unlock()

	if prev != nil {
		prev.cancel()
	}
}

// refresh restarts the live listing in its current order. The first snapshot
// of the new subscription is loaded after every mutation that has already
// finished, so a following List shows their effect.
func (a *App) refresh() {
	if l := a.current(); l != nil {
		a.watch(l.order)
	}
}

func (a *App) stopWatching() {
	a.mu.Lock()
	l := a.listing
	a.listing = nil
	a.mu.Unlock()
	if l != nil {
		l.cancel()
	}
}

func (a *App) current() *listing {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.listing
}

// onLoop runs fn on the rendering loop and waits for it.
func (a *App) onLoop(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	if !a.loop.Post(func() {
		defer close(done)
		fn()
	}) {
		return errLoopStopped
	}
	select {
	case <-done:
		return nil
	case <-a.loop.Done():
		return errLoopStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (a *App) reportErrors(ctx context.Context) {
	for {
		select {
		case err := <-a.vm.Errors():
			a.printf("error: %s\n", describe(err))
		case <-ctx.Done():
			return
		}
	}
}

func describe(err error) string {
	switch {
	case errors.Is(err, common.ErrorNotFound):
		return "no such entry"
	case errors.Is(err, common.ErrStorageFault):
		return "storage failure: " + err.Error()
	default:
		return err.Error()
	}
}

func (a *App) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}

type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}
