// Package app wires configuration, storage, the rendering loop, the
// background pool, the view-model and the command-line client together and
// runs them until the user exits or a termination signal arrives.
package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dmitrijs2005/gophdiary/internal/cli"
	"github.com/dmitrijs2005/gophdiary/internal/config"
	"github.com/dmitrijs2005/gophdiary/internal/dispatch"
	"github.com/dmitrijs2005/gophdiary/internal/logging"
	"github.com/dmitrijs2005/gophdiary/internal/store"
	"github.com/dmitrijs2005/gophdiary/internal/viewmodel"
)

type App struct {
	config *config.Config
	logger logging.Logger
	store  *store.Store
	loop   *dispatch.Loop
	pool   *dispatch.Pool
	vm     *viewmodel.ViewModel
	cli    *cli.App
}

// NewApp opens the store described by c and builds the client reading
// commands from in and printing to out. Logs go to logOut.
func NewApp(ctx context.Context, c *config.Config, in io.Reader, out, logOut io.Writer) (*App, error) {
	logger, err := logging.New(logOut, logging.Options{
		Backend: c.LogBackend,
		Level:   c.LogLevel,
		Format:  c.LogFormat,
	})
	if err != nil {
		return nil, fmt.Errorf("logger init error: %w", err)
	}

	s, err := store.Open(ctx, c, logger, time.Now())
	if err != nil {
		return nil, fmt.Errorf("store init error: %w", err)
	}

	loop := dispatch.NewLoop()
	pool := dispatch.NewPool(c.Workers, c.QueryTimeout, logger)
	vm := viewmodel.New(s, loop, pool, logger)

	return &App{
		config: c,
		logger: logger,
		store:  s,
		loop:   loop,
		pool:   pool,
		vm:     vm,
		cli:    cli.NewApp(vm, loop, logger, in, out),
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run owns the calling goroutine as the rendering loop until the client
// exits or ctx is done, then releases every resource.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.initSignalHandler(cancelFunc)
	app.logger.Info(ctx, "starting diary", "driver", app.config.DatabaseDriver)

	go func() {
		app.cli.Run(ctx)
		app.loop.Stop()
	}()

	app.loop.Run(ctx)
	return app.close(ctx)
}

func (app *App) close(ctx context.Context) error {
	app.vm.Close()
	if err := app.pool.Close(); err != nil {
		app.logger.Error(ctx, "background pool", "err", err)
	}
	if err := app.store.Close(); err != nil {
		return fmt.Errorf("store close error: %w", err)
	}
	app.logger.Info(ctx, "diary stopped")
	return nil
}
