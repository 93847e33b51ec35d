package dispatch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophdiary/internal/common"
	"github.com/dmitrijs2005/gophdiary/internal/logging"
	"golang.org/x/sync/errgroup"
)

// Task is a unit of background work.
type Task func(ctx context.Context) error

type job struct {
	name   string
	task   Task
	result chan error
}

// Pool runs tasks on a fixed number of workers fed by an unbounded queue.
type Pool struct {
	log     logging.Logger
	timeout time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	g      *errgroup.Group

	mu     sync.Mutex
	cond   *sync.Cond
	queue  []job
	closed bool
}

// NewPool starts workers goroutines. A positive timeout bounds every task.
func NewPool(workers int, timeout time.Duration, log logging.Logger) *Pool {
	if workers < 1 {
		workers = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	g, ctx := errgroup.WithContext(ctx)

	p := &Pool{
		log:     log.With("component", "pool"),
		timeout: timeout,
		ctx:     ctx,
		cancel:  cancel,
		g:       g,
	}
	p.cond = sync.NewCond(&p.mu)

	for i := 0; i < workers; i++ {
		g.Go(p.work)
	}
	return p
}

// Submit queues task and returns a channel that receives its error (nil on
// success). The caller may ignore the channel. After Close the channel
// yields common.ErrClosed.
func (p *Pool) Submit(name string, task Task) <-chan error {
	result := make(chan error, 1)

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		result <- common.ErrClosed
		close(result)
		return result
	}
	p.queue = append(p.queue, job{name: name, task: task, result: result})
	p.mu.Unlock()
	p.cond.Signal()

	return result
}

// Close stops accepting tasks, lets queued tasks finish and waits for the workers.
func (p *Pool) Close() error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	p.cond.Broadcast()

	err := p.g.Wait()
	p.cancel()
	return err
}

func (p *Pool) work() error {
	for {
		j, ok := p.next()
		if !ok {
			return nil
		}
		p.run(j)
	}
}

func (p *Pool) next() (job, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for len(p.queue) == 0 && !p.closed {
		p.cond.Wait()
	}
	if len(p.queue) == 0 {
		return job{}, false
	}
	j := p.queue[0]
	p.queue[0] = job{}
	p.queue = p.queue[1:]
	return j, true
}

func (p *Pool) run(j job) {
	ctx := p.ctx
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	err := p.safeRun(ctx, j)
	if err != nil {
		p.log.Error(ctx, "background task failed", "task", j.name, "err", err)
	}
	j.result <- err
	close(j.result)
}

func (p *Pool) safeRun(ctx context.Context, j job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task %s panicked: %v", j.name, r)
		}
	}()
	return j.task(ctx)
}
