package workerpool

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/sourcegraph/conc/panics"
)

// ErrPoolClosed is returned by Execute after Close or Shutdown has been called.
var ErrPoolClosed = errors.New("worker pool is closed")

// Job is a unit of work run by a worker. ctx is cancelled when the pool closes.
type Job func(ctx context.Context)

// Executor is the capability consumers depend on: accept a job without
// blocking, and report how many accepted jobs have not finished yet.
type Executor interface {
	Execute(job Job) error
	Active() int
}

// Config configures a Pool.
type Config struct {
	// Name identifies this pool for metrics/logging.
	Name string
	// Workers is the number of goroutines running jobs. Defaults to 1.
	Workers int
	// OnSubmit is called when a job is accepted.
	OnSubmit func(name string)
	// OnStart is called when a worker picks up a job.
	OnStart func(name string)
	// OnFinish is called when a job returns.
	OnFinish func(name string)
	// OnPanic is called when a raw job panics. Jobs created by Submit recover
	// their own panics and never reach this hook.
	OnPanic func(name string, recovered *panics.Recovered)
}

// Pool is a fixed-size worker pool with an unbounded FIFO admission queue.
type Pool struct {
	config Config

	mu     sync.Mutex
	cond   *sync.Cond
	queue  []Job
	closed bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	active  atomic.Int64
	running atomic.Int64
}

// New creates a pool and starts its workers.
func New(config Config) *Pool {
	if config.Workers <= 0 {
		config.Workers = 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{
		config: config,
		ctx:    ctx,
		cancel: cancel,
	}
	p.cond = sync.NewCond(&p.mu)

	p.wg.Add(config.Workers)
	for range config.Workers {
		go p.worker()
	}
	return p
}

// Execute enqueues job. It never blocks; it fails only once the pool is closed.
func (p *Pool) Execute(job Job) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrPoolClosed
	}
	p.queue = append(p.queue, job)
	p.active.Add(1)
	p.mu.Unlock()
	p.cond.Signal()

	if p.config.OnSubmit != nil {
		p.config.OnSubmit(p.config.Name)
	}
	return nil
}

// Active returns the number of accepted jobs that have not finished,
// queued and running alike.
func (p *Pool) Active() int {
	return int(p.active.Load())
}

// Running returns the number of jobs currently executing on a worker.
func (p *Pool) Running() int {
	return int(p.running.Load())
}

// Workers returns the configured number of workers.
func (p *Pool) Workers() int {
	return p.config.Workers
}

// Close stops admission, cancels the job context and waits for every worker
// to exit. Queued jobs still run, with a cancelled context, so that every
// handle resolves. Close is idempotent.
func (p *Pool) Close() error {
	p.stopAdmission()
	p.cancel()
	p.wg.Wait()
	return nil
}

// Shutdown stops admission and lets queued jobs run with a live context until
// ctx is done, at which point it falls back to Close.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.stopAdmission()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.cancel()
		return nil
	case <-ctx.Done():
		p.cancel()
		<-done
		return ctx.Err()
	}
}

func (p *Pool) stopAdmission() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	p.cond.Broadcast()
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for {
		p.mu.Lock()
		for len(p.queue) == 0 && !p.closed {
			p.cond.Wait()
		}
		if len(p.queue) == 0 {
			p.mu.Unlock()
			return
		}
		job := p.queue[0]
		p.queue[0] = nil
		p.queue = p.queue[1:]
		p.mu.Unlock()

		p.run(job)
	}
}

func (p *Pool) run(job Job) {
	p.running.Add(1)
	if p.config.OnStart != nil {
		p.config.OnStart(p.config.Name)
	}

	after := &afterJob{}
	recovered := panics.Try(func() { job(context.WithValue(p.ctx, afterJobKey{}, after)) })

	p.running.Add(-1)
	p.active.Add(-1)
	if recovered != nil && p.config.OnPanic != nil {
		p.config.OnPanic(p.config.Name, recovered)
	}
	if p.config.OnFinish != nil {
		p.config.OnFinish(p.config.Name)
	}
	for _, fn := range after.fns {
		fn()
	}
}

type afterJobKey struct{}

type afterJob struct {
	fns []func()
}

// AfterJob registers fn to run once the worker has finished the current job
// and no longer counts it in Active or Running. ctx must be the context the
// job was called with. It reports false, registering nothing, when ctx did
// not come from a Pool worker; the caller then runs fn itself.
func AfterJob(ctx context.Context, fn func()) bool {
	after, ok := ctx.Value(afterJobKey{}).(*afterJob)
	if !ok {
		return false
	}
	after.fns = append(after.fns, fn)
	return true
}
