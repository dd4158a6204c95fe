package workerpool

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sourcegraph/conc/panics"
)

// ErrTimeout is the failure a Future resolves to when its function does not
// return within the configured bound.
var ErrTimeout = errors.New("task timed out")

// PanicError is the failure a Future resolves to when its function panics.
type PanicError struct {
	Recovered *panics.Recovered
}

func (e *PanicError) Error() string { return e.Recovered.String() }

// Unwrap returns the panic value when it was itself an error.
func (e *PanicError) Unwrap() error { return e.Recovered.AsError() }

// Future is a handle to one submitted function. It resolves exactly once,
// to a value or a failure.
type Future[V any] struct {
	done     chan struct{}
	started  chan struct{}
	finished chan struct{}

	once sync.Once
	val  V
	err  error

	startedAt time.Time
	timeout   time.Duration
	cancel    context.CancelCauseFunc
}

// SubmitOption configures a single submission.
type SubmitOption func(*submitOptions)

type submitOptions struct {
	timeout time.Duration
}

// WithTimeout bounds the function's run time, measured from when a worker
// starts it. On expiry the function's context is cancelled and the Future
// resolves to ErrTimeout even if the function ignores cancellation.
func WithTimeout(d time.Duration) SubmitOption {
	return func(o *submitOptions) { o.timeout = d }
}

// Submit schedules fn on ex and returns its handle. ctx scopes the function:
// cancelling it cancels the function's context. The only error is the
// executor refusing the job.
func Submit[V any](ctx context.Context, ex Executor, fn func(ctx context.Context) (V, error), opts ...SubmitOption) (*Future[V], error) {
	var o submitOptions
	for _, opt := range opts {
		opt(&o)
	}

	taskCtx, cancel := context.WithCancelCause(ctx)
	f := &Future[V]{
		done:     make(chan struct{}),
		started:  make(chan struct{}),
		finished: make(chan struct{}),
		timeout:  o.timeout,
		cancel:   cancel,
	}

	err := ex.Execute(func(poolCtx context.Context) {
		finish := func() { close(f.finished) }
		if !AfterJob(poolCtx, finish) {
			defer finish()
		}
		f.run(taskCtx, poolCtx, fn)
	})
	if err != nil {
		cancel(err)
		return nil, err
	}
	return f, nil
}

func (f *Future[V]) run(taskCtx, poolCtx context.Context, fn func(ctx context.Context) (V, error)) {
	runCtx, cancelRun := context.WithCancelCause(taskCtx)
	defer cancelRun(nil)
	stop := context.AfterFunc(poolCtx, func() { cancelRun(ErrPoolClosed) })
	defer stop()

	if f.timeout > 0 {
		var cancelTimeout context.CancelFunc
		runCtx, cancelTimeout = context.WithTimeoutCause(runCtx, f.timeout, ErrTimeout)
		defer cancelTimeout()
	}

	f.startedAt = time.Now()
	close(f.started)

	var zero V
	if runCtx.Err() != nil {
		f.resolve(zero, context.Cause(runCtx))
		return
	}

	var (
		val V
		err error
	)
	if recovered := panics.Try(func() { val, err = fn(runCtx) }); recovered != nil {
		f.resolve(zero, &PanicError{Recovered: recovered})
		return
	}
	if err != nil && runCtx.Err() != nil {
		if cause := context.Cause(runCtx); errors.Is(cause, ErrTimeout) || errors.Is(cause, ErrPoolClosed) {
			err = cause
		}
	}
	f.resolve(val, err)
}

func (f *Future[V]) resolve(val V, err error) {
	f.once.Do(func() {
		f.val, f.err = val, err
		close(f.done)
	})
}

// Wait blocks until the Future resolves, its timeout expires, or ctx is done.
// It returns ctx's error only in the last case; the Future is then untouched
// and may be waited on again.
func (f *Future[V]) Wait(ctx context.Context) error {
	if f.timeout <= 0 {
		select {
		case <-f.done:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	select {
	case <-f.done:
		return nil
	case <-f.started:
	case <-ctx.Done():
		return ctx.Err()
	}

	timer := time.NewTimer(time.Until(f.startedAt.Add(f.timeout)))
	defer timer.Stop()

	select {
	case <-f.done:
	case <-timer.C:
		f.resolve(*new(V), ErrTimeout)
		f.cancel(ErrTimeout)
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

// Result returns the resolved value and failure. It must only be called once
// Done is closed or Wait returned nil.
func (f *Future[V]) Result() (V, error) {
	return f.val, f.err
}

// Await waits for the Future and returns its outcome.
func (f *Future[V]) Await(ctx context.Context) (V, error) {
	if err := f.Wait(ctx); err != nil {
		var zero V
		return zero, err
	}
	return f.Result()
}

// Done is closed once the Future has resolved.
func (f *Future[V]) Done() <-chan struct{} { return f.done }

// Finished is closed once the submitted job has returned on its worker. On a
// Pool it closes only after the pool has stopped counting the job as active.
func (f *Future[V]) Finished() <-chan struct{} { return f.finished }

// Cancel cancels the function's context and resolves the Future to
// context.Canceled if it has not resolved yet.
func (f *Future[V]) Cancel() {
	f.cancel(context.Canceled)
	f.resolve(*new(V), context.Canceled)
}
