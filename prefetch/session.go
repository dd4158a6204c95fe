package prefetch

import (
	"context"
	stderrors "errors"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/prefetchkit/errors"
	"github.com/kbukum/prefetchkit/logger"
	"github.com/kbukum/prefetchkit/observability"
	"github.com/kbukum/prefetchkit/workerpool"
)

// Session is one pass over a key source. It is not safe for concurrent use:
// Next and Close must be called from one goroutine at a time. Stats may be
// read from anywhere.
//
// Session satisfies pipeline.Iterator.
type Session[K, V any] struct {
	id     string
	loader *Loader[K, V]
	ctx    context.Context
	cancel context.CancelFunc
	span   trace.Span
	log    *logger.Logger

	cursor       cursor[K]
	queue        taskQueue[K, V]
	window       int
	nextPosition int
	submitOpts   []workerpool.SubmitOption
	fatal        error
	endOnce      sync.Once
	ended        []func()

	state       atomic.Int32
	submitted   atomic.Int64
	retrieved   atomic.Int64
	failed      atomic.Int64
	outstanding atomic.Int64
}

// Stats is a point-in-time snapshot of a session.
type Stats struct {
	SessionID   string `json:"session_id"`
	State       string `json:"state"`
	Window      int    `json:"window"`
	Submitted   int64  `json:"submitted"`
	Retrieved   int64  `json:"retrieved"`
	Failed      int64  `json:"failed"`
	Outstanding int64  `json:"outstanding"`
}

// ID returns the session's unique identifier.
func (s *Session[K, V]) ID() string { return s.id }

// State returns the current lifecycle state.
func (s *Session[K, V]) State() State { return State(s.state.Load()) }

func (s *Session[K, V]) setState(st State) { s.state.Store(int32(st)) }

// Outstanding returns the number of submitted tasks not yet retrieved.
func (s *Session[K, V]) Outstanding() int { return int(s.outstanding.Load()) }

// Position returns the zero-based stream position of the next result.
func (s *Session[K, V]) Position() int { return int(s.retrieved.Load()) }

// Stats returns a snapshot of the session counters.
func (s *Session[K, V]) Stats() Stats {
	return Stats{
		SessionID:   s.id,
		State:       s.State().String(),
		Window:      s.window,
		Submitted:   s.submitted.Load(),
		Retrieved:   s.retrieved.Load(),
		Failed:      s.failed.Load(),
		Outstanding: s.outstanding.Load(),
	}
}

// Next tops up the window by one key, then waits for the oldest outstanding
// task and returns its result.
//
// It returns (item, true, nil) for a produced item and (zero, false, nil) once
// the stream is exhausted, and keeps returning that. An item failure returns
// (zero, false, err) with IsItemFailure(err) true; the session stays usable
// and the next call continues at the following position. If ctx is done while
// waiting, Next returns ctx's error and the oldest task stays queued.
func (s *Session[K, V]) Next(ctx context.Context) (V, bool, error) {
	var zero V
	switch s.State() {
	case StateClosed:
		return zero, false, errors.SessionClosed()
	case StateFailed:
		return zero, false, s.fatal
	case StateDone:
		return zero, false, nil
	}

	if err := s.refill(); err != nil {
		return zero, false, err
	}

	head, ok := s.queue.peek()
	if !ok {
		s.finish()
		return zero, false, nil
	}
	if s.cursor.exhausted {
		s.setState(StateDraining)
	}

	start := time.Now()
	if err := head.future.Wait(ctx); err != nil {
		return zero, false, err
	}
	s.loader.metrics.RecordWait(s.ctx, s.loader.name, time.Since(start))

	s.queue.dequeueOldest()
	s.outstanding.Add(-1)
	s.retrieved.Add(1)

	val, err := head.future.Result()
	if err != nil {
		s.failed.Add(1)
		itemErr, status := s.itemError(head, err)
		s.loader.metrics.RecordComplete(s.ctx, s.loader.name, status)
		s.log.Debug("item failed", logger.MergeWithError(logger.Fields(
			logger.FieldPosition, head.position,
		), err))
		return zero, false, itemErr
	}

	s.loader.metrics.RecordComplete(s.ctx, s.loader.name, observability.StatusOK)
	return val, true, nil
}

// itemError converts a task failure into the error returned for its position.
func (s *Session[K, V]) itemError(t *task[K, V], err error) (*errors.AppError, string) {
	var panicErr *workerpool.PanicError
	switch {
	case stderrors.Is(err, workerpool.ErrTimeout):
		return errors.TaskTimeout(t.position, s.loader.cfg.TaskTimeout).
			WithCause(err).WithDetail("key", t.key), observability.StatusTimeout
	case stderrors.As(err, &panicErr):
		return errors.ItemFailed(t.position, errors.Panic(panicErr.Recovered.Value, panicErr)).
			WithDetail("key", t.key), observability.StatusFailed
	case stderrors.Is(err, context.Canceled):
		return errors.ItemFailed(t.position, err).WithDetail("key", t.key), observability.StatusCancelled
	default:
		return errors.ItemFailed(t.position, err).WithDetail("key", t.key), observability.StatusFailed
	}
}

// Close abandons the session. Every outstanding task is cancelled and Close
// waits until each has left its worker, so it blocks for as long as a
// producer ignores its context. Later calls to Next return a SESSION_CLOSED
// error. Close is idempotent. CloseContext bounds the wait.
func (s *Session[K, V]) Close() error {
	return s.CloseContext(context.Background())
}

// CloseContext is Close, except that it stops waiting for cancelled tasks
// once ctx is done and returns ctx's error. The session is closed either
// way; tasks still running stay counted in Stats().Outstanding and free
// their workers when their producers return.
func (s *Session[K, V]) CloseContext(ctx context.Context) error {
	if s.State() == StateClosed {
		return nil
	}

	released, err := s.release(ctx)
	s.cancel()
	s.setState(StateClosed)

	if err != nil {
		s.log.Warn("session closed before its tasks finished", logger.MergeWithError(logger.Fields(
			logger.FieldPosition, s.Position(),
			"released", released,
			"outstanding", s.Outstanding(),
		), err))
	} else if released > 0 {
		s.log.Debug("session abandoned", logger.Fields(
			logger.FieldPosition, s.Position(),
			"released", released,
		))
	}
	s.end(nil)
	return err
}

// finish marks the stream exhausted.
func (s *Session[K, V]) finish() {
	s.setState(StateDone)
	s.cancel()
	s.log.Debug("session exhausted", logger.Fields("retrieved", s.retrieved.Load()))
	s.end(nil)
}

// fail ends the session with a fatal error and returns it.
func (s *Session[K, V]) fail(err error) error {
	s.fatal = err
	_, _ = s.release(context.Background())
	s.cancel()
	s.setState(StateFailed)

	s.log.Error("session failed", logger.MergeWithError(logger.Fields(
		logger.FieldPosition, s.Position(),
	), err))
	s.end(err)
	return err
}

// release cancels every outstanding task and waits, until ctx is done, for
// each to finish on its worker. It returns the number of tasks that finished.
func (s *Session[K, V]) release(ctx context.Context) (int, error) {
	pending := s.queue.drain()
	for _, t := range pending {
		t.future.Cancel()
	}
	for i, t := range pending {
		select {
		case <-t.future.Finished():
		case <-ctx.Done():
			return i, ctx.Err()
		}
		s.outstanding.Add(-1)
		s.loader.metrics.RecordComplete(s.ctx, s.loader.name, observability.StatusCancelled)
	}
	return len(pending), nil
}

func (s *Session[K, V]) end(err error) {
	s.endOnce.Do(func() {
		s.span.SetAttributes(
			attribute.Int64(observability.AttrSubmitted, s.submitted.Load()),
			attribute.Int64(observability.AttrRetrieved, s.retrieved.Load()),
			attribute.Int64(observability.AttrFailed, s.failed.Load()),
			attribute.String(observability.AttrTerminalState, s.State().String()),
		)
		if err != nil {
			s.span.RecordError(err)
			s.span.SetStatus(codes.Error, err.Error())
		}
		s.span.End()
		for _, fn := range s.ended {
			fn()
		}
	})
}
