package prefetch

import (
	"context"
	"time"

	"github.com/kbukum/prefetchkit/errors"
	"github.com/kbukum/prefetchkit/workerpool"
)

// Source produces keys. Next returns (key, true, nil) for a key and
// (zero, false, nil) once exhausted. An error ends the session.
// pipeline.Iterator and every sampler satisfy Source.
type Source[K any] interface {
	Next(ctx context.Context) (K, bool, error)
}

// cursor draws keys from a Source and latches exhaustion, so a source that
// resumes after reporting exhaustion is never consulted again.
type cursor[K any] struct {
	src       Source[K]
	exhausted bool
}

func (c *cursor[K]) next(ctx context.Context) (K, bool, error) {
	var zero K
	if c.exhausted {
		return zero, false, nil
	}
	key, ok, err := c.src.Next(ctx)
	if err != nil || !ok {
		c.exhausted = true
		return zero, false, err
	}
	return key, true, nil
}

// prime submits the initial window, or fewer tasks if the source runs dry.
func (s *Session[K, V]) prime() error {
	for range s.window {
		submitted, err := s.submitNext()
		if err != nil {
			return s.fail(err)
		}
		if !submitted {
			break
		}
	}
	s.setState(StateSteady)
	return nil
}

// refill submits at most one task. It is a no-op once the source is exhausted
// and while the queue already holds window+1 tasks, which happens only when a
// previous Next returned early on its context.
func (s *Session[K, V]) refill() error {
	if s.cursor.exhausted || s.queue.len() > s.window {
		return nil
	}
	if _, err := s.submitNext(); err != nil {
		return s.fail(err)
	}
	return nil
}

// submitNext draws one key and submits it. submitted is false when the source
// is exhausted.
func (s *Session[K, V]) submitNext() (submitted bool, err error) {
	key, ok, err := s.cursor.next(s.ctx)
	if err != nil {
		return false, errors.SourceFailed(err).WithDetail("position", s.nextPosition)
	}
	if !ok {
		return false, nil
	}

	position := s.nextPosition
	produce := s.loader.produce
	future, err := workerpool.Submit(s.ctx, s.loader.exec, func(ctx context.Context) (V, error) {
		return produce(ctx, key)
	}, s.submitOpts...)
	if err != nil {
		return false, errors.ResourceExhausted("worker pool", err).WithDetail("position", position)
	}

	s.nextPosition++
	s.queue.enqueue(&task[K, V]{
		position:    position,
		key:         key,
		future:      future,
		submittedAt: time.Now(),
	})
	s.submitted.Add(1)
	s.outstanding.Add(1)
	s.loader.metrics.RecordSubmit(s.ctx, s.loader.name)
	return true, nil
}
