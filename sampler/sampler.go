package sampler

import (
	"context"
)

// Sampler is an ordered source of keys.
type Sampler[K any] interface {
	// Next returns the next key. Returns (zero, false, nil) when exhausted.
	Next(ctx context.Context) (K, bool, error)
	// Close releases any resources held by the sampler.
	Close() error
}

// Iterator is the minimal pull contract FromIterator adapts.
type Iterator[K any] interface {
	Next(ctx context.Context) (K, bool, error)
	Close() error
}

// --- Constructors ---

// Slice yields the elements of keys in order.
func Slice[K any](keys []K) Sampler[K] {
	return &sliceSampler[K]{keys: keys}
}

// Range yields the integers in [start, end).
func Range(start, end int) Sampler[int] {
	return &rangeSampler{next: start, end: end}
}

// Counter yields 0..n-1.
func Counter(n int) Sampler[int] {
	return Range(0, n)
}

// Func adapts a generator. fn reports exhaustion by returning ok=false.
func Func[K any](fn func(ctx context.Context) (K, bool, error)) Sampler[K] {
	return &funcSampler[K]{fn: fn}
}

// Channel yields values received from ch until it is closed. Next returns
// ctx's error if ctx is done first.
func Channel[K any](ch <-chan K) Sampler[K] {
	return &chanSampler[K]{ch: ch}
}

// FromIterator adapts any pull iterator, such as a pipeline, into a Sampler.
func FromIterator[K any](it Iterator[K]) Sampler[K] {
	return Sticky[K](it)
}

// Sticky latches exhaustion: once src reports exhaustion or an error it is
// never consulted again and every later Next returns (zero, false, nil).
func Sticky[K any](src Iterator[K]) Sampler[K] {
	if s, ok := src.(*stickySampler[K]); ok {
		return s
	}
	return &stickySampler[K]{src: src}
}

// Limit yields at most n keys from src.
func Limit[K any](src Sampler[K], n int) Sampler[K] {
	return &limitSampler[K]{src: src, remaining: n}
}

// --- Implementations ---

type sliceSampler[K any] struct {
	keys  []K
	index int
}

func (s *sliceSampler[K]) Next(_ context.Context) (K, bool, error) {
	if s.index >= len(s.keys) {
		var zero K
		return zero, false, nil
	}
	k := s.keys[s.index]
	s.index++
	return k, true, nil
}

func (s *sliceSampler[K]) Close() error { return nil }

type rangeSampler struct {
	next, end int
}

func (s *rangeSampler) Next(_ context.Context) (int, bool, error) {
	if s.next >= s.end {
		return 0, false, nil
	}
	k := s.next
	s.next++
	return k, true, nil
}

func (s *rangeSampler) Close() error { return nil }

type funcSampler[K any] struct {
	fn   func(ctx context.Context) (K, bool, error)
	done bool
}

func (s *funcSampler[K]) Next(ctx context.Context) (K, bool, error) {
	var zero K
	if s.done {
		return zero, false, nil
	}
	k, ok, err := s.fn(ctx)
	if err != nil {
		return zero, false, err
	}
	if !ok {
		s.done = true
		return zero, false, nil
	}
	return k, true, nil
}

func (s *funcSampler[K]) Close() error { return nil }

type chanSampler[K any] struct {
	ch <-chan K
}

func (s *chanSampler[K]) Next(ctx context.Context) (K, bool, error) {
	var zero K
	select {
	case k, open := <-s.ch:
		if !open {
			return zero, false, nil
		}
		return k, true, nil
	case <-ctx.Done():
		return zero, false, ctx.Err()
	}
}

func (s *chanSampler[K]) Close() error { return nil }

type stickySampler[K any] struct {
	src  Iterator[K]
	done bool
}

func (s *stickySampler[K]) Next(ctx context.Context) (K, bool, error) {
	var zero K
	if s.done {
		return zero, false, nil
	}
	k, ok, err := s.src.Next(ctx)
	if err != nil || !ok {
		s.done = true
		return zero, false, err
	}
	return k, true, nil
}

func (s *stickySampler[K]) Close() error { return s.src.Close() }

type limitSampler[K any] struct {
	src       Sampler[K]
	remaining int
}

func (s *limitSampler[K]) Next(ctx context.Context) (K, bool, error) {
	if s.remaining <= 0 {
		var zero K
		return zero, false, nil
	}
	k, ok, err := s.src.Next(ctx)
	if err != nil || !ok {
		return k, ok, err
	}
	s.remaining--
	return k, true, nil
}

func (s *limitSampler[K]) Close() error { return s.src.Close() }
