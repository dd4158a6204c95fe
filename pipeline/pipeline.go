package pipeline

import "context"

// Iterator is the pull contract shared by samplers, prefetch sessions and
// every stage here. Next returns (zero, false, nil) once the stream is
// exhausted.
type Iterator[T any] interface {
	Next(ctx context.Context) (T, bool, error)
	Close() error
}

// Pipeline is a lazy stream. Building one does no work; each stage opens its
// upstream only when the terminal pulls.
type Pipeline[T any] struct {
	open func(ctx context.Context) Iterator[T]
}

// Runnable is a pipeline bound to a sink.
type Runnable struct {
	run func(ctx context.Context) error
}

// Run pulls until exhaustion, the first upstream or sink error, or ctx is
// done. The stream is closed before Run returns on every path.
func (r *Runnable) Run(ctx context.Context) error {
	return r.run(ctx)
}

// From wraps an open iterator, such as a sampler. The result can be run once;
// running it closes it.
func From[T any](it Iterator[T]) *Pipeline[T] {
	return &Pipeline[T]{open: func(context.Context) Iterator[T] { return it }}
}

// FromSlice streams items in order. It can be run any number of times.
func FromSlice[T any](items []T) *Pipeline[T] {
	return &Pipeline[T]{open: func(context.Context) Iterator[T] { return &sliceIter[T]{items: items} }}
}

// Drain binds p to sink. A sink error stops the stream and is returned by Run.
func Drain[T any](p *Pipeline[T], sink func(context.Context, T) error) *Runnable {
	return &Runnable{run: func(ctx context.Context) error {
		return pull(ctx, p, sink)
	}}
}

// Collect runs p and gathers its values. On error it returns what was
// gathered before the error along with it.
func Collect[T any](ctx context.Context, p *Pipeline[T]) ([]T, error) {
	var out []T
	err := pull(ctx, p, func(_ context.Context, v T) error {
		out = append(out, v)
		return nil
	})
	return out, err
}

func pull[T any](ctx context.Context, p *Pipeline[T], sink func(context.Context, T) error) error {
	it := p.open(ctx)
	defer it.Close()
	for {
		v, ok, err := it.Next(ctx)
		if err != nil || !ok {
			return err
		}
		if err := sink(ctx, v); err != nil {
			return err
		}
	}
}

type sliceIter[T any] struct {
	items []T
	next  int
}

func (it *sliceIter[T]) Next(context.Context) (T, bool, error) {
	if it.next == len(it.items) {
		var zero T
		return zero, false, nil
	}
	it.next++
	return it.items[it.next-1], true, nil
}

func (it *sliceIter[T]) Close() error { return nil }

// errIter fails its first Next with err and is exhausted afterwards.
type errIter[T any] struct {
	err    error
	closer func() error
}

func (it *errIter[T]) Next(context.Context) (T, bool, error) {
	var zero T
	err := it.err
	it.err = nil
	return zero, false, err
}

func (it *errIter[T]) Close() error {
	if it.closer != nil {
		return it.closer()
	}
	return nil
}
