package pipeline

import "context"

// Map applies fn to each value. An error from fn ends the stream with that
// error.
func Map[I, O any](p *Pipeline[I], fn func(context.Context, I) (O, error)) *Pipeline[O] {
	return &Pipeline[O]{open: func(ctx context.Context) Iterator[O] {
		return &mapIter[I, O]{source: p.open(ctx), fn: fn}
	}}
}

// SkipErrors steps over upstream errors that skip accepts and keeps pulling;
// any other error passes through. onSkip, if not nil, sees each skipped error
// in stream order, and a non-nil return from it ends the stream with that
// error. With prefetch.IsItemFailure as skip, bad items are dropped while a
// session failure still stops the stream.
func SkipErrors[T any](p *Pipeline[T], skip func(error) bool, onSkip func(error) error) *Pipeline[T] {
	return &Pipeline[T]{open: func(ctx context.Context) Iterator[T] {
		return &skipIter[T]{source: p.open(ctx), skip: skip, onSkip: onSkip}
	}}
}

type mapIter[I, O any] struct {
	source Iterator[I]
	fn     func(context.Context, I) (O, error)
}

func (it *mapIter[I, O]) Next(ctx context.Context) (O, bool, error) {
	var zero O
	in, ok, err := it.source.Next(ctx)
	if err != nil || !ok {
		return zero, false, err
	}
	out, err := it.fn(ctx, in)
	if err != nil {
		return zero, false, err
	}
	return out, true, nil
}

func (it *mapIter[I, O]) Close() error { return it.source.Close() }

type skipIter[T any] struct {
	source Iterator[T]
	skip   func(error) bool
	onSkip func(error) error
}

func (it *skipIter[T]) Next(ctx context.Context) (T, bool, error) {
	for {
		v, ok, err := it.source.Next(ctx)
		if err == nil || !it.skip(err) {
			return v, ok, err
		}
		if it.onSkip == nil {
			continue
		}
		if stop := it.onSkip(err); stop != nil {
			var zero T
			return zero, false, stop
		}
	}
}

func (it *skipIter[T]) Close() error { return it.source.Close() }
