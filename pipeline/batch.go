package pipeline

import (
	"context"
)

// Batch groups consecutive values into slices of size values. The final
// batch may be short unless dropLast is set, in which case it is discarded.
// An upstream error is returned after any values already gathered have been
// emitted as a batch. A size below one is treated as one.
func Batch[T any](p *Pipeline[T], size int, dropLast bool) *Pipeline[[]T] {
	if size < 1 {
		size = 1
	}
	return &Pipeline[[]T]{
		open: func(ctx context.Context) Iterator[[]T] {
			return &batchIter[T]{source: p.open(ctx), size: size, dropLast: dropLast}
		},
	}
}

// Collate reduces each batch to a single value, such as stacking per-item
// records into one training batch.
func Collate[T, B any](p *Pipeline[[]T], fn func(context.Context, []T) (B, error)) *Pipeline[B] {
	return Map(p, fn)
}

type batchIter[T any] struct {
	source   Iterator[T]
	size     int
	dropLast bool
	pending  error
	done     bool
}

func (it *batchIter[T]) Next(ctx context.Context) ([]T, bool, error) {
	if it.pending != nil {
		err := it.pending
		it.pending = nil
		it.done = true
		return nil, false, err
	}
	if it.done {
		return nil, false, nil
	}

	batch := make([]T, 0, it.size)
	for len(batch) < it.size {
		val, ok, err := it.source.Next(ctx)
		if err != nil {
			if len(batch) > 0 {
				// Emit what we have; the error surfaces on the next call.
				it.pending = err
				return batch, true, nil
			}
			return nil, false, err
		}
		if !ok {
			it.done = true
			break
		}
		batch = append(batch, val)
	}

	if len(batch) == 0 || (it.dropLast && len(batch) < it.size) {
		return nil, false, nil
	}
	return batch, true, nil
}

func (it *batchIter[T]) Close() error { return it.source.Close() }
