package pipeline

import (
	"context"
	"errors"

	"github.com/kbukum/prefetchkit/prefetch"
)

var _ Iterator[int] = (*prefetch.Session[int, int])(nil)

// Prefetch maps keys to items on loader's workers, keeping a window of
// loader.Window() items in flight ahead of the consumer. Items come out in
// key order. Item failures are yielded as errors and the stream continues
// past them only if a later stage (SkipErrors) drops them.
//
// Closing the returned iterator abandons the session and closes the key
// iterator. The loader itself stays open.
func Prefetch[K, V any](p *Pipeline[K], loader *prefetch.Loader[K, V]) *Pipeline[V] {
	return &Pipeline[V]{
		open: func(ctx context.Context) Iterator[V] {
			keys := p.open(ctx)
			sess, err := loader.Iter(ctx, keys)
			if err != nil {
				return &errIter[V]{err: err, closer: keys.Close}
			}
			return &prefetchIter[K, V]{sess: sess, keys: keys}
		},
	}
}

type prefetchIter[K, V any] struct {
	sess *prefetch.Session[K, V]
	keys Iterator[K]
}

func (it *prefetchIter[K, V]) Next(ctx context.Context) (V, bool, error) {
	return it.sess.Next(ctx)
}

func (it *prefetchIter[K, V]) Close() error {
	return errors.Join(it.sess.Close(), it.keys.Close())
}
