package sampler

import (
	"context"
)

// Batch groups consecutive keys of src into slices of size keys. The last
// batch may be short unless dropLast is set, in which case it is discarded.
// A size below one is treated as one.
func Batch[K any](src Sampler[K], size int, dropLast bool) Sampler[[]K] {
	if size < 1 {
		size = 1
	}
	return &batchSampler[K]{src: src, size: size, dropLast: dropLast}
}

type batchSampler[K any] struct {
	src      Sampler[K]
	size     int
	dropLast bool
	done     bool
}

func (s *batchSampler[K]) Next(ctx context.Context) ([]K, bool, error) {
	if s.done {
		return nil, false, nil
	}
	batch := make([]K, 0, s.size)
	for len(batch) < s.size {
		k, ok, err := s.src.Next(ctx)
		if err != nil {
			return nil, false, err
		}
		if !ok {
			s.done = true
			break
		}
		batch = append(batch, k)
	}
	if len(batch) == 0 || (s.dropLast && len(batch) < s.size) {
		return nil, false, nil
	}
	return batch, true, nil
}

func (s *batchSampler[K]) Close() error { return s.src.Close() }
