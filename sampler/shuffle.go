package sampler

import (
	"context"
	"math/rand/v2"
)

// Shuffled drains src on first use and yields its keys in a random order
// determined by seed. The same seed and input always give the same order.
// If src fails while being drained, the keys read so far are dropped and
// every call returns that error.
func Shuffled[K any](src Sampler[K], seed uint64) Sampler[K] {
	return &shuffledSampler[K]{src: src, seed: seed}
}

type shuffledSampler[K any] struct {
	src    Sampler[K]
	seed   uint64
	keys   []K
	index  int
	loaded bool
	err    error
}

func (s *shuffledSampler[K]) load(ctx context.Context) error {
	for {
		k, ok, err := s.src.Next(ctx)
		if err != nil {
			s.keys = nil
			return err
		}
		if !ok {
			break
		}
		s.keys = append(s.keys, k)
	}
	rng := rand.New(rand.NewPCG(s.seed, s.seed^0x9e3779b97f4a7c15))
	rng.Shuffle(len(s.keys), func(i, j int) {
		s.keys[i], s.keys[j] = s.keys[j], s.keys[i]
	})
	s.loaded = true
	return nil
}

func (s *shuffledSampler[K]) Next(ctx context.Context) (K, bool, error) {
	var zero K
	if s.err != nil {
		return zero, false, s.err
	}
	if !s.loaded {
		if err := s.load(ctx); err != nil {
			s.err = err
			return zero, false, err
		}
	}
	if s.index >= len(s.keys) {
		return zero, false, nil
	}
	k := s.keys[s.index]
	s.index++
	return k, true, nil
}

func (s *shuffledSampler[K]) Close() error { return s.src.Close() }
