package dataset

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/kbukum/prefetchkit/prefetch"
)

// SimulatedConfig shapes the cost and failure pattern of Simulated.
type SimulatedConfig struct {
	// Delay is the base time each item takes.
	Delay time.Duration
	// Jitter adds up to this much extra random delay per item.
	Jitter time.Duration
	// FailEvery makes every FailEvery-th key (1-based) fail. Zero disables it.
	FailEvery int
	// HangEvery makes every HangEvery-th key block until cancelled.
	HangEvery int
}

// ErrSimulated is the failure Simulated reports for a failing key.
var ErrSimulated = errors.New("simulated item failure")

// Simulated returns a producer computing k*k after a configurable delay. It
// stands in for slow per-item I/O.
func Simulated(cfg SimulatedConfig) prefetch.Producer[int, int] {
	return func(ctx context.Context, key int) (int, error) {
		n := key + 1
		if cfg.HangEvery > 0 && n%cfg.HangEvery == 0 {
			<-ctx.Done()
			return 0, ctx.Err()
		}

		d := cfg.Delay
		if cfg.Jitter > 0 {
			d += rand.N(cfg.Jitter)
		}
		if d > 0 {
			timer := time.NewTimer(d)
			select {
			case <-ctx.Done():
				timer.Stop()
				return 0, ctx.Err()
			case <-timer.C:
			}
		}

		if cfg.FailEvery > 0 && n%cfg.FailEvery == 0 {
			return 0, fmt.Errorf("key %d: %w", key, ErrSimulated)
		}
		return key * key, nil
	}
}
