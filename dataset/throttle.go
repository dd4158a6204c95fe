package dataset

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/kbukum/prefetchkit/prefetch"
)

// ThrottleConfig configures the token bucket shared by every call of a
// throttled producer.
type ThrottleConfig struct {
	// Rate is the number of produce calls allowed per second.
	Rate float64 `yaml:"rate" mapstructure:"rate" validate:"gte=0"`
	// Burst is the maximum number of calls admitted at once.
	Burst int `yaml:"burst" mapstructure:"burst" validate:"gte=0"`
}

// NewLimiter builds the limiter Throttled uses. A non-positive Rate means no
// limit; a non-positive Burst defaults to the rate, and at least 1.
func (c ThrottleConfig) NewLimiter() *rate.Limiter {
	if c.Rate <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	burst := c.Burst
	if burst <= 0 {
		burst = max(int(c.Rate), 1)
	}
	return rate.NewLimiter(rate.Limit(c.Rate), burst)
}

// Throttled limits how often produce is started across all workers. The
// wait counts against the task's timeout and ends early when the task is
// cancelled.
func Throttled[K, V any](produce prefetch.Producer[K, V], cfg ThrottleConfig) prefetch.Producer[K, V] {
	limiter := cfg.NewLimiter()
	return func(ctx context.Context, key K) (V, error) {
		if err := limiter.Wait(ctx); err != nil {
			var zero V
			if ctxErr := ctx.Err(); ctxErr != nil {
				return zero, ctxErr
			}
			return zero, err
		}
		return produce(ctx, key)
	}
}
