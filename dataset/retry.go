package dataset

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"

	apperrors "github.com/kbukum/prefetchkit/errors"
	"github.com/kbukum/prefetchkit/prefetch"
	"github.com/kbukum/prefetchkit/workerpool"
)

// RetryConfig configures retry behavior.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts (including the first).
	MaxAttempts int `yaml:"max_attempts" mapstructure:"max_attempts"`
	// InitialBackoff is the initial delay between retries.
	InitialBackoff time.Duration `yaml:"initial_backoff" mapstructure:"initial_backoff"`
	// MaxBackoff is the maximum delay between retries.
	MaxBackoff time.Duration `yaml:"max_backoff" mapstructure:"max_backoff"`
	// BackoffFactor is the multiplier for exponential backoff.
	BackoffFactor float64 `yaml:"backoff_factor" mapstructure:"backoff_factor"`
	// Jitter adds randomness to backoff (0.0 to 1.0).
	Jitter float64 `yaml:"jitter" mapstructure:"jitter"`
	// RetryIf determines if an error should be retried.
	RetryIf func(error) bool `yaml:"-" mapstructure:"-"`
	// OnRetry is called before each retry.
	OnRetry func(attempt int, err error, backoff time.Duration) `yaml:"-" mapstructure:"-"`
}

// DefaultRetryConfig returns sensible defaults.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:    3,
		InitialBackoff: 50 * time.Millisecond,
		MaxBackoff:     2 * time.Second,
		BackoffFactor:  2.0,
		Jitter:         0.1,
		RetryIf:        DefaultRetryIf,
	}
}

// ApplyDefaults fills zero-valued fields from DefaultRetryConfig.
func (c *RetryConfig) ApplyDefaults() {
	d := DefaultRetryConfig()
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = d.MaxAttempts
	}
	if c.InitialBackoff <= 0 {
		c.InitialBackoff = d.InitialBackoff
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = d.MaxBackoff
	}
	if c.BackoffFactor <= 0 {
		c.BackoffFactor = d.BackoffFactor
	}
	if c.RetryIf == nil {
		c.RetryIf = d.RetryIf
	}
}

// DefaultRetryIf retries everything except cancellation, task timeouts and
// errors marked non-retryable with a PANIC or INVALID_CONFIG code.
func DefaultRetryIf(err error) bool {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return false
	case errors.Is(err, workerpool.ErrTimeout):
		return false
	}
	switch apperrors.CodeOf(err) {
	case apperrors.ErrCodePanic, apperrors.ErrCodeInvalidConfig:
		return false
	}
	return true
}

// Retrying wraps produce so that a failed key is retried with exponential
// backoff before its failure is reported. Retries run inside the task, so the
// key keeps its stream position. The task's context bounds every attempt and
// every backoff.
func Retrying[K, V any](produce prefetch.Producer[K, V], cfg RetryConfig) prefetch.Producer[K, V] {
	cfg.ApplyDefaults()
	return func(ctx context.Context, key K) (V, error) {
		attempt := 0
		v, err := backoff.Retry(ctx, func() (V, error) {
			attempt++
			if err := ctx.Err(); err != nil {
				var zero V
				return zero, backoff.Permanent(err)
			}
			v, err := produce(ctx, key)
			if err != nil && !cfg.RetryIf(err) {
				return v, backoff.Permanent(err)
			}
			return v, err
		},
			backoff.WithBackOff(newBackOff(cfg)),
			backoff.WithMaxTries(uint(cfg.MaxAttempts)),
			backoff.WithMaxElapsedTime(0),
			backoff.WithNotify(func(err error, next time.Duration) {
				if cfg.OnRetry != nil {
					cfg.OnRetry(attempt, err, next)
				}
			}),
		)
		// The final attempt's error comes back still wrapped.
		var permanent *backoff.PermanentError
		if errors.As(err, &permanent) {
			err = permanent.Unwrap()
		}
		return v, err
	}
}

// newBackOff maps cfg onto an exponential policy: initial * factor^(n-1),
// randomized by Jitter and capped at MaxBackoff.
func newBackOff(cfg RetryConfig) *backoff.ExponentialBackOff {
	b := &backoff.ExponentialBackOff{
		InitialInterval:     cfg.InitialBackoff,
		RandomizationFactor: cfg.Jitter,
		Multiplier:          cfg.BackoffFactor,
		MaxInterval:         cfg.MaxBackoff,
	}
	b.Reset()
	return b
}
