package dataset

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	apperrors "github.com/kbukum/prefetchkit/errors"
	"github.com/kbukum/prefetchkit/prefetch"
	"github.com/kbukum/prefetchkit/sampler"
	"github.com/kbukum/prefetchkit/workerpool"
)

func newFS(t *testing.T, files map[string]string) afero.Fs {
	t.Helper()
	fsys := afero.NewMemMapFs()
	for name, body := range files {
		require.NoError(t, afero.WriteFile(fsys, name, []byte(body), 0o644))
	}
	return fsys
}

func TestFiles(t *testing.T) {
	fsys := newFS(t, map[string]string{
		"/data/a.txt":     "alpha",
		"/data/sub/b.txt": "beta",
	})
	read := Files(fsys, "/data")

	got, err := read(context.Background(), "sub/b.txt")
	require.NoError(t, err)
	assert.Equal(t, "beta", string(got))

	_, err = read(context.Background(), "missing.txt")
	assert.Equal(t, apperrors.ErrCodeNotFound, apperrors.CodeOf(err))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = read(ctx, "a.txt")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestIndex(t *testing.T) {
	fsys := newFS(t, map[string]string{
		"/data/b.json":    "{}",
		"/data/a.json":    "{}",
		"/data/x/c.json":  "{}",
		"/data/notes.txt": "",
		"/other/d.json":   "{}",
	})

	keys, err := Index(fsys, "/data", "*.json")
	require.NoError(t, err)
	assert.Equal(t, []string{"a.json", "b.json", "x/c.json"}, keys)

	all, err := Index(fsys, "/data", "")
	require.NoError(t, err)
	assert.Len(t, all, 4)

	_, err = Index(fsys, "/data", "[")
	assert.Equal(t, apperrors.ErrCodeInvalidConfig, apperrors.CodeOf(err))
}

type record struct {
	ID    int    `json:"id"`
	Label string `json:"label"`
}

func TestDecoded_ThroughLoader(t *testing.T) {
	fsys := newFS(t, map[string]string{
		"/ds/0.json": `{"id":0,"label":"zero"}`,
		"/ds/1.json": `{"id":1,"label":"one"}`,
		"/ds/2.json": `not json`,
		"/ds/3.json": `{"id":3,"label":"three"}`,
	})
	keys, err := Index(fsys, "/ds", "*.json")
	require.NoError(t, err)

	produce := Decoded(fsys, "/ds", func(_ string, data []byte) (record, error) {
		var r record
		err := json.Unmarshal(data, &r)
		return r, err
	})
	l, err := prefetch.New(produce, prefetch.Config{Workers: 2, PrefetchFactor: 2})
	require.NoError(t, err)
	defer l.Close()

	sess, err := l.Iter(context.Background(), sampler.Slice(keys))
	require.NoError(t, err)
	defer sess.Close()

	var labels []string
	var failed []int
	for {
		r, ok, err := sess.Next(context.Background())
		if err != nil {
			pos, _ := prefetch.FailedPosition(err)
			failed = append(failed, pos)
			continue
		}
		if !ok {
			break
		}
		labels = append(labels, r.Label)
	}
	assert.Equal(t, []string{"zero", "one", "three"}, labels)
	assert.Equal(t, []int{2}, failed)
}

func TestRetrying_RecoversTransientFailure(t *testing.T) {
	var calls atomic.Int64
	flaky := func(_ context.Context, k int) (int, error) {
		if calls.Add(1) < 3 {
			return 0, errors.New("transient")
		}
		return k + 1, nil
	}

	var retries []int
	produce := Retrying(flaky, RetryConfig{
		MaxAttempts:    5,
		InitialBackoff: time.Millisecond,
		OnRetry:        func(attempt int, _ error, _ time.Duration) { retries = append(retries, attempt) },
	})

	v, err := produce(context.Background(), 41)
	require.NoError(t, err)
	assert.Equal(t, 42, v)
	assert.Equal(t, []int{1, 2}, retries)
}

func TestRetrying_GivesUp(t *testing.T) {
	boom := errors.New("still broken")
	var calls atomic.Int64
	produce := Retrying(func(context.Context, int) (int, error) {
		calls.Add(1)
		return 0, boom
	}, RetryConfig{MaxAttempts: 3, InitialBackoff: time.Millisecond})

	_, err := produce(context.Background(), 1)
	assert.ErrorIs(t, err, boom)
	assert.EqualValues(t, 3, calls.Load())
}

func TestRetrying_SkipsNonRetryable(t *testing.T) {
	var calls atomic.Int64
	produce := Retrying(func(context.Context, int) (int, error) {
		calls.Add(1)
		return 0, apperrors.InvalidConfig("key", "malformed")
	}, RetryConfig{MaxAttempts: 4, InitialBackoff: time.Millisecond})

	_, err := produce(context.Background(), 1)
	assert.Equal(t, apperrors.ErrCodeInvalidConfig, apperrors.CodeOf(err))
	assert.EqualValues(t, 1, calls.Load())
}

func TestRetrying_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	produce := Retrying(func(context.Context, int) (int, error) {
		cancel()
		return 0, errors.New("fails")
	}, RetryConfig{MaxAttempts: 10, InitialBackoff: time.Second})

	_, err := produce(ctx, 1)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDefaultRetryIf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"plain", errors.New("io"), true},
		{"canceled", context.Canceled, false},
		{"deadline", context.DeadlineExceeded, false},
		{"task timeout", workerpool.ErrTimeout, false},
		{"panic", apperrors.Panic("x", nil), false},
		{"not found", apperrors.NotFound("file"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DefaultRetryIf(tt.err))
		})
	}
}

func TestNewBackOff(t *testing.T) {
	b := newBackOff(RetryConfig{InitialBackoff: 10 * time.Millisecond, MaxBackoff: 50 * time.Millisecond, BackoffFactor: 2})
	assert.Equal(t, 10*time.Millisecond, b.NextBackOff())
	assert.Equal(t, 20*time.Millisecond, b.NextBackOff())
	assert.Equal(t, 40*time.Millisecond, b.NextBackOff())
	assert.Equal(t, 50*time.Millisecond, b.NextBackOff())
	assert.Equal(t, 50*time.Millisecond, b.NextBackOff())

	jittered := newBackOff(RetryConfig{InitialBackoff: 100 * time.Millisecond, MaxBackoff: time.Second, BackoffFactor: 2, Jitter: 0.1})
	d := jittered.NextBackOff()
	assert.GreaterOrEqual(t, d, 90*time.Millisecond)
	assert.Less(t, d, 111*time.Millisecond)
}

func TestRetrying_FinalAttemptNonRetryableUnwrapped(t *testing.T) {
	produce := Retrying(func(context.Context, int) (int, error) {
		return 0, apperrors.InvalidConfig("key", "malformed")
	}, RetryConfig{MaxAttempts: 1, InitialBackoff: time.Millisecond})

	_, err := produce(context.Background(), 1)
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok, "got %T", err)
	assert.Equal(t, apperrors.ErrCodeInvalidConfig, appErr.Code)
}

func TestRetrying_CancelledBeforeFirstAttempt(t *testing.T) {
	var calls atomic.Int64
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	produce := Retrying(func(context.Context, int) (int, error) {
		calls.Add(1)
		return 1, nil
	}, RetryConfig{MaxAttempts: 3})

	_, err := produce(ctx, 1)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, calls.Load())
}

func TestSimulated(t *testing.T) {
	produce := Simulated(SimulatedConfig{FailEvery: 3})
	for k, want := range []int{0, 1} {
		v, err := produce(context.Background(), k)
		require.NoError(t, err)
		assert.Equal(t, want, v)
	}
	_, err := produce(context.Background(), 2)
	assert.ErrorIs(t, err, ErrSimulated)

	hang := Simulated(SimulatedConfig{HangEvery: 1})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()
	_, err = hang(ctx, 0)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestThrottleConfigLimiter(t *testing.T) {
	assert.Equal(t, rate.Inf, ThrottleConfig{}.NewLimiter().Limit())

	lim := ThrottleConfig{Rate: 10}.NewLimiter()
	assert.Equal(t, rate.Limit(10), lim.Limit())
	assert.Equal(t, 10, lim.Burst())

	assert.Equal(t, 1, ThrottleConfig{Rate: 0.5}.NewLimiter().Burst())
	assert.Equal(t, 3, ThrottleConfig{Rate: 10, Burst: 3}.NewLimiter().Burst())
}

func TestThrottledCancelled(t *testing.T) {
	produce := Throttled(func(_ context.Context, k int) (int, error) { return k, nil },
		ThrottleConfig{Rate: 0.001, Burst: 1})

	v, err := produce(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, 7, v)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)
	_, err = produce(ctx, 8)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestThrottledInLoader(t *testing.T) {
	produce := Throttled(func(_ context.Context, k int) (int, error) { return k + 1, nil },
		ThrottleConfig{Rate: 1000, Burst: 2})
	loader, err := prefetch.New(produce, prefetch.Config{Workers: 2, PrefetchFactor: 2})
	require.NoError(t, err)
	defer loader.Close()

	sess, err := loader.Iter(context.Background(), sampler.Range(0, 5))
	require.NoError(t, err)
	defer sess.Close()

	var got []int
	for {
		v, ok, err := sess.Next(context.Background())
		require.NoError(t, err)
		if !ok {
			break
		}
		got = append(got, v)
	}
	assert.Equal(t, []int{1, 2, 3, 4, 5}, got)
}
