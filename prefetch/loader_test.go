package prefetch

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	apperrors "github.com/kbukum/prefetchkit/errors"
	"github.com/kbukum/prefetchkit/logger"
	"github.com/kbukum/prefetchkit/observability"
	"github.com/kbukum/prefetchkit/workerpool"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"defaults", DefaultConfig(), false},
		{"zero values take defaults", Config{}, false},
		{"negative workers", Config{Workers: -1, PrefetchFactor: 2}, true},
		{"negative factor", Config{Workers: 2, PrefetchFactor: -3}, true},
		{"negative timeout", Config{Workers: 1, PrefetchFactor: 1, TaskTimeout: -1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.cfg
			cfg.ApplyDefaults()
			err := cfg.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, apperrors.ErrCodeInvalidConfig, apperrors.CodeOf(err))
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestConfig_Window(t *testing.T) {
	assert.Equal(t, 2, DefaultConfig().Window())
	assert.Equal(t, 12, Config{Workers: 4, PrefetchFactor: 3}.Window())
}

func TestNew_Rejects(t *testing.T) {
	_, err := New[int, int](nil, DefaultConfig())
	assert.Equal(t, apperrors.ErrCodeInvalidConfig, apperrors.CodeOf(err))

	_, err = New(square, Config{Workers: -2})
	assert.Equal(t, apperrors.ErrCodeInvalidConfig, apperrors.CodeOf(err))
}

func TestIter_NilSource(t *testing.T) {
	l, err := New(square, DefaultConfig())
	require.NoError(t, err)
	defer l.Close()

	s, err := l.Iter(context.Background(), nil)
	assert.Nil(t, s)
	assert.Equal(t, apperrors.ErrCodeInvalidConfig, apperrors.CodeOf(err))
}

func TestLoader_CloseIsIdempotent(t *testing.T) {
	l, err := New(square, DefaultConfig(), WithName("idempotent"), WithLogger(logger.Nop()))
	require.NoError(t, err)
	assert.NoError(t, l.Close())
	assert.NoError(t, l.Close())
}

func TestLoader_SessionSpan(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	defer tp.Shutdown(context.Background())

	l, err := New(square, Config{Workers: 2, PrefetchFactor: 1}, WithTracer(tp.Tracer("test")))
	require.NoError(t, err)
	defer l.Close()

	s, err := l.Iter(context.Background(), newKeys(3))
	require.NoError(t, err)
	drain(t, s)
	require.NoError(t, s.Close())

	spans := rec.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "prefetch.session", spans[0].Name())

	attrs := map[string]any{}
	for _, kv := range spans[0].Attributes() {
		attrs[string(kv.Key)] = kv.Value.AsInterface()
	}
	assert.Equal(t, s.ID(), attrs[observability.AttrSessionID])
	assert.EqualValues(t, 3, attrs[observability.AttrSubmitted])
	assert.EqualValues(t, 3, attrs[observability.AttrRetrieved])
	assert.Equal(t, "done", attrs[observability.AttrTerminalState])
}

func TestLoader_Metrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer mp.Shutdown(context.Background())

	l, err := New(square, Config{Workers: 1, PrefetchFactor: 2}, WithName("metered"), WithMeter(mp.Meter("test")))
	require.NoError(t, err)
	defer l.Close()

	s, err := l.Iter(context.Background(), newKeys(4))
	require.NoError(t, err)
	drain(t, s)
	require.NoError(t, s.Close())

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	sums := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if data, ok := m.Data.(metricdata.Sum[int64]); ok {
				for _, dp := range data.DataPoints {
					sums[m.Name] += dp.Value
				}
			}
		}
	}
	assert.EqualValues(t, 4, sums["prefetch.tasks.submitted"])
	assert.EqualValues(t, 4, sums["prefetch.tasks.completed"])
	assert.EqualValues(t, 0, sums["prefetch.tasks.outstanding"])
}

func TestSessionObserver(t *testing.T) {
	var order []string
	var final []Stats
	observe := func(name string) SessionObserver {
		return func(s SessionInfo) func() {
			order = append(order, "start "+name)
			return func() {
				order = append(order, "end "+name)
				final = append(final, s.Stats())
			}
		}
	}
	l, err := New(square, Config{Workers: 1, PrefetchFactor: 2},
		WithLogger(logger.Nop()),
		WithSessionObserver(observe("a")),
		WithSessionObserver(nil),
		WithSessionObserver(observe("b")),
	)
	require.NoError(t, err)
	defer l.Close()

	sess, err := l.Iter(context.Background(), newKeys(3))
	require.NoError(t, err)
	assert.Equal(t, []string{"start a", "start b"}, order)

	assert.Equal(t, []int{0, 1, 4}, drain(t, sess))
	require.NoError(t, sess.Close())

	assert.Equal(t, []string{"start a", "start b", "end a", "end b"}, order, "ended runs once")
	require.Len(t, final, 2)
	assert.Equal(t, "done", final[0].State)
	assert.EqualValues(t, 3, final[0].Retrieved)
}

func TestSessionObserver_SeesPrimingFailure(t *testing.T) {
	pool := workerpool.New(workerpool.Config{Workers: 1})
	require.NoError(t, pool.Close())

	var final Stats
	l, err := New(square, Config{Workers: 1, PrefetchFactor: 1},
		WithLogger(logger.Nop()),
		WithExecutor(pool),
		WithSessionObserver(func(s SessionInfo) func() {
			return func() { final = s.Stats() }
		}),
	)
	require.NoError(t, err)

	_, err = l.Iter(context.Background(), newKeys(2))
	require.True(t, IsSessionFailure(err))
	assert.Equal(t, "failed", final.State)
}
