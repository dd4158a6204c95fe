package prefetch

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/prefetchkit/errors"
	"github.com/kbukum/prefetchkit/logger"
	"github.com/kbukum/prefetchkit/observability"
	"github.com/kbukum/prefetchkit/workerpool"
)

// Producer computes the item for one key. It runs on a worker and may block;
// ctx is cancelled when the task is abandoned or times out.
type Producer[K, V any] func(ctx context.Context, key K) (V, error)

// Loader pairs an item producer with a worker pool and a window size.
// A Loader may run several sessions, one after another or side by side.
type Loader[K, V any] struct {
	name    string
	cfg     Config
	produce Producer[K, V]

	exec workerpool.Executor
	pool *workerpool.Pool // set only when the loader owns its pool

	log       *logger.Logger
	metrics   *observability.LoaderMetrics
	tracer    trace.Tracer
	observers []SessionObserver

	closeOnce sync.Once
	closeErr  error
}

// New creates a Loader. Unless WithExecutor is given it starts a worker pool
// of cfg.Workers goroutines, released by Close.
func New[K, V any](produce Producer[K, V], cfg Config, opts ...Option) (*Loader[K, V], error) {
	if produce == nil {
		return nil, errors.InvalidConfig("producer", "a producer is required")
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := options{name: "prefetch"}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = logger.GetGlobalLogger()
	}
	if o.meter == nil {
		o.meter = observability.Meter(instrumentationName)
	}
	if o.tracer == nil {
		o.tracer = observability.Tracer(instrumentationName)
	}

	metrics, err := observability.NewLoaderMetrics(o.meter)
	if err != nil {
		return nil, errors.Internal(err)
	}

	l := &Loader[K, V]{
		name:    o.name,
		cfg:     cfg,
		produce: produce,
		exec:    o.executor,
		log:       o.log.WithComponent("prefetch").WithFields(logger.Fields("loader", o.name)),
		metrics:   metrics,
		tracer:    o.tracer,
		observers: o.observers,
	}
	if l.exec == nil {
		l.pool = workerpool.New(workerpool.Config{Name: o.name, Workers: cfg.Workers})
		l.exec = l.pool
	}
	return l, nil
}

// Config returns the effective configuration.
func (l *Loader[K, V]) Config() Config { return l.cfg }

// Window returns Workers × PrefetchFactor.
func (l *Loader[K, V]) Window() int { return l.cfg.Window() }

// Iter starts a session over src and submits its first window of tasks.
// ctx scopes the tasks: cancelling it cancels every task the session submits.
// A failure while priming is a session failure and is returned here.
func (l *Loader[K, V]) Iter(ctx context.Context, src Source[K]) (*Session[K, V], error) {
	if src == nil {
		return nil, errors.InvalidConfig("source", "a key source is required")
	}

	id := uuid.NewString()
	sctx, cancel := context.WithCancel(ctx)
	sctx, span := l.tracer.Start(sctx, "prefetch.session", trace.WithAttributes(
		attribute.String(observability.AttrSessionID, id),
		attribute.Int(observability.AttrWorkers, l.cfg.Workers),
		attribute.Int(observability.AttrWindow, l.Window()),
	))

	s := &Session[K, V]{
		id:     id,
		loader: l,
		ctx:    sctx,
		cancel: cancel,
		span:   span,
		log:    l.log.WithFields(logger.Fields(logger.FieldSessionID, id)),
		cursor: cursor[K]{src: src},
		window: l.Window(),
	}
	if l.cfg.TaskTimeout > 0 {
		s.submitOpts = append(s.submitOpts, workerpool.WithTimeout(l.cfg.TaskTimeout))
	}
	s.setState(StatePriming)
	for _, observe := range l.observers {
		if ended := observe(s); ended != nil {
			s.ended = append(s.ended, ended)
		}
	}

	s.log.Debug("session started", logger.Fields(logger.FieldWindow, s.window))
	if err := s.prime(); err != nil {
		return nil, err
	}
	return s, nil
}

// Close shuts down the pool the loader owns. Sessions still open afterwards
// see their outstanding tasks fail and their next submission fail with a
// resource error. Close is idempotent.
func (l *Loader[K, V]) Close() error {
	l.closeOnce.Do(func() {
		if l.pool != nil {
			l.closeErr = l.pool.Close()
		}
	})
	return l.closeErr
}
