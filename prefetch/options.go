package prefetch

import (
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/prefetchkit/logger"
	"github.com/kbukum/prefetchkit/workerpool"
)

const instrumentationName = "github.com/kbukum/prefetchkit/prefetch"

// Option configures a Loader.
type Option func(*options)

type options struct {
	name      string
	executor  workerpool.Executor
	log       *logger.Logger
	meter     metric.Meter
	tracer    trace.Tracer
	observers []SessionObserver
}

// SessionInfo is the read-only view of a session given to observers.
type SessionInfo interface {
	ID() string
	Stats() Stats
}

// SessionObserver is called when a session starts, before its first window
// is submitted. The func it returns, if not nil, runs once the session has
// ended: exhausted, failed, or closed with every task released.
type SessionObserver func(SessionInfo) (ended func())

// WithName names the loader in logs, metrics and the owned pool.
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

// WithExecutor runs tasks on ex instead of a pool owned by the loader.
// The loader never closes an injected executor. Every job ex accepts must
// eventually run, or Session.Close blocks.
func WithExecutor(ex workerpool.Executor) Option {
	return func(o *options) { o.executor = ex }
}

// WithLogger sets the logger. Defaults to the global logger.
func WithLogger(l *logger.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithMeter sets the meter for loader metrics. Defaults to the global provider.
func WithMeter(m metric.Meter) Option {
	return func(o *options) { o.meter = m }
}

// WithTracer sets the tracer for session spans. Defaults to the global provider.
func WithTracer(t trace.Tracer) Option {
	return func(o *options) { o.tracer = t }
}

// WithSessionObserver adds fn to the observers of every session the loader
// starts. Observers run in the order they were added.
func WithSessionObserver(fn SessionObserver) Option {
	return func(o *options) {
		if fn != nil {
			o.observers = append(o.observers, fn)
		}
	}
}
