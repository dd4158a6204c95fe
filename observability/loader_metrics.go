package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Task completion statuses recorded on prefetch.tasks.completed.
const (
	StatusOK        = "ok"
	StatusFailed    = "failed"
	StatusTimeout   = "timeout"
	StatusCancelled = "cancelled"
)

// LoaderMetrics holds the instruments recorded by a prefetching loader.
// A nil *LoaderMetrics records nothing.
type LoaderMetrics struct {
	submitted    metric.Int64Counter
	completed    metric.Int64Counter
	outstanding  metric.Int64UpDownCounter
	waitDuration metric.Float64Histogram
}

// NewLoaderMetrics creates the loader instruments on meter.
func NewLoaderMetrics(meter metric.Meter) (*LoaderMetrics, error) {
	submitted, err := meter.Int64Counter("prefetch.tasks.submitted",
		metric.WithDescription("Tasks submitted to the worker pool"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating prefetch.tasks.submitted counter: %w", err)
	}

	completed, err := meter.Int64Counter("prefetch.tasks.completed",
		metric.WithDescription("Tasks retrieved or released, by status"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating prefetch.tasks.completed counter: %w", err)
	}

	outstanding, err := meter.Int64UpDownCounter("prefetch.tasks.outstanding",
		metric.WithDescription("Submitted tasks not yet retrieved"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating prefetch.tasks.outstanding gauge: %w", err)
	}

	waitDuration, err := meter.Float64Histogram("prefetch.wait.duration",
		metric.WithDescription("Time the consumer blocked waiting on the oldest task"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating prefetch.wait.duration histogram: %w", err)
	}

	return &LoaderMetrics{
		submitted:    submitted,
		completed:    completed,
		outstanding:  outstanding,
		waitDuration: waitDuration,
	}, nil
}

// RecordSubmit records one task entering the window.
func (m *LoaderMetrics) RecordSubmit(ctx context.Context, loader string) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("loader", loader))
	m.submitted.Add(ctx, 1, attrs)
	m.outstanding.Add(ctx, 1, attrs)
}

// RecordComplete records one task leaving the window with status.
func (m *LoaderMetrics) RecordComplete(ctx context.Context, loader, status string) {
	if m == nil {
		return
	}
	m.outstanding.Add(ctx, -1, metric.WithAttributes(attribute.String("loader", loader)))
	m.completed.Add(ctx, 1, metric.WithAttributes(
		attribute.String("loader", loader),
		attribute.String(AttrCompleteStatus, status),
	))
}

// RecordWait records how long the consumer blocked on the head task.
func (m *LoaderMetrics) RecordWait(ctx context.Context, loader string, d time.Duration) {
	if m == nil {
		return
	}
	m.waitDuration.Record(ctx, d.Seconds(), metric.WithAttributes(attribute.String("loader", loader)))
}
