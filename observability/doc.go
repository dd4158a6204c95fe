// Package observability wires OpenTelemetry tracing and metrics.
//
// InitTracer and InitMeter install OTLP/HTTP exporters as the global
// providers; Setup does both from a Config and returns a single shutdown
// function. Without Setup the global providers are no-ops, so instrumented
// code costs nothing when telemetry is disabled.
//
// LoaderMetrics holds the instruments a prefetching loader records:
//
//	prefetch.tasks.submitted    counter
//	prefetch.tasks.completed    counter, attribute status=ok|failed|timeout|cancelled
//	prefetch.tasks.outstanding  up/down counter
//	prefetch.wait.duration      histogram (s), time the consumer blocked on the head task
package observability
