// Package observe provides observability primitives for the resilience
// layer: structured logging, OpenTelemetry tracing and metrics for
// generation requests, queue depth, connectivity probes, and circuit
// breaker transitions.
//
// It is pure instrumentation: no execution, no transport, no I/O beyond
// exporter setup. The manager and clients wire an Observer in.
package observe
