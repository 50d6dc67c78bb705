package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics records telemetry for the resilience layer.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: must honor cancellation/deadlines and return quickly.
// - Errors: implementations must not panic.
type Metrics interface {
	// RecordRequest records one generation attempt with duration and error status.
	RecordRequest(ctx context.Context, meta RequestMeta, duration time.Duration, err error)

	// RecordRetry counts a request being re-enqueued for another attempt.
	RecordRetry(ctx context.Context, meta RequestMeta)

	// RecordQueueDepth reports the current number of queued requests.
	RecordQueueDepth(ctx context.Context, depth int)

	// RecordProbe records one connectivity check.
	RecordProbe(ctx context.Context, connected bool, latency time.Duration)

	// RecordBreakerTransition counts a circuit breaker state change.
	RecordBreakerTransition(ctx context.Context, from, to string)
}

// metricsImpl is the concrete implementation of Metrics.
type metricsImpl struct {
	meter         metric.Meter
	totalCount    metric.Int64Counter
	errorCount    metric.Int64Counter
	retryCount    metric.Int64Counter
	durationHist  metric.Float64Histogram
	queueDepth    metric.Int64Gauge
	probeCount    metric.Int64Counter
	probeLatency  metric.Float64Histogram
	breakerChange metric.Int64Counter
}

// newMetrics creates a new Metrics instance with the given meter.
func newMetrics(meter metric.Meter) (*metricsImpl, error) {
	totalCount, err := meter.Int64Counter(
		"genai.request.total",
		metric.WithDescription("Total number of generation attempts"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}

	errorCount, err := meter.Int64Counter(
		"genai.request.errors",
		metric.WithDescription("Total number of failed generation attempts"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	retryCount, err := meter.Int64Counter(
		"genai.request.retries",
		metric.WithDescription("Total number of re-enqueued requests"),
		metric.WithUnit("{retry}"),
	)
	if err != nil {
		return nil, err
	}

	durationHist, err := meter.Float64Histogram(
		"genai.request.duration_ms",
		metric.WithDescription("Generation attempt duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	queueDepth, err := meter.Int64Gauge(
		"queue.depth",
		metric.WithDescription("Number of requests waiting in the priority queue"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	probeCount, err := meter.Int64Counter(
		"net.probe.total",
		metric.WithDescription("Total number of connectivity checks"),
		metric.WithUnit("{check}"),
	)
	if err != nil {
		return nil, err
	}

	probeLatency, err := meter.Float64Histogram(
		"net.probe.latency_ms",
		metric.WithDescription("Connectivity check latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	breakerChange, err := meter.Int64Counter(
		"breaker.transitions",
		metric.WithDescription("Circuit breaker state transitions"),
		metric.WithUnit("{transition}"),
	)
	if err != nil {
		return nil, err
	}

	return &metricsImpl{
		meter:         meter,
		totalCount:    totalCount,
		errorCount:    errorCount,
		retryCount:    retryCount,
		durationHist:  durationHist,
		queueDepth:    queueDepth,
		probeCount:    probeCount,
		probeLatency:  probeLatency,
		breakerChange: breakerChange,
	}, nil
}

func requestAttrs(meta RequestMeta) metric.MeasurementOption {
	var attrs []attribute.KeyValue
	if meta.Model != "" {
		attrs = append(attrs, attribute.String("genai.model", meta.Model))
	}
	if meta.Provider != "" {
		attrs = append(attrs, attribute.String("genai.provider", meta.Provider))
	}
	if meta.Priority != "" {
		attrs = append(attrs, attribute.String("request.priority", meta.Priority))
	}
	return metric.WithAttributes(attrs...)
}

// RecordRequest records metrics for one generation attempt.
func (m *metricsImpl) RecordRequest(ctx context.Context, meta RequestMeta, duration time.Duration, err error) {
	opt := requestAttrs(meta)

	m.totalCount.Add(ctx, 1, opt)
	if err != nil {
		m.errorCount.Add(ctx, 1, opt)
	}
	m.durationHist.Record(ctx, float64(duration.Milliseconds()), opt)
}

// RecordRetry counts a re-enqueued request.
func (m *metricsImpl) RecordRetry(ctx context.Context, meta RequestMeta) {
	m.retryCount.Add(ctx, 1, requestAttrs(meta))
}

// RecordQueueDepth reports the current queue depth.
func (m *metricsImpl) RecordQueueDepth(ctx context.Context, depth int) {
	m.queueDepth.Record(ctx, int64(depth))
}

// RecordProbe records one connectivity check outcome.
func (m *metricsImpl) RecordProbe(ctx context.Context, connected bool, latency time.Duration) {
	opt := metric.WithAttributes(attribute.Bool("net.connected", connected))
	m.probeCount.Add(ctx, 1, opt)
	m.probeLatency.Record(ctx, float64(latency.Milliseconds()), opt)
}

// RecordBreakerTransition counts a breaker state change.
func (m *metricsImpl) RecordBreakerTransition(ctx context.Context, from, to string) {
	m.breakerChange.Add(ctx, 1, metric.WithAttributes(
		attribute.String("breaker.from", from),
		attribute.String("breaker.to", to),
	))
}

// noopMetrics is a metrics implementation that does nothing.
type noopMetrics struct{}

func (m *noopMetrics) RecordRequest(ctx context.Context, meta RequestMeta, duration time.Duration, err error) {
}
func (m *noopMetrics) RecordRetry(ctx context.Context, meta RequestMeta)                 {}
func (m *noopMetrics) RecordQueueDepth(ctx context.Context, depth int)                   {}
func (m *noopMetrics) RecordProbe(ctx context.Context, connected bool, d time.Duration)  {}
func (m *noopMetrics) RecordBreakerTransition(ctx context.Context, from, to string)      {}

// NopMetrics returns a Metrics that discards everything.
func NopMetrics() Metrics {
	return &noopMetrics{}
}
