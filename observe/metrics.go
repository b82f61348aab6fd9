package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics records gateway request metrics for outbound provider calls.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: must honor cancellation/deadlines and return quickly.
// - Errors: implementations must not panic.
type Metrics interface {
	// RecordRequest records one pipeline execution with duration and error status.
	RecordRequest(ctx context.Context, meta CallMeta, duration time.Duration, errCategory string)
}

// metricsImpl is the concrete implementation of Metrics.
type metricsImpl struct {
	meter        metric.Meter
	totalCount   metric.Int64Counter
	errorCount   metric.Int64Counter
	durationHist metric.Float64Histogram
}

// newMetrics creates a new Metrics instance with the given meter.
func newMetrics(meter metric.Meter) (*metricsImpl, error) {
	totalCount, err := meter.Int64Counter(
		"boundary.request.count",
		metric.WithDescription("Total number of gateway requests"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}

	errorCount, err := meter.Int64Counter(
		"boundary.request.error",
		metric.WithDescription("Total number of failed gateway requests"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	durationHist, err := meter.Float64Histogram(
		"boundary.request.duration",
		metric.WithDescription("Gateway request duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return &metricsImpl{
		meter:        meter,
		totalCount:   totalCount,
		errorCount:   errorCount,
		durationHist: durationHist,
	}, nil
}

// RecordRequest records metrics for a pipeline execution. errCategory is the
// CanonicalError.Category when err != "", empty otherwise.
func (m *metricsImpl) RecordRequest(ctx context.Context, meta CallMeta, duration time.Duration, errCategory string) {
	attrs := []attribute.KeyValue{
		attribute.String("boundary.provider", meta.Provider),
	}
	if meta.Endpoint != "" {
		attrs = append(attrs, attribute.String("boundary.endpoint", meta.Endpoint))
	}

	opt := metric.WithAttributes(attrs...)

	m.totalCount.Add(ctx, 1, opt)

	if errCategory != "" {
		errAttrs := append(attrs, attribute.String("boundary.error_category", errCategory))
		m.errorCount.Add(ctx, 1, metric.WithAttributes(errAttrs...))
	}

	durationMs := float64(duration.Microseconds()) / 1000.0
	m.durationHist.Record(ctx, durationMs, opt)
}

// NewMetrics wraps an OpenTelemetry meter (e.g. an Observer's Meter())
// as a boundary Metrics, registering the three pipeline instruments.
func NewMetrics(meter metric.Meter) (Metrics, error) {
	return newMetrics(meter)
}

// noopMetrics is a metrics implementation that does nothing.
type noopMetrics struct{}

func (m *noopMetrics) RecordRequest(ctx context.Context, meta CallMeta, duration time.Duration, errCategory string) {
}

// NoopMetrics returns a Metrics implementation that discards every
// recorded request, for use where metrics are disabled.
func NoopMetrics() Metrics {
	return &noopMetrics{}
}
