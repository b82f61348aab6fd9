package observe

import (
	"context"
	"time"
)

// ExecuteFunc is the signature for outbound provider call execution functions.
// This is the standard function signature that Middleware wraps.
type ExecuteFunc func(ctx context.Context, call CallMeta, input any) (any, error)

// ErrorCategory is implemented by errors that carry a canonical error
// category string for metrics tagging (see package cerr).
type ErrorCategory interface {
	ErrorCategory() string
}

// Middleware wraps outbound call execution with observability (tracing, metrics, logging).
//
// Contract:
//   - Concurrency: Wrap() returns a thread-safe ExecuteFunc.
//   - Context: Propagates context through tracing spans.
//   - Errors: Errors from wrapped function are recorded and propagated unchanged.
//   - Ownership: Input/output values are passed through without modification.
type Middleware struct {
	tracer  Tracer
	metrics Metrics
	logger  Logger
}

// NewMiddleware creates a new Middleware with the given observability components.
func NewMiddleware(tracer Tracer, metrics Metrics, logger Logger) *Middleware {
	return &Middleware{
		tracer:  tracer,
		metrics: metrics,
		logger:  logger,
	}
}

// Wrap wraps an ExecuteFunc with tracing, metrics, and logging.
func (m *Middleware) Wrap(fn ExecuteFunc) ExecuteFunc {
	return func(ctx context.Context, call CallMeta, input any) (any, error) {
		ctx, span := m.tracer.StartSpan(ctx, call)

		start := time.Now()
		result, err := fn(ctx, call, input)
		duration := time.Since(start)

		m.tracer.EndSpan(span, err)

		var category string
		if err != nil {
			if ec, ok := err.(ErrorCategory); ok {
				category = ec.ErrorCategory()
			} else {
				category = "unknown"
			}
		}
		m.metrics.RecordRequest(ctx, call, duration, category)

		callLogger := m.logger.WithCall(call)
		fields := []Field{
			{Key: "duration_ms", Value: float64(duration.Microseconds()) / 1000.0},
		}

		if err != nil {
			fields = append(fields, Field{Key: "error", Value: err.Error()})
			callLogger.Error(ctx, "provider request failed", fields...)
		} else {
			callLogger.Info(ctx, "provider request completed", fields...)
		}

		return result, err
	}
}

// MiddlewareFromObserver creates a Middleware from an Observer.
// This is a convenience function for common use cases.
func MiddlewareFromObserver(obs Observer) (*Middleware, error) {
	tracer := newTracer(obs.Tracer())

	metrics, err := newMetrics(obs.Meter())
	if err != nil {
		return nil, err
	}

	return NewMiddleware(tracer, metrics, obs.Logger()), nil
}
