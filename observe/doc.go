// Package observe provides OpenTelemetry-based observability for outbound
// provider calls made through the gateway.
//
// It is a pure instrumentation library: no execution, no transport, no I/O
// beyond exporter setup. The pipeline package wires the Observer into every
// request it executes.
//
// # Overview
//
// observe provides three observability pillars:
//   - Tracing: OpenTelemetry spans carrying provider/endpoint attributes
//   - Metrics: Request counters, error counters, and duration histograms
//   - Logging: Structured JSON logging with automatic field redaction
//
// # Core Components
//
//   - [Observer]: Main facade providing Tracer, Meter, and Logger access
//   - [Tracer]: Span creation with call metadata as span attributes
//   - [Metrics]: Records request counts, errors, and duration histograms
//   - [Logger]: Structured JSON logging with sensitive field redaction
//   - [Middleware]: Wraps ExecuteFunc with complete observability
//
// # Quick Start
//
//	cfg := observe.Config{
//	    ServiceName: "my-gateway",
//	    Version:     "1.0.0",
//	    Tracing:     observe.TracingConfig{Enabled: true, Exporter: "otlp", SamplePct: 1.0},
//	    Metrics:     observe.MetricsConfig{Enabled: true, Exporter: "prometheus"},
//	    Logging:     observe.LoggingConfig{Enabled: true, Level: "info"},
//	}
//
//	obs, err := observe.NewObserver(ctx, cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer obs.Shutdown(ctx)
//
//	mw, _ := observe.MiddlewareFromObserver(obs)
//	wrapped := mw.Wrap(originalExecuteFunc)
//
// # Telemetry Details
//
// Tracing creates spans named "boundary.request.<provider>.<endpoint>", with
// attributes boundary.provider, boundary.endpoint, boundary.method,
// boundary.request_id and boundary.error.
//
// Metrics recorded:
//   - boundary.request.count (counter)
//   - boundary.request.error (counter, tagged with boundary.error_category)
//   - boundary.request.duration (histogram, milliseconds)
//
// # Sensitive Field Redaction
//
// The logger delegates redaction to package sanitize; see
// [sanitize.IsSensitiveKey] for the matched key set.
//
// # Exporter Configuration
//
// Tracing exporters:
//   - "otlp": OTLP gRPC (requires OTEL_EXPORTER_OTLP_ENDPOINT or OTEL_EXPORTER_OTLP_TRACES_ENDPOINT)
//   - "jaeger": Jaeger via OTLP (requires OTEL_EXPORTER_JAEGER_ENDPOINT)
//   - "stdout": Console output for development
//   - "none" or "": Disabled (no-op)
//
// Metrics exporters:
//   - "otlp": OTLP gRPC (requires OTEL_EXPORTER_OTLP_ENDPOINT or OTEL_EXPORTER_OTLP_METRICS_ENDPOINT)
//   - "prometheus": Prometheus scrape endpoint
//   - "stdout": Console output for development
//   - "none" or "": Disabled (no-op)
//
// # Thread Safety
//
// All exported types are safe for concurrent use after construction.
package observe
