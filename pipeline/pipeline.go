// Package pipeline composes one provider's resilience stack -- auth,
// rate limiting, retry-wrapped circuit breaking, HTTP execution,
// response/error normalization, and sanitized observability emission
// -- around a single outbound call, in the fixed fourteen-step order
// the gateway guarantees for every request.
package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jonwraymond/boundary/adapter"
	"github.com/jonwraymond/boundary/breaker"
	"github.com/jonwraymond/boundary/cerr"
	"github.com/jonwraymond/boundary/idempotency"
	"github.com/jonwraymond/boundary/observe"
	"github.com/jonwraymond/boundary/pagination"
	"github.com/jonwraymond/boundary/ratelimiter"
	"github.com/jonwraymond/boundary/retry"
	"github.com/jonwraymond/boundary/sanitize"
)

// Config wires one provider's owned stack. Per spec ownership rules,
// every field here belongs exclusively to this pipeline; nothing is
// shared across providers except the Broadcaster's sinks (write-only).
type Config struct {
	Provider                    string
	BaseURL                     string
	Adapter                     adapter.Adapter
	AuthConfig                  adapter.AuthConfig
	RateLimiter                 *ratelimiter.Limiter
	Breaker                     *breaker.Breaker
	Retry                       *retry.Strategy
	Idempotency                 *idempotency.Resolver
	Mapper                      *cerr.Mapper
	Sanitizer                   *sanitize.RequestSanitizer
	Broadcaster                 *observe.Broadcaster
	Tracer                      observe.Tracer
	Metrics                     observe.Metrics
	Logger                      observe.Logger
	HTTPClient                  *http.Client
	DefaultTimeout              time.Duration
	NewRequestID                func() string
	AutoGenerateIdempotencyKeys bool
}

// Pipeline executes calls for exactly one provider.
type Pipeline struct {
	cfg Config
}

// New builds a Pipeline from cfg, applying the same defaults the
// registry applies at construction.
func New(cfg Config) *Pipeline {
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = http.DefaultClient
	}
	if cfg.DefaultTimeout <= 0 {
		cfg.DefaultTimeout = 30 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = observe.NewNoopLogger()
	}
	if cfg.Tracer == nil {
		cfg.Tracer = observe.NoopTracer()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = observe.NoopMetrics()
	}
	if cfg.Broadcaster == nil {
		cfg.Broadcaster = observe.NewBroadcaster(cfg.Logger)
	}
	return &Pipeline{cfg: cfg}
}

// Do runs the full fourteen-step pipeline for one call.
func (p *Pipeline) Do(ctx context.Context, endpoint string, options adapter.RequestOptions) (adapter.NormalizedResponse, error) {
	resp, _, err := p.doRaw(ctx, endpoint, options)
	return resp, err
}

// Paginate returns a lazy, finite, non-restartable sequence of pages
// starting at endpoint/options, per the adapter's pagination strategy.
func (p *Pipeline) Paginate(ctx context.Context, endpoint string, options adapter.RequestOptions) *PageIterator {
	strategy := p.cfg.Adapter.PaginationStrategy()
	pit := &PageIterator{}

	fetch := func(fctx context.Context, ep string, query map[string]string) (pagination.Page, error) {
		opts := options
		opts.Query = query
		resp, raw, err := p.doRaw(fctx, ep, opts)
		if err != nil {
			return pagination.Page{}, err
		}
		pit.lastResp = resp
		return pagination.Page{Headers: raw.Headers, Body: resp.Data}, nil
	}

	pit.inner = pagination.NewIterator(strategy, fetch, endpoint, cloneQuery(options.Query))
	return pit
}

// doRaw is the shared core behind Do and Paginate's fetcher; it also
// returns the raw HTTP response so Paginate can read pagination
// headers the normalized response discards.
func (p *Pipeline) doRaw(ctx context.Context, endpoint string, options adapter.RequestOptions) (adapter.NormalizedResponse, adapter.RawResponse, error) {
	requestID := p.cfg.NewRequestID()
	if options.IdempotencyKey == "" && p.cfg.AutoGenerateIdempotencyKeys {
		options.IdempotencyKey = requestID
	}
	hasKey := options.IdempotencyKey != ""
	level := p.cfg.Idempotency.Resolve(options.Method, endpoint)

	call := observe.CallMeta{
		Provider:  p.cfg.Provider,
		Endpoint:  endpoint,
		Method:    options.Method,
		RequestID: requestID,
	}

	p.emitRequest(ctx, call, options)

	start := time.Now()
	ctx, span := p.cfg.Tracer.StartSpan(ctx, call)

	resp, raw, err := p.execute(ctx, call, endpoint, options, level, hasKey, requestID)

	duration := time.Since(start)
	p.cfg.Tracer.EndSpan(span, err)

	if err != nil {
		p.cfg.Metrics.RecordRequest(ctx, call, duration, errorCategory(err))
		return adapter.NormalizedResponse{}, raw, err
	}

	p.cfg.Metrics.RecordRequest(ctx, call, duration, "")
	p.cfg.Broadcaster.EmitResponse(ctx, observe.ResponseContext{
		Call:     call,
		Status:   raw.Status,
		Duration: float64(duration.Microseconds()) / 1000.0,
	})
	return resp, raw, nil
}

// execute runs steps 4-11: auth, rate limiting, the retry-wrapped
// circuit breaker around HTTP execution, rate-limit feedback, and
// response normalization. On failure it produces the final, fully
// sanitized canonical error and emits it (steps 11-14).
func (p *Pipeline) execute(ctx context.Context, call observe.CallMeta, endpoint string, options adapter.RequestOptions, level idempotency.Level, hasKey bool, requestID string) (adapter.NormalizedResponse, adapter.RawResponse, error) {
	token, err := p.cfg.Adapter.AuthStrategy(ctx, p.cfg.AuthConfig)
	if err != nil {
		return p.fail(ctx, call, adapter.RawResponse{}, err, requestID)
	}

	if err := p.cfg.RateLimiter.Acquire(ctx); err != nil {
		return p.fail(ctx, call, adapter.RawResponse{}, err, requestID)
	}

	var raw adapter.RawResponse
	op := func(opCtx context.Context) error {
		return p.cfg.Breaker.Execute(opCtx, func(bctx context.Context) error {
			r, herr := p.httpCall(bctx, endpoint, options, token)
			raw = r
			return herr
		})
	}

	if err := p.cfg.Retry.Execute(ctx, level, hasKey, op); err != nil {
		return p.fail(ctx, call, raw, err, requestID)
	}

	if raw.Headers != nil {
		p.cfg.RateLimiter.UpdateFromHeaders(p.cfg.Adapter.RateLimitPolicy(raw.Headers))
	}

	resp, perr := p.cfg.Adapter.ParseResponse(raw)
	if perr != nil {
		return p.fail(ctx, call, raw, perr, requestID)
	}
	resp.Meta.RequestID = requestID
	return resp, raw, nil
}

// fail turns any error surfaced from the retry/breaker/auth/rate-limit
// stages into the final canonical error, runs it through the
// sanitizer, nudges the rate limiter on a 429, and emits it.
func (p *Pipeline) fail(ctx context.Context, call observe.CallMeta, raw adapter.RawResponse, err error, requestID string) (adapter.NormalizedResponse, adapter.RawResponse, error) {
	canonical := p.classify(err, raw)
	sanitized := p.cfg.Mapper.Sanitize(canonical, p.cfg.Provider, requestID)

	if sanitized.Category == cerr.CategoryRateLimit && sanitized.RetryAfter > 0 {
		p.cfg.RateLimiter.Handle429(sanitized.RetryAfter)
	}

	p.cfg.Broadcaster.EmitError(ctx, observe.ErrorContext{
		Call:          call,
		Category:      string(sanitized.Category),
		Code:          string(sanitized.Code),
		Message:       sanitized.Message,
		Retryable:     sanitized.Retryable,
		SanitizedMeta: sanitized.Metadata,
	})

	return adapter.NormalizedResponse{}, raw, sanitized
}

// classify turns whatever error the auth/rate-limit/retry/breaker
// stages produced into a CanonicalError, special-casing the two
// sources that never go through the adapter's ParseError: a
// short-circuiting breaker, and the rate limiter's own queue/pause
// errors.
func (p *Pipeline) classify(err error, raw adapter.RawResponse) *cerr.CanonicalError {
	if errors.Is(err, breaker.ErrOpen) {
		status := p.cfg.Breaker.Status()
		retryAfter := int(time.Until(status.NextAttempt).Seconds())
		if retryAfter < 0 {
			retryAfter = 0
		}
		return cerr.New(cerr.CategoryProvider, 0, "Circuit breaker is OPEN").
			WithRetryAfter(retryAfter).
			WithCause(err)
	}

	if errors.Is(err, ratelimiter.ErrQueueFull) {
		// Per the documented rate-limiter contract, a full wait queue is
		// a non-retryable provider error, not a rate-limit condition the
		// retry strategy should keep hammering.
		return cerr.New(cerr.CategoryProvider, 0, "rate limit queue is full").WithCode(cerr.CodeUnknown).WithCause(err)
	}

	if errors.Is(err, ratelimiter.ErrLimiterPaused) || errors.Is(err, ratelimiter.ErrReset) {
		return cerr.New(cerr.CategoryRateLimit, 0, err.Error()).WithCause(err)
	}

	if ce, ok := cerr.As(err); ok {
		return ce
	}

	if raw.Status != 0 {
		return p.safeParseError(raw, err)
	}

	return cerr.New(cerr.CategoryNetwork, 0, err.Error()).WithCause(err)
}

// safeParseError calls the adapter's ParseError, converting a
// catastrophic panic into the documented sanitized provider error
// (recording the original failure and the panic value in metadata)
// instead of letting it crash the call.
func (p *Pipeline) safeParseError(raw adapter.RawResponse, original error) (ce *cerr.CanonicalError) {
	defer func() {
		if r := recover(); r != nil {
			ce = cerr.FromPanic(r, original, p.cfg.Provider, "")
		}
	}()
	return p.cfg.Adapter.ParseError(raw)
}

// httpCall builds and executes one HTTP request. Non-2xx responses
// and the timeout case are classified into a CanonicalError
// immediately via the adapter's ParseError, since that is the only
// place vendor error shapes are interpreted and the retry gate needs
// an explicit retryable bit on every attempt, not only the final one.
func (p *Pipeline) httpCall(ctx context.Context, endpoint string, options adapter.RequestOptions, token adapter.AuthToken) (adapter.RawResponse, error) {
	timeout := p.cfg.DefaultTimeout
	if options.Timeout > 0 && options.Timeout < timeout {
		timeout = options.Timeout
	}
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	built, err := p.cfg.Adapter.BuildRequest(endpoint, options, token, p.cfg.BaseURL)
	if err != nil {
		return adapter.RawResponse{}, cerr.New(cerr.CategoryValidation, 0, err.Error()).WithCause(err)
	}

	req, err := http.NewRequestWithContext(cctx, built.Method, built.URL, bytes.NewReader(built.Body))
	if err != nil {
		return adapter.RawResponse{}, cerr.New(cerr.CategoryValidation, 0, err.Error()).WithCause(err)
	}
	req.Header = built.Headers

	resp, err := p.cfg.HTTPClient.Do(req)
	if err != nil {
		if cctx.Err() != nil {
			return adapter.RawResponse{}, cerr.New(cerr.CategoryNetwork, 0, fmt.Sprintf("Request timeout after %dms", timeout.Milliseconds())).
				WithCode(cerr.CodeTimeout).
				WithCause(err)
		}
		return adapter.RawResponse{}, cerr.New(cerr.CategoryNetwork, 0, err.Error()).WithCause(err)
	}
	defer resp.Body.Close()

	bodyBytes, _ := io.ReadAll(resp.Body)
	raw := adapter.RawResponse{
		Status:  resp.StatusCode,
		Headers: resp.Header,
		Body:    decodeBody(resp.Header.Get("Content-Type"), bodyBytes),
	}

	if raw.Status < 200 || raw.Status >= 300 {
		return raw, p.safeParseError(raw, nil)
	}
	return raw, nil
}

func decodeBody(contentType string, body []byte) any {
	if strings.Contains(contentType, "json") {
		var v any
		if err := json.Unmarshal(body, &v); err == nil {
			return v
		}
	}
	return string(body)
}

func (p *Pipeline) emitRequest(ctx context.Context, call observe.CallMeta, options adapter.RequestOptions) {
	reqSanitizer := p.cfg.Sanitizer
	p.cfg.Broadcaster.EmitRequest(ctx, observe.RequestContext{
		Call:    call,
		Headers: reqSanitizer.Headers(options.Headers),
		Query:   reqSanitizer.Query(options.Query),
		Body:    reqSanitizer.Body(options.Body),
	})
}

func errorCategory(err error) string {
	if ce, ok := cerr.As(err); ok {
		return string(ce.Category)
	}
	return "unknown"
}

func cloneQuery(q map[string]string) map[string]string {
	next := make(map[string]string, len(q))
	for k, v := range q {
		next[k] = v
	}
	return next
}

// PageIterator wraps pagination.Iterator so each successive page is
// delivered as a full NormalizedResponse rather than the bare
// pagination.Page the generic iterator deals in.
type PageIterator struct {
	inner    *pagination.Iterator
	lastResp adapter.NormalizedResponse
}

// Next fetches the next page. See pagination.Iterator.Next.
func (it *PageIterator) Next(ctx context.Context) bool {
	return it.inner.Next(ctx)
}

// Response returns the most recently fetched page's normalized response.
func (it *PageIterator) Response() adapter.NormalizedResponse {
	return it.lastResp
}

// Err returns the error that stopped iteration, if any.
func (it *PageIterator) Err() error {
	return it.inner.Err()
}
