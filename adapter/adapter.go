// Package adapter defines the provider adapter contract: the closed
// capability set the pipeline drives without ever branching on
// provider identity, plus the normalized request/response types that
// cross the adapter boundary.
package adapter

import (
	"context"
	"net/http"
	"time"

	"github.com/jonwraymond/boundary/cerr"
	"github.com/jonwraymond/boundary/idempotency"
	"github.com/jonwraymond/boundary/pagination"
)

// RequestOptions is the caller-facing shape of one outbound call.
// Query values are scalar only; the sanitized copy (not this one) is
// what reaches observability, while the original drives the HTTP call.
type RequestOptions struct {
	Method         string
	Headers        map[string][]string
	Query          map[string]string
	Body           any
	IdempotencyKey string
	Timeout        time.Duration
}

// AuthToken is the opaque credential an adapter's authStrategy
// resolves; the pipeline never inspects its fields, only whether
// resolution failed.
type AuthToken struct {
	Token     string
	ExpiresAt time.Time
}

// BuiltRequest is what buildRequest produces: the concrete wire shape
// of one HTTP call, still unexecuted.
type BuiltRequest struct {
	URL     string
	Method  string
	Headers http.Header
	Body    []byte
}

// RawResponse is the pipeline's case-insensitive, content-type-aware
// reassembly of one HTTP response, handed to parseResponse/parseError.
type RawResponse struct {
	Status  int
	Headers http.Header
	Body    any
}

// NormalizedResponse is the canonical envelope every successful call
// returns, immutable once constructed.
type NormalizedResponse struct {
	Data any
	Meta ResponseMeta
}

// ResponseMeta is the metadata attached to every NormalizedResponse.
// RequestID is always overwritten by the pipeline with its own
// assigned id, regardless of what parseResponse supplies.
type ResponseMeta struct {
	Provider      string
	RequestID     string
	RateLimit     RateLimitInfo
	Pagination    *PaginationInfo
	Warnings      []string
	SchemaVersion string
}

// RateLimitInfo is the normalized rate-limit snapshot attached to a
// response; Limit/Remaining/Reset hold deterministic defaults when the
// adapter or headers package could not parse anything trustworthy.
type RateLimitInfo struct {
	Limit     int
	Remaining int
	Reset     time.Time
}

// PaginationInfo is attached to ResponseMeta only when the adapter's
// pagination strategy declares a next page.
type PaginationInfo struct {
	HasNext bool
	Cursor  string
	Total   *int
}

// IdempotencyConfig is what getIdempotencyConfig returns: the
// per-provider defaults fed into idempotency.NewResolver.
type IdempotencyConfig struct {
	DefaultSafeOperations []string
	OperationOverrides    map[string]idempotency.Level
}

// Adapter is the capability set a provider must implement. No method
// may perform I/O except authStrategy, which may suspend to exchange
// credentials.
type Adapter interface {
	// Name is the provider name this adapter is registered under.
	Name() string

	// BuildRequest is a pure function: resolves the URL (including
	// query encoding), injects the auth header, serializes a JSON body
	// with its content-type header, and attaches the idempotency key
	// header when present. Must not perform I/O.
	BuildRequest(endpoint string, options RequestOptions, authToken AuthToken, baseURL string) (BuiltRequest, error)

	// ParseResponse extracts rate limit, pagination, and data from a
	// successful raw response. The returned Meta.Provider must equal
	// Name().
	ParseResponse(raw RawResponse) (NormalizedResponse, error)

	// ParseError is the only place vendor error shapes are
	// interpreted. Must return a canonical error and must not leak
	// vendor-specific fields outside its Metadata bag; the pipeline
	// re-sanitizes the result regardless.
	ParseError(raw RawResponse) *cerr.CanonicalError

	// AuthStrategy resolves the token for this call. It must
	// recognize SentinelAuthConfig and short-circuit without side
	// effects, returning a fixed sentinel token. On credential
	// failure it must return an error with category=auth.
	AuthStrategy(ctx context.Context, config AuthConfig) (AuthToken, error)

	// RateLimitPolicy is tolerant of missing/invalid headers; it
	// returns deterministic defaults with Reset one hour in the
	// future when nothing is parseable.
	RateLimitPolicy(headers http.Header) RateLimitInfo

	// PaginationStrategy is a factory; its result must be stable
	// across calls (same configuration every time it is invoked).
	PaginationStrategy() pagination.Strategy

	// GetIdempotencyConfig returns the default safe method set and
	// pattern-matched overrides for this provider.
	GetIdempotencyConfig() IdempotencyConfig
}

// AuthConfig carries the provider's credential material into
// AuthStrategy. Sentinel is true only for the synthetic probe call the
// validator makes at startup.
type AuthConfig struct {
	Token       string
	Credentials map[string]string
	Sentinel    bool
}

// SentinelAuthConfig is the fixed probe value the validator passes to
// AuthStrategy during startup validation. Adapters must recognize it
// (via AuthConfig.Sentinel) and return without contacting any upstream
// credential service.
var SentinelAuthConfig = AuthConfig{Sentinel: true}
