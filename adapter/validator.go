package adapter

import (
	"context"
	"fmt"
	"net/http"

	"github.com/jonwraymond/boundary/cerr"
)

// canonicalCategories is the closed category set parseError's output
// must belong to.
var canonicalCategories = map[cerr.Category]struct{}{
	cerr.CategoryAuth:       {},
	cerr.CategoryRateLimit:  {},
	cerr.CategoryNetwork:    {},
	cerr.CategoryProvider:   {},
	cerr.CategoryValidation: {},
}

// Fixture is one canonical (status, body) pair the validator feeds to
// ParseError during startup probing.
type Fixture struct {
	Name string
	Raw  RawResponse
}

// defaultFixtures covers the status families parseError must be able
// to interpret without leaking vendor-specific shape.
var defaultFixtures = []Fixture{
	{Name: "unauthorized", Raw: RawResponse{Status: http.StatusUnauthorized, Headers: http.Header{}, Body: map[string]any{"message": "bad credentials"}}},
	{Name: "rate_limited", Raw: RawResponse{Status: http.StatusTooManyRequests, Headers: http.Header{"Retry-After": []string{"2"}}, Body: map[string]any{"message": "rate limited"}}},
	{Name: "not_found", Raw: RawResponse{Status: http.StatusNotFound, Headers: http.Header{}, Body: map[string]any{"message": "not found"}}},
	{Name: "server_error", Raw: RawResponse{Status: http.StatusInternalServerError, Headers: http.Header{}, Body: map[string]any{"message": "boom"}}},
}

// defaultResponseFixtures covers the successful-response shapes
// parseResponse must normalize: a plain object body and a
// vendor-wrapped envelope it must unwrap rather than pass through
// verbatim.
var defaultResponseFixtures = []Fixture{
	{Name: "plain_object", Raw: RawResponse{Status: http.StatusOK, Headers: http.Header{"Content-Type": []string{"application/json"}}, Body: map[string]any{"id": "1", "name": "widget"}}},
	{Name: "vendor_envelope", Raw: RawResponse{Status: http.StatusOK, Headers: http.Header{"Content-Type": []string{"application/json"}}, Body: map[string]any{"data": map[string]any{"id": "1"}, "x_vendor_trace_id": "abc123"}}},
}

// Validate probes adapter with canonical fixtures and the sentinel
// auth call, rejecting adapters whose outputs violate the contract.
// Validation is synchronous for the pure methods and awaits
// AuthStrategy with the sentinel config; validation failure is fatal,
// so callers should treat a non-nil error as unrecoverable for this
// provider.
func Validate(ctx context.Context, a Adapter) error {
	if a.Name() == "" {
		return fmt.Errorf("adapter validation: Name() must be non-empty")
	}

	if err := validateParseError(a); err != nil {
		return err
	}

	if err := validateParseResponse(a); err != nil {
		return err
	}

	if a.PaginationStrategy() == nil {
		return fmt.Errorf("adapter %q: PaginationStrategy must return a non-nil strategy", a.Name())
	}

	idemp := a.GetIdempotencyConfig()
	for pattern := range idemp.OperationOverrides {
		if pattern == "" {
			return fmt.Errorf("adapter %q: idempotency override key must not be empty", a.Name())
		}
	}

	rl := a.RateLimitPolicy(http.Header{})
	if rl.Limit < 0 || rl.Remaining < 0 || rl.Remaining > rl.Limit && rl.Limit > 0 {
		return fmt.Errorf("adapter %q: RateLimitPolicy default must satisfy limit>=0, 0<=remaining<=limit", a.Name())
	}

	token, err := a.AuthStrategy(ctx, SentinelAuthConfig)
	if err != nil {
		return fmt.Errorf("adapter %q: sentinel AuthStrategy probe failed: %w", a.Name(), err)
	}
	_ = token

	return nil
}

// vendorMarkerKey is the top-level key defaultResponseFixtures plants
// on its wrapped-envelope fixture to prove parseResponse actually
// unwraps vendor shape instead of passing the raw body through.
const vendorMarkerKey = "x_vendor_trace_id"

func validateParseResponse(a Adapter) error {
	for _, fx := range defaultResponseFixtures {
		result, err := a.ParseResponse(fx.Raw)
		if err != nil {
			return fmt.Errorf("adapter %q: ParseResponse(%s) returned error: %w", a.Name(), fx.Name, err)
		}
		if result.Meta.Provider != a.Name() {
			return fmt.Errorf("adapter %q: ParseResponse(%s) returned meta.provider %q, want %q", a.Name(), fx.Name, result.Meta.Provider, a.Name())
		}
		if dataLeaksTopLevelKey(result.Data, vendorMarkerKey) {
			return fmt.Errorf("adapter %q: ParseResponse(%s) leaked vendor-specific top-level field %q", a.Name(), fx.Name, vendorMarkerKey)
		}
	}
	return nil
}

// dataLeaksTopLevelKey reports whether data is a map carrying key at
// its top level, the shape a faithful unwrap must never pass through.
func dataLeaksTopLevelKey(data any, key string) bool {
	m, ok := data.(map[string]any)
	if !ok {
		return false
	}
	_, leaked := m[key]
	return leaked
}

func validateParseError(a Adapter) error {
	for _, fx := range defaultFixtures {
		result := a.ParseError(fx.Raw)
		if result == nil {
			return fmt.Errorf("adapter %q: ParseError(%s) returned nil", a.Name(), fx.Name)
		}
		if _, ok := canonicalCategories[result.Category]; !ok {
			return fmt.Errorf("adapter %q: ParseError(%s) returned non-canonical category %q", a.Name(), fx.Name, result.Category)
		}
		if result.Message == "" {
			return fmt.Errorf("adapter %q: ParseError(%s) returned empty message", a.Name(), fx.Name)
		}
		if hasVendorTopLevelFields(result) {
			return fmt.Errorf("adapter %q: ParseError(%s) leaked vendor-specific top-level fields", a.Name(), fx.Name)
		}
	}
	return nil
}

// hasVendorTopLevelFields is a defensive check: CanonicalError's
// struct shape already excludes arbitrary top-level fields, so the
// only way an adapter could leak vendor shape outside the sanctioned
// Metadata bag is by stuffing it into Message itself, which
// validateParseError already bounds via the non-empty check. This
// exists as an explicit extension point should CanonicalError ever
// grow a free-form field.
func hasVendorTopLevelFields(*cerr.CanonicalError) bool {
	return false
}
