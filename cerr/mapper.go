package cerr

import (
	"strings"

	"github.com/jonwraymond/boundary/sanitize"
)

// networkMessageTerms are substrings that, when found in an otherwise
// uncategorized error message, indicate a network-layer failure.
var networkMessageTerms = []string{"timeout", "econnreset", "enotfound"}

// Mapper is the error sanitizer: the funnel every adapter-produced
// error (or catastrophic parseError failure) passes through before it
// leaves the pipeline. It reasserts provider/requestId, infers the
// category only when the adapter left it unset, re-derives the code
// from category and status (a TIMEOUT code is kept), and recomputes
// retryable from the code.
type Mapper struct {
	sanitizer *sanitize.MetadataSanitizer
}

// NewMapper builds a Mapper with the default metadata redaction terms
// plus any extra terms from config.
func NewMapper(extraRedactionKeys ...string) *Mapper {
	return &Mapper{sanitizer: sanitize.NewMetadataSanitizer(extraRedactionKeys...)}
}

// Sanitize reasserts provider and requestID on err, infers a missing
// category from status and message, re-derives code and retryable, and
// deep-sanitizes metadata.
// It always returns a new value; err is not mutated.
func (m *Mapper) Sanitize(err *CanonicalError, provider, requestID string) *CanonicalError {
	out := *err
	out.Provider = provider
	out.RequestID = requestID

	if out.Category == "" {
		out.Category = inferCategory(out.Status, out.Message)
	}

	// TIMEOUT is never produced by DeriveCode; it is set directly by the
	// pipeline on cancellation and must survive sanitization unchanged.
	if out.Code != CodeTimeout {
		out.Code = DeriveCode(out.Category, out.Status)
	}
	out.Retryable = IsRetryable(out.Code)

	if out.Metadata != nil {
		out.Metadata = m.sanitizer.Metadata(out.Metadata)
	}

	return &out
}

// inferCategory applies the fixed inference rules used when an adapter
// leaves category unset: 401/403 -> auth; 429 -> rate_limit; >=500 ->
// provider; >=400 -> validation; message substring match -> network;
// otherwise provider.
func inferCategory(status int, message string) Category {
	switch {
	case status == 401 || status == 403:
		return CategoryAuth
	case status == 429:
		return CategoryRateLimit
	case status >= 500:
		return CategoryProvider
	case status >= 400:
		return CategoryValidation
	}

	lowered := strings.ToLower(message)
	for _, term := range networkMessageTerms {
		if strings.Contains(lowered, term) {
			return CategoryNetwork
		}
	}
	return CategoryProvider
}

// FromPanic builds the sanitized provider error used when an adapter's
// parseError itself fails catastrophically. The original failure and
// the panic value are both recorded in metadata, never in Message.
func FromPanic(recovered any, original error, provider, requestID string) *CanonicalError {
	meta := map[string]any{
		"panic": formatRecovered(recovered),
	}
	if original != nil {
		meta["original_error"] = original.Error()
	}

	out := New(CategoryProvider, 0, "provider error handling failed")
	out.Provider = provider
	out.RequestID = requestID
	out.Metadata = meta
	return out
}

func formatRecovered(recovered any) string {
	if err, ok := recovered.(error); ok {
		return err.Error()
	}
	if s, ok := recovered.(string); ok {
		return s
	}
	return "unknown panic value"
}
