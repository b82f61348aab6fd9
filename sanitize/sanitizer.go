package sanitize

// RequestSanitizer produces a redacted copy of outbound request
// metadata (headers, query parameters, and an optional body) for
// observability. The original request is never touched; sanitization
// happens on a copy taken just before emission.
type RequestSanitizer struct {
	keys KeySet
}

// NewRequestSanitizer builds a RequestSanitizer over the default
// request-level redaction terms plus any extra terms from config.
func NewRequestSanitizer(extraKeys ...string) *RequestSanitizer {
	return &RequestSanitizer{keys: DefaultKeySet(extraKeys...)}
}

// Headers returns a redacted copy of a multi-value header map. A key
// whose normalized form contains a redacted term has every value
// replaced with Mask; a value containing a redacted term is replaced
// even when its key does not match.
func (s *RequestSanitizer) Headers(headers map[string][]string) map[string][]string {
	out := make(map[string][]string, len(headers))
	for key, values := range headers {
		if s.keys.MatchesKey(key) {
			out[key] = maskAll(values)
			continue
		}
		redacted := make([]string, len(values))
		for i, v := range values {
			if s.keys.MatchesValue(v) {
				redacted[i] = Mask
			} else {
				redacted[i] = v
			}
		}
		out[key] = redacted
	}
	return out
}

// Query returns a redacted copy of scalar query parameters.
func (s *RequestSanitizer) Query(query map[string]string) map[string]string {
	out := make(map[string]string, len(query))
	for key, value := range query {
		if s.keys.MatchesKey(key) || s.keys.MatchesValue(value) {
			out[key] = Mask
		} else {
			out[key] = value
		}
	}
	return out
}

// Body returns the body unchanged unless "body" is itself a redacted
// term, in which case the whole value is replaced wholesale.
func (s *RequestSanitizer) Body(body any) any {
	if s.keys.MatchesKey("body") {
		return Mask
	}
	return body
}

func maskAll(values []string) []string {
	out := make([]string, len(values))
	for i := range values {
		out[i] = Mask
	}
	return out
}

// MetadataSanitizer redacts canonical-error metadata bags before they
// reach a caller or a log sink. It walks maps recursively; arrays and
// non-map leaves pass through untouched except for a direct key match
// at the parent level.
type MetadataSanitizer struct {
	keys KeySet
}

// NewMetadataSanitizer builds a MetadataSanitizer over the wider
// metadata redaction term set plus any extra terms from config.
func NewMetadataSanitizer(extraKeys ...string) *MetadataSanitizer {
	return &MetadataSanitizer{keys: MetadataKeySet(extraKeys...)}
}

// Metadata returns a deep-sanitized copy of an arbitrary metadata bag.
func (s *MetadataSanitizer) Metadata(meta map[string]any) map[string]any {
	return s.walk(meta)
}

func (s *MetadataSanitizer) walk(meta map[string]any) map[string]any {
	out := make(map[string]any, len(meta))
	for key, value := range meta {
		if s.keys.MatchesKey(key) {
			out[key] = Mask
			continue
		}
		switch v := value.(type) {
		case map[string]any:
			out[key] = s.walk(v)
		case []any:
			out[key] = s.walkSlice(v)
		default:
			out[key] = value
		}
	}
	return out
}

func (s *MetadataSanitizer) walkSlice(items []any) []any {
	out := make([]any, len(items))
	for i, item := range items {
		switch v := item.(type) {
		case map[string]any:
			out[i] = s.walk(v)
		case []any:
			out[i] = s.walkSlice(v)
		default:
			out[i] = item
		}
	}
	return out
}

// ObservabilitySanitizer redacts metric tags and on-log error metadata.
// Unlike MetadataSanitizer, a string value alone can trigger redaction
// even when its key does not match any term.
type ObservabilitySanitizer struct {
	keys KeySet
}

// NewObservabilitySanitizer builds an ObservabilitySanitizer over the
// wider metadata redaction term set plus any extra terms from config.
func NewObservabilitySanitizer(extraKeys ...string) *ObservabilitySanitizer {
	return &ObservabilitySanitizer{keys: MetadataKeySet(extraKeys...)}
}

// Tags returns a redacted copy of a flat tag/attribute map, redacting
// by key or by string value.
func (s *ObservabilitySanitizer) Tags(tags map[string]any) map[string]any {
	out := make(map[string]any, len(tags))
	for key, value := range tags {
		if s.keys.MatchesKey(key) {
			out[key] = Mask
			continue
		}
		if str, ok := value.(string); ok && s.keys.MatchesValue(str) {
			out[key] = Mask
			continue
		}
		out[key] = value
	}
	return out
}
