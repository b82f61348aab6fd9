// Package sanitize redacts sensitive keys and values before request
// metadata, error metadata, or observability payloads leave the process.
//
// Redaction never mutates its input; every exported function returns a
// new value, leaving the original untouched so it can continue to the
// HTTP layer or the caller unmodified.
package sanitize

import "strings"

// Mask replaces the value of a redacted field or key.
const Mask = "[REDACTED]"

// defaultKeys is the baseline redaction term set shared by every
// sanitizer. Config may extend it with additional terms.
var defaultKeys = []string{
	"authorization",
	"cookie",
	"token",
	"apikey",
	"api_key",
	"body",
}

// metadataKeys is the wider term set used when walking error metadata
// and observability payloads, where nested credentials are more likely
// to appear under descriptive names. This is the fixed term list;
// callers extend it with their own terms, never by editing this set.
var metadataKeys = []string{
	"password",
	"secret",
	"token",
	"apikey",
	"api_key",
	"authorization",
	"cookie",
	"session",
	"credentials",
	"private_key",
	"access_token",
	"refresh_token",
}

// normalizeKey lowercases a key and strips hyphens/underscores so that
// "API-Key", "api_key", and "apikey" all match the same term.
func normalizeKey(key string) string {
	key = strings.ToLower(key)
	key = strings.ReplaceAll(key, "-", "")
	key = strings.ReplaceAll(key, "_", "")
	return key
}

// KeySet is a normalized set of redaction terms.
type KeySet struct {
	terms map[string]struct{}
}

// NewKeySet builds a KeySet from the given terms plus any extras.
func NewKeySet(terms []string, extra ...string) KeySet {
	ks := KeySet{terms: make(map[string]struct{}, len(terms)+len(extra))}
	for _, t := range terms {
		ks.terms[normalizeKey(t)] = struct{}{}
	}
	for _, t := range extra {
		ks.terms[normalizeKey(t)] = struct{}{}
	}
	return ks
}

// DefaultKeySet returns the baseline request-level redaction terms,
// extended with any caller-supplied terms.
func DefaultKeySet(extra ...string) KeySet {
	return NewKeySet(defaultKeys, extra...)
}

// MetadataKeySet returns the wider error-metadata/observability
// redaction terms, extended with any caller-supplied terms.
func MetadataKeySet(extra ...string) KeySet {
	return NewKeySet(metadataKeys, extra...)
}

// MatchesKey reports whether key contains one of the set's terms, once
// both are normalized (lowercased, hyphen/underscore-stripped).
func (ks KeySet) MatchesKey(key string) bool {
	normalized := normalizeKey(key)
	for term := range ks.terms {
		if strings.Contains(normalized, term) {
			return true
		}
	}
	return false
}

// MatchesValue reports whether a string value contains one of the
// set's terms, case-insensitively.
func (ks KeySet) MatchesValue(value string) bool {
	lowered := strings.ToLower(value)
	for term := range ks.terms {
		if term == "" {
			continue
		}
		if strings.Contains(lowered, term) {
			return true
		}
	}
	return false
}

// IsSensitiveKey reports whether key matches the package-wide default
// metadata redaction terms. It is a convenience for single-field
// callers (loggers, tracers) that do not need a configurable KeySet.
func IsSensitiveKey(key string) bool {
	return defaultMetadataKeySet.MatchesKey(key)
}

var defaultMetadataKeySet = MetadataKeySet()
