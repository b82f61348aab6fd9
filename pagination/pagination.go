// Package pagination implements the three page-fetch strategies a
// provider adapter can declare (Link-header/cursor, opaque cursor,
// offset) behind one Strategy interface, plus the lazy iterator that
// drives pagination and enforces its two safety invariants: the cursor
// sequence is injective, and it is capped at 1000 pages.
package pagination

import "net/http"

// Page is one fetched page: the raw response headers and the decoded
// body, which a strategy inspects to find the next cursor and total.
type Page struct {
	Headers http.Header
	Body    any
}

// Strategy is the common interface the three concrete pagination
// strategies implement. ExtractTotal and ExtractCursor report ok=false
// when the page carries no such information; HasNext decides whether a
// next page should be fetched at all.
type Strategy interface {
	ExtractCursor(page Page) (cursor string, ok bool)
	ExtractTotal(page Page) (total int, ok bool)
	HasNext(page Page) bool
	BuildNextRequest(endpoint string, options map[string]string, cursor string) (string, map[string]string)
}

// safeMaxTotal bounds a total extracted from a provider-controlled
// header or body field; values outside [0, safeMaxTotal] are treated
// as absent rather than trusted verbatim.
const safeMaxTotal = 1 << 31

func totalInRange(total int) bool {
	return total >= 0 && total <= safeMaxTotal
}

// bodyField reads a top-level field out of a JSON-decoded body,
// tolerating bodies that are not an object.
func bodyField(body any, field string) (any, bool) {
	m, ok := body.(map[string]any)
	if !ok {
		return nil, false
	}
	v, ok := m[field]
	return v, ok
}

// asInt coerces a JSON-decoded numeric value (float64, per
// encoding/json's default decoding) to an int.
func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case float64:
		return int(n), true
	case int:
		return n, true
	default:
		return 0, false
	}
}

// asString coerces a JSON-decoded value to a string.
func asString(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}
