package pagination

import (
	"net/url"
	"strconv"

	"github.com/jonwraymond/boundary/headers"
)

// LinkCursorStrategy follows an RFC 5988 Link response header: a next
// page exists iff a rel="next" member is present, its cursor is that
// URL's "page" query parameter, and total comes from X-Total-Count
// when present and within the safe range.
type LinkCursorStrategy struct {
	// CursorParam is the query parameter name read out of the next
	// link's URL and written back into the next request. Default "page".
	CursorParam string
	// TotalHeader is the response header carrying the total item count.
	// Default "X-Total-Count".
	TotalHeader string
}

func (s LinkCursorStrategy) cursorParam() string {
	if s.CursorParam == "" {
		return "page"
	}
	return s.CursorParam
}

func (s LinkCursorStrategy) totalHeader() string {
	if s.TotalHeader == "" {
		return "X-Total-Count"
	}
	return s.TotalHeader
}

func (s LinkCursorStrategy) nextLink(page Page) (string, bool) {
	links := headers.ParseLink(page.Headers.Get("Link"))
	return headers.FindRel(links, "next")
}

func (s LinkCursorStrategy) HasNext(page Page) bool {
	_, ok := s.nextLink(page)
	return ok
}

func (s LinkCursorStrategy) ExtractCursor(page Page) (string, bool) {
	next, ok := s.nextLink(page)
	if !ok {
		return "", false
	}
	parsed, err := url.Parse(next)
	if err != nil {
		return "", false
	}
	cursor := parsed.Query().Get(s.cursorParam())
	if cursor == "" {
		return "", false
	}
	return cursor, true
}

func (s LinkCursorStrategy) ExtractTotal(page Page) (int, bool) {
	raw := page.Headers.Get(s.totalHeader())
	if raw == "" {
		return 0, false
	}
	total, err := strconv.Atoi(raw)
	if err != nil || !totalInRange(total) {
		return 0, false
	}
	return total, true
}

func (s LinkCursorStrategy) BuildNextRequest(endpoint string, options map[string]string, cursor string) (string, map[string]string) {
	next := cloneOptions(options)
	next[s.cursorParam()] = cursor
	return endpoint, next
}

func cloneOptions(options map[string]string) map[string]string {
	next := make(map[string]string, len(options)+1)
	for k, v := range options {
		next[k] = v
	}
	return next
}
