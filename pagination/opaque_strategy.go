package pagination

// OpaqueCursorStrategy reads a provider-opaque cursor out of either a
// configured response header or a configured top-level body field, and
// injects it back into the next request as a configured query
// parameter. Used by providers whose cursor has no structure a pipeline
// should interpret.
type OpaqueCursorStrategy struct {
	// CursorHeader, if set, is the response header the cursor is read
	// from. Takes priority over CursorBodyField.
	CursorHeader string
	// CursorBodyField is the top-level body field the cursor is read
	// from when CursorHeader is unset or absent on the response.
	CursorBodyField string
	// CursorParam is the query parameter the cursor is written to on
	// the next request.
	CursorParam string
	// TotalBodyField is the top-level body field carrying the total
	// item count, if the provider reports one.
	TotalBodyField string
}

func (s OpaqueCursorStrategy) ExtractCursor(page Page) (string, bool) {
	if s.CursorHeader != "" {
		if v := page.Headers.Get(s.CursorHeader); v != "" {
			return v, true
		}
	}
	if s.CursorBodyField != "" {
		if raw, ok := bodyField(page.Body, s.CursorBodyField); ok {
			if v, ok := asString(raw); ok && v != "" {
				return v, true
			}
		}
	}
	return "", false
}

func (s OpaqueCursorStrategy) ExtractTotal(page Page) (int, bool) {
	if s.TotalBodyField == "" {
		return 0, false
	}
	raw, ok := bodyField(page.Body, s.TotalBodyField)
	if !ok {
		return 0, false
	}
	total, ok := asInt(raw)
	if !ok || !totalInRange(total) {
		return 0, false
	}
	return total, true
}

func (s OpaqueCursorStrategy) HasNext(page Page) bool {
	_, ok := s.ExtractCursor(page)
	return ok
}

func (s OpaqueCursorStrategy) BuildNextRequest(endpoint string, options map[string]string, cursor string) (string, map[string]string) {
	next := cloneOptions(options)
	next[s.CursorParam] = cursor
	return endpoint, next
}
