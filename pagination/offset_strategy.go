package pagination

import "strconv"

// OffsetStrategy paginates by advancing a numeric offset: the cursor is
// the next offset (currentOffset + limit), and there is a next page
// only while offset+limit is still below the provider-reported total.
// It is stateful across a single iteration, so callers must use one
// *OffsetStrategy per Iterator rather than sharing one across requests.
type OffsetStrategy struct {
	// Limit is the page size; cursor advances by this amount each page.
	Limit int
	// OffsetParam is the query parameter the offset is written to.
	OffsetParam string
	// TotalBodyField is the top-level body field carrying the total
	// item count.
	TotalBodyField string

	offset int
}

// NewOffsetStrategy builds an OffsetStrategy starting at startOffset.
func NewOffsetStrategy(limit int, offsetParam, totalBodyField string, startOffset int) *OffsetStrategy {
	return &OffsetStrategy{
		Limit:          limit,
		OffsetParam:    offsetParam,
		TotalBodyField: totalBodyField,
		offset:         startOffset,
	}
}

func (s *OffsetStrategy) ExtractTotal(page Page) (int, bool) {
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

// ExtractCursor always reports the candidate next offset; whether it
// should actually be fetched is HasNext's decision.
func (s *OffsetStrategy) ExtractCursor(page Page) (string, bool) {
	return strconv.Itoa(s.offset + s.Limit), true
}

// HasNext requires a known total: without one there is no safe way to
// tell the offset strategy apart from "keep going forever", so it
// stops rather than iterate unboundedly.
func (s *OffsetStrategy) HasNext(page Page) bool {
	total, ok := s.ExtractTotal(page)
	if !ok {
		return false
	}
	return s.offset+s.Limit < total
}

func (s *OffsetStrategy) BuildNextRequest(endpoint string, options map[string]string, cursor string) (string, map[string]string) {
	next := cloneOptions(options)
	next[s.OffsetParam] = cursor
	if parsed, err := strconv.Atoi(cursor); err == nil {
		s.offset = parsed
	}
	return endpoint, next
}
