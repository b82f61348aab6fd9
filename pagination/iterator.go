package pagination

import (
	"context"
	"fmt"
)

// MaxPages is the hard cap on pages a single iteration may fetch.
const MaxPages = 1000

// Fetcher performs one page request against endpoint/options. The
// pipeline supplies this; the iterator never builds HTTP requests
// itself.
type Fetcher func(ctx context.Context, endpoint string, options map[string]string) (Page, error)

// Iterator drives a Strategy over successive Fetcher calls as a lazy,
// finite, non-restartable sequence. It enforces the two pagination
// invariants: the observed cursor sequence is injective, and iteration
// stops fatally rather than silently past MaxPages.
type Iterator struct {
	strategy Strategy
	fetch    Fetcher
	endpoint string
	options  map[string]string

	seen  map[string]struct{}
	pages int
	done  bool
	cur   Page
	err   error
}

// NewIterator builds an Iterator starting at endpoint/options.
func NewIterator(strategy Strategy, fetch Fetcher, endpoint string, options map[string]string) *Iterator {
	return &Iterator{
		strategy: strategy,
		fetch:    fetch,
		endpoint: endpoint,
		options:  options,
		seen:     make(map[string]struct{}),
	}
}

// Next fetches the next page, returning false once iteration has
// stopped (either exhausted or failed). Callers must check Err after a
// false return to distinguish normal termination from a fatal error.
func (it *Iterator) Next(ctx context.Context) bool {
	if it.done {
		return false
	}

	page, err := it.fetch(ctx, it.endpoint, it.options)
	if err != nil {
		it.err = err
		it.done = true
		return false
	}

	it.pages++
	if it.pages > MaxPages {
		it.err = fmt.Errorf("pagination: exceeded maximum of %d pages", MaxPages)
		it.done = true
		return false
	}
	it.cur = page

	if !it.strategy.HasNext(page) {
		it.done = true
		return true
	}

	cursor, ok := it.strategy.ExtractCursor(page)
	if !ok {
		it.done = true
		return true
	}

	if _, dup := it.seen[cursor]; dup {
		it.err = fmt.Errorf("pagination: Pagination cycle detected at cursor %q (page %d)", cursor, it.pages)
		it.done = true
		return false
	}
	it.seen[cursor] = struct{}{}

	it.endpoint, it.options = it.strategy.BuildNextRequest(it.endpoint, it.options, cursor)
	return true
}

// Page returns the most recently fetched page.
func (it *Iterator) Page() Page {
	return it.cur
}

// Err returns the error that stopped iteration, if any.
func (it *Iterator) Err() error {
	return it.err
}
