package fetcher

import (
	"context"
)

// Fetcher is the interface all source and comment adapters fetch through.
//
// Fetch attempts the request up to the configured retry budget. A nil
// Page with a nil error means the page is absent: either the budget ran
// out on transient faults or the server answered with a non-retryable
// non-2xx status. Errors are reserved for caller mistakes (bad request)
// and context cancellation. Callers must branch on a nil Page, which is
// distinct from a valid page with no matching content.
type Fetcher interface {
	Fetch(ctx context.Context, req *Request) (*Page, error)

	// ResetSession drops all session cookie state.
	ResetSession()

	// Close releases any resources held by the fetcher.
	Close() error
}
