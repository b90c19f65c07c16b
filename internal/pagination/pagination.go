// Package pagination implements the generic page-fetch-until-stop driver
// shared by every listing, search, and comment traversal path. The only
// platform-specific piece is the PageFunc.
package pagination

import (
	"context"
	"errors"
	"iter"

	"github.com/NepZR/brnews/internal/types"
)

// PageFunc produces the items of one page. The page index is zero-based.
// Returning types.ErrEndOfData stops the run cleanly; any other error is
// treated the same way (a malformed page halts pagination silently, and
// whatever was already collected stands). Both stop causes are recorded
// on the Run for callers that need to observe truncation.
type PageFunc[T any] func(ctx context.Context, pageIndex int) ([]T, error)

// StopCause says why a pagination run ended.
type StopCause string

const (
	StopEndOfData StopCause = "end_of_data"
	StopMaxPages  StopCause = "max_pages"
	StopFault     StopCause = "fault"
	StopCanceled  StopCause = "canceled"
	StopConsumer  StopCause = "consumer"
)

// Run drives a PageFunc. The returned sequence is lazy, single-pass and
// forward-only: pages are fetched on demand as the consumer pulls, and a
// consumer that stops early leaves remaining pages unfetched.
type Run[T any] struct {
	fn       PageFunc[T]
	maxPages int

	pages int
	items int
	cause StopCause
	err   error
}

// New prepares a run. maxPages bounds the number of page fetches;
// maxPages == -1 means unbounded, stopping only at end-of-data.
func New[T any](maxPages int, fn PageFunc[T]) *Run[T] {
	return &Run[T]{fn: fn, maxPages: maxPages}
}

// Seq returns the item sequence. Item order within a page is preserved
// and pages are emitted in index order.
func (r *Run[T]) Seq(ctx context.Context) iter.Seq[T] {
	return func(yield func(T) bool) {
		r.cause = StopEndOfData
		if r.maxPages == 0 {
			r.cause = StopMaxPages
			return
		}
		for i := 0; ; i++ {
			if ctx.Err() != nil {
				r.cause = StopCanceled
				return
			}

			items, err := r.fn(ctx, i)
			if err != nil {
				if errors.Is(err, types.ErrEndOfData) {
					r.cause = StopEndOfData
				} else if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					r.cause = StopCanceled
				} else {
					r.cause = StopFault
					r.err = err
				}
				return
			}

			r.pages++
			for _, item := range items {
				if !yield(item) {
					r.cause = StopConsumer
					return
				}
				r.items++
			}

			if r.maxPages != -1 && i+1 >= r.maxPages {
				r.cause = StopMaxPages
				return
			}
		}
	}
}

// Pages returns the number of pages successfully fetched.
func (r *Run[T]) Pages() int { return r.pages }

// Items returns the number of items yielded to the consumer.
func (r *Run[T]) Items() int { return r.items }

// Cause returns why the run stopped. Meaningful once the sequence has
// been consumed (or abandoned).
func (r *Run[T]) Cause() StopCause { return r.cause }

// Err returns the fault that halted the run, if Cause is StopFault.
// Pagination faults never propagate; this is for observability only.
func (r *Run[T]) Err() error { return r.err }

// Collect drains the sequence into a slice. Convenience for callers
// that want the original eager-list behavior of listing and search.
func Collect[T any](ctx context.Context, maxPages int, fn PageFunc[T]) []T {
	run := New(maxPages, fn)
	var out []T
	for item := range run.Seq(ctx) {
		out = append(out, item)
	}
	return out
}
