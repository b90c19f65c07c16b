// Package news implements the per-platform source adapters that turn
// heterogeneous portal markup and APIs into canonical article records.
package news

import (
	"context"
	"encoding/json"
	"iter"
	"strings"

	"github.com/NepZR/brnews/internal/pagination"
	"github.com/NepZR/brnews/internal/types"
)

// Candidate is a URL (or a URL plus its pre-fetched API payload, for
// API-search platforms) awaiting full field extraction.
type Candidate struct {
	URL string

	// Data is the raw API item for platforms whose search endpoint
	// already returns article payloads. Nil for page-scraped platforms.
	Data json.RawMessage
}

// Options control optional article fields.
type Options struct {
	// ParseBody extracts the article body text. Off by default: bodies
	// are large and most corpus runs only need metadata.
	ParseBody bool

	// SaveHTML keeps the raw page bytes on the record.
	SaveHTML bool
}

// Stats is a snapshot of per-adapter outcome counters, the inspectable
// alternative to grepping logs for skip/duplicate/failure lines.
type Stats struct {
	Listed        int
	Parsed        int
	Duplicates    int
	FetchFailures int
	FilteredOut   int
	StoreFailures int

	// LastStop is why the most recent pagination run ended.
	LastStop pagination.StopCause
}

// Adapter is the uniform source contract across all platform variants.
type Adapter interface {
	// Platform returns the platform tag stamped on records.
	Platform() string

	// ListRecent enumerates newest content. A nil regions slice means
	// the default national feed; otherwise one traversal per region,
	// concatenated. maxPages == -1 is unbounded.
	ListRecent(ctx context.Context, regions []string, maxPages int) iter.Seq[Candidate]

	// Search paginates the platform's search surface once per keyword;
	// results are concatenated, not deduplicated across keywords.
	Search(ctx context.Context, keywords []string, maxPages int) iter.Seq[Candidate]

	// ParseArticles lazily fetches and extracts each candidate. The
	// sequence is single-pass and forward-only; abandoning it leaves
	// the remaining candidates unfetched. Duplicates and failed
	// fetches are skipped, never yielded.
	ParseArticles(ctx context.Context, candidates iter.Seq[Candidate], opts Options) iter.Seq[*types.ArticleRecord]

	// Stats returns a snapshot of the outcome counters.
	Stats() Stats
}

// classifyType implements the shared type rule: anything whose URL
// points at video content is a Video, the rest are Articles.
func classifyType(rawURL string) string {
	if strings.Contains(rawURL, "video") {
		return types.TypeVideo
	}
	return types.TypeArticle
}

// regionFromURL derives the region from the third URL path segment,
// matched case-insensitively against the configured region table. The
// canonical form is the uppercased key; no match means no region.
func regionFromURL(rawURL string, regions map[string]string) *string {
	parts := strings.Split(rawURL, "/")
	if len(parts) < 4 {
		return nil
	}
	segment := strings.ToLower(parts[3])
	if _, ok := regions[segment]; !ok {
		return nil
	}
	region := strings.ToUpper(segment)
	return &region
}

// seqOf adapts a slice into a candidate sequence. Convenience for
// callers holding pre-collected URL lists.
func seqOf(urls []string) iter.Seq[Candidate] {
	return func(yield func(Candidate) bool) {
		for _, u := range urls {
			if !yield(Candidate{URL: u}) {
				return
			}
		}
	}
}

// SeqOf is the exported form of seqOf for callers outside the package.
func SeqOf(urls ...string) iter.Seq[Candidate] { return seqOf(urls) }
