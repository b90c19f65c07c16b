// Package comments implements the comment-engine adapters. They run as
// an independent second pass over already-crawled articles, keyed by
// the article URL (G1) or its id_data (Folha).
package comments

import (
	"context"
	"iter"
	"log/slog"

	"github.com/NepZR/brnews/internal/pagination"
	"github.com/NepZR/brnews/internal/storage"
	"github.com/NepZR/brnews/internal/types"
)

// Stats is the inspectable outcome snapshot for a comment adapter.
type Stats struct {
	ArticlesVisited int
	NoThread        int
	Extracted       int
	EmptySkipped    int
	StoreFailures   int
	Duplicates      int

	// LastStop is why the most recent pagination run ended.
	LastStop pagination.StopCause
}

// Adapter is the uniform contract over the two comment-engine
// protocols (GraphQL single-call and paginated REST).
type Adapter interface {
	// Platform returns the platform tag stamped on comment records.
	Platform() string

	// HasComments is the cheap pre-check: it must not pay for a full
	// comment fetch when the article has none.
	HasComments(ctx context.Context, article *types.ArticleRecord) bool

	// StreamComments lazily extracts comments for each input article.
	// Articles with no resolvable thread produce no output and no
	// further network calls.
	StreamComments(ctx context.Context, articles []*types.ArticleRecord) iter.Seq[*types.CommentRecord]

	// Stats returns a snapshot of the outcome counters.
	Stats() Stats
}

// offer pushes a record through the duplicate gate, updating the shared
// counters. A nil gate streams without persistence.
func offer(ctx context.Context, gate *storage.Gate, record *types.CommentRecord, stats *Stats, logger *slog.Logger) bool {
	if gate == nil {
		stats.Extracted++
		return true
	}
	outcome, err := gate.Offer(ctx, record)
	switch outcome {
	case storage.Inserted:
		stats.Extracted++
		return true
	case storage.Duplicate:
		stats.Duplicates++
		return false
	default:
		stats.StoreFailures++
		logger.Error("comment not stored", "url", record.NewsData.URL, "error", err)
		return false
	}
}
