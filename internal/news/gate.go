package news

import (
	"context"
	"log/slog"

	"github.com/NepZR/brnews/internal/storage"
	"github.com/NepZR/brnews/internal/types"
)

// offer routes a fully assembled record through the duplicate gate and
// reports whether it should be yielded. With no gate configured every
// record passes through unstored. Duplicates and backend failures are
// contained here: counted, logged, not yielded, never fatal.
func offer(ctx context.Context, gate *storage.Gate, rec *types.ArticleRecord, stats *Stats, logger *slog.Logger) bool {
	if gate == nil {
		stats.Parsed++
		return true
	}
	outcome, err := gate.Offer(ctx, rec)
	switch outcome {
	case storage.Inserted:
		stats.Parsed++
		return true
	case storage.Duplicate:
		stats.Duplicates++
		return false
	default:
		stats.StoreFailures++
		logger.Error("record not stored", "url", rec.URL, "error", err)
		return false
	}
}
