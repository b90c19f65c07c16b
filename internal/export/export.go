// Package export writes records to flat files (JSON, CSV). It is the
// filesystem collaborator of the storage port and the backup sink for
// deletions.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/NepZR/brnews/internal/types"
)

// Exporter writes records into a configured directory.
type Exporter struct {
	dir    string
	logger *slog.Logger
}

// New validates the directory and creates it if missing. The path must
// end with the OS path separator; anything else is a configuration
// fault, rejected here rather than at write time.
func New(dir string, logger *slog.Logger) (*Exporter, error) {
	if dir == "" {
		return nil, fmt.Errorf("export directory must not be empty")
	}
	if !strings.HasSuffix(dir, string(os.PathSeparator)) {
		return nil, fmt.Errorf("export directory %q must end with %q", dir, string(os.PathSeparator))
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create export dir: %w", err)
	}
	return &Exporter{
		dir:    dir,
		logger: logger.With("component", "exporter"),
	}, nil
}

// Export writes a single record as a JSON file and returns the path.
// Satisfies the storage backup sink.
func (e *Exporter) Export(rec types.Record) (string, error) {
	path := e.dir + fileName(rec) + ".json"

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create export file: %w", err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rec); err != nil {
		return "", fmt.Errorf("encode JSON: %w", err)
	}

	e.logger.Info("record exported", "path", path)
	return path, nil
}

// ExportJSON writes a batch as one JSON array file. An empty batch is a
// caller error.
func (e *Exporter) ExportJSON(recs []types.Record) (string, error) {
	if len(recs) == 0 {
		return "", types.ErrEmptyBatch
	}
	path := e.dir + batchName(recs[0]) + ".json"

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create export file: %w", err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(recs); err != nil {
		return "", fmt.Errorf("encode JSON: %w", err)
	}

	e.logger.Info("batch exported", "path", path, "records", len(recs))
	return path, nil
}

// ExportCSV writes a batch as one CSV file with a fixed header per
// record kind. An empty batch is a caller error.
func (e *Exporter) ExportCSV(recs []types.Record) (string, error) {
	if len(recs) == 0 {
		return "", types.ErrEmptyBatch
	}
	path := e.dir + batchName(recs[0]) + ".csv"

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create export file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(headerFor(recs[0])); err != nil {
		return "", fmt.Errorf("write CSV header: %w", err)
	}
	for _, rec := range recs {
		if err := w.Write(rowFor(rec)); err != nil {
			return "", fmt.Errorf("write CSV row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("flush CSV: %w", err)
	}

	e.logger.Info("batch exported", "path", path, "records", len(recs))
	return path, nil
}

func fileName(rec types.Record) string {
	platform := "unknown"
	switch r := rec.(type) {
	case *types.ArticleRecord:
		platform = r.Platform
	case *types.CommentRecord:
		platform = r.Platform
	}
	platform = strings.ToLower(strings.Map(func(r rune) rune {
		if r == ' ' {
			return '_'
		}
		return r
	}, platform))
	return fmt.Sprintf("%s_%s_%s", platform, rec.Kind(), uuid.NewString())
}

func batchName(first types.Record) string {
	return fmt.Sprintf("%s_batch_%s", first.Kind(), time.Now().Format("20060102_150405"))
}

func headerFor(rec types.Record) []string {
	if rec.Kind() == types.KindComments {
		return []string{"author", "date", "upvote", "comment", "comment_id", "platform", "news_url"}
	}
	return []string{"title", "abstract", "date", "section", "region", "url", "platform", "tags", "type", "entry_dt"}
}

func rowFor(rec types.Record) []string {
	switch r := rec.(type) {
	case *types.CommentRecord:
		return []string{
			deref(r.Author), fmtTime(r.Date), fmtInt(r.Upvote),
			deref(r.Comment), deref(r.CommentID), r.Platform, r.NewsData.URL,
		}
	case *types.ArticleRecord:
		return []string{
			deref(r.Title), deref(r.Abstract), fmtTime(r.Date), deref(r.Section),
			deref(r.Region), r.URL, r.Platform, deref(r.Tags), r.Type, fmtTime(r.EntryDT),
		}
	default:
		return nil
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func fmtTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.RFC3339)
}

func fmtInt(i *int) string {
	if i == nil {
		return ""
	}
	return strconv.Itoa(*i)
}
