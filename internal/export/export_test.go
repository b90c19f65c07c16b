package export

import (
	"encoding/csv"
	"encoding/json"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/NepZR/brnews/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

func testExporter(t *testing.T) *Exporter {
	t.Helper()
	dir := t.TempDir() + string(os.PathSeparator)
	e, err := New(dir, testLogger)
	if err != nil {
		t.Fatalf("create exporter: %v", err)
	}
	return e
}

func sampleArticle() *types.ArticleRecord {
	date := time.Date(2023, 1, 15, 10, 0, 0, 0, time.UTC)
	return &types.ArticleRecord{
		Title:    types.Ptr("Título"),
		Abstract: types.Ptr("Resumo"),
		Date:     &date,
		URL:      "https://g1.globo.com/x",
		Platform: types.PlatformG1,
		Type:     types.TypeArticle,
	}
}

// --- Validation Tests ---

func TestNewRejectsBadDir(t *testing.T) {
	if _, err := New("", testLogger); err == nil {
		t.Error("empty dir should be rejected")
	}
	if _, err := New("no-trailing-separator", testLogger); err == nil {
		t.Error("dir without trailing separator should be rejected")
	}
}

// --- Single Record Tests ---

func TestExportSingle(t *testing.T) {
	e := testExporter(t)

	path, err := e.Export(sampleArticle())
	if err != nil {
		t.Fatalf("export failed: %v", err)
	}
	if !strings.HasSuffix(path, ".json") {
		t.Errorf("expected .json path, got %q", path)
	}
	if !strings.Contains(path, "portal_g1_news_") {
		t.Errorf("file name should carry platform and kind, got %q", path)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read exported file: %v", err)
	}
	var got types.ArticleRecord
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("exported file is not valid JSON: %v", err)
	}
	if got.URL != "https://g1.globo.com/x" {
		t.Errorf("unexpected URL in export: %q", got.URL)
	}
}

// --- Batch Tests ---

func TestExportJSONBatch(t *testing.T) {
	e := testExporter(t)

	path, err := e.ExportJSON([]types.Record{sampleArticle(), sampleArticle()})
	if err != nil {
		t.Fatalf("batch export failed: %v", err)
	}

	raw, _ := os.ReadFile(path)
	var got []types.ArticleRecord
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("batch file is not a JSON array: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("expected 2 records, got %d", len(got))
	}
}

func TestExportCSVBatch(t *testing.T) {
	e := testExporter(t)

	path, err := e.ExportCSV([]types.Record{sampleArticle()})
	if err != nil {
		t.Fatalf("CSV export failed: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open CSV: %v", err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("parse CSV: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected header + 1 row, got %d rows", len(rows))
	}
	if rows[0][0] != "title" {
		t.Errorf("unexpected header: %v", rows[0])
	}
	if rows[1][0] != "Título" {
		t.Errorf("unexpected first cell: %v", rows[1])
	}
}

func TestExportEmptyBatch(t *testing.T) {
	e := testExporter(t)

	if _, err := e.ExportJSON(nil); err != types.ErrEmptyBatch {
		t.Errorf("expected ErrEmptyBatch, got %v", err)
	}
	if _, err := e.ExportCSV(nil); err != types.ErrEmptyBatch {
		t.Errorf("expected ErrEmptyBatch, got %v", err)
	}
}

func TestExportCommentCSV(t *testing.T) {
	e := testExporter(t)

	comment := &types.CommentRecord{
		Author:    types.Ptr("leitor"),
		Comment:   types.Ptr("ótimo texto"),
		CommentID: types.Ptr("42"),
		Upvote:    types.Ptr(7),
		Platform:  types.PlatformFolha,
		NewsData:  types.NewsRef{URL: "https://www1.folha.uol.com.br/x"},
	}

	path, err := e.ExportCSV([]types.Record{comment})
	if err != nil {
		t.Fatalf("CSV export failed: %v", err)
	}

	f, _ := os.Open(path)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("parse CSV: %v", err)
	}
	if rows[0][0] != "author" {
		t.Errorf("comment batches should use the comment header, got %v", rows[0])
	}
	if rows[1][2] != "7" {
		t.Errorf("upvote cell: got %v", rows[1])
	}
}
