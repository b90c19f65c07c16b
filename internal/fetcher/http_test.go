package fetcher

import (
	"compress/gzip"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/NepZR/brnews/internal/config"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

func testConfig() *config.FetcherConfig {
	cfg := &config.DefaultConfig().Fetcher
	cfg.RetryBudget = 3
	cfg.RetryDelay = time.Millisecond
	cfg.RequestTimeout = 5 * time.Second
	return cfg
}

func newTestFetcher(t *testing.T, cfg *config.FetcherConfig) *HTTPFetcher {
	t.Helper()
	f, err := NewHTTPFetcher(cfg, testLogger)
	if err != nil {
		t.Fatalf("create fetcher: %v", err)
	}
	t.Cleanup(func() { f.Close() })
	return f
}

func TestFetchSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><body>ok</body></html>"))
	}))
	defer srv.Close()

	f := newTestFetcher(t, testConfig())
	page, err := f.Fetch(context.Background(), NewRequest(srv.URL))
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if page == nil {
		t.Fatal("expected a page, got nil")
	}
	if page.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", page.StatusCode)
	}
	if string(page.Body) != "<html><body>ok</body></html>" {
		t.Errorf("unexpected body: %q", page.Body)
	}
}

func TestFetchRetriesServerErrors(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte("recovered"))
	}))
	defer srv.Close()

	f := newTestFetcher(t, testConfig())
	page, err := f.Fetch(context.Background(), NewRequest(srv.URL))
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if page == nil {
		t.Fatal("expected recovery within the retry budget")
	}
	if calls.Load() != 3 {
		t.Errorf("expected 3 attempts, got %d", calls.Load())
	}
}

func TestFetchBudgetExhausted(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	f := newTestFetcher(t, testConfig())
	page, err := f.Fetch(context.Background(), NewRequest(srv.URL))
	if err != nil {
		t.Fatalf("exhaustion must degrade to page-absent, not error: %v", err)
	}
	if page != nil {
		t.Fatal("expected nil page after budget exhaustion")
	}
	if calls.Load() != 3 {
		t.Errorf("expected exactly 3 attempts, got %d", calls.Load())
	}
}

func TestFetchNotFoundIsNotRetried(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	f := newTestFetcher(t, testConfig())
	page, err := f.Fetch(context.Background(), NewRequest(srv.URL))
	if err != nil || page != nil {
		t.Fatalf("404 should be page-absent without error, got page=%v err=%v", page, err)
	}
	if calls.Load() != 1 {
		t.Errorf("404 should not burn retries, got %d attempts", calls.Load())
	}
}

func TestFetchResetsSessionBetweenRetries(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		if n == 1 {
			// Poison the session, then fail.
			http.SetCookie(w, &http.Cookie{Name: "poison", Value: "1"})
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		if _, err := r.Cookie("poison"); err == nil {
			t.Error("session cookie survived the reset")
		}
		w.Write([]byte("clean"))
	}))
	defer srv.Close()

	f := newTestFetcher(t, testConfig())
	page, err := f.Fetch(context.Background(), NewRequest(srv.URL))
	if err != nil || page == nil {
		t.Fatalf("fetch failed: page=%v err=%v", page, err)
	}
}

func TestFetchRequestCookiesAndParams(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("q") != "eleições" {
			t.Errorf("query parameter missing: %s", r.URL.RawQuery)
		}
		if c, err := r.Cookie("folha_ga_userType"); err != nil || c.Value != "not_logged" {
			t.Error("request-scoped cookie missing")
		}
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	f := newTestFetcher(t, testConfig())
	req := NewRequest(srv.URL).
		WithParams(url.Values{"q": {"eleições"}}).
		WithCookies([]*http.Cookie{{Name: "folha_ga_userType", Value: "not_logged"}})

	if page, err := f.Fetch(context.Background(), req); err != nil || page == nil {
		t.Fatalf("fetch failed: page=%v err=%v", page, err)
	}
}

func TestFetchGzipBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Encoding", "gzip")
		gz := gzip.NewWriter(w)
		gz.Write([]byte("compressed payload"))
		gz.Close()
	}))
	defer srv.Close()

	f := newTestFetcher(t, testConfig())
	page, err := f.Fetch(context.Background(), NewRequest(srv.URL))
	if err != nil || page == nil {
		t.Fatalf("fetch failed: page=%v err=%v", page, err)
	}
	if string(page.Body) != "compressed payload" {
		t.Errorf("gzip body not decompressed: %q", page.Body)
	}
}

func TestFetchContextCanceled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	cfg := testConfig()
	cfg.RetryDelay = time.Minute
	f := newTestFetcher(t, cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := f.Fetch(ctx, NewRequest(srv.URL))
	if err == nil {
		t.Fatal("expected context error")
	}
	if time.Since(start) > 5*time.Second {
		t.Error("cancellation should interrupt the retry wait")
	}
}

// --- Page Tests ---

func TestPageXPath(t *testing.T) {
	page := NewPageFromHTML("https://example.com", `
		<html><body>
			<div class="title"><h1>Manchete</h1></div>
			<ul class="tags"><li>um</li><li>dois</li></ul>
		</body></html>`)

	if got := page.XPathText(`//div[@class="title"]/h1/text()`); got == nil || *got != "Manchete" {
		t.Errorf("XPathText: got %v", got)
	}
	if got := page.XPathText(`//div[@class="missing"]`); got != nil {
		t.Errorf("absent node should yield nil, got %q", *got)
	}
	if got := page.XPathAll(`//ul[@class="tags"]/li/text()`); len(got) != 2 {
		t.Errorf("XPathAll: got %v", got)
	}
}

func TestPageJSON(t *testing.T) {
	page := NewPageFromHTML("https://example.com", `{"count": 3}`)
	var payload struct {
		Count int `json:"count"`
	}
	if err := page.JSON(&payload); err != nil {
		t.Fatalf("JSON decode failed: %v", err)
	}
	if payload.Count != 3 {
		t.Errorf("expected count 3, got %d", payload.Count)
	}
}

func TestFetchBadRequestURLIsAnError(t *testing.T) {
	f := newTestFetcher(t, testConfig())

	// A URL that cannot be built into a request is a caller mistake and
	// must surface as an error, not as an absent page.
	page, err := f.Fetch(context.Background(), NewRequest("http://example.com/\x00"))
	if err == nil {
		t.Fatal("expected an error for an unbuildable URL")
	}
	if page != nil {
		t.Errorf("expected nil page, got %+v", page)
	}
}

func TestPageDocument(t *testing.T) {
	page := NewPageFromHTML("https://example.com", `
		<html><body>
			<section id="comentarios" data-id="42"></section>
		</body></html>`)

	doc, err := page.Document()
	if err != nil {
		t.Fatalf("document parse failed: %v", err)
	}
	if got := doc.Find("section#comentarios").AttrOr("data-id", ""); got != "42" {
		t.Errorf("CSS selection: got %q", got)
	}
	if again, _ := page.Document(); again != doc {
		t.Error("document should be parsed once and cached")
	}
}
