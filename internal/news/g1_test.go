package news

import (
	"context"
	"testing"

	"github.com/NepZR/brnews/internal/config"
	"github.com/NepZR/brnews/internal/pagination"
	"github.com/NepZR/brnews/internal/storage"
	"github.com/NepZR/brnews/internal/types"
)

func g1TestConfig() *config.G1Platform {
	return &config.G1Platform{
		NewsAPI:   "https://api.g1.test/instances/%s/posts/page/%s",
		SearchAPI: "https://g1.test/busca/?q=%s&page=%s&ajax=1",
		Regions:   map[string]string{"sp": "sp-instance", "brasil": "br-instance"},
	}
}

const g1ArticleHTML = `<html><body>
	<div class="header-title-content"><a>São Paulo</a></div>
	<div class="title"><h1>Manchete da notícia</h1></div>
	<h2 class="content-head__subtitle">Linha fina do texto.</h2>
	<time itemprop="datePublished" datetime="2023-01-15T10:30:00.000Z"></time>
	<div class="mc-article-body"><p>Primeiro parágrafo.</p><p>Segundo parágrafo.</p></div>
	<ul class="entities__list"><li><a>política</a></li><li><a>eleições</a></li></ul>
</body></html>`

// --- Listing Tests ---

func TestG1ListRecent(t *testing.T) {
	client := newFakeFetcher()
	client.serve("https://api.g1.test/instances/sp-instance/posts/page/1",
		`{"items": [
			{"type": "materia", "content": {"url": "https://g1.globo.com/sp/noticia/a.ghtml"}},
			{"type": "basico", "content": {"posts": [
				{"url": "https://g1.globo.com/sp/noticia/b.ghtml"},
				{"url": "https://g1.globo.com/sp/noticia/c.ghtml"}
			]}}
		]}`)
	// Past the last page the API answers with an error page, not JSON.
	client.serve("https://api.g1.test/instances/sp-instance/posts/page/2",
		`<html>not found</html>`)

	g1 := NewG1(g1TestConfig(), client, nil, testLogger)

	var got []string
	for c := range g1.ListRecent(context.Background(), []string{"sp"}, -1) {
		got = append(got, c.URL)
	}

	if len(got) != 3 {
		t.Fatalf("expected 3 candidates, got %v", got)
	}
	if got[0] != "https://g1.globo.com/sp/noticia/a.ghtml" {
		t.Errorf("unexpected first candidate: %s", got[0])
	}

	stats := g1.Stats()
	if stats.Listed != 3 {
		t.Errorf("expected 3 listed, got %d", stats.Listed)
	}
	if stats.LastStop != pagination.StopEndOfData {
		t.Errorf("expected end_of_data, got %s", stats.LastStop)
	}
}

func TestG1ListRecentDefaultsToNational(t *testing.T) {
	client := newFakeFetcher()
	client.serve("https://api.g1.test/instances/br-instance/posts/page/1", `<html></html>`)

	g1 := NewG1(g1TestConfig(), client, nil, testLogger)
	for range g1.ListRecent(context.Background(), nil, 1) {
	}

	if len(client.calls) != 1 || client.calls[0] != "https://api.g1.test/instances/br-instance/posts/page/1" {
		t.Errorf("nil regions should hit the national feed, got %v", client.calls)
	}
}

func TestG1ListRecentUnknownRegion(t *testing.T) {
	client := newFakeFetcher()
	g1 := NewG1(g1TestConfig(), client, nil, testLogger)

	for range g1.ListRecent(context.Background(), []string{"xx"}, -1) {
		t.Fatal("unknown region should yield nothing")
	}
	if len(client.calls) != 0 {
		t.Errorf("unknown region should not be fetched, got %v", client.calls)
	}
}

func TestG1ListRecentMaxPages(t *testing.T) {
	client := newFakeFetcher()
	client.serve("https://api.g1.test/instances/sp-instance/posts/page/1",
		`{"items": [{"type": "materia", "content": {"url": "https://g1.globo.com/sp/a.ghtml"}}]}`)
	client.serve("https://api.g1.test/instances/sp-instance/posts/page/2",
		`{"items": [{"type": "materia", "content": {"url": "https://g1.globo.com/sp/b.ghtml"}}]}`)

	g1 := NewG1(g1TestConfig(), client, nil, testLogger)
	count := 0
	for range g1.ListRecent(context.Background(), []string{"sp"}, 1) {
		count++
	}

	if count != 1 {
		t.Errorf("expected 1 candidate with maxPages 1, got %d", count)
	}
	if len(client.calls) != 1 {
		t.Errorf("expected exactly 1 page fetch, got %v", client.calls)
	}
	if g1.Stats().LastStop != pagination.StopMaxPages {
		t.Errorf("expected max_pages, got %s", g1.Stats().LastStop)
	}
}

// --- Search Tests ---

func TestG1Search(t *testing.T) {
	client := newFakeFetcher()
	client.serve("https://g1.test/busca/?q=elei%C3%A7%C3%B5es&page=1&ajax=1",
		`<html><body>
			<div class="widget--info__text-container">
				<a href="//g1.globo.com/busca/click?q=elei%C3%A7%C3%B5es&u=https%3A%2F%2Fg1.globo.com%2Fsp%2Fnoticia%2Fx.ghtml&t=1"></a>
			</div>
			<div class="widget--info__text-container">
				<a href="//g1.globo.com/busca/click?u=https%3A%2F%2Foutro.site.com%2Fy"></a>
			</div>
		</body></html>`)
	// Past the last page the search redirects to a pageless URL.
	client.serveRedirected("https://g1.test/busca/?q=elei%C3%A7%C3%B5es&page=2&ajax=1",
		"https://g1.test/busca/?q=eleicoes", `<html></html>`)

	g1 := NewG1(g1TestConfig(), client, nil, testLogger)

	var got []string
	for c := range g1.Search(context.Background(), []string{"eleições"}, -1) {
		got = append(got, c.URL)
	}

	if len(got) != 1 {
		t.Fatalf("expected 1 on-platform result, got %v", got)
	}
	if got[0] != "https://g1.globo.com/sp/noticia/x.ghtml" {
		t.Errorf("redirect wrapper not unwrapped: %s", got[0])
	}
	if g1.Stats().LastStop != pagination.StopEndOfData {
		t.Errorf("expected end_of_data, got %s", g1.Stats().LastStop)
	}
}

func TestUnwrapRedirect(t *testing.T) {
	cases := map[string]string{
		"//g1.globo.com/click?u=https%3A%2F%2Fg1.globo.com%2Fx&t=1": "https://g1.globo.com/x",
		"https://g1.globo.com/direct":                               "https://g1.globo.com/direct",
	}
	for in, want := range cases {
		if got := unwrapRedirect(in); got != want {
			t.Errorf("unwrapRedirect(%q) = %q, want %q", in, got, want)
		}
	}
}

// --- Parse Tests ---

func TestG1ParseArticles(t *testing.T) {
	client := newFakeFetcher()
	client.serve("https://g1.globo.com/sp/noticia/x.ghtml", g1ArticleHTML)

	g1 := NewG1(g1TestConfig(), client, nil, testLogger)

	var records []*types.ArticleRecord
	opts := Options{ParseBody: true}
	for rec := range g1.ParseArticles(context.Background(), SeqOf("https://g1.globo.com/sp/noticia/x.ghtml"), opts) {
		records = append(records, rec)
	}

	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	rec := records[0]

	if rec.Title == nil || *rec.Title != "Manchete da notícia" {
		t.Errorf("title: %v", rec.Title)
	}
	if rec.Abstract == nil || *rec.Abstract != "Linha fina do texto." {
		t.Errorf("abstract: %v", rec.Abstract)
	}
	if rec.Date == nil || rec.Date.Year() != 2023 {
		t.Errorf("date: %v", rec.Date)
	}
	if rec.Section == nil || *rec.Section != "São Paulo" {
		t.Errorf("section: %v", rec.Section)
	}
	if rec.Region == nil || *rec.Region != "SP" {
		t.Errorf("region: %v", rec.Region)
	}
	if rec.Tags == nil || *rec.Tags != "política | eleições" {
		t.Errorf("tags: %v", rec.Tags)
	}
	if rec.Body == nil || *rec.Body != "Primeiro parágrafo. Segundo parágrafo." {
		t.Errorf("body: %v", rec.Body)
	}
	if rec.Type != types.TypeArticle {
		t.Errorf("type: %s", rec.Type)
	}
	if rec.Platform != types.PlatformG1 {
		t.Errorf("platform: %s", rec.Platform)
	}
	if rec.HTML != nil {
		t.Error("HTML should be dropped without SaveHTML")
	}
}

func TestG1ParseArticlesNullSafety(t *testing.T) {
	client := newFakeFetcher()
	client.serve("https://g1.globo.com/economia/vazia.ghtml", `<html><body><p>nada</p></body></html>`)

	g1 := NewG1(g1TestConfig(), client, nil, testLogger)
	for rec := range g1.ParseArticles(context.Background(), SeqOf("https://g1.globo.com/economia/vazia.ghtml"), Options{ParseBody: true}) {
		if rec.Title != nil || rec.Abstract != nil || rec.Date != nil || rec.Body != nil || rec.Tags != nil {
			t.Error("missing page fields should surface as nil, not fail")
		}
		if rec.URL == "" || rec.Platform == "" {
			t.Error("identity fields must always be set")
		}
	}
}

func TestG1ParseArticlesSkipsFetchFailures(t *testing.T) {
	client := newFakeFetcher()
	client.serve("https://g1.globo.com/sp/ok.ghtml", g1ArticleHTML)

	g1 := NewG1(g1TestConfig(), client, nil, testLogger)
	count := 0
	candidates := SeqOf("https://g1.globo.com/sp/morta.ghtml", "https://g1.globo.com/sp/ok.ghtml")
	for range g1.ParseArticles(context.Background(), candidates, Options{}) {
		count++
	}

	if count != 1 {
		t.Errorf("expected the dead candidate to be skipped, got %d records", count)
	}
	if g1.Stats().FetchFailures != 1 {
		t.Errorf("expected 1 fetch failure, got %d", g1.Stats().FetchFailures)
	}
}

func TestG1ParseArticlesIdempotent(t *testing.T) {
	client := newFakeFetcher()
	client.serve("https://g1.globo.com/sp/noticia/x.ghtml", g1ArticleHTML)

	store := storage.NewMemoryStore(types.KindNews)
	gate := storage.NewGate(store, testLogger)
	g1 := NewG1(g1TestConfig(), client, gate, testLogger)

	run := func() int {
		n := 0
		for range g1.ParseArticles(context.Background(), SeqOf("https://g1.globo.com/sp/noticia/x.ghtml"), Options{}) {
			n++
		}
		return n
	}

	if got := run(); got != 1 {
		t.Fatalf("first run should yield 1 record, got %d", got)
	}
	if got := run(); got != 0 {
		t.Fatalf("second run should yield nothing, got %d", got)
	}
	if store.Count() != 1 {
		t.Errorf("expected exactly 1 stored record, got %d", store.Count())
	}
	if g1.Stats().Duplicates != 1 {
		t.Errorf("expected 1 duplicate counted, got %d", g1.Stats().Duplicates)
	}
}
