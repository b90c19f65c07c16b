package news

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/NepZR/brnews/internal/config"
	"github.com/NepZR/brnews/internal/fetcher"
	"github.com/NepZR/brnews/internal/normalize"
	"github.com/NepZR/brnews/internal/pagination"
	"github.com/NepZR/brnews/internal/storage"
	"github.com/NepZR/brnews/internal/types"
)

var folhaXPath = map[string]string{
	"title": `//h1[@class="c-content-head__title"]/text()|//h1[@itemprop="headline"]/text()|` +
		`//meta[@property="og:title"]/@content|//head/title/text()`,
	"date": `//meta[@property="article:published_time"]/@content|//time[@itemprop="datePublished"]/@datetime`,
	"abstract": `//h2[@class="c-content-head__subtitle"]/text()|//h2[@itemprop="alternativeHeadline"]/text()|` +
		`//meta[@property="og:description"]/@content`,
	"body":    `//div[@itemprop="articleBody"]//p/text()|//div[@class="c-news__body"]//p/text()`,
	"section": `//meta[@property="article:section"]/@content`,
	"region": `//strong[@class="c-signature__location"]//text()|` +
		`//div[@class="c-signature c-signature--left"]//text()`,
	"tags": `//meta[@name="keywords"]/@content`,
	"type": `//meta[@property="og:type"]/@content`,
}

// The search surface and the comments section are class-and-id markup,
// which reads better as CSS selectors than as XPath unions.
var folhaSelector = map[string]string{
	"results":  "div.c-headline__content",
	"headline": "div.c-headline__content > a",
	"arrow":    "li.c-pagination__arrow > a",
	"idData":   "section#comentarios",
}

// folhaHost filters search hits down to article pages on the
// numbered content subdomains.
const folhaHost = "1.folha.uol.com.br"

// Folha crawls Folha de São Paulo through its HTML search surface,
// following the pagination arrow from page to page.
type Folha struct {
	cfg    *config.FolhaPlatform
	client fetcher.Fetcher
	gate   *storage.Gate
	logger *slog.Logger
	stats  Stats
}

// NewFolha creates a Folha adapter. The gate may be nil for parse-only
// runs.
func NewFolha(cfg *config.FolhaPlatform, client fetcher.Fetcher, gate *storage.Gate, logger *slog.Logger) *Folha {
	return &Folha{
		cfg:    cfg,
		client: client,
		gate:   gate,
		logger: logger.With("component", "folha_adapter"),
	}
}

func (f *Folha) Platform() string { return types.PlatformFolha }

func (f *Folha) Stats() Stats { return f.stats }

// ListRecent enumerates the newest national content. Folha has no
// dedicated listing API; an empty-keyword search on the whole site,
// newest first, is the equivalent surface. Regions are not meaningful
// for Folha and are ignored.
func (f *Folha) ListRecent(ctx context.Context, _ []string, maxPages int) iter.Seq[Candidate] {
	return f.Search(ctx, []string{""}, maxPages)
}

func (f *Folha) Search(ctx context.Context, keywords []string, maxPages int) iter.Seq[Candidate] {
	return func(yield func(Candidate) bool) {
		for _, keyword := range keywords {
			f.logger.Info("searching", "keyword", keyword)

			// The search surface paginates by link-following: each
			// page carries an arrow anchor to the next. The page
			// function holds the cursor.
			next := fmt.Sprintf(f.cfg.SearchAPI, url.QueryEscape(keyword))
			run := pagination.New(maxPages, func(ctx context.Context, pageIndex int) ([]Candidate, error) {
				if next == "" {
					return nil, types.ErrEndOfData
				}
				page, err := f.client.Fetch(ctx, fetcher.NewRequest(next))
				if err != nil {
					return nil, err
				}
				if page == nil {
					return nil, types.ErrEndOfData
				}
				doc, err := page.Document()
				if err != nil {
					return nil, types.ErrEndOfData
				}
				if doc.Find(folhaSelector["results"]).Length() == 0 {
					return nil, types.ErrEndOfData
				}

				var out []Candidate
				doc.Find(folhaSelector["headline"]).Each(func(_ int, sel *goquery.Selection) {
					if href, ok := sel.Attr("href"); ok && strings.Contains(href, folhaHost) {
						out = append(out, Candidate{URL: href})
					}
				})
				f.logger.Info("search page retrieved", "keyword", keyword, "page", pageIndex+1, "urls", len(out))

				next = ""
				if arrow, ok := doc.Find(folhaSelector["arrow"]).First().Attr("href"); ok {
					unquoted, err := url.QueryUnescape(arrow)
					if err != nil {
						unquoted = arrow
					}
					next = unquoted
				}
				return out, nil
			})

			for c := range run.Seq(ctx) {
				f.stats.Listed++
				if !yield(c) {
					return
				}
			}
			f.stats.LastStop = run.Cause()
		}
	}
}

func (f *Folha) ParseArticles(ctx context.Context, candidates iter.Seq[Candidate], opts Options) iter.Seq[*types.ArticleRecord] {
	return func(yield func(*types.ArticleRecord) bool) {
		for candidate := range candidates {
			if !strings.Contains(candidate.URL, folhaHost) {
				f.stats.FilteredOut++
				continue
			}

			page, err := f.client.Fetch(ctx, fetcher.NewRequest(candidate.URL))
			if err != nil {
				return
			}
			if page == nil {
				f.stats.FetchFailures++
				f.logger.Warn("article fetch failed, skipping", "url", candidate.URL)
				continue
			}

			record := f.extract(candidate.URL, page, opts)
			if !offer(ctx, f.gate, record, &f.stats, f.logger) {
				continue
			}
			if !yield(record) {
				return
			}
		}
	}
}

func (f *Folha) extract(articleURL string, page *fetcher.Page, opts Options) *types.ArticleRecord {
	record := &types.ArticleRecord{
		Title:    page.XPathText(folhaXPath["title"]),
		Abstract: page.XPathText(folhaXPath["abstract"]),
		Section:  page.XPathText(folhaXPath["section"]),
		Region:   page.XPathText(folhaXPath["region"]),
		URL:      articleURL,
		Platform: types.PlatformFolha,
		Tags:     normalize.Tags(page.XPathAll(folhaXPath["tags"])),
		Type:     f.extractType(articleURL, page),
		IDData:   extractIDData(page),
	}
	if raw := page.XPathText(folhaXPath["date"]); raw != nil {
		record.Date = normalize.Date(*raw)
	}
	if opts.ParseBody {
		if parts := page.XPathAll(folhaXPath["body"]); parts != nil {
			body := normalize.Spaces(strings.Join(parts, " "))
			record.Body = &body
		}
	}
	if opts.SaveHTML {
		record.HTML = page.Body
	}
	return record
}

// extractType prefers the URL rule, then the page's og:type metadata.
func (f *Folha) extractType(articleURL string, page *fetcher.Page) string {
	if strings.Contains(articleURL, "video") {
		return types.TypeVideo
	}
	if ogType := page.XPathText(folhaXPath["type"]); ogType != nil {
		switch strings.ToLower(*ogType) {
		case "video", "video.other":
			return types.TypeVideo
		}
	}
	return types.TypeArticle
}

// extractIDData reads the comment-engine attributes off the comments
// section. All four are required to resolve a thread id later; a
// partial set yields nil.
func extractIDData(page *fetcher.Page) *types.IDData {
	doc, err := page.Document()
	if err != nil {
		return nil
	}
	sel := doc.Find(folhaSelector["idData"]).First()
	if sel.Length() == 0 {
		return nil
	}

	data := &types.IDData{
		ServiceName:  sel.AttrOr("data-service", ""),
		CategoryName: sel.AttrOr("data-section", ""),
		ArticleID:    sel.AttrOr("data-id", ""),
		DataType:     sel.AttrOr("data-type", ""),
	}
	if !data.Complete() {
		return nil
	}
	return data
}
