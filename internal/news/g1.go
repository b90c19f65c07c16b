package news

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"net/url"
	"strconv"
	"strings"

	"github.com/NepZR/brnews/internal/config"
	"github.com/NepZR/brnews/internal/fetcher"
	"github.com/NepZR/brnews/internal/normalize"
	"github.com/NepZR/brnews/internal/pagination"
	"github.com/NepZR/brnews/internal/storage"
	"github.com/NepZR/brnews/internal/types"
)

// Extraction table for G1 article pages. Alternation keeps older page
// templates working.
var g1XPath = map[string]string{
	"title":    `//div[@class="title"]/h1/text()|//meta[@name="title"]/@content|//head/title/text()`,
	"date":     `//time[@itemprop="datePublished"]/@datetime`,
	"abstract": `//h2[@class="content-head__subtitle"]/text()|//meta[@name="description"]/@content`,
	"body":     `//div[@class="mc-article-body"]//p/text()`,
	"section":  `//div[@class="header-title-content"]/a/text()`,
	"tags":     `//ul[@class="entities__list"]//a/text()`,
	"search":   `//div[@class="widget--info__text-container"]/a/@href`,
}

// G1 crawls Portal G1 through its region-partitioned listing API and
// its HTML search surface.
type G1 struct {
	cfg    *config.G1Platform
	client fetcher.Fetcher
	gate   *storage.Gate
	logger *slog.Logger
	stats  Stats
}

// NewG1 creates a G1 adapter. The gate may be nil for parse-only runs
// with no duplicate detection or persistence.
func NewG1(cfg *config.G1Platform, client fetcher.Fetcher, gate *storage.Gate, logger *slog.Logger) *G1 {
	return &G1{
		cfg:    cfg,
		client: client,
		gate:   gate,
		logger: logger.With("component", "g1_adapter"),
	}
}

func (g *G1) Platform() string { return types.PlatformG1 }

func (g *G1) Stats() Stats { return g.stats }

// g1Feed is one listing API page. Most items are "materia" posts with a
// direct URL; aggregated items nest their posts instead.
type g1Feed struct {
	Items []struct {
		Type    string `json:"type"`
		Content struct {
			URL   string `json:"url"`
			Posts []struct {
				URL string `json:"url"`
			} `json:"posts"`
		} `json:"content"`
	} `json:"items"`
}

func (g *G1) ListRecent(ctx context.Context, regions []string, maxPages int) iter.Seq[Candidate] {
	if regions == nil {
		regions = []string{"brasil"}
	}
	return func(yield func(Candidate) bool) {
		for _, region := range regions {
			instanceID, ok := g.cfg.Regions[strings.ToLower(region)]
			if !ok {
				g.logger.Error("unknown region, skipping", "region", region)
				continue
			}
			for candidate := range g.listInstance(ctx, region, instanceID, maxPages) {
				if !yield(candidate) {
					return
				}
			}
		}
	}
}

// listInstance walks one region's listing feed until the API stops
// returning decodable pages.
func (g *G1) listInstance(ctx context.Context, region, instanceID string, maxPages int) iter.Seq[Candidate] {
	run := pagination.New(maxPages, func(ctx context.Context, pageIndex int) ([]Candidate, error) {
		target := fmt.Sprintf(g.cfg.NewsAPI, instanceID, strconv.Itoa(pageIndex+1))
		page, err := g.client.Fetch(ctx, fetcher.NewRequest(target))
		if err != nil {
			return nil, err
		}
		if page == nil {
			return nil, types.ErrEndOfData
		}

		var feed g1Feed
		if err := page.JSON(&feed); err != nil {
			// Past the last page the API answers with non-JSON.
			return nil, types.ErrEndOfData
		}

		var out []Candidate
		for _, item := range feed.Items {
			if strings.Contains(item.Type, "materia") && item.Content.URL != "" {
				out = append(out, Candidate{URL: item.Content.URL})
				continue
			}
			for _, post := range item.Content.Posts {
				if post.URL != "" {
					out = append(out, Candidate{URL: post.URL})
				}
			}
		}
		g.logger.Info("listing page retrieved", "region", region, "page", pageIndex+1, "urls", len(out))
		return out, nil
	})

	return func(yield func(Candidate) bool) {
		for c := range run.Seq(ctx) {
			g.stats.Listed++
			if !yield(c) {
				break
			}
		}
		g.stats.LastStop = run.Cause()
	}
}

func (g *G1) Search(ctx context.Context, keywords []string, maxPages int) iter.Seq[Candidate] {
	return func(yield func(Candidate) bool) {
		for _, keyword := range keywords {
			g.logger.Info("searching", "keyword", keyword)
			run := pagination.New(maxPages, func(ctx context.Context, pageIndex int) ([]Candidate, error) {
				target := fmt.Sprintf(g.cfg.SearchAPI, url.QueryEscape(keyword), strconv.Itoa(pageIndex+1))
				page, err := g.client.Fetch(ctx, fetcher.NewRequest(target))
				if err != nil {
					return nil, err
				}
				if page == nil {
					return nil, types.ErrEndOfData
				}
				// Past the last result page the search redirects to a
				// URL without a page parameter.
				if !strings.Contains(page.FinalURL, "page") {
					return nil, types.ErrEndOfData
				}

				var out []Candidate
				for _, href := range page.XPathAll(g1XPath["search"]) {
					target := unwrapRedirect(href)
					if strings.Contains(target, "g1.globo.com") {
						out = append(out, Candidate{URL: target})
					}
				}
				return out, nil
			})

			for c := range run.Seq(ctx) {
				g.stats.Listed++
				if !yield(c) {
					return
				}
			}
			g.stats.LastStop = run.Cause()
		}
	}
}

// unwrapRedirect recovers the article URL from the search result's
// click-tracking wrapper (a "u=" query parameter).
func unwrapRedirect(href string) string {
	unquoted, err := url.QueryUnescape(href)
	if err != nil {
		unquoted = href
	}
	_, after, found := strings.Cut(unquoted, "u=")
	if !found {
		return unquoted
	}
	target, _, _ := strings.Cut(after, "&")
	return target
}

func (g *G1) ParseArticles(ctx context.Context, candidates iter.Seq[Candidate], opts Options) iter.Seq[*types.ArticleRecord] {
	return func(yield func(*types.ArticleRecord) bool) {
		for candidate := range candidates {
			page, err := g.client.Fetch(ctx, fetcher.NewRequest(candidate.URL))
			if err != nil {
				return
			}
			if page == nil {
				g.stats.FetchFailures++
				g.logger.Warn("article fetch failed, skipping", "url", candidate.URL)
				continue
			}

			record := g.extract(candidate.URL, page, opts)
			if !offer(ctx, g.gate, record, &g.stats, g.logger) {
				continue
			}
			if !yield(record) {
				return
			}
		}
	}
}

// extract assembles the canonical record from an article page. Every
// extraction recovers absence as a nil field.
func (g *G1) extract(articleURL string, page *fetcher.Page, opts Options) *types.ArticleRecord {
	record := &types.ArticleRecord{
		Title:    page.XPathText(g1XPath["title"]),
		Abstract: page.XPathText(g1XPath["abstract"]),
		Section:  page.XPathText(g1XPath["section"]),
		Region:   regionFromURL(articleURL, g.cfg.Regions),
		URL:      articleURL,
		Platform: types.PlatformG1,
		Tags:     normalize.Tags(page.XPathAll(g1XPath["tags"])),
		Type:     classifyType(articleURL),
	}
	if raw := page.XPathText(g1XPath["date"]); raw != nil {
		record.Date = normalize.Date(*raw)
	}
	if opts.ParseBody {
		if parts := page.XPathAll(g1XPath["body"]); parts != nil {
			body := normalize.Spaces(strings.Join(parts, " "))
			record.Body = &body
		}
	}
	if opts.SaveHTML {
		record.HTML = page.Body
	}
	return record
}
