package news

import (
	"context"
	"encoding/json"
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

var exameXPath = map[string]string{
	"abstract": `//meta[@property="og:description"]/@content|//meta[@name="description"]/@content`,
	"body":     `//div[@id="news-body"]`,
	"type":     `//meta[@property="og:type"]/@content`,
}

const exameHost = "exame.com"

// exameFields is the projection requested from the content API.
const exameFields = "id,slug,date,link,title,featured_media_url," +
	"categories_data,sponsor_type,sponsor_name,sponsor_link,acf"

// exameArticle is the API payload carried on candidates. The search
// endpoint already returns the metadata; only abstract, type and body
// need the article page itself.
type exameArticle struct {
	ID             int64  `json:"id"`
	Date           string `json:"date"`
	Link           string `json:"link"`
	Title          string `json:"title"`
	CategoriesData []struct {
		Name string `json:"name"`
	} `json:"categories_data"`
}

// Exame crawls Exame through its WordPress content API.
type Exame struct {
	cfg    *config.ExamePlatform
	client fetcher.Fetcher
	gate   *storage.Gate
	logger *slog.Logger
	stats  Stats
}

// NewExame creates an Exame adapter. The gate may be nil for parse-only
// runs.
func NewExame(cfg *config.ExamePlatform, client fetcher.Fetcher, gate *storage.Gate, logger *slog.Logger) *Exame {
	return &Exame{
		cfg:    cfg,
		client: client,
		gate:   gate,
		logger: logger.With("component", "exame_adapter"),
	}
}

func (e *Exame) Platform() string { return types.PlatformExame }

func (e *Exame) Stats() Stats { return e.stats }

// ListRecent enumerates the newest content: the search endpoint with no
// keyword, ordered newest first, is Exame's listing surface. Regions
// are not meaningful for Exame and are ignored.
func (e *Exame) ListRecent(ctx context.Context, _ []string, maxPages int) iter.Seq[Candidate] {
	return e.Search(ctx, []string{""}, maxPages)
}

func (e *Exame) Search(ctx context.Context, keywords []string, maxPages int) iter.Seq[Candidate] {
	return func(yield func(Candidate) bool) {
		for _, keyword := range keywords {
			e.logger.Info("searching", "keyword", keyword)
			run := pagination.New(maxPages, func(ctx context.Context, pageIndex int) ([]Candidate, error) {
				params := url.Values{
					"page":     {strconv.Itoa(pageIndex + 1)},
					"per_page": {"25"},
					"_details": {"true"},
					"_fields":  {exameFields},
					"search":   {keyword},
					"order":    {"desc"},
				}
				page, err := e.client.Fetch(ctx, fetcher.NewRequest(e.cfg.SearchAPI).WithParams(params))
				if err != nil {
					return nil, err
				}
				if page == nil {
					return nil, types.ErrEndOfData
				}

				var items []json.RawMessage
				if err := page.JSON(&items); err != nil {
					// Beyond the last page the API stops returning an
					// article array.
					return nil, types.ErrEndOfData
				}
				if len(items) == 0 {
					return nil, types.ErrEndOfData
				}

				var out []Candidate
				for _, raw := range items {
					var article exameArticle
					if err := json.Unmarshal(raw, &article); err != nil {
						continue
					}
					if article.Link == "" || !strings.Contains(article.Link, exameHost) {
						continue
					}
					out = append(out, Candidate{URL: article.Link, Data: raw})
				}
				e.logger.Info("search page retrieved", "keyword", keyword, "page", pageIndex+1, "items", len(out))
				return out, nil
			})

			for c := range run.Seq(ctx) {
				e.stats.Listed++
				if !yield(c) {
					return
				}
			}
			e.stats.LastStop = run.Cause()
		}
	}
}

func (e *Exame) ParseArticles(ctx context.Context, candidates iter.Seq[Candidate], opts Options) iter.Seq[*types.ArticleRecord] {
	return func(yield func(*types.ArticleRecord) bool) {
		for candidate := range candidates {
			if !strings.Contains(candidate.URL, exameHost) {
				e.stats.FilteredOut++
				continue
			}

			var article exameArticle
			if candidate.Data != nil {
				if err := json.Unmarshal(candidate.Data, &article); err != nil {
					article = exameArticle{}
				}
			}

			page, err := e.client.Fetch(ctx, fetcher.NewRequest(candidate.URL))
			if err != nil {
				return
			}
			if page == nil {
				e.stats.FetchFailures++
				e.logger.Warn("article fetch failed, skipping", "url", candidate.URL)
				continue
			}

			record := e.extract(candidate.URL, &article, page, opts)
			if !offer(ctx, e.gate, record, &e.stats, e.logger) {
				continue
			}
			if !yield(record) {
				return
			}
		}
	}
}

// extract combines the API payload fields with the page-derived ones.
func (e *Exame) extract(articleURL string, article *exameArticle, page *fetcher.Page, opts Options) *types.ArticleRecord {
	record := &types.ArticleRecord{
		Abstract: page.XPathText(exameXPath["abstract"]),
		URL:      articleURL,
		Platform: types.PlatformExame,
		Type:     e.extractType(articleURL, page),
	}
	if article.Title != "" {
		record.Title = &article.Title
	}
	record.Date = normalize.Date(article.Date)
	if len(article.CategoriesData) > 0 {
		if name := article.CategoriesData[0].Name; name != "" {
			record.Section = &name
		}
		var tags []string
		for _, category := range article.CategoriesData {
			tags = append(tags, category.Name)
		}
		record.Tags = normalize.Tags(tags)
	}
	if article.ID != 0 {
		record.IDData = &types.IDData{APIID: article.ID}
	}
	if opts.ParseBody {
		if body := page.XPathText(exameXPath["body"]); body != nil {
			text := normalize.Spaces(*body)
			record.Body = &text
		}
	}
	if opts.SaveHTML {
		record.HTML = page.Body
	}
	return record
}

func (e *Exame) extractType(articleURL string, page *fetcher.Page) string {
	if strings.Contains(articleURL, "video") {
		return types.TypeVideo
	}
	if ogType := page.XPathText(exameXPath["type"]); ogType != nil {
		switch strings.ToLower(*ogType) {
		case "video", "video.other":
			return types.TypeVideo
		}
	}
	return types.TypeArticle
}
