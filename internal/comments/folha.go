package comments

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"

	"github.com/NepZR/brnews/internal/config"
	"github.com/NepZR/brnews/internal/fetcher"
	"github.com/NepZR/brnews/internal/normalize"
	"github.com/NepZR/brnews/internal/pagination"
	"github.com/NepZR/brnews/internal/storage"
	"github.com/NepZR/brnews/internal/types"
)

// Relative expressions evaluated against one comment list item.
var folhaCommentXPath = map[string]string{
	"items":  `//li[@class="c-list-comments__item"]`,
	"author": `.//strong[@class="c-list-comments__user"]`,
	"date":   `.//time[@class="c-list-comments__date"]/@datetime`,
	"text":   `.//p[@class="c-list-comments__comment"]`,
	"upvote": `.//button[@class="c-list-comments__rating"]/span`,
	"id":     `.//button[@class="c-list-comments__rating"]/@data-comment-rating`,
}

// folhaPageSize is the comment-engine page stride: the sr offset of
// page i is 1 + i*folhaPageSize.
const folhaPageSize = 50

// Folha extracts comments from the UOL comment engine. The engine is
// keyed by a numeric thread id, resolved from the id_data attributes
// embedded in the article page, and paginated by a 1-based comment
// offset.
type Folha struct {
	cfg    *config.FolhaPlatform
	client fetcher.Fetcher
	gate   *storage.Gate
	logger *slog.Logger
	stats  Stats
}

// NewFolha creates a Folha comment adapter. The gate may be nil to
// stream without persistence.
func NewFolha(cfg *config.FolhaPlatform, client fetcher.Fetcher, gate *storage.Gate, logger *slog.Logger) *Folha {
	return &Folha{
		cfg:    cfg,
		client: client,
		gate:   gate,
		logger: logger.With("component", "folha_comments"),
	}
}

func (f *Folha) Platform() string { return types.PlatformFolha }

func (f *Folha) Stats() Stats { return f.stats }

// HasComments reports whether the article carries a complete id_data
// attribute set. Articles without one have no comment section, so no
// network call is spent on them.
func (f *Folha) HasComments(_ context.Context, article *types.ArticleRecord) bool {
	return article.IDData.Complete()
}

func (f *Folha) StreamComments(ctx context.Context, articles []*types.ArticleRecord) iter.Seq[*types.CommentRecord] {
	return func(yield func(*types.CommentRecord) bool) {
		for _, article := range articles {
			f.stats.ArticlesVisited++
			if !f.HasComments(ctx, article) {
				f.stats.NoThread++
				continue
			}

			threadID, err := f.resolveThreadID(ctx, article.IDData)
			if err != nil {
				f.stats.NoThread++
				f.logger.Warn("thread id not resolved", "url", article.URL, "error", err)
				continue
			}

			run := pagination.New(-1, func(ctx context.Context, pageIndex int) ([]*html.Node, error) {
				return f.fetchPage(ctx, threadID, pageIndex)
			})

			stop := false
			for node := range run.Seq(ctx) {
				record := f.record(article, threadID, node)
				if record == nil {
					f.stats.EmptySkipped++
					continue
				}
				if !offer(ctx, f.gate, record, &f.stats, f.logger) {
					continue
				}
				if !yield(record) {
					stop = true
					break
				}
			}
			f.stats.LastStop = run.Cause()
			if stop {
				return
			}
		}
	}
}

// folhaSubject is the JSONP envelope of the comment-engine resolver,
// trimmed to the thread id. The engine serves numbers as strings.
type folhaSubject struct {
	Subject struct {
		SubjectID json.Number `json:"subject_id"`
	} `json:"subject"`
}

// resolveThreadID asks the JSONP comment engine for the numeric thread
// id behind an article's id_data attributes.
func (f *Folha) resolveThreadID(ctx context.Context, idData *types.IDData) (int64, error) {
	params := url.Values{
		"service_name":        {idData.ServiceName},
		"type":                {idData.DataType},
		"limit":               {"1"},
		"show_replies":        {"false"},
		"show_with_alternate": {"false"},
		"link_format":         {"html"},
		"order_by":            {"create"},
		"callback":            {"get_comments"},
		"category_name":       {idData.CategoryName},
		"external_id":         {idData.ArticleID},
	}
	cookies := []*http.Cookie{
		{Name: "folha_ga_userType", Value: "not_logged"},
		{Name: "folha_ga_loginType", Value: "not_logged"},
		{Name: "folha_ga_userGroup", Value: "visitor"},
		{Name: "folha_ga_swgt", Value: "sub_na"},
	}

	page, err := f.client.Fetch(ctx, fetcher.NewRequest(f.cfg.CommentsEngine).WithParams(params).WithCookies(cookies))
	if err != nil {
		return 0, err
	}
	if page == nil {
		return 0, types.ErrNoThread
	}

	raw := strings.TrimSpace(string(page.Body))
	raw = strings.TrimPrefix(raw, "get_comments(")
	raw = strings.TrimSuffix(raw, ";")
	raw = strings.TrimSpace(raw)
	raw = strings.TrimSuffix(raw, ")")

	var subject folhaSubject
	if err := json.Unmarshal([]byte(raw), &subject); err != nil {
		return 0, types.ErrNoThread
	}
	id, err := subject.Subject.SubjectID.Int64()
	if err != nil || id == 0 {
		return 0, types.ErrNoThread
	}
	return id, nil
}

// fetchPage returns the comment list items of one engine page. A page
// with no items ends the thread.
func (f *Folha) fetchPage(ctx context.Context, threadID int64, pageIndex int) ([]*html.Node, error) {
	offset := 1 + pageIndex*folhaPageSize
	target := fmt.Sprintf(f.cfg.CommentsAPI, threadID, offset)

	page, err := f.client.Fetch(ctx, fetcher.NewRequest(target))
	if err != nil {
		return nil, err
	}
	if page == nil {
		return nil, types.ErrEndOfData
	}

	root, err := page.Root()
	if err != nil {
		return nil, types.ErrEndOfData
	}
	nodes, err := htmlquery.QueryAll(root, folhaCommentXPath["items"])
	if err != nil || len(nodes) == 0 {
		return nil, types.ErrEndOfData
	}
	return nodes, nil
}

// record builds a CommentRecord from one list item, or nil when the
// item has no comment text.
func (f *Folha) record(article *types.ArticleRecord, threadID int64, node *html.Node) *types.CommentRecord {
	text := nodeText(node, folhaCommentXPath["text"])
	if text == nil {
		return nil
	}

	record := &types.CommentRecord{
		Author:    nodeText(node, folhaCommentXPath["author"]),
		Comment:   text,
		CommentID: nodeText(node, folhaCommentXPath["id"]),
		Platform:  types.PlatformFolha,
		NewsData: types.NewsRef{
			Title:  article.Title,
			Region: article.Region,
			URL:    article.URL,
			NewsID: article.IDData.ArticleID,
			APIID:  threadID,
			APIURL: fmt.Sprintf("https://comentarios1.folha.uol.com.br/comentarios/%d", threadID),
		},
	}
	if raw := nodeText(node, folhaCommentXPath["date"]); raw != nil {
		record.Date = normalize.Date(*raw)
	}
	if raw := nodeText(node, folhaCommentXPath["upvote"]); raw != nil {
		if upvote, err := strconv.Atoi(*raw); err == nil {
			record.Upvote = &upvote
		}
	}
	return record
}

// nodeText evaluates a relative XPath expression against one node and
// returns the trimmed text of the first match, or nil.
func nodeText(node *html.Node, expr string) *string {
	match, err := htmlquery.Query(node, expr)
	if err != nil || match == nil {
		return nil
	}
	text := strings.TrimSpace(htmlquery.InnerText(match))
	if text == "" {
		return nil
	}
	return &text
}
