package comments

import (
	"context"
	"iter"
	"log/slog"
	"net/url"
	"strings"

	"github.com/NepZR/brnews/internal/config"
	"github.com/NepZR/brnews/internal/fetcher"
	"github.com/NepZR/brnews/internal/normalize"
	"github.com/NepZR/brnews/internal/pagination"
	"github.com/NepZR/brnews/internal/storage"
	"github.com/NepZR/brnews/internal/types"
)

// G1 extracts comments from the Globo GraphQL comments engine. The
// engine answers one persisted query per story with the full flattened
// thread, so each article is a single-page pagination run.
type G1 struct {
	cfg    *config.G1Platform
	client fetcher.Fetcher
	gate   *storage.Gate
	logger *slog.Logger
	stats  Stats
}

// NewG1 creates a G1 comment adapter. The gate may be nil to stream
// without persistence.
func NewG1(cfg *config.G1Platform, client fetcher.Fetcher, gate *storage.Gate, logger *slog.Logger) *G1 {
	return &G1{
		cfg:    cfg,
		client: client,
		gate:   gate,
		logger: logger.With("component", "g1_comments"),
	}
}

func (g *G1) Platform() string { return types.PlatformG1 }

func (g *G1) Stats() Stats { return g.stats }

// HasComments asks the story count endpoint. Any failure is treated as
// "no comments": the pre-check exists to avoid work, not to add faults.
func (g *G1) HasComments(ctx context.Context, article *types.ArticleRecord) bool {
	page, err := g.client.Fetch(ctx, fetcher.NewRequest(g.cfg.CountAPI+article.URL))
	if err != nil || page == nil {
		return false
	}

	var payload struct {
		Count *int `json:"count"`
	}
	if err := page.JSON(&payload); err != nil {
		return false
	}
	return payload.Count != nil && *payload.Count > 0
}

// g1Thread is the GraphQL response shape, trimmed to the fields the
// record needs.
type g1Thread struct {
	Data struct {
		Story struct {
			Comments struct {
				Edges []struct {
					Node g1Node `json:"node"`
				} `json:"edges"`
			} `json:"comments"`
		} `json:"story"`
	} `json:"data"`
}

type g1Node struct {
	ID     string `json:"id"`
	Body   string `json:"body"`
	Author struct {
		Username string `json:"username"`
	} `json:"author"`
	CreatedAt    string `json:"createdAt"`
	ActionCounts struct {
		Reaction struct {
			Total int `json:"total"`
		} `json:"reaction"`
	} `json:"actionCounts"`
}

func (g *G1) StreamComments(ctx context.Context, articles []*types.ArticleRecord) iter.Seq[*types.CommentRecord] {
	return func(yield func(*types.CommentRecord) bool) {
		for _, article := range articles {
			g.stats.ArticlesVisited++
			if !g.HasComments(ctx, article) {
				g.stats.NoThread++
				continue
			}

			run := pagination.New(1, func(ctx context.Context, _ int) ([]g1Node, error) {
				return g.fetchThread(ctx, article.URL)
			})

			stop := false
			for node := range run.Seq(ctx) {
				record := g.record(article, node)
				if record == nil {
					g.stats.EmptySkipped++
					continue
				}
				if !offer(ctx, g.gate, record, &g.stats, g.logger) {
					continue
				}
				if !yield(record) {
					stop = true
					break
				}
			}
			g.stats.LastStop = run.Cause()
			if stop {
				return
			}
		}
	}
}

// fetchThread runs the persisted GraphQL query for one story URL. The
// configured variables blob carries the substitution point.
func (g *G1) fetchThread(ctx context.Context, storyURL string) ([]g1Node, error) {
	params := url.Values{
		"query":     {""},
		"id":        {g.cfg.CommentQueryID},
		"variables": {strings.Replace(g.cfg.CommentVariables, "@", storyURL, 1)},
	}

	page, err := g.client.Fetch(ctx, fetcher.NewRequest(g.cfg.CommentsAPI).WithParams(params))
	if err != nil {
		return nil, err
	}
	if page == nil {
		return nil, types.ErrEndOfData
	}

	var thread g1Thread
	if err := page.JSON(&thread); err != nil {
		return nil, types.ErrEndOfData
	}

	nodes := make([]g1Node, 0, len(thread.Data.Story.Comments.Edges))
	for _, edge := range thread.Data.Story.Comments.Edges {
		nodes = append(nodes, edge.Node)
	}
	return nodes, nil
}

// record builds a CommentRecord from a thread node, or nil for nodes
// with an empty body.
func (g *G1) record(article *types.ArticleRecord, node g1Node) *types.CommentRecord {
	text := normalize.StripHTML(node.Body)
	if text == "" {
		return nil
	}

	record := &types.CommentRecord{
		Comment:  &text,
		Upvote:   types.Ptr(node.ActionCounts.Reaction.Total),
		Platform: types.PlatformG1,
		Date:     normalize.Date(node.CreatedAt),
		NewsData: types.NewsRef{
			Title:  article.Title,
			Region: article.Region,
			URL:    article.URL,
		},
	}
	if node.Author.Username != "" {
		record.Author = &node.Author.Username
	}
	if node.ID != "" {
		record.CommentID = &node.ID
	}
	return record
}
