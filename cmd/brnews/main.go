package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/NepZR/brnews/internal/comments"
	"github.com/NepZR/brnews/internal/config"
	"github.com/NepZR/brnews/internal/export"
	"github.com/NepZR/brnews/internal/fetcher"
	"github.com/NepZR/brnews/internal/news"
	"github.com/NepZR/brnews/internal/storage"
	"github.com/NepZR/brnews/internal/types"
)

var (
	cfgFile  string
	verbose  bool
	platform string
	backend  string

	crawlMode     string
	crawlRegions  string
	crawlKeywords string
	crawlMaxPages int
	crawlBody     bool
	crawlHTML     bool

	exportFormat string
	exportQuery  string
	exportKind   string
	exportLimit  int64
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "brnews",
		Short: "brnews — Brazilian news and comment crawler",
		Long: `brnews captures news articles and reader comments from Brazilian
media platforms (Portal G1, Folha de São Paulo, Exame), normalizes them
into a uniform record shape, and stores them with duplicate detection.`,
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&platform, "platform", "p", "g1", "platform: g1, folha, exame")
	rootCmd.PersistentFlags().StringVarP(&backend, "backend", "b", "", "storage backend override: mongo, badger, memory")

	rootCmd.AddCommand(crawlCmd())
	rootCmd.AddCommand(commentsCmd())
	rootCmd.AddCommand(exportCmd())
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// crawlCmd creates the "crawl" subcommand.
func crawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Capture news articles from a platform",
		Long: `Capture news articles from the selected platform, either from its
recent-news feed (list mode) or from its keyword search (search mode),
and store each new article exactly once.`,
		RunE: runCrawl,
	}

	cmd.Flags().StringVarP(&crawlMode, "mode", "m", "list", "capture mode: list, search")
	cmd.Flags().StringVarP(&crawlRegions, "regions", "r", "", "comma-separated G1 regions (e.g. sp,rj,brasil)")
	cmd.Flags().StringVarP(&crawlKeywords, "keywords", "k", "", "comma-separated search keywords")
	cmd.Flags().IntVarP(&crawlMaxPages, "max-pages", "n", 10, "pages per region/keyword (-1 = until exhausted)")
	cmd.Flags().BoolVar(&crawlBody, "body", true, "extract the full article body")
	cmd.Flags().BoolVar(&crawlHTML, "html", false, "keep the raw article HTML on the record")

	return cmd
}

func runCrawl(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := setupLogger(cfg.Logging)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext(logger)
	defer cancel()

	client, err := fetcher.NewHTTPFetcher(&cfg.Fetcher, logger)
	if err != nil {
		return fmt.Errorf("create fetcher: %w", err)
	}
	defer client.Close()

	store, err := openStore(ctx, cfg, types.KindNews, logger)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer store.Close()
	gate := storage.NewGate(store, logger)

	adapter, err := newsAdapter(platform, client, gate, logger)
	if err != nil {
		return err
	}

	var candidates = adapter.ListRecent(ctx, splitList(crawlRegions), crawlMaxPages)
	if crawlMode == "search" {
		keywords := splitList(crawlKeywords)
		if len(keywords) == 0 {
			return fmt.Errorf("search mode needs at least one --keywords entry")
		}
		candidates = adapter.Search(ctx, keywords, crawlMaxPages)
	} else if crawlMode != "list" {
		return fmt.Errorf("unknown mode %q: want list or search", crawlMode)
	}

	logger.Info("starting capture",
		"platform", adapter.Platform(),
		"mode", crawlMode,
		"backend", store.Name(),
		"max_pages", crawlMaxPages,
	)

	start := time.Now()
	opts := news.Options{ParseBody: crawlBody, SaveHTML: crawlHTML}
	var stored int
	for range adapter.ParseArticles(ctx, candidates, opts) {
		stored++
	}

	stats := adapter.Stats()
	logger.Info("capture complete",
		"elapsed", time.Since(start).Round(time.Millisecond),
		"listed", stats.Listed,
		"stored", stored,
		"duplicates", stats.Duplicates,
		"fetch_failures", stats.FetchFailures,
		"stop", stats.LastStop,
	)

	fmt.Printf("Captured %d new articles from %s (%d listed, %d duplicates).\n",
		stored, adapter.Platform(), stats.Listed, stats.Duplicates)
	return nil
}

// commentsCmd creates the "comments" subcommand.
func commentsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "comments",
		Short: "Capture reader comments for already-stored articles",
		Long: `Read stored articles for the selected platform and capture the
reader comments attached to each one. Articles without a comment
thread are skipped without extra network calls.`,
		RunE: runComments,
	}

	cmd.Flags().Int64VarP(&exportLimit, "limit", "l", 0, "max articles to visit (0 = all)")

	return cmd
}

func runComments(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := setupLogger(cfg.Logging)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext(logger)
	defer cancel()

	client, err := fetcher.NewHTTPFetcher(&cfg.Fetcher, logger)
	if err != nil {
		return fmt.Errorf("create fetcher: %w", err)
	}
	defer client.Close()

	newsStore, err := openStore(ctx, cfg, types.KindNews, logger)
	if err != nil {
		return fmt.Errorf("open news storage: %w", err)
	}
	defer newsStore.Close()

	commentStore, err := openStore(ctx, cfg, types.KindComments, logger)
	if err != nil {
		return fmt.Errorf("open comment storage: %w", err)
	}
	defer commentStore.Close()
	gate := storage.NewGate(commentStore, logger)

	adapter, err := commentAdapter(platform, client, gate, logger)
	if err != nil {
		return err
	}

	articles, err := loadArticles(ctx, newsStore, adapter.Platform(), exportLimit)
	if err != nil {
		return fmt.Errorf("load articles: %w", err)
	}
	if len(articles) == 0 {
		fmt.Printf("No stored %s articles to visit. Run \"brnews crawl\" first.\n", adapter.Platform())
		return nil
	}

	logger.Info("starting comment capture",
		"platform", adapter.Platform(),
		"articles", len(articles),
		"backend", commentStore.Name(),
	)

	start := time.Now()
	var stored int
	for range adapter.StreamComments(ctx, articles) {
		stored++
	}

	stats := adapter.Stats()
	logger.Info("comment capture complete",
		"elapsed", time.Since(start).Round(time.Millisecond),
		"articles_visited", stats.ArticlesVisited,
		"no_thread", stats.NoThread,
		"stored", stored,
		"duplicates", stats.Duplicates,
	)

	fmt.Printf("Captured %d new comments across %d articles (%d without threads).\n",
		stored, stats.ArticlesVisited, stats.NoThread)
	return nil
}

// exportCmd creates the "export" subcommand.
func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export stored records to flat files",
		Long: `Read stored records, optionally filtered by platform and keyword,
and write them to the configured export directory as a JSON or CSV
batch file.`,
		RunE: runExport,
	}

	cmd.Flags().StringVarP(&exportFormat, "format", "f", "json", "output format: json, csv")
	cmd.Flags().StringVarP(&exportQuery, "query", "q", "", "keyword filter over stored records")
	cmd.Flags().StringVar(&exportKind, "kind", types.KindNews, "record kind: news, comments")
	cmd.Flags().Int64VarP(&exportLimit, "limit", "l", 0, "max records (0 = all)")

	return cmd
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := setupLogger(cfg.Logging)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext(logger)
	defer cancel()

	if exportKind != types.KindNews && exportKind != types.KindComments {
		return fmt.Errorf("unknown kind %q: want %s or %s", exportKind, types.KindNews, types.KindComments)
	}

	store, err := openStore(ctx, cfg, exportKind, logger)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer store.Close()

	filter := storage.Filter{
		Platform: platformTag(platform),
		Query:    exportQuery,
		Limit:    exportLimit,
	}
	var records []types.Record
	for rec, err := range store.Read(ctx, filter) {
		if err != nil {
			return fmt.Errorf("read records: %w", err)
		}
		records = append(records, rec)
	}

	exporter, err := export.New(cfg.Export.Dir, logger)
	if err != nil {
		return fmt.Errorf("create exporter: %w", err)
	}

	var path string
	switch exportFormat {
	case "json":
		path, err = exporter.ExportJSON(records)
	case "csv":
		path, err = exporter.ExportCSV(records)
	default:
		return fmt.Errorf("unknown format %q: want json or csv", exportFormat)
	}
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}

	fmt.Printf("Exported %d records to %s\n", len(records), path)
	return nil
}

// versionCmd creates the "version" subcommand.
func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("brnews %s\n", config.Version)
		},
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if backend != "" {
		cfg.Storage.Backend = backend
	}
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// openStore opens the configured backend for one record kind.
func openStore(ctx context.Context, cfg *config.Config, kind string, logger *slog.Logger) (storage.Port, error) {
	switch cfg.Storage.Backend {
	case "mongo":
		return storage.NewMongoStore(ctx, cfg.Storage.MongoURI, cfg.Storage.Database, kind, logger)
	case "badger":
		return storage.NewBadgerStore(cfg.Storage.BadgerPath, kind, logger)
	case "memory":
		return storage.NewMemoryStore(kind), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}

func newsAdapter(name string, client fetcher.Fetcher, gate *storage.Gate, logger *slog.Logger) (news.Adapter, error) {
	switch name {
	case "g1":
		return news.NewG1(config.DefaultG1(), client, gate, logger), nil
	case "folha":
		return news.NewFolha(config.DefaultFolha(), client, gate, logger), nil
	case "exame":
		return news.NewExame(config.DefaultExame(), client, gate, logger), nil
	default:
		return nil, fmt.Errorf("unknown platform %q: want g1, folha or exame", name)
	}
}

func commentAdapter(name string, client fetcher.Fetcher, gate *storage.Gate, logger *slog.Logger) (comments.Adapter, error) {
	switch name {
	case "g1":
		return comments.NewG1(config.DefaultG1(), client, gate, logger), nil
	case "folha":
		return comments.NewFolha(config.DefaultFolha(), client, gate, logger), nil
	default:
		return nil, fmt.Errorf("platform %q has no comment engine: want g1 or folha", name)
	}
}

func platformTag(name string) string {
	switch name {
	case "g1":
		return types.PlatformG1
	case "folha":
		return types.PlatformFolha
	case "exame":
		return types.PlatformExame
	default:
		return ""
	}
}

// loadArticles reads stored articles for one platform, for the comment
// pass to visit.
func loadArticles(ctx context.Context, store storage.Port, platformTag string, limit int64) ([]*types.ArticleRecord, error) {
	filter := storage.Filter{Platform: platformTag, Limit: limit}
	var articles []*types.ArticleRecord
	for rec, err := range store.Read(ctx, filter) {
		if err != nil {
			return nil, err
		}
		if article, ok := rec.(*types.ArticleRecord); ok {
			articles = append(articles, article)
		}
	}
	return articles, nil
}

// signalContext cancels on SIGINT/SIGTERM.
func signalContext(logger *slog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received signal, shutting down", "signal", sig)
		cancel()
	}()
	return ctx, cancel
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// setupLogger creates a structured logger from the logging config.
// The --verbose flag overrides the configured level down to debug.
func setupLogger(cfg config.LoggingConfig) (*slog.Logger, error) {
	w, err := logOutput(cfg.Output)
	if err != nil {
		return nil, fmt.Errorf("open log output: %w", err)
	}
	return slog.New(logHandler(cfg, verbose, w)), nil
}

// logOutput resolves the configured output: stderr (default), stdout,
// or a file path opened for append.
func logOutput(output string) (io.Writer, error) {
	switch output {
	case "", "stderr":
		return os.Stderr, nil
	case "stdout":
		return os.Stdout, nil
	default:
		return os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	}
}

func logHandler(cfg config.LoggingConfig, debug bool, w io.Writer) slog.Handler {
	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if debug {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}
