package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/zarawatch/catalog-scraper/internal/config"
	"github.com/zarawatch/catalog-scraper/internal/events"
	"github.com/zarawatch/catalog-scraper/internal/exporter"
	"github.com/zarawatch/catalog-scraper/internal/extractor"
	"github.com/zarawatch/catalog-scraper/internal/fetcher"
	"github.com/zarawatch/catalog-scraper/internal/pipeline"
	"github.com/zarawatch/catalog-scraper/internal/reconciler"
	"github.com/zarawatch/catalog-scraper/internal/store"
)

func main() {
	var (
		urlFlag     = flag.String("url", "", "Catalog URL to scrape (overrides CATALOG_URL)")
		category    = flag.String("category", "", "Default category for extracted products (overrides CATALOG_DEFAULT_CATEGORY)")
		cleanupDays = flag.Int("cleanup-days", 0, "Delete products scraped more than N days ago after the run (0 = no cleanup)")
		dryRun      = flag.Bool("dry-run", false, "Fetch and extract but do not write to the store")
		statsOnly   = flag.Bool("stats-only", false, "Print store statistics and exit")
		exportDir   = flag.String("export", "", "Export the persisted products to a JSON file in this directory after the run")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}
	if *urlFlag != "" {
		cfg.Catalog.BaseURL = *urlFlag
	}
	if *category != "" {
		cfg.Catalog.DefaultCategory = *category
	}

	logger := newLogger(cfg.Logging)
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("shutdown signal received")
		cancel()
	}()

	if err := run(ctx, cfg, logger, *cleanupDays, *dryRun, *statsOnly, *exportDir); err != nil {
		logger.Error("run failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger, cleanupDays int, dryRun, statsOnly bool, exportDir string) error {
	source, closeSource, err := newPageSource(cfg, logger)
	if err != nil {
		return err
	}
	defer closeSource()

	ex := extractor.New(cfg.Catalog.DefaultCategory, logger)

	if dryRun {
		return runDry(ctx, source, ex, cfg.Catalog.BaseURL, logger)
	}

	st, db, err := newStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	p := pipeline.New(source, ex, reconciler.New(logger), st, cfg.Catalog.BaseURL, logger)
	if db != nil {
		outbox := store.NewOutboxRepository(db, cfg.Redis.Stream)
		p.WithPublisher(events.NewPublisher(db, outbox, logger))
	}

	if statsOnly {
		stats, err := p.Stats(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("total products: %d\nsale products:  %d\n", stats.TotalProducts, stats.SaleProducts)
		return nil
	}

	report, err := p.Run(ctx)
	fmt.Println(report)
	if err != nil {
		return err
	}

	if cleanupDays > 0 {
		deleted, err := p.Cleanup(ctx, time.Duration(cleanupDays)*24*time.Hour)
		if err != nil {
			return err
		}
		fmt.Printf("cleanup: removed %d products older than %d days\n", deleted, cleanupDays)
	}

	if exportDir != "" {
		products, err := st.Select(ctx, store.Filter{})
		if err != nil {
			return err
		}
		path, err := exporter.ExportJSON(products, exportDir, cfg.Catalog.SiteName, logger)
		if err != nil {
			return err
		}
		fmt.Printf("exported %d products to %s\n", len(products), path)
	}

	return nil
}

func runDry(ctx context.Context, source fetcher.PageSource, ex *extractor.Extractor, baseURL string, logger *slog.Logger) error {
	logger.Info("running in dry-run mode, no store writes")

	doc, err := source.Fetch(ctx, baseURL)
	if err != nil {
		return err
	}

	records, strategy, err := ex.Extract(doc, baseURL)
	if err != nil {
		return err
	}

	fmt.Printf("dry run complete: %d products extracted (strategy=%s)\n", len(records), strategy)
	for i, rec := range records {
		if i >= 3 {
			break
		}
		fmt.Printf("%d. %s - %s\n", i+1, rec.Name, rec.Price.Display)
	}
	return nil
}

func newPageSource(cfg *config.Config, logger *slog.Logger) (fetcher.PageSource, func(), error) {
	if cfg.Fetcher.Mode == config.FetchModeBrowser {
		b, err := fetcher.NewBrowser(cfg.Fetcher, cfg.Browser, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize browser: %w", err)
		}
		return b, func() {
			if err := b.Close(); err != nil {
				logger.Error("failed to close browser", "error", err)
			}
		}, nil
	}
	return fetcher.NewClient(cfg.Fetcher, logger), func() {}, nil
}

// newStore returns the Postgres store when configured, otherwise the
// in-memory fallback with the same contract. The second return value is the
// database handle, nil for the fallback.
func newStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (store.Store, *store.DB, error) {
	if !cfg.DatabaseConfigured() {
		logger.Warn("no database configured, using in-memory store")
		return store.NewMemory(), nil, nil
	}

	db, err := store.NewDB(ctx, store.DBConfig{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		Database: cfg.Database.Name,
		MaxConns: cfg.Database.MaxConns,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.Migrate(ctx); err != nil {
		db.Close()
		return nil, nil, err
	}

	return store.NewPostgres(db, logger), db, nil
}

func newLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}
