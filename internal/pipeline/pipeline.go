// Package pipeline orchestrates a single scrape run: fetch, extract,
// reconcile, persist, report. A run is short-lived and sequential; the only
// blocking point is the page fetch.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/zarawatch/catalog-scraper/internal/extractor"
	"github.com/zarawatch/catalog-scraper/internal/fetcher"
	"github.com/zarawatch/catalog-scraper/internal/models"
	"github.com/zarawatch/catalog-scraper/internal/reconciler"
	"github.com/zarawatch/catalog-scraper/internal/store"
)

// ChangePublisher queues product change events alongside persistence. It is
// optional; runs against the in-memory store have none.
type ChangePublisher interface {
	PublishChanges(ctx context.Context, inserted, updated []models.ProductRecord) error
}

type Pipeline struct {
	source     fetcher.PageSource
	extractor  *extractor.Extractor
	reconciler *reconciler.Reconciler
	store      store.Store
	publisher  ChangePublisher
	baseURL    string
	logger     *slog.Logger
}

func New(source fetcher.PageSource, ex *extractor.Extractor, rec *reconciler.Reconciler, st store.Store, baseURL string, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		source:     source,
		extractor:  ex,
		reconciler: rec,
		store:      st,
		baseURL:    baseURL,
		logger:     logger.With("component", "pipeline"),
	}
}

// WithPublisher attaches an optional change publisher.
func (p *Pipeline) WithPublisher(pub ChangePublisher) *Pipeline {
	p.publisher = pub
	return p
}

// Run executes one scrape. The returned report always describes the outcome;
// the error is non-nil exactly when the run failed (fetch or persistence).
// A page that loads with zero products is a successful run with a notable
// message, not a failure.
func (p *Pipeline) Run(ctx context.Context) (models.RunReport, error) {
	report := models.RunReport{
		Timestamp: time.Now().UTC(),
		Strategy:  string(extractor.StrategyNone),
	}

	doc, err := p.source.Fetch(ctx, p.baseURL)
	if err != nil {
		report.Message = fmt.Sprintf("fetch failed: %v", err)
		return report, fmt.Errorf("fetch %s: %w", p.baseURL, err)
	}

	if err := ctx.Err(); err != nil {
		report.Message = "run cancelled"
		return report, err
	}

	records, strategy, err := p.extractor.Extract(doc, p.baseURL)
	if err != nil {
		report.Message = fmt.Sprintf("extraction failed: %v", err)
		return report, fmt.Errorf("extract: %w", err)
	}
	report.Strategy = string(strategy)
	report.ProductsScraped = len(records)

	if len(records) == 0 {
		p.logger.Warn("no products found on page", "url", p.baseURL)
		report.Success = true
		report.Message = "page loaded, no products found"
		return report, nil
	}

	if err := ctx.Err(); err != nil {
		report.Message = "run cancelled"
		return report, err
	}

	existing, err := p.store.Select(ctx, store.Filter{})
	if err != nil {
		report.Message = fmt.Sprintf("reading persisted products failed: %v", err)
		return report, fmt.Errorf("select existing: %w", err)
	}

	plan := p.reconciler.Plan(records, store.Keyed(existing), time.Now().UTC())
	report.New = len(plan.ToInsert)
	report.Updated = len(plan.ToUpdate)
	report.Unchanged = plan.Unchanged

	if err := p.store.Upsert(ctx, plan.ToInsert); err != nil {
		report.Message = fmt.Sprintf("persisting new products failed: %v", err)
		return report, fmt.Errorf("upsert: %w", err)
	}
	if err := p.store.Update(ctx, plan.ToUpdate); err != nil {
		report.Message = fmt.Sprintf("updating products failed: %v", err)
		return report, fmt.Errorf("update: %w", err)
	}
	report.ProductsSaved = plan.Saves()

	if p.publisher != nil {
		if err := p.publisher.PublishChanges(ctx, plan.ToInsert, plan.ToUpdate); err != nil {
			// Events are supplementary; the products themselves are saved.
			p.logger.Error("failed to queue product events", "error", err)
		}
	}

	report.Success = true
	report.Message = fmt.Sprintf("scraped %d products: %d new, %d updated, %d unchanged",
		report.ProductsScraped, report.New, report.Updated, report.Unchanged)

	p.logger.Info("run complete",
		"scraped", report.ProductsScraped,
		"saved", report.ProductsSaved,
		"new", report.New,
		"updated", report.Updated,
		"unchanged", report.Unchanged,
		"strategy", report.Strategy)

	return report, nil
}

// Cleanup removes records scraped more than maxAge ago. It is destructive
// and runs only on explicit request, never as part of Run.
func (p *Pipeline) Cleanup(ctx context.Context, maxAge time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-maxAge)
	deleted, err := p.store.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("cleanup: %w", err)
	}
	p.logger.Info("cleanup complete", "cutoff", cutoff, "deleted", deleted)
	return deleted, nil
}

// Stats summarizes the persisted set.
type Stats struct {
	TotalProducts int `json:"total_products"`
	SaleProducts  int `json:"sale_products"`
}

func (p *Pipeline) Stats(ctx context.Context) (Stats, error) {
	total, err := p.store.Count(ctx, store.Filter{})
	if err != nil {
		return Stats{}, fmt.Errorf("count products: %w", err)
	}

	onSale := true
	sale, err := p.store.Count(ctx, store.Filter{OnSale: &onSale})
	if err != nil {
		return Stats{}, fmt.Errorf("count sale products: %w", err)
	}

	return Stats{TotalProducts: total, SaleProducts: sale}, nil
}
