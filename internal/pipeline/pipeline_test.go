package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zarawatch/catalog-scraper/internal/extractor"
	"github.com/zarawatch/catalog-scraper/internal/fetcher"
	"github.com/zarawatch/catalog-scraper/internal/models"
	"github.com/zarawatch/catalog-scraper/internal/reconciler"
	"github.com/zarawatch/catalog-scraper/internal/store"
)

const runURL = "https://www.zara.com/tn/fr/homme-tout-l7465.html"

// stubSource serves a fixed HTML body instead of hitting the network.
type stubSource struct {
	html string
	err  error
}

func (s *stubSource) Fetch(_ context.Context, _ string) (*goquery.Document, error) {
	if s.err != nil {
		return nil, s.err
	}
	return goquery.NewDocumentFromReader(strings.NewReader(s.html))
}

// capturePublisher records the change sets handed to it.
type capturePublisher struct {
	inserted []models.ProductRecord
	updated  []models.ProductRecord
	err      error
}

func (c *capturePublisher) PublishChanges(_ context.Context, inserted, updated []models.ProductRecord) error {
	c.inserted = inserted
	c.updated = updated
	return c.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestPipeline(source fetcher.PageSource, st store.Store) *Pipeline {
	logger := discardLogger()
	return New(source, extractor.New("Men", logger), reconciler.New(logger), st, runURL, logger)
}

const catalogHTML = `
<div class="product-card">
	<a href="/tn/fr/chemise-p07545403.html"><h3>Chemise en lin</h3></a>
	<span class="price">119.00</span>
</div>
<div class="product-card">
	<a href="/tn/fr/pantalon-p01234567.html"><h3>Pantalon large</h3></a>
	<span class="price">59.90</span>
</div>`

func TestRunPersistsExtractedProducts(t *testing.T) {
	st := store.NewMemory()
	p := newTestPipeline(&stubSource{html: catalogHTML}, st)

	report, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.True(t, report.Success)
	assert.Equal(t, 2, report.ProductsScraped)
	assert.Equal(t, 2, report.New)
	assert.Equal(t, 0, report.Updated)
	assert.Equal(t, 0, report.Unchanged)
	assert.Equal(t, 2, report.ProductsSaved)
	assert.Equal(t, string(extractor.StrategyHeuristic), report.Strategy)

	count, err := st.Count(context.Background(), store.Filter{})
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestRunSecondPassIsAllUnchanged(t *testing.T) {
	st := store.NewMemory()
	p := newTestPipeline(&stubSource{html: catalogHTML}, st)

	_, err := p.Run(context.Background())
	require.NoError(t, err)

	report, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.True(t, report.Success)
	assert.Equal(t, 0, report.New)
	assert.Equal(t, 0, report.Updated)
	assert.Equal(t, 2, report.Unchanged)
	assert.Equal(t, 0, report.ProductsSaved, "unchanged records produce no writes")

	count, err := st.Count(context.Background(), store.Filter{})
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestRunDetectsPriceChange(t *testing.T) {
	st := store.NewMemory()
	first := &stubSource{html: catalogHTML}
	p := newTestPipeline(first, st)

	_, err := p.Run(context.Background())
	require.NoError(t, err)

	first.html = strings.Replace(catalogHTML, "119.00", "89.00", 1)
	report, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, report.New)
	assert.Equal(t, 1, report.Updated)
	assert.Equal(t, 1, report.Unchanged)
	assert.Equal(t, 1, report.ProductsSaved)
}

func TestRunEmptyPageIsSuccess(t *testing.T) {
	st := store.NewMemory()
	p := newTestPipeline(&stubSource{html: `<html><body><p>rien</p></body></html>`}, st)

	report, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.True(t, report.Success)
	assert.Equal(t, 0, report.ProductsScraped)
	assert.Equal(t, "page loaded, no products found", report.Message)
	assert.Equal(t, string(extractor.StrategyNone), report.Strategy)
}

func TestRunFetchFailure(t *testing.T) {
	fetchErr := fmt.Errorf("%w: https://example.com after 3 attempts", fetcher.ErrFetch)
	p := newTestPipeline(&stubSource{err: fetchErr}, store.NewMemory())

	report, err := p.Run(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, fetcher.ErrFetch))
	assert.False(t, report.Success)
	assert.Contains(t, report.Message, "fetch failed")
}

func TestRunPublishesChangeEvents(t *testing.T) {
	pub := &capturePublisher{}
	p := newTestPipeline(&stubSource{html: catalogHTML}, store.NewMemory()).WithPublisher(pub)

	_, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Len(t, pub.inserted, 2)
	assert.Empty(t, pub.updated)
}

func TestRunPublisherFailureDoesNotFailRun(t *testing.T) {
	pub := &capturePublisher{err: errors.New("redis unavailable")}
	p := newTestPipeline(&stubSource{html: catalogHTML}, store.NewMemory()).WithPublisher(pub)

	report, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, report.Success)
	assert.Equal(t, 2, report.ProductsSaved)
}

func TestCleanupRemovesOnlyStaleRecords(t *testing.T) {
	st := store.NewMemory()
	ctx := context.Background()

	now := time.Now().UTC()
	require.NoError(t, st.Upsert(ctx, []models.ProductRecord{
		{ID: "stale", Name: "Ancien", ScrapedAt: now.Add(-40 * 24 * time.Hour)},
		{ID: "fresh", Name: "Récent", ScrapedAt: now},
	}))

	p := newTestPipeline(&stubSource{}, st)
	deleted, err := p.Cleanup(ctx, 30*24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	count, err := st.Count(ctx, store.Filter{})
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestStats(t *testing.T) {
	st := store.NewMemory()
	ctx := context.Background()

	require.NoError(t, st.Upsert(ctx, []models.ProductRecord{
		{ID: "1", Name: "Chemise", IsSale: true},
		{ID: "2", Name: "Pantalon"},
		{ID: "3", Name: "Veste", IsSale: true},
	}))

	p := newTestPipeline(&stubSource{}, st)
	stats, err := p.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalProducts)
	assert.Equal(t, 2, stats.SaleProducts)
}
