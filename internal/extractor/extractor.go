// Package extractor turns a fetched catalog page into normalized product
// records. Extraction is an explicit two-stage pipeline: structured JSON-LD
// blocks first, a heuristic scan of product-card markup only when the
// structured pass yields nothing.
package extractor

import (
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/zarawatch/catalog-scraper/internal/models"
)

// Strategy identifies which extraction stage produced the records.
type Strategy string

const (
	StrategyStructured Strategy = "structured"
	StrategyHeuristic  Strategy = "heuristic"
	StrategyNone       Strategy = "none"
)

type Extractor struct {
	defaultCategory string
	maxCandidates   int
	idChain         []idFunc
	logger          *slog.Logger
}

func New(defaultCategory string, logger *slog.Logger) *Extractor {
	return &Extractor{
		defaultCategory: defaultCategory,
		maxCandidates:   maxHeuristicCandidates,
		idChain:         defaultIDChain(),
		logger:          logger.With("component", "extractor"),
	}
}

// Extract returns the records found on the page in document order, along
// with the strategy that produced them. An empty result is not an error: the
// caller treats it as "no products found".
//
// If one or more valid products come out of the structured pass, the
// heuristic fallback never runs.
func (e *Extractor) Extract(doc *goquery.Document, baseURL string) ([]models.ProductRecord, Strategy, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, StrategyNone, fmt.Errorf("invalid base url %q: %w", baseURL, err)
	}

	now := time.Now().UTC()

	if records := e.extractStructured(doc, base, now); len(records) > 0 {
		return e.dedupe(records), StrategyStructured, nil
	}

	if records := e.extractHeuristic(doc, base, now); len(records) > 0 {
		return e.dedupe(records), StrategyHeuristic, nil
	}

	return nil, StrategyNone, nil
}

// dedupe enforces id uniqueness within one batch: the first occurrence wins
// and the conflict is logged.
func (e *Extractor) dedupe(records []models.ProductRecord) []models.ProductRecord {
	seen := make(map[string]bool, len(records))
	out := records[:0]
	for _, rec := range records {
		if seen[rec.ID] {
			e.logger.Warn("duplicate product id in batch, keeping first occurrence", "id", rec.ID, "name", rec.Name)
			continue
		}
		seen[rec.ID] = true
		out = append(out, rec)
	}
	return out
}

// resolveURL turns a possibly relative or protocol-relative reference into
// an absolute URL on the page's origin. Empty input stays empty.
func resolveURL(base *url.URL, ref string) string {
	if ref == "" {
		return ""
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	return base.ResolveReference(u).String()
}
