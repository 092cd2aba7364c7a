package extractor

import (
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/zarawatch/catalog-scraper/internal/models"
)

// maxHeuristicCandidates bounds the work done on pathological pages where a
// generic pattern like ".item" matches half the DOM.
const maxHeuristicCandidates = 50

// cardPatterns are tried in priority order; the first pattern that matches
// at least one element wins and matches from later patterns are never mixed
// in.
var cardPatterns = []string{
	".product-item",
	".product-card",
	".product",
	"[data-product]",
	".item",
	".grid-item",
}

// Per-field sub-selectors, first non-empty match wins.
var (
	nameSelectors  = []string{"h3", ".product-name", ".title", "[data-product-name]", "a"}
	priceSelectors = []string{".price", ".current-price", "[data-price]", ".amount"}
)

func (e *Extractor) extractHeuristic(doc *goquery.Document, base *url.URL, now time.Time) []models.ProductRecord {
	var cards *goquery.Selection
	for _, pattern := range cardPatterns {
		if s := doc.Find(pattern); s.Length() > 0 {
			e.logger.Info("product card pattern matched", "pattern", pattern, "count", s.Length())
			cards = s
			break
		}
	}
	if cards == nil {
		return nil
	}

	var records []models.ProductRecord
	cards.EachWithBreak(func(i int, card *goquery.Selection) bool {
		if i >= e.maxCandidates {
			e.logger.Warn("candidate cap reached, ignoring remaining elements", "cap", e.maxCandidates)
			return false
		}
		rec, ok := e.recordFromCard(card, base, now)
		if !ok {
			e.logger.Warn("skipping product card without name or price", "element", i)
			return true
		}
		records = append(records, rec)
		return true
	})

	return records
}

func (e *Extractor) recordFromCard(card *goquery.Selection, base *url.URL, now time.Time) (models.ProductRecord, bool) {
	name := firstText(card, nameSelectors)
	priceText := firstText(card, priceSelectors)

	rec := models.ProductRecord{
		Name:      name,
		Price:     ParsePrice(priceText),
		Category:  e.defaultCategory,
		ScrapedAt: now,
	}
	if !rec.Valid() {
		return models.ProductRecord{}, false
	}

	if img := card.Find("img").First(); img.Length() > 0 {
		src, ok := img.Attr("src")
		if !ok || src == "" {
			src, _ = img.Attr("data-src")
		}
		rec.ImageURL = resolveURL(base, src)
	}

	var productURL string
	if link := card.Find("a").First(); link.Length() > 0 {
		if href, ok := link.Attr("href"); ok && href != "" {
			productURL = resolveURL(base, href)
		}
	}
	rec.ProductURL = productURL
	if rec.ProductURL == "" {
		rec.ProductURL = base.String()
	}

	rec.ID = deriveID(e.idChain, candidate{
		productURL: productURL,
		dataAttr:   dataAttrID(card),
		name:       rec.Name,
	})

	return rec, true
}

func firstText(card *goquery.Selection, selectors []string) string {
	for _, sel := range selectors {
		if text := strings.TrimSpace(card.Find(sel).First().Text()); text != "" {
			return text
		}
	}
	return ""
}

func dataAttrID(card *goquery.Selection) string {
	if id, ok := card.Attr("data-product-id"); ok && id != "" {
		return id
	}
	if id, ok := card.Attr("data-id"); ok && id != "" {
		return id
	}
	return ""
}
