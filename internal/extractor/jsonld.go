package extractor

import (
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/tidwall/gjson"

	"github.com/zarawatch/catalog-scraper/internal/models"
)

// size information hides under different offer keys depending on the shop.
var offerSizeKeys = []string{"size", "sizes", "availableSizes", "variants"}

// extractStructured walks every JSON-LD block on the page. Blocks that fail
// to parse or whose declared type is not a product are skipped with a
// warning; one bad block never aborts the rest of the page.
func (e *Extractor) extractStructured(doc *goquery.Document, base *url.URL, now time.Time) []models.ProductRecord {
	var records []models.ProductRecord

	doc.Find(`script[type="application/ld+json"]`).Each(func(i int, s *goquery.Selection) {
		raw := strings.TrimSpace(s.Text())
		if raw == "" || !gjson.Valid(raw) {
			e.logger.Warn("skipping malformed structured data block", "block", i)
			return
		}

		root := gjson.Parse(raw)
		for _, block := range splitBlocks(root) {
			// Literal "@type" key; a bare leading @ is a gjson modifier.
			if !isProductType(block.Get(`\@type`)) {
				continue
			}
			rec, ok := e.recordFromStructured(block, base, now)
			if !ok {
				e.logger.Warn("skipping structured product without name or price", "block", i)
				continue
			}
			records = append(records, rec)
		}
	})

	return records
}

// splitBlocks flattens a top-level JSON-LD array into its elements; a single
// object passes through unchanged.
func splitBlocks(root gjson.Result) []gjson.Result {
	if root.IsArray() {
		return root.Array()
	}
	return []gjson.Result{root}
}

// isProductType accepts "@type": "Product" as well as array-valued and
// namespaced variants as long as they mention Product.
func isProductType(t gjson.Result) bool {
	if !t.Exists() {
		return false
	}
	if t.IsArray() {
		for _, v := range t.Array() {
			if strings.Contains(v.String(), "Product") {
				return true
			}
		}
		return false
	}
	return strings.Contains(t.String(), "Product")
}

func (e *Extractor) recordFromStructured(block gjson.Result, base *url.URL, now time.Time) (models.ProductRecord, bool) {
	offers := firstObject(block.Get("offers"))

	price := priceFromResult(offers.Get("price"))
	var original *models.Price
	if high := offers.Get("highPrice"); high.Exists() {
		p := priceFromResult(high)
		original = &p
	}

	name := block.Get("name").String()
	rec := models.ProductRecord{
		Name:          name,
		Price:         price,
		OriginalPrice: original,
		ImageURL:      resolveURL(base, imageFromResult(block.Get("image"))),
		ProductURL:    base.String(),
		Color:         block.Get("color").String(),
		Sizes:         sizesFromOffers(offers),
		Category:      e.defaultCategory,
		Description:   block.Get("description").String(),
		ScrapedAt:     now,
		IsSale:        models.OnSale(price, original),
	}

	if u := block.Get("url").String(); u != "" {
		rec.ProductURL = resolveURL(base, u)
	}
	if cat := block.Get("category").String(); cat != "" {
		rec.Category = cat
	}

	if !rec.Valid() {
		return models.ProductRecord{}, false
	}

	rec.ID = deriveID(e.idChain, candidate{
		structuredID: structuredID(block),
		productURL:   rec.ProductURL,
		name:         rec.Name,
	})

	return rec, true
}

func structuredID(block gjson.Result) string {
	if id := block.Get("productID").String(); id != "" {
		return id
	}
	return block.Get("sku").String()
}

// firstObject unwraps offer data that may be a single object or an array of
// objects; an absent value stays absent.
func firstObject(res gjson.Result) gjson.Result {
	if res.IsArray() {
		arr := res.Array()
		if len(arr) == 0 {
			return gjson.Result{}
		}
		return arr[0]
	}
	return res
}

// priceFromResult handles price values declared as JSON numbers or strings.
func priceFromResult(res gjson.Result) models.Price {
	if !res.Exists() {
		return models.Price{}
	}
	return ParsePrice(res.String())
}

// imageFromResult handles the image field's three shapes: plain string,
// array of strings or objects, and a single {url: ...} object.
func imageFromResult(res gjson.Result) string {
	switch {
	case !res.Exists():
		return ""
	case res.IsArray():
		arr := res.Array()
		if len(arr) == 0 {
			return ""
		}
		return imageFromResult(arr[0])
	case res.IsObject():
		return res.Get("url").String()
	default:
		return res.String()
	}
}

// sizesFromOffers does a best-effort scan of the known offer sub-keys and
// flattens whatever it finds into a deduplicated, sorted set.
func sizesFromOffers(offers gjson.Result) []string {
	if !offers.Exists() {
		return nil
	}

	seen := make(map[string]bool)
	var sizes []string
	add := func(s string) {
		s = strings.TrimSpace(s)
		if s == "" || seen[s] {
			return
		}
		seen[s] = true
		sizes = append(sizes, s)
	}

	for _, key := range offerSizeKeys {
		v := offers.Get(key)
		if !v.Exists() {
			continue
		}
		if v.IsArray() {
			for _, item := range v.Array() {
				if item.IsObject() {
					add(item.Get("size").String())
					continue
				}
				add(item.String())
			}
			continue
		}
		add(v.String())
	}

	sort.Strings(sizes)
	return sizes
}
