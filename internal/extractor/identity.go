package extractor

import (
	"fmt"
	"hash/fnv"
	"regexp"
)

// candidate carries the raw material the id chain works from.
type candidate struct {
	structuredID string
	productURL   string
	dataAttr     string
	name         string
}

// idFunc is one stage of the identifier fallback chain. It returns "" when
// it cannot derive an id from the candidate.
type idFunc func(c candidate) string

// defaultIDChain is the ordered derivation chain: explicit structured id,
// numeric id embedded in the product URL, explicit data attribute, and a
// deterministic hash of URL-or-name as last resort. The first non-empty
// result wins.
func defaultIDChain() []idFunc {
	return []idFunc{
		func(c candidate) string { return c.structuredID },
		func(c candidate) string { return idFromURL(c.productURL) },
		func(c candidate) string { return c.dataAttr },
		func(c candidate) string { return hashID(c.productURL, c.name) },
	}
}

func deriveID(chain []idFunc, c candidate) string {
	for _, f := range chain {
		if id := f(c); id != "" {
			return id
		}
	}
	return ""
}

var urlIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`[-/]p(\d+)\.html`),
	regexp.MustCompile(`(\d{6,})`),
}

// idFromURL pulls a numeric product id out of a product URL, e.g. the
// "p07545403" segment of a Zara detail link.
func idFromURL(productURL string) string {
	if productURL == "" {
		return ""
	}
	for _, pattern := range urlIDPatterns {
		if m := pattern.FindStringSubmatch(productURL); len(m) == 2 {
			return m[1]
		}
	}
	return ""
}

// hashID hashes the product URL, or the name when no distinct URL is known.
// The hash is deterministic across runs over identical input, but it is NOT
// stable if the page changes the product's URL or name text between runs;
// records identified this way may reconcile as new instead of updated.
func hashID(productURL, name string) string {
	src := productURL
	if src == "" {
		src = name
	}
	if src == "" {
		return ""
	}
	h := fnv.New64a()
	h.Write([]byte(src))
	return fmt.Sprintf("h%016x", h.Sum64())
}
