package fetcher

import (
	"context"
	"errors"

	"github.com/PuerkitoBio/goquery"
)

var (
	// ErrFetch signals that the page could not be retrieved at all, after
	// exhausting retries. It is distinct from a page that loads but contains
	// no products.
	ErrFetch = errors.New("page fetch failed")

	// ErrSoftBlocked signals a response that looks like throttling or an
	// anti-bot rejection rather than a hard failure.
	ErrSoftBlocked = errors.New("soft block detected")
)

// PageSource retrieves a URL and returns its document representation. The
// extractor is agnostic to whether the document came from a static HTTP
// fetch or a rendered browser snapshot.
type PageSource interface {
	Fetch(ctx context.Context, url string) (*goquery.Document, error)
}
