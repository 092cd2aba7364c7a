package fetcher

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/zarawatch/catalog-scraper/internal/config"
	"github.com/zarawatch/catalog-scraper/internal/ratelimit"
)

// Client fetches pages over plain HTTP with browser-like headers and a small
// retry budget. Soft blocks trigger a longer backoff before the next attempt.
type Client struct {
	http       *http.Client
	backoff    *ratelimit.Backoff
	maxRetries int
	userAgent  string
	logger     *slog.Logger
}

func NewClient(cfg config.FetcherConfig, logger *slog.Logger) *Client {
	return &Client{
		http:       &http.Client{Timeout: cfg.Timeout},
		backoff:    ratelimit.NewBackoff(cfg.RetryDelay, cfg.MaxRetryWait),
		maxRetries: cfg.MaxRetries,
		userAgent:  cfg.UserAgent,
		logger:     logger.With("component", "fetcher"),
	}
}

func (c *Client) Fetch(ctx context.Context, url string) (*goquery.Document, error) {
	var lastErr error

	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		if err := c.backoff.Wait(ctx, attempt); err != nil {
			return nil, err
		}

		c.logger.Info("fetching page", "url", url, "attempt", attempt)

		doc, err := c.fetchOnce(ctx, url)
		if err == nil {
			c.backoff.RecordSuccess()
			return doc, nil
		}

		lastErr = err
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		if isSoftBlock(err) {
			c.backoff.RecordSoftBlock()
			c.logger.Warn("possible blocking detected, backing off", "url", url, "attempt", attempt)
		} else {
			c.logger.Error("request failed", "url", url, "attempt", attempt, "error", err)
		}
	}

	return nil, fmt.Errorf("%w: %s after %d attempts: %v", ErrFetch, url, c.maxRetries, lastErr)
}

func (c *Client) fetchOnce(ctx context.Context, url string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Language", "fr-FR,fr;q=0.9,en;q=0.8")
	req.Header.Set("Upgrade-Insecure-Requests", "1")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("%w: status %d", ErrSoftBlocked, resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	if looksBlocked(body) {
		return nil, fmt.Errorf("%w: block marker in response body", ErrSoftBlocked)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	return doc, nil
}

func isSoftBlock(err error) bool {
	return errors.Is(err, ErrSoftBlocked)
}

// looksBlocked applies the soft-block body heuristic without decoding the
// whole page as a document first.
func looksBlocked(body []byte) bool {
	head := body
	if len(head) > 4096 {
		head = head[:4096]
	}
	lower := strings.ToLower(string(head))
	return strings.Contains(lower, "access blocked") ||
		strings.Contains(lower, "you have been blocked") ||
		strings.Contains(lower, "captcha")
}
