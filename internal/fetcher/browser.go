package fetcher

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/playwright-community/playwright-go"

	"github.com/zarawatch/catalog-scraper/internal/config"
	"github.com/zarawatch/catalog-scraper/internal/ratelimit"
)

// Browser is a PageSource backed by a rendered Chromium page. Catalog pages
// that build their product grid with JavaScript need this instead of the
// static client.
type Browser struct {
	pw         *playwright.Playwright
	browser    playwright.Browser
	context    playwright.BrowserContext
	backoff    *ratelimit.Backoff
	maxRetries int
	timeout    float64
	logger     *slog.Logger
}

func NewBrowser(fetchCfg config.FetcherConfig, browserCfg config.BrowserConfig, logger *slog.Logger) (*Browser, error) {
	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(browserCfg.Headless),
		Args: []string{
			"--disable-blink-features=AutomationControlled",
			"--disable-dev-shm-usage",
			"--no-sandbox",
		},
	})
	if err != nil {
		pw.Stop()
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	browserCtx, err := browser.NewContext(playwright.BrowserNewContextOptions{
		UserAgent:  playwright.String(fetchCfg.UserAgent),
		Locale:     playwright.String(browserCfg.Locale),
		TimezoneId: playwright.String(browserCfg.TimezoneID),
		Viewport: &playwright.Size{
			Width:  browserCfg.ViewportWidth,
			Height: browserCfg.ViewportHeight,
		},
		ExtraHttpHeaders: map[string]string{
			"Accept-Language": browserCfg.AcceptLanguage,
		},
	})
	if err != nil {
		browser.Close()
		pw.Stop()
		return nil, fmt.Errorf("failed to create browser context: %w", err)
	}

	return &Browser{
		pw:         pw,
		browser:    browser,
		context:    browserCtx,
		backoff:    ratelimit.NewBackoff(fetchCfg.RetryDelay, fetchCfg.MaxRetryWait),
		maxRetries: fetchCfg.MaxRetries,
		timeout:    float64(browserCfg.Timeout.Milliseconds()),
		logger:     logger.With("component", "browser"),
	}, nil
}

func (b *Browser) Fetch(ctx context.Context, url string) (*goquery.Document, error) {
	var lastErr error

	for attempt := 1; attempt <= b.maxRetries; attempt++ {
		if err := b.backoff.Wait(ctx, attempt); err != nil {
			return nil, err
		}

		b.logger.Info("rendering page", "url", url, "attempt", attempt)

		html, err := b.render(url)
		if err == nil {
			b.backoff.RecordSuccess()
			doc, derr := goquery.NewDocumentFromReader(strings.NewReader(html))
			if derr != nil {
				return nil, fmt.Errorf("parse rendered document: %w", derr)
			}
			return doc, nil
		}

		lastErr = err
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		if isSoftBlock(err) {
			b.backoff.RecordSoftBlock()
			b.logger.Warn("possible blocking detected, backing off", "url", url, "attempt", attempt)
		} else {
			b.logger.Error("navigation failed", "url", url, "attempt", attempt, "error", err)
		}
	}

	return nil, fmt.Errorf("%w: %s after %d attempts: %v", ErrFetch, url, b.maxRetries, lastErr)
}

func (b *Browser) render(url string) (string, error) {
	page, err := b.context.NewPage()
	if err != nil {
		return "", fmt.Errorf("failed to create page: %w", err)
	}
	defer page.Close()

	_, err = page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   playwright.Float(b.timeout),
	})
	if err != nil {
		return "", fmt.Errorf("goto: %w", err)
	}

	content, err := page.Content()
	if err != nil {
		return "", fmt.Errorf("read content: %w", err)
	}

	if looksBlocked([]byte(content)) {
		return "", fmt.Errorf("%w: block marker in rendered page", ErrSoftBlocked)
	}

	return content, nil
}

func (b *Browser) Close() error {
	var errs []error

	if b.context != nil {
		if err := b.context.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close context: %w", err))
		}
	}
	if b.browser != nil {
		if err := b.browser.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close browser: %w", err))
		}
	}
	if b.pw != nil {
		if err := b.pw.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop playwright: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors during close: %v", errs)
	}
	return nil
}
