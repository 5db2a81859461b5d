// Package extractor fetches review page content through Firecrawl and
// tags each result with its source domain and platform.
package extractor

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/reviewpulse/reviewpulse/internal/config"
	"github.com/reviewpulse/reviewpulse/internal/model"
	"github.com/reviewpulse/reviewpulse/pkg/firecrawl"
)

// excludeTags strips page chrome and commerce noise before markdown
// conversion so the analyzer sees review text, not navigation.
var excludeTags = []string{
	"nav", "header", "footer", "aside", "script", "style", "iframe", "svg",
	"button", "input", "select", "textarea", "form", "menu", "sidebar",
	"advertisement", "ads", "ad-banner", "ad-container", "ad-wrapper",
	"ad-banner-container", "promo", "promo-box", "popup", "popup-overlay",
	"cookie-banner", "cookie-notice", "cookie-consent", "social-media",
	"social-share", "share-buttons", "share-widget", "comments-section",
	"comments-container", "related-products", "related-items", "breadcrumb",
	"breadcrumbs", "search-bar", "search-box", "notification",
	"notification-banner", "alert", "alert-box", "modal", "modal-overlay",
	"newsletter", "newsletter-signup", "subscribe", "top-bar", "topbar",
	"sticky-header", "sticky-footer", "navbar", "navigation",
}

// platformNames maps domain substrings to canonical platform names.
var platformNames = map[string]string{
	"amazon":   "amazon",
	"flipkart": "flipkart",
	"myntra":   "myntra",
	"snapdeal": "snapdeal",
	"nykaa":    "nykaa",
	"croma":    "croma",
	"reliance": "reliance digital",
}

// Extractor scrapes review pages.
type Extractor struct {
	scraper firecrawl.Client
	cfg     config.FirecrawlConfig
}

// NewExtractor creates an Extractor backed by the given scrape client.
func NewExtractor(scraper firecrawl.Client, cfg config.FirecrawlConfig) *Extractor {
	return &Extractor{scraper: scraper, cfg: cfg}
}

// Extract scrapes a single URL. Scrape failures are reported inside the
// result rather than as an error so a batch can carry on past bad URLs.
func (e *Extractor) Extract(ctx context.Context, pageURL string) model.ExtractResult {
	result := model.ExtractResult{
		URL:      pageURL,
		Domain:   Domain(pageURL),
		Platform: Platform(pageURL),
	}

	if e.cfg.TimeoutSecs > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(e.cfg.TimeoutSecs)*time.Second)
		defer cancel()
	}

	resp, err := e.scraper.Scrape(ctx, firecrawl.ScrapeRequest{
		URL:             pageURL,
		OnlyMainContent: true,
		MaxAge:          e.cfg.MaxAgeMillis,
		Parsers:         []string{"pdf"},
		Formats:         []string{"markdown"},
		ExcludeTags:     excludeTags,
	})
	if err != nil {
		zap.L().Error("extract: scrape failed",
			zap.String("url", pageURL),
			zap.Error(err),
		)
		result.Error = err.Error()
		return result
	}

	if !resp.Success {
		result.Error = "firecrawl reported failure"
		return result
	}

	if resp.Data.Markdown == "" {
		zap.L().Warn("extract: no content in scrape response", zap.String("url", pageURL))
	}

	result.Success = true
	result.Content = resp.Data.Markdown
	result.Metadata = map[string]any{
		"title":       resp.Data.Metadata.Title,
		"source_url":  resp.Data.Metadata.SourceURL,
		"status_code": resp.Data.Metadata.StatusCode,
	}

	zap.L().Info("extract: scraped page",
		zap.String("url", pageURL),
		zap.String("platform", result.Platform),
		zap.Int("content_chars", len(result.Content)),
	)
	return result
}

// ExtractBatch scrapes all URLs with bounded concurrency, returning results
// in input order. A panicking scrape is converted into a failed result.
func (e *Extractor) ExtractBatch(ctx context.Context, urls []string) []model.ExtractResult {
	limit := e.cfg.MaxConcurrent
	if limit <= 0 {
		limit = 3
	}

	results := make([]model.ExtractResult, len(urls))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i, u := range urls {
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					zap.L().Error("extract: panic during scrape",
						zap.String("url", u),
						zap.Any("panic", r),
					)
					results[i] = model.ExtractResult{
						URL:      u,
						Domain:   Domain(u),
						Platform: Platform(u),
						Error:    fmt.Sprintf("panic: %v", r),
					}
				}
			}()
			results[i] = e.Extract(gCtx, u)
			return nil
		})
	}

	// Workers never return errors; failures live in the result slots.
	_ = g.Wait()
	return results
}

// Domain returns the URL's host without a leading www. prefix, or
// "unknown" when the URL cannot be parsed.
func Domain(pageURL string) string {
	parsed, err := url.Parse(pageURL)
	if err != nil || parsed.Host == "" {
		return "unknown"
	}
	return strings.TrimPrefix(parsed.Hostname(), "www.")
}

// Platform returns the canonical marketplace name for a URL. Unrecognized
// domains fall back to their first label.
func Platform(pageURL string) string {
	domain := strings.ToLower(Domain(pageURL))
	if domain == "unknown" {
		return "unknown"
	}
	for key, name := range platformNames {
		if strings.Contains(domain, key) {
			return name
		}
	}
	if label, _, ok := strings.Cut(domain, "."); ok && label != "" {
		return label
	}
	if domain != "" {
		return domain
	}
	return "unknown"
}
