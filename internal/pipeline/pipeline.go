// Package pipeline orchestrates the review analysis flow for one product:
// discover review URLs, scrape them one at a time, and re-analyze the
// accumulated review set after each successful scrape so partial results
// land as early as possible.
package pipeline

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/reviewpulse/reviewpulse/internal/model"
	"github.com/reviewpulse/reviewpulse/internal/store"
)

// Progress milestones. Search takes the first 10%, scraping and analysis
// share the 20-80 band proportionally to URL position, and the final
// completed event lands at 100.
const (
	progressSearch      = 10
	progressScrapeStart = 20
	progressScrapeBand  = 60
	progressScrapeCap   = 80
	progressDone        = 100
)

// URLFinder discovers candidate review page URLs for a product name.
type URLFinder interface {
	DiscoverReviewURLs(ctx context.Context, productName string) ([]string, error)
}

// Scraper extracts review content from URLs.
type Scraper interface {
	Extract(ctx context.Context, pageURL string) model.ExtractResult
	ExtractBatch(ctx context.Context, urls []string) []model.ExtractResult
}

// ReviewAnalyzer produces a structured analysis from raw review texts.
type ReviewAnalyzer interface {
	Analyze(ctx context.Context, reviews []string) (*model.AnalysisPayload, error)
}

// Pipeline runs the search, scrape, and analyze stages for one product.
type Pipeline struct {
	store    store.Store
	finder   URLFinder
	scraper  Scraper
	analyzer ReviewAnalyzer
}

func New(st store.Store, finder URLFinder, scraper Scraper, analyzer ReviewAnalyzer) *Pipeline {
	return &Pipeline{
		store:    st,
		finder:   finder,
		scraper:  scraper,
		analyzer: analyzer,
	}
}

// Run executes the full pipeline for a product. Missing URLs and empty
// scrape results end the run with a failed progress record rather than an
// error; an error return means an unexpected stage failure, which is also
// recorded as a failed analyze event before returning.
func (p *Pipeline) Run(ctx context.Context, productID, productName string) error {
	if err := p.run(ctx, productID, productName); err != nil {
		zap.L().Error("pipeline run failed",
			zap.String("product_id", productID),
			zap.Error(err))
		p.recordFailure(ctx, productID, eris.ToString(err, false))
		return err
	}
	return nil
}

func (p *Pipeline) run(ctx context.Context, productID, productName string) error {
	if err := p.progress(ctx, productID, model.StageSearch, model.ProgressInProgress,
		progressSearch, "Searching for product reviews...", ""); err != nil {
		return err
	}

	urls, err := p.finder.DiscoverReviewURLs(ctx, productName)
	if err != nil {
		return eris.Wrap(err, "pipeline: discover review urls")
	}
	if len(urls) == 0 {
		zap.L().Warn("no review urls found", zap.String("product_id", productID))
		return p.progress(ctx, productID, model.StageSearch, model.ProgressFailed,
			0, "No review URLs found", "No review URLs found for this product")
	}

	if err := p.progress(ctx, productID, model.StageScrape, model.ProgressInProgress,
		progressScrapeStart, fmt.Sprintf("Found %d URLs. Starting incremental scraping...", len(urls)), ""); err != nil {
		return err
	}

	var accumulated []string
	analyzed := false
	for i, pageURL := range urls {
		if err := p.progress(ctx, productID, model.StageScrape, model.ProgressInProgress,
			scrapeProgress(i, len(urls)), fmt.Sprintf("Scraping URL %d/%d...", i+1, len(urls)), ""); err != nil {
			return err
		}

		result := p.scraper.Extract(ctx, pageURL)
		if !result.Success || result.Content == "" {
			zap.L().Warn("scrape yielded no content",
				zap.String("product_id", productID),
				zap.String("url", pageURL),
				zap.String("error", result.Error))
			continue
		}

		if _, err := p.store.AppendRawReviews(ctx, productID, []model.ExtractResult{result}); err != nil {
			return eris.Wrap(err, "pipeline: save raw review")
		}
		accumulated = append(accumulated, result.Content)

		// Re-analyze everything gathered so far. Each pass replaces the
		// stored analysis, so a crash mid-run still leaves the latest
		// partial analysis queryable.
		if err := p.progress(ctx, productID, model.StageAnalyze, model.ProgressInProgress,
			analyzeProgress(i, len(urls)), fmt.Sprintf("Analyzing %d review(s) with AI...", len(accumulated)), ""); err != nil {
			return err
		}
		payload, err := p.analyzer.Analyze(ctx, accumulated)
		if err != nil {
			// A failed pass is not fatal: the reviews stay accumulated and
			// the next iteration re-analyzes the whole set.
			zap.L().Error("analysis pass failed",
				zap.String("product_id", productID),
				zap.Int("url_index", i+1),
				zap.Error(err))
			continue
		}
		if err := p.store.UpsertAnalysis(ctx, productID, payload); err != nil {
			return eris.Wrap(err, "pipeline: save analysis")
		}
		analyzed = true
	}

	if len(accumulated) == 0 {
		zap.L().Warn("no review content extracted", zap.String("product_id", productID))
		return p.progress(ctx, productID, model.StageScrape, model.ProgressFailed,
			0, "No review content extracted", "Failed to extract review content from scraped pages")
	}
	if !analyzed {
		return p.progress(ctx, productID, model.StageAnalyze, model.ProgressFailed,
			0, "Analysis failed", "Failed to analyze extracted review content")
	}

	return p.progress(ctx, productID, model.StageAnalyze, model.ProgressCompleted,
		progressDone, "Analysis complete!", "")
}

// RunBatch is the non-incremental variant: all URLs are scraped
// concurrently and a single analysis pass covers the whole set. Used by the
// one-shot CLI where partial results have no reader.
func (p *Pipeline) RunBatch(ctx context.Context, productID, productName string) error {
	if err := p.runBatch(ctx, productID, productName); err != nil {
		zap.L().Error("pipeline batch run failed",
			zap.String("product_id", productID),
			zap.Error(err))
		p.recordFailure(ctx, productID, eris.ToString(err, false))
		return err
	}
	return nil
}

func (p *Pipeline) runBatch(ctx context.Context, productID, productName string) error {
	if err := p.progress(ctx, productID, model.StageSearch, model.ProgressInProgress,
		progressSearch, "Searching for product reviews...", ""); err != nil {
		return err
	}

	urls, err := p.finder.DiscoverReviewURLs(ctx, productName)
	if err != nil {
		return eris.Wrap(err, "pipeline: discover review urls")
	}
	if len(urls) == 0 {
		return p.progress(ctx, productID, model.StageSearch, model.ProgressFailed,
			0, "No review URLs found", "No review URLs found for this product")
	}

	if err := p.progress(ctx, productID, model.StageScrape, model.ProgressInProgress,
		progressScrapeStart, fmt.Sprintf("Scraping %d URLs...", len(urls)), ""); err != nil {
		return err
	}

	results := p.scraper.ExtractBatch(ctx, urls)
	saved, err := p.store.AppendRawReviews(ctx, productID, results)
	if err != nil {
		return eris.Wrap(err, "pipeline: save raw reviews")
	}
	if saved == 0 {
		return p.progress(ctx, productID, model.StageScrape, model.ProgressFailed,
			0, "No review content extracted", "Failed to extract review content from scraped pages")
	}

	var reviews []string
	for _, r := range results {
		if r.Success && r.Content != "" {
			reviews = append(reviews, r.Content)
		}
	}

	if err := p.progress(ctx, productID, model.StageAnalyze, model.ProgressInProgress,
		progressScrapeCap, fmt.Sprintf("Analyzing %d review(s) with AI...", len(reviews)), ""); err != nil {
		return err
	}
	payload, err := p.analyzer.Analyze(ctx, reviews)
	if err != nil {
		return eris.Wrap(err, "pipeline: analyze reviews")
	}
	if err := p.store.UpsertAnalysis(ctx, productID, payload); err != nil {
		return eris.Wrap(err, "pipeline: save analysis")
	}

	return p.progress(ctx, productID, model.StageAnalyze, model.ProgressCompleted,
		progressDone, "Analysis complete!", "")
}

func (p *Pipeline) progress(ctx context.Context, productID string, stage model.Stage, status model.ProgressStatus, pct int, step, errMsg string) error {
	err := p.store.AppendProgress(ctx, model.ProcessingLog{
		ProductID:   productID,
		Stage:       stage,
		Status:      status,
		Progress:    pct,
		CurrentStep: step,
		Error:       errMsg,
	})
	return eris.Wrap(err, "pipeline: record progress")
}

// recordFailure is best effort: the run is already failing, so a progress
// write error is only logged.
func (p *Pipeline) recordFailure(ctx context.Context, productID, errMsg string) {
	err := p.progress(ctx, productID, model.StageAnalyze, model.ProgressFailed, 0, "Analysis failed", errMsg)
	if err != nil {
		zap.L().Error("failed to record pipeline failure",
			zap.String("product_id", productID),
			zap.Error(err))
	}
}

func scrapeProgress(i, total int) int {
	return capProgress(progressScrapeStart + int(float64(i)/float64(total)*progressScrapeBand))
}

func analyzeProgress(i, total int) int {
	return capProgress(progressScrapeStart + int((float64(i)+0.5)/float64(total)*progressScrapeBand))
}

func capProgress(p int) int {
	if p > progressScrapeCap {
		return progressScrapeCap
	}
	return p
}
