// Package analyzer turns accumulated review text into a structured
// analysis via the LLM.
package analyzer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/reviewpulse/reviewpulse/internal/config"
	"github.com/reviewpulse/reviewpulse/internal/llmjson"
	"github.com/reviewpulse/reviewpulse/internal/model"
	"github.com/reviewpulse/reviewpulse/internal/resilience"
	"github.com/reviewpulse/reviewpulse/pkg/anthropic"
)

// reviewSeparator delimits individual review documents in the combined
// prompt so the model can tell sources apart.
const reviewSeparator = "\n\n---REVIEW SEPARATOR---\n\n"

const truncationNotice = "\n\n[Content truncated due to length...]"

// Analyzer runs full-corpus analysis passes.
type Analyzer struct {
	llm anthropic.Client
	cfg config.LLMConfig
}

// NewAnalyzer creates an Analyzer backed by the given LLM client.
func NewAnalyzer(llm anthropic.Client, cfg config.LLMConfig) *Analyzer {
	return &Analyzer{llm: llm, cfg: cfg}
}

// Analyze combines all review documents into one prompt and asks the model
// for a structured analysis. Every call sees the full review set, so the
// latest result always supersedes earlier ones.
func (a *Analyzer) Analyze(ctx context.Context, reviews []string) (*model.AnalysisPayload, error) {
	if len(reviews) == 0 {
		return nil, eris.New("analyzer: no reviews to analyze")
	}

	combined := strings.Join(reviews, reviewSeparator)
	if a.cfg.MaxReviewChars > 0 && len(combined) > a.cfg.MaxReviewChars {
		zap.L().Warn("analyzer: truncating review text",
			zap.Int("original_chars", len(combined)),
			zap.Int("max_chars", a.cfg.MaxReviewChars),
		)
		combined = combined[:a.cfg.MaxReviewChars] + truncationNotice
	}

	zap.L().Info("analyzer: starting analysis pass",
		zap.Int("reviews", len(reviews)),
		zap.Int("prompt_chars", len(combined)),
	)

	text, err := a.createMessage(ctx, fmt.Sprintf(analysisUserPrompt, combined))
	if err != nil {
		return nil, eris.Wrap(err, "analyzer: analyze reviews")
	}

	var payload model.AnalysisPayload
	if err := llmjson.Decode(text, &payload); err != nil {
		return nil, eris.Wrap(err, "analyzer: parse analysis")
	}

	if payload.Sentiment != nil {
		zap.L().Info("analyzer: analysis complete",
			zap.Float64("sentiment_score", payload.Sentiment.Score),
			zap.Int("praises", len(payload.TopPraises)),
			zap.Int("complaints", len(payload.TopComplaints)),
		)
	}
	return &payload, nil
}

// createMessage sends one prompt through the retry wrapper and returns the
// response text. Only rate limits, server errors, and timeouts are retried.
func (a *Analyzer) createMessage(ctx context.Context, userPrompt string) (string, error) {
	if a.cfg.TimeoutSecs > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(a.cfg.TimeoutSecs)*time.Second)
		defer cancel()
	}

	req := anthropic.MessageRequest{
		Model:     a.cfg.Model,
		MaxTokens: a.cfg.MaxTokens,
		System: []anthropic.SystemBlock{
			{
				Text:         analysisSystemPrompt,
				CacheControl: &anthropic.CacheControl{TTL: "5m"},
			},
		},
		Messages: []anthropic.Message{
			{Role: "user", Content: userPrompt},
		},
	}

	resp, err := resilience.DoVal(ctx, a.retryConfig("analyze"), func(ctx context.Context) (*anthropic.MessageResponse, error) {
		return a.llm.CreateMessage(ctx, req)
	})
	if err != nil {
		return "", err
	}

	resp.Usage.LogCost(a.cfg.Model, "analyze")
	return resp.Text(), nil
}

func (a *Analyzer) retryConfig(operation string) resilience.RetryConfig {
	return resilience.RetryConfig{
		MaxAttempts: a.cfg.MaxAttempts,
		BaseDelay:   time.Duration(a.cfg.RetryBackoffSecs) * time.Second,
		Backoff:     resilience.BackoffLinear,
		ShouldRetry: anthropic.IsRetryable,
		OnRetry:     resilience.RetryLogger("anthropic", operation),
	}
}
