// Package comparator produces head-to-head comparisons from saved product
// analyses.
package comparator

import (
	"context"
	"encoding/json"
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

const (
	// MinProducts and MaxProducts bound how many analyses one comparison
	// may cover.
	MinProducts = 2
	MaxProducts = 4
)

// Comparator runs comparison passes over completed analyses.
type Comparator struct {
	llm anthropic.Client
	cfg config.LLMConfig
}

// NewComparator creates a Comparator backed by the given LLM client.
func NewComparator(llm anthropic.Client, cfg config.LLMConfig) *Comparator {
	return &Comparator{llm: llm, cfg: cfg}
}

// Compare asks the model to rank the given products against each other.
// Every product must already carry a completed analysis.
func (c *Comparator) Compare(ctx context.Context, products []model.ProductAnalysis) (*model.ComparisonPayload, error) {
	if len(products) < MinProducts || len(products) > MaxProducts {
		return nil, eris.Errorf("comparator: need between %d and %d products, got %d",
			MinProducts, MaxProducts, len(products))
	}
	for _, p := range products {
		if p.Analysis == nil {
			return nil, eris.Errorf("comparator: product %s has no analysis", p.ProductID)
		}
	}

	prompt, err := buildProductsContext(products)
	if err != nil {
		return nil, eris.Wrap(err, "comparator: build prompt")
	}

	ids := make([]string, len(products))
	for i, p := range products {
		ids[i] = p.ProductID
	}
	zap.L().Info("comparator: starting comparison", zap.Strings("products", ids))

	text, err := c.createMessage(ctx, fmt.Sprintf(comparisonUserPrompt, prompt))
	if err != nil {
		return nil, eris.Wrap(err, "comparator: compare products")
	}

	var payload model.ComparisonPayload
	if err := llmjson.Decode(text, &payload); err != nil {
		return nil, eris.Wrap(err, "comparator: parse comparison")
	}

	payload.ComparedProducts = ids
	if payload.OverallWinner == "" {
		payload.OverallWinner = ids[0]
	}

	zap.L().Info("comparator: comparison complete",
		zap.String("overall_winner", payload.OverallWinner),
	)
	return &payload, nil
}

// buildProductsContext renders each product's analysis into the prompt
// block the model compares against.
func buildProductsContext(products []model.ProductAnalysis) (string, error) {
	var b strings.Builder
	for i, p := range products {
		if i > 0 {
			b.WriteString("\n\n")
		}

		a := p.Analysis
		fmt.Fprintf(&b, "Product: %s (product_id: %s)\n", p.ProductName, p.ProductID)

		score := 0.0
		if a.Sentiment != nil {
			score = a.Sentiment.Score
		}
		fmt.Fprintf(&b, "Sentiment Score: %g\n", score)

		for _, section := range []struct {
			label string
			value any
		}{
			{"Features", a.Features},
			{"Top Praises", a.TopPraises},
			{"Top Complaints", a.TopComplaints},
			{"Summary", a.Summary},
			{"Pros", a.Pros},
			{"Cons", a.Cons},
		} {
			data, err := json.Marshal(section.value)
			if err != nil {
				return "", eris.Wrap(err, "marshal "+section.label)
			}
			fmt.Fprintf(&b, "%s: %s\n", section.label, data)
		}
	}
	return b.String(), nil
}

func (c *Comparator) createMessage(ctx context.Context, userPrompt string) (string, error) {
	if c.cfg.TimeoutSecs > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(c.cfg.TimeoutSecs)*time.Second)
		defer cancel()
	}

	req := anthropic.MessageRequest{
		Model:     c.cfg.Model,
		MaxTokens: c.cfg.MaxTokens,
		System: []anthropic.SystemBlock{
			{
				Text:         comparisonSystemPrompt,
				CacheControl: &anthropic.CacheControl{TTL: "5m"},
			},
		},
		Messages: []anthropic.Message{
			{Role: "user", Content: userPrompt},
		},
	}

	resp, err := resilience.DoVal(ctx, resilience.RetryConfig{
		MaxAttempts: c.cfg.MaxAttempts,
		BaseDelay:   time.Duration(c.cfg.RetryBackoffSecs) * time.Second,
		Backoff:     resilience.BackoffLinear,
		ShouldRetry: anthropic.IsRetryable,
		OnRetry:     resilience.RetryLogger("anthropic", "compare"),
	}, func(ctx context.Context) (*anthropic.MessageResponse, error) {
		return c.llm.CreateMessage(ctx, req)
	})
	if err != nil {
		return "", err
	}

	resp.Usage.LogCost(c.cfg.Model, "compare")
	return resp.Text(), nil
}
