package extractor

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/reviewpulse/reviewpulse/internal/config"
	"github.com/reviewpulse/reviewpulse/pkg/firecrawl"
	firecrawlmocks "github.com/reviewpulse/reviewpulse/pkg/firecrawl/mocks"
)

func testCfg() config.FirecrawlConfig {
	return config.FirecrawlConfig{
		MaxAgeMillis:  172800000,
		MaxConcurrent: 2,
	}
}

func TestDomain(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://www.amazon.in/dp/B09XS7JWHH", "amazon.in"},
		{"https://flipkart.com/product", "flipkart.com"},
		{"https://reviews.smartprix.com/page", "reviews.smartprix.com"},
		{"not a url", "unknown"},
		{"", "unknown"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Domain(tt.url), tt.url)
	}
}

func TestPlatform(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://www.amazon.in/dp/B09XS7JWHH", "amazon"},
		{"https://www.flipkart.com/product", "flipkart"},
		{"https://www.myntra.com/item", "myntra"},
		{"https://www.snapdeal.com/item", "snapdeal"},
		{"https://www.nykaa.com/item", "nykaa"},
		{"https://www.croma.com/item", "croma"},
		{"https://www.reliancedigital.in/item", "reliance digital"},
		{"https://www.smartprix.com/reviews", "smartprix"},
		{"://bad", "unknown"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Platform(tt.url), tt.url)
	}
}

func TestExtract_Success(t *testing.T) {
	mc := firecrawlmocks.NewMockClient(t)
	mc.On("Scrape", mock.Anything, mock.MatchedBy(func(req firecrawl.ScrapeRequest) bool {
		return req.URL == "https://www.amazon.in/reviews" &&
			req.OnlyMainContent &&
			req.MaxAge == 172800000 &&
			len(req.ExcludeTags) > 0
	})).Return(&firecrawl.ScrapeResponse{
		Success: true,
		Data: firecrawl.PageData{
			Markdown: "Great battery life.",
			Metadata: firecrawl.PageMetadata{Title: "Reviews", StatusCode: 200},
		},
	}, nil)

	e := NewExtractor(mc, testCfg())
	res := e.Extract(context.Background(), "https://www.amazon.in/reviews")

	assert.True(t, res.Success)
	assert.Equal(t, "Great battery life.", res.Content)
	assert.Equal(t, "amazon.in", res.Domain)
	assert.Equal(t, "amazon", res.Platform)
	assert.Equal(t, "Reviews", res.Metadata["title"])
}

func TestExtract_ScrapeError(t *testing.T) {
	mc := firecrawlmocks.NewMockClient(t)
	mc.On("Scrape", mock.Anything, mock.Anything).Return(nil, errors.New("gateway timeout"))

	e := NewExtractor(mc, testCfg())
	res := e.Extract(context.Background(), "https://www.flipkart.com/reviews")

	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "gateway timeout")
	// Domain and platform still populated on failure.
	assert.Equal(t, "flipkart.com", res.Domain)
	assert.Equal(t, "flipkart", res.Platform)
}

func TestExtract_UnsuccessfulResponse(t *testing.T) {
	mc := firecrawlmocks.NewMockClient(t)
	mc.On("Scrape", mock.Anything, mock.Anything).Return(&firecrawl.ScrapeResponse{Success: false}, nil)

	e := NewExtractor(mc, testCfg())
	res := e.Extract(context.Background(), "https://example.com/reviews")

	assert.False(t, res.Success)
	assert.NotEmpty(t, res.Error)
}

func TestExtractBatch_PreservesOrder(t *testing.T) {
	mc := firecrawlmocks.NewMockClient(t)
	mc.On("Scrape", mock.Anything, mock.MatchedBy(func(req firecrawl.ScrapeRequest) bool {
		return req.URL == "https://a.example/1"
	})).Return(&firecrawl.ScrapeResponse{
		Success: true,
		Data:    firecrawl.PageData{Markdown: "first"},
	}, nil)
	mc.On("Scrape", mock.Anything, mock.MatchedBy(func(req firecrawl.ScrapeRequest) bool {
		return req.URL == "https://b.example/2"
	})).Return(nil, errors.New("boom"))
	mc.On("Scrape", mock.Anything, mock.MatchedBy(func(req firecrawl.ScrapeRequest) bool {
		return req.URL == "https://c.example/3"
	})).Return(&firecrawl.ScrapeResponse{
		Success: true,
		Data:    firecrawl.PageData{Markdown: "third"},
	}, nil)

	e := NewExtractor(mc, testCfg())
	results := e.ExtractBatch(context.Background(), []string{
		"https://a.example/1",
		"https://b.example/2",
		"https://c.example/3",
	})

	require.Len(t, results, 3)
	assert.Equal(t, "first", results[0].Content)
	assert.True(t, results[0].Success)
	assert.False(t, results[1].Success)
	assert.Contains(t, results[1].Error, "boom")
	assert.Equal(t, "third", results[2].Content)
}

func TestExtractBatch_Empty(t *testing.T) {
	mc := firecrawlmocks.NewMockClient(t)
	e := NewExtractor(mc, testCfg())
	assert.Empty(t, e.ExtractBatch(context.Background(), nil))
}
