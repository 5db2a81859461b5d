package discovery

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/reviewpulse/reviewpulse/internal/config"
	"github.com/reviewpulse/reviewpulse/pkg/serper"
	serpermocks "github.com/reviewpulse/reviewpulse/pkg/serper/mocks"
)

func testCfg() config.SerperConfig {
	return config.SerperConfig{
		ResultsCount: 10,
		Country:      "in",
		Language:     "en",
		RateLimit:    1000,
	}
}

func TestDiscoverReviewURLs_SkipsTopResult(t *testing.T) {
	mc := serpermocks.NewMockClient(t)
	mc.On("Search", mock.Anything, serper.SearchRequest{
		Query:    "Sony WH-1000XM5 shopping reviews",
		Num:      10,
		Country:  "in",
		Language: "en",
	}).Return(&serper.SearchResponse{
		Organic: []serper.OrganicResult{
			{Link: "https://sony.com/product"},
			{Link: "https://amazon.in/reviews"},
			{Link: "https://flipkart.com/reviews"},
			{Link: "https://smartprix.com/reviews"},
		},
	}, nil)

	d := NewDiscoverer(mc, testCfg())
	urls, err := d.DiscoverReviewURLs(context.Background(), "Sony WH-1000XM5")

	require.NoError(t, err)
	assert.Equal(t, []string{"https://amazon.in/reviews", "https://flipkart.com/reviews"}, urls)
}

func TestDiscoverReviewURLs_ExactlyTwoResults(t *testing.T) {
	mc := serpermocks.NewMockClient(t)
	mc.On("Search", mock.Anything, mock.Anything).Return(&serper.SearchResponse{
		Organic: []serper.OrganicResult{
			{Link: "https://seller.example/product"},
			{Link: "https://reviews.example/page"},
		},
	}, nil)

	d := NewDiscoverer(mc, testCfg())
	urls, err := d.DiscoverReviewURLs(context.Background(), "Widget")

	require.NoError(t, err)
	assert.Equal(t, []string{"https://reviews.example/page"}, urls)
}

func TestDiscoverReviewURLs_TooFewResults(t *testing.T) {
	mc := serpermocks.NewMockClient(t)
	mc.On("Search", mock.Anything, mock.Anything).Return(&serper.SearchResponse{
		Organic: []serper.OrganicResult{
			{Link: "https://only-one.example"},
		},
	}, nil)

	d := NewDiscoverer(mc, testCfg())
	urls, err := d.DiscoverReviewURLs(context.Background(), "Obscure Gadget")

	require.NoError(t, err)
	assert.Empty(t, urls)
	assert.NotNil(t, urls)
}

func TestDiscoverReviewURLs_SearchError(t *testing.T) {
	mc := serpermocks.NewMockClient(t)
	mc.On("Search", mock.Anything, mock.Anything).Return(nil, errors.New("quota exhausted"))

	d := NewDiscoverer(mc, testCfg())
	urls, err := d.DiscoverReviewURLs(context.Background(), "Widget")

	require.Error(t, err)
	assert.Nil(t, urls)
}

func TestDiscoverReviewURLs_ContextCanceled(t *testing.T) {
	mc := serpermocks.NewMockClient(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cfg := testCfg()
	cfg.RateLimit = 0.001 // force a long limiter wait so cancellation wins
	d := NewDiscoverer(mc, cfg)

	// Consume the initial token so the next call has to wait.
	_ = d.limiter.Allow()

	_, err := d.DiscoverReviewURLs(ctx, "Widget")
	require.Error(t, err)
}
