// Package discovery finds candidate review page URLs for a product via
// web search.
package discovery

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/reviewpulse/reviewpulse/internal/config"
	"github.com/reviewpulse/reviewpulse/pkg/serper"
)

// querySuffix biases search results toward shopping review pages.
const querySuffix = " shopping reviews"

// Discoverer searches the web for review page URLs.
type Discoverer struct {
	search  serper.Client
	limiter *rate.Limiter
	cfg     config.SerperConfig
}

// NewDiscoverer creates a Discoverer with the given search client.
func NewDiscoverer(search serper.Client, cfg config.SerperConfig) *Discoverer {
	rateLimit := cfg.RateLimit
	if rateLimit <= 0 {
		rateLimit = 5
	}
	return &Discoverer{
		search:  search,
		limiter: rate.NewLimiter(rate.Limit(rateLimit), 1),
		cfg:     cfg,
	}
}

// DiscoverReviewURLs returns up to two review page URLs for the product.
// The top organic hit is skipped: for shopping queries it is almost always
// the seller's own product page rather than a review aggregation. Fewer
// than two organic results yields an empty slice, not an error.
func (d *Discoverer) DiscoverReviewURLs(ctx context.Context, productName string) ([]string, error) {
	log := zap.L().With(zap.String("product", productName))

	if err := d.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "discovery: rate limit wait")
	}

	if d.cfg.TimeoutSecs > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(d.cfg.TimeoutSecs)*time.Second)
		defer cancel()
	}

	resp, err := d.search.Search(ctx, serper.SearchRequest{
		Query:    productName + querySuffix,
		Num:      d.cfg.ResultsCount,
		Country:  d.cfg.Country,
		Language: d.cfg.Language,
	})
	if err != nil {
		return nil, eris.Wrap(err, "discovery: search")
	}

	if len(resp.Organic) < 2 {
		log.Warn("not enough organic results for review discovery",
			zap.Int("organic_count", len(resp.Organic)),
		)
		return []string{}, nil
	}

	end := 3
	if len(resp.Organic) < end {
		end = len(resp.Organic)
	}

	urls := make([]string, 0, end-1)
	for _, r := range resp.Organic[1:end] {
		urls = append(urls, r.Link)
	}

	log.Info("discovered review urls", zap.Strings("urls", urls))
	return urls, nil
}
