package exchange

import (
	"context"
	"time"
)

// TickerSource answers last-price queries.
type TickerSource interface {
	FetchTicker(ctx context.Context, symbol string) (float64, error)
}

// PriceCache serves streamed prices while they are fresh and falls back to a REST ticker otherwise.
type PriceCache struct {
	feed     *Feed
	fallback TickerSource
	maxAge   time.Duration
	now      func() time.Time
}

// NewPriceCache wraps feed with a fallback source.
func NewPriceCache(feed *Feed, fallback TickerSource, maxAge time.Duration) *PriceCache {
	if maxAge <= 0 {
		maxAge = 10 * time.Second
	}
	return &PriceCache{feed: feed, fallback: fallback, maxAge: maxAge, now: time.Now}
}

// FetchTicker implements TickerSource.
func (p *PriceCache) FetchTicker(ctx context.Context, symbol string) (float64, error) {
	if p.feed != nil {
		if px, at, ok := p.feed.LastPrice(symbol); ok && px > 0 && p.now().Sub(at) <= p.maxAge {
			return px, nil
		}
	}
	return p.fallback.FetchTicker(ctx, symbol)
}
