package exchange

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"kingbot-go/internal/metrics"
	"kingbot-go/internal/signal"
)

const (
	// ProviderStub emits deterministic synthetic ticks (useful for tests/offline work).
	ProviderStub = "stub"
	// ProviderBinance streams live trades from Binance public websockets.
	ProviderBinance = "binance"
)

type lastPrice struct {
	price float64
	at    time.Time
}

// Feed is a streaming trade source that remembers the last price per symbol.
type Feed struct {
	provider     string
	symbols      []string
	log          zerolog.Logger
	wsURL        string
	stubInterval time.Duration
	mu           sync.RWMutex
	lastPrices   map[string]lastPrice
}

// Option configures Feed construction parameters.
type Option func(*Feed)

const (
	defaultWSURL        = "wss://stream.binance.com:9443"
	defaultStubInterval = 500 * time.Millisecond
)

// WithWSURL overrides the Binance websocket endpoint.
func WithWSURL(u string) Option {
	return func(f *Feed) {
		if u != "" {
			f.wsURL = strings.TrimSuffix(u, "/")
		}
	}
}

// WithStubInterval overrides the synthetic tick cadence.
func WithStubInterval(d time.Duration) Option {
	return func(f *Feed) {
		if d > 0 {
			f.stubInterval = d
		}
	}
}

// NewFeed constructs a feed backed by the requested provider.
func NewFeed(provider string, symbols []string, log zerolog.Logger, opts ...Option) *Feed {
	if provider == "" {
		provider = ProviderStub
	}
	f := &Feed{
		provider:     strings.ToLower(provider),
		log:          log,
		wsURL:        defaultWSURL,
		stubInterval: defaultStubInterval,
		lastPrices:   make(map[string]lastPrice),
	}
	f.symbols = dedupe(symbols)
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func dedupe(symbols []string) []string {
	unique := make(map[string]struct{}, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, sym := range symbols {
		sym = strings.TrimSpace(sym)
		if sym == "" {
			continue
		}
		if _, ok := unique[sym]; ok {
			continue
		}
		unique[sym] = struct{}{}
		out = append(out, sym)
	}
	sort.Strings(out)
	return out
}

// LastPrice returns the most recent streamed price and when it was observed.
func (f *Feed) LastPrice(symbol string) (float64, time.Time, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	lp, ok := f.lastPrices[symbol]
	return lp.price, lp.at, ok
}

// Run streams ticks until the context is canceled. out may be nil when only LastPrice is used.
func (f *Feed) Run(ctx context.Context, out chan<- signal.Tick) error {
	switch f.provider {
	case ProviderBinance:
		return f.runBinance(ctx, out)
	case ProviderStub:
		return f.runStub(ctx, out)
	default:
		return fmt.Errorf("unknown feed provider %q", f.provider)
	}
}

func (f *Feed) publish(ctx context.Context, tick signal.Tick, out chan<- signal.Tick) error {
	f.mu.Lock()
	f.lastPrices[tick.Symbol] = lastPrice{price: tick.Price, at: tick.Ts}
	f.mu.Unlock()
	metrics.TicksTotal.WithLabelValues(tick.Symbol).Inc()
	if out == nil {
		return nil
	}
	select {
	case out <- tick:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *Feed) runStub(ctx context.Context, out chan<- signal.Tick) error {
	ticker := time.NewTicker(f.stubInterval)
	defer ticker.Stop()

	var px float64 = 100.0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ts := <-ticker.C:
			px += 0.1
			for _, s := range f.symbols {
				if err := f.publish(ctx, signal.Tick{Symbol: s, Price: px, Size: 1, Side: 1, Ts: ts}, out); err != nil {
					return err
				}
			}
		}
	}
}
