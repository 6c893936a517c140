// Package engine runs the polling loop that turns candles into orders, one symbol at a time.
package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"kingbot-go/internal/config"
	"kingbot-go/internal/execution"
	"kingbot-go/internal/indicator"
	"kingbot-go/internal/metrics"
	"kingbot-go/internal/paper"
	"kingbot-go/internal/position"
	"kingbot-go/internal/risk"
	"kingbot-go/internal/signal"
	"kingbot-go/internal/strategy"
)

// MarketData is the read side of the venue.
type MarketData interface {
	FetchCandles(ctx context.Context, symbol, interval string, limit int) ([]signal.Candle, error)
	FetchTicker(ctx context.Context, symbol string) (float64, error)
	FetchBalance(ctx context.Context) (map[string]float64, error)
}

// Broker places market orders and returns the confirmed fill.
type Broker interface {
	MarketBuy(ctx context.Context, symbol string, qty float64) (execution.Fill, error)
	MarketSell(ctx context.Context, symbol string, qty float64) (execution.Fill, error)
}

// Notifier delivers operator messages. It must not block the loop on failure.
type Notifier interface {
	Notify(ctx context.Context, text string)
}

// PaperAccount values a simulated account at the given marks.
type PaperAccount interface {
	Snapshot(prices map[string]float64) paper.Snapshot
}

// Settings is the immutable slice of configuration the loop needs.
type Settings struct {
	Mode           string
	Symbols        []string
	Interval       string
	CandleLimit    int
	Capital        float64
	QuoteAsset     string
	Precision      int
	PollInterval   time.Duration
	StatusInterval time.Duration
	Indicators     indicator.Params
	Limits         risk.Limits
}

// SettingsFrom extracts loop settings from a validated config.
func SettingsFrom(cfg *config.Config) Settings {
	p := cfg.Strategy.Params
	return Settings{
		Mode:           cfg.Trading.Mode,
		Symbols:        append([]string(nil), cfg.Exchange.Symbols...),
		Interval:       cfg.Exchange.Interval,
		CandleLimit:    cfg.Exchange.CandleLimit,
		Capital:        cfg.Trading.Capital,
		QuoteAsset:     cfg.Trading.QuoteAsset,
		Precision:      cfg.Trading.QuantityPrecision,
		PollInterval:   cfg.PollInterval(),
		StatusInterval: cfg.StatusInterval(),
		Indicators: indicator.Params{
			RSIWindow:  p.RSIWindow,
			MACDFast:   p.MACDFast,
			MACDSlow:   p.MACDSlow,
			MACDSignal: p.MACDSignal,
		},
		Limits: risk.Limits{MaxNotionalPerTrade: cfg.Risk.MaxNotionalPerTrade},
	}
}

// Loop is the trading orchestrator. Tick and Run must be driven from a single goroutine.
type Loop struct {
	settings Settings
	market   MarketData
	broker   Broker
	notifier Notifier
	eval     strategy.Evaluator
	store    *position.Store
	log      zerolog.Logger
	now      func() time.Time
	account  PaperAccount

	lastStatus time.Time
	realized   float64
	lastTick   atomic.Int64
}

// Option configures a Loop.
type Option func(*Loop)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(l *Loop) { l.now = now }
}

// WithPaperAccount adds the simulated account's equity to status reports.
func WithPaperAccount(account PaperAccount) Option {
	return func(l *Loop) { l.account = account }
}

// New wires the loop's collaborators. The store is shared with readers such as the HTTP API.
func New(settings Settings, market MarketData, broker Broker, notifier Notifier, eval strategy.Evaluator, store *position.Store, log zerolog.Logger, opts ...Option) *Loop {
	if settings.CandleLimit <= 0 {
		settings.CandleLimit = 100
	}
	if settings.Interval == "" {
		settings.Interval = "1m"
	}
	if settings.PollInterval <= 0 {
		settings.PollInterval = 30 * time.Second
	}
	if settings.StatusInterval <= 0 {
		settings.StatusInterval = 5 * time.Minute
	}
	if settings.Indicators == (indicator.Params{}) {
		settings.Indicators = indicator.DefaultParams()
	}
	l := &Loop{
		settings: settings,
		market:   market,
		broker:   broker,
		notifier: notifier,
		eval:     eval,
		store:    store,
		log:      log,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Run announces startup, ticks immediately and then once per poll interval until ctx is done.
func (l *Loop) Run(ctx context.Context) error {
	l.log.Info().Strs("symbols", l.settings.Symbols).Dur("poll", l.settings.PollInterval).Str("strategy", l.eval.Name()).Msg("trading loop started")
	l.notifier.Notify(ctx, fmt.Sprintf("🚀 kingbot started (%s) watching %s", l.settings.Mode, strings.Join(l.settings.Symbols, ", ")))

	l.Tick(ctx)
	ticker := time.NewTicker(l.settings.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			l.log.Info().Msg("trading loop stopped")
			return ctx.Err()
		case <-ticker.C:
			l.Tick(ctx)
		}
	}
}

// Tick runs one pass over every symbol, then sends the status report when it is due.
// A failing symbol is reported and skipped; it never aborts the pass.
func (l *Loop) Tick(ctx context.Context) {
	for _, symbol := range l.settings.Symbols {
		if ctx.Err() != nil {
			return
		}
		metrics.SymbolPassesTotal.WithLabelValues(symbol).Inc()
		if err := l.processSymbol(ctx, symbol); err != nil {
			metrics.SymbolErrorsTotal.WithLabelValues(symbol).Inc()
			l.log.Warn().Err(err).Str("sym", symbol).Msg("symbol failed")
			l.notifier.Notify(ctx, fmt.Sprintf("⚠️ error with %s: %v", symbol, err))
		}
	}
	now := l.now()
	l.lastTick.Store(now.UnixNano())

	if l.lastStatus.IsZero() || now.Sub(l.lastStatus) >= l.settings.StatusInterval {
		l.sendStatus(ctx)
		l.lastStatus = now
	}
}

// LastTick reports when the last full pass finished. Zero before the first tick.
func (l *Loop) LastTick() time.Time {
	ns := l.lastTick.Load()
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}

func (l *Loop) processSymbol(ctx context.Context, symbol string) error {
	candles, err := l.market.FetchCandles(ctx, symbol, l.settings.Interval, l.settings.CandleLimit)
	if err != nil {
		return fmt.Errorf("fetch candles: %w", err)
	}
	features, err := indicator.Compute(candles, l.settings.Indicators)
	if errors.Is(err, indicator.ErrInsufficientData) {
		metrics.DecisionsTotal.WithLabelValues(symbol, signal.Hold.String()).Inc()
		l.log.Debug().Err(err).Str("sym", symbol).Msg("warming up")
		return nil
	}
	if err != nil {
		return fmt.Errorf("indicators: %w", err)
	}

	current := candles[len(candles)-1].Close
	var pos *position.Position
	if p, ok := l.store.Get(symbol); ok {
		pos = &p
	}
	decision := l.eval.Evaluate(features, pos, current)
	metrics.DecisionsTotal.WithLabelValues(symbol, decision.Kind.String()).Inc()
	l.log.Debug().Str("sym", symbol).Float64("px", current).Float64("rsi", features.RSI).
		Float64("macd", features.MACD).Float64("macd_signal", features.MACDSignal).
		Str("decision", decision.Kind.String()).Str("reason", decision.Reason).Msg("evaluated")

	switch {
	case decision.Kind == signal.Enter && pos == nil:
		return l.enter(ctx, symbol, current, decision)
	case decision.Kind.IsExit() && pos != nil:
		return l.exit(ctx, *pos, decision)
	}
	return nil
}

func (l *Loop) enter(ctx context.Context, symbol string, price float64, decision signal.Decision) error {
	qty := risk.Allocation(l.settings.Capital, len(l.settings.Symbols), price, l.settings.Precision)
	if qty <= 0 {
		l.log.Warn().Str("sym", symbol).Float64("px", price).Msg("allocation rounds to zero, skipping entry")
		return nil
	}
	if !l.settings.Limits.Allow(qty * price) {
		l.log.Warn().Str("sym", symbol).Float64("notional", qty*price).Msg("entry exceeds notional cap, skipping")
		return nil
	}
	if _, held := l.store.Get(symbol); held {
		return fmt.Errorf("enter: %w", position.ErrAlreadyOpen)
	}

	fill, err := l.broker.MarketBuy(ctx, symbol, qty)
	if err != nil {
		return fmt.Errorf("market buy: %w", err)
	}
	if err := l.store.Open(symbol, fill.Price, fill.Qty, l.now()); err != nil {
		l.log.Error().Err(err).Str("sym", symbol).Str("fill", fill.ID).Float64("qty", fill.Qty).Float64("px", fill.Price).Msg("bought but could not record position")
		return err
	}
	metrics.OpenPositions.Set(float64(l.store.Len()))
	l.log.Info().Str("sym", symbol).Float64("qty", fill.Qty).Float64("px", fill.Price).Str("reason", decision.Reason).Msg("position opened")

	msg := fmt.Sprintf("📈 Buy %s at %.2f\n🎯 Quantity: %s", symbol, fill.Price, formatQty(fill.Qty))
	if bal, err := l.market.FetchBalance(ctx); err == nil {
		msg += fmt.Sprintf(" | 💰 Remaining %s: %.2f", l.settings.QuoteAsset, bal[l.settings.QuoteAsset])
	} else {
		l.log.Debug().Err(err).Msg("balance after buy unavailable")
	}
	l.notifier.Notify(ctx, msg)
	return nil
}

func (l *Loop) exit(ctx context.Context, pos position.Position, decision signal.Decision) error {
	fill, err := l.broker.MarketSell(ctx, pos.Symbol, pos.Quantity)
	if err != nil {
		return fmt.Errorf("market sell: %w", err)
	}
	closed, err := l.store.Close(pos.Symbol)
	if err != nil {
		l.log.Error().Err(err).Str("sym", pos.Symbol).Str("fill", fill.ID).Float64("qty", fill.Qty).Float64("px", fill.Price).Msg("sold but position was not open")
		return err
	}
	pnl := (fill.Price - closed.EntryPrice) * fill.Qty
	l.realized += pnl
	metrics.OpenPositions.Set(float64(l.store.Len()))
	metrics.RealizedPnL.Set(l.realized)
	l.log.Info().Str("sym", pos.Symbol).Float64("qty", fill.Qty).Float64("px", fill.Price).Float64("pnl", pnl).Str("reason", decision.Reason).Msg("position closed")

	label := "signal"
	if decision.Kind == signal.ExitByStopLoss {
		label = "stop-loss"
	}
	l.notifier.Notify(ctx, fmt.Sprintf("📉 Sell %s at %.2f (%s: %s)\n💸 PnL: %.2f %s", pos.Symbol, fill.Price, label, decision.Reason, pnl, l.settings.QuoteAsset))
	return nil
}

// RealizedPnL is the sum of closed-trade PnL since start.
func (l *Loop) RealizedPnL() float64 { return l.realized }

func formatQty(q float64) string {
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.8f", q), "0"), ".")
}
