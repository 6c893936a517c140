// Package execution handles order lifecycle and interaction with venues.
package execution

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"kingbot-go/internal/metrics"
)

// Side enumerates order directions used by the executor.
type Side string

const (
	// Buy indicates a long order.
	Buy Side = "BUY"
	// Sell closes a long.
	Sell Side = "SELL"
)

// Order represents an immediate market order request.
type Order struct {
	ClientOrderID string
	Symbol        string
	Side          Side
	Qty           float64
}

// Fill is a venue's confirmation of an executed order.
type Fill struct {
	ID            string    `json:"id"`
	ClientOrderID string    `json:"client_order_id"`
	Symbol        string    `json:"symbol"`
	Side          Side      `json:"side"`
	Qty           float64   `json:"qty"`
	Price         float64   `json:"price"`
	Ts            time.Time `json:"ts"`
}

// Notional is the quote value of the fill.
func (f Fill) Notional() float64 { return f.Qty * f.Price }

// Venue executes market orders.
type Venue interface {
	PlaceMarketOrder(ctx context.Context, order Order) (Fill, error)
}

// FillRecorder captures fills for later inspection.
type FillRecorder interface {
	Record(Fill)
}

// Executor submits market orders to a venue and records the resulting fills.
type Executor struct {
	venue    Venue
	log      zerolog.Logger
	recorder FillRecorder
}

// Option configures an Executor.
type Option func(*Executor)

// WithRecorder attaches a fill recorder.
func WithRecorder(r FillRecorder) Option {
	return func(e *Executor) { e.recorder = r }
}

// NewExecutor wraps a venue.
func NewExecutor(venue Venue, log zerolog.Logger, opts ...Option) *Executor {
	e := &Executor{venue: venue, log: log}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// MarketBuy buys qty of symbol at market.
func (e *Executor) MarketBuy(ctx context.Context, symbol string, qty float64) (Fill, error) {
	return e.Submit(ctx, Order{Symbol: symbol, Side: Buy, Qty: qty})
}

// MarketSell sells qty of symbol at market.
func (e *Executor) MarketSell(ctx context.Context, symbol string, qty float64) (Fill, error) {
	return e.Submit(ctx, Order{Symbol: symbol, Side: Sell, Qty: qty})
}

// Submit validates the order, assigns a client order id and waits for the venue's fill.
func (e *Executor) Submit(ctx context.Context, order Order) (Fill, error) {
	if order.Qty <= 0 {
		return Fill{}, fmt.Errorf("%s %s: quantity must be positive", order.Side, order.Symbol)
	}
	if order.Side != Buy && order.Side != Sell {
		return Fill{}, errors.New("unknown order side")
	}
	if order.ClientOrderID == "" {
		order.ClientOrderID = "kb-" + uuid.NewString()
	}

	metrics.OrdersTotal.WithLabelValues(order.Symbol, string(order.Side)).Inc()
	e.log.Info().Str("sym", order.Symbol).Str("side", string(order.Side)).Float64("qty", order.Qty).Str("cid", order.ClientOrderID).Msg("submit order")

	fill, err := e.venue.PlaceMarketOrder(ctx, order)
	if err != nil {
		e.log.Warn().Err(err).Str("sym", order.Symbol).Str("side", string(order.Side)).Msg("order failed")
		return Fill{}, fmt.Errorf("%s %s: %w", order.Side, order.Symbol, err)
	}
	if fill.Qty <= 0 || fill.Price <= 0 {
		return Fill{}, fmt.Errorf("%s %s: venue returned empty fill", order.Side, order.Symbol)
	}
	if fill.ClientOrderID == "" {
		fill.ClientOrderID = order.ClientOrderID
	}
	if fill.ID == "" {
		fill.ID = uuid.NewString()
	}
	if fill.Ts.IsZero() {
		fill.Ts = time.Now().UTC()
	}
	if e.recorder != nil {
		e.recorder.Record(fill)
	}
	e.log.Info().Str("sym", fill.Symbol).Str("side", string(fill.Side)).Float64("qty", fill.Qty).Float64("px", fill.Price).Msg("order filled")
	return fill, nil
}
