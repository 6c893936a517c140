package paper

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"kingbot-go/internal/exchange"
	"kingbot-go/internal/execution"
	"kingbot-go/internal/signal"
)

// MarketData is the read side of the exchange the paper venue prices against.
type MarketData interface {
	FetchCandles(ctx context.Context, symbol, interval string, limit int) ([]signal.Candle, error)
	exchange.TickerSource
}

// Venue fills market orders at the live ticker adjusted by slippage and books them on an Account.
type Venue struct {
	market      MarketData
	account     *Account
	slippageBps float64
	log         zerolog.Logger
	now         func() time.Time
}

// NewVenue wires a paper account to a market data source.
func NewVenue(market MarketData, account *Account, slippageBps float64, log zerolog.Logger) *Venue {
	return &Venue{market: market, account: account, slippageBps: slippageBps, log: log, now: time.Now}
}

// FetchCandles delegates to the live market data source.
func (v *Venue) FetchCandles(ctx context.Context, symbol, interval string, limit int) ([]signal.Candle, error) {
	return v.market.FetchCandles(ctx, symbol, interval, limit)
}

// FetchTicker delegates to the live market data source.
func (v *Venue) FetchTicker(ctx context.Context, symbol string) (float64, error) {
	return v.market.FetchTicker(ctx, symbol)
}

// FetchBalance reports the paper account instead of the real one.
func (v *Venue) FetchBalance(context.Context) (map[string]float64, error) {
	return v.account.Balances(), nil
}

// PlaceMarketOrder implements execution.Venue.
func (v *Venue) PlaceMarketOrder(ctx context.Context, order execution.Order) (execution.Fill, error) {
	mark, err := v.market.FetchTicker(ctx, order.Symbol)
	if err != nil {
		return execution.Fill{}, fmt.Errorf("paper price: %w", err)
	}
	price := mark
	slip := v.slippageBps / 10_000
	if order.Side == execution.Buy {
		price *= 1 + slip
	} else {
		price *= 1 - slip
	}
	if err := v.account.MarketFill(order.Symbol, order.Side, order.Qty, price); err != nil {
		return execution.Fill{}, fmt.Errorf("paper fill: %w", err)
	}
	v.log.Debug().Str("sym", order.Symbol).Str("side", string(order.Side)).Float64("mark", mark).Float64("px", price).Msg("paper fill")
	return execution.Fill{
		ID:            uuid.NewString(),
		ClientOrderID: order.ClientOrderID,
		Symbol:        order.Symbol,
		Side:          order.Side,
		Qty:           order.Qty,
		Price:         price,
		Ts:            v.now().UTC(),
	}, nil
}
