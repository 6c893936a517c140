package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Report builds the portfolio summary: quote balance, then a line per symbol with its price and
// open position PnL, then session PnL and, in paper mode, account equity. Failed fetches degrade
// their line and are returned joined alongside the text.
func (l *Loop) Report(ctx context.Context) (string, error) {
	var (
		b    strings.Builder
		errs []error
	)
	quote := l.settings.QuoteAsset
	fmt.Fprintf(&b, "🕒 %s | 📊 STATUS kingbot\n", l.now().Format("15:04:05"))

	if bal, err := l.market.FetchBalance(ctx); err != nil {
		errs = append(errs, fmt.Errorf("balance: %w", err))
		fmt.Fprintf(&b, "💰 %s balance: unavailable\n", quote)
	} else {
		fmt.Fprintf(&b, "💰 %s balance: %.2f\n", quote, bal[quote])
	}

	marks := make(map[string]float64, len(l.settings.Symbols))
	for _, symbol := range l.settings.Symbols {
		price, err := l.market.FetchTicker(ctx, symbol)
		if err != nil {
			errs = append(errs, fmt.Errorf("ticker %s: %w", symbol, err))
			fmt.Fprintf(&b, "\n🔹 %s: price unavailable", symbol)
			if pos, ok := l.store.Get(symbol); ok {
				fmt.Fprintf(&b, " | 🟢 position open @ %.2f", pos.EntryPrice)
			}
			continue
		}
		marks[symbol] = price
		fmt.Fprintf(&b, "\n🔹 %s: %.2f", symbol, price)
		if pos, ok := l.store.Get(symbol); ok {
			fmt.Fprintf(&b, " | 🟢 position open | unrealized PnL: %.2f", pos.UnrealizedPnL(price))
		} else {
			b.WriteString(" | ⚪ no position")
		}
	}

	fmt.Fprintf(&b, "\n\n💸 realized PnL: %.2f %s", l.RealizedPnL(), quote)
	if l.account != nil {
		snap := l.account.Snapshot(marks)
		fmt.Fprintf(&b, "\n🧾 paper equity: %.2f %s | cash: %.2f | realized: %.2f", snap.Equity, quote, snap.Cash, snap.RealizedPnL)
		if len(marks) < len(l.settings.Symbols) {
			b.WriteString(" (unpriced holdings excluded)")
		}
	}
	return b.String(), errors.Join(errs...)
}

func (l *Loop) sendStatus(ctx context.Context) {
	text, err := l.Report(ctx)
	if err != nil {
		l.log.Warn().Err(err).Msg("status report incomplete")
	}
	l.notifier.Notify(ctx, text)
}
