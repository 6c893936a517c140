package integration

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"

	"kingbot-go/internal/engine"
	"kingbot-go/internal/exchange"
	"kingbot-go/internal/execution"
	"kingbot-go/internal/notify"
	"kingbot-go/internal/paper"
	"kingbot-go/internal/position"
	"kingbot-go/internal/strategy"
)

// oversold dip with an uptick at the end, then a steady climb
func phaseCloses(phase int32) []float64 {
	if phase == 0 {
		s := make([]float64, 0, 55)
		for i := 0; i < 40; i++ {
			s = append(s, 200-2*float64(i))
		}
		for i := 0; i < 14; i++ {
			s = append(s, s[len(s)-1]-0.2)
		}
		return append(s, s[len(s)-1]+0.1)
	}
	s := make([]float64, 55)
	for i := range s {
		s[i] = 100 + float64(i)
	}
	return s
}

func fakeBinance(t *testing.T, phase *atomic.Int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("symbol"); got != "BTCUSDC" {
			t.Errorf("unexpected venue symbol %q", got)
		}
		closes := phaseCloses(phase.Load())
		switch r.URL.Path {
		case "/api/v3/klines":
			rows := make([][]any, len(closes))
			for i, c := range closes {
				px := strconv.FormatFloat(c, 'f', -1, 64)
				open := int64(1_700_000_000_000) + int64(i)*60_000
				rows[i] = []any{open, px, px, px, px, "1", open + 59_999}
			}
			_ = json.NewEncoder(w).Encode(rows)
		case "/api/v3/ticker/price":
			px := strconv.FormatFloat(closes[len(closes)-1], 'f', -1, 64)
			_ = json.NewEncoder(w).Encode(map[string]string{"symbol": "BTCUSDC", "price": px})
		default:
			http.NotFound(w, r)
		}
	}))
}

type chat struct {
	mu   sync.Mutex
	msgs []string
}

func (c *chat) server() *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		c.mu.Lock()
		c.msgs = append(c.msgs, r.PostForm.Get("text"))
		c.mu.Unlock()
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
}

func (c *chat) with(prefix string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, m := range c.msgs {
		if strings.HasPrefix(m, prefix) {
			n++
		}
	}
	return n
}

func TestPaperRoundTrip(t *testing.T) {
	var phase atomic.Int32
	venueSrv := fakeBinance(t, &phase)
	defer venueSrv.Close()
	tg := &chat{}
	tgSrv := tg.server()
	defer tgSrv.Close()

	log := zerolog.Nop()
	client := exchange.NewClient(venueSrv.URL, "", "", log)
	account := paper.NewAccount("USDC", 1000)
	venue := paper.NewVenue(client, account, 5, log)
	ledger := paper.NewLedger(4)
	broker := execution.NewExecutor(venue, log, execution.WithRecorder(ledger))
	store := position.NewStore()

	loop := engine.New(engine.Settings{
		Mode:       "paper",
		Symbols:    []string{"BTC/USDC"},
		Capital:    100,
		QuoteAsset: "USDC",
		Precision:  5,
	}, venue, broker, notify.NewTelegram(tgSrv.URL, "t0k", "7", log), strategy.Build("", strategy.Params{}), store, log,
		engine.WithPaperAccount(account))

	ctx := context.Background()
	loop.Tick(ctx)

	pos, ok := store.Get("BTC/USDC")
	if !ok {
		t.Fatalf("expected an open position after the oversold reversal")
	}
	if pos.Quantity != 0.83822 {
		t.Fatalf("unexpected quantity %v", pos.Quantity)
	}
	if tg.with("📈 Buy BTC/USDC") != 1 || tg.with("🕒") != 1 {
		t.Fatalf("expected buy and status messages, got %q", tg.msgs)
	}
	status, err := loop.Report(ctx)
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if !strings.Contains(status, "🧾 paper equity:") || !strings.Contains(status, "💸 realized PnL: 0.00 USDC") {
		t.Fatalf("status missing paper account lines:\n%s", status)
	}

	phase.Store(1)
	loop.Tick(ctx)

	if store.Len() != 0 {
		t.Fatalf("expected position closed on overbought RSI")
	}
	if tg.with("📉 Sell BTC/USDC") != 1 {
		t.Fatalf("expected one sell message, got %q", tg.msgs)
	}
	fills := ledger.Snapshot()
	if len(fills) != 2 || fills[0].Side != execution.Buy || fills[1].Side != execution.Sell {
		t.Fatalf("unexpected fills %+v", fills)
	}
	if realized := account.Snapshot(nil).RealizedPnL; realized <= 0 || loop.RealizedPnL() <= 0 {
		t.Fatalf("expected a profitable round trip, account=%v loop=%v", realized, loop.RealizedPnL())
	}
	if _, held := account.Balances()["BTC"]; held {
		t.Fatalf("paper account still holds BTC after exit")
	}
}
