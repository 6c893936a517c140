// Binary bot runs the RSI/MACD trading loop against Binance spot, in paper or live mode.
package main

import (
	"context"
	"errors"
	"os"
	ossignal "os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"kingbot-go/internal/api"
	"kingbot-go/internal/config"
	"kingbot-go/internal/engine"
	"kingbot-go/internal/exchange"
	"kingbot-go/internal/execution"
	"kingbot-go/internal/notify"
	"kingbot-go/internal/paper"
	"kingbot-go/internal/position"
	"kingbot-go/internal/strategy"
	"kingbot-go/internal/util"
)

const (
	defaultConfigPath = "internal/config/config.yaml"
	defaultEnvFile    = ".env"
)

// market serves candles and balances from the REST client and prices from the cache.
type market struct {
	*exchange.Client
	prices exchange.TickerSource
}

func (m market) FetchTicker(ctx context.Context, symbol string) (float64, error) {
	return m.prices.FetchTicker(ctx, symbol)
}

func main() {
	boot := util.NewLogger("info")

	cfg, err := config.Load(getEnv("KINGBOT_CONFIG", defaultConfigPath))
	if err != nil {
		boot.Fatal().Err(err).Msg("load config")
	}
	if err := cfg.LoadEnv(getEnv("KINGBOT_ENV_FILE", defaultEnvFile)); err != nil {
		boot.Fatal().Err(err).Msg("load env")
	}
	if err := cfg.Validate(); err != nil {
		boot.Fatal().Err(err).Msg("config")
	}
	log := util.NewLogger(cfg.App.LogLevel).With().Str("mode", cfg.Trading.Mode).Logger()

	ctx, cancel := ossignal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	client := exchange.NewClient(cfg.Exchange.BaseURL, cfg.Exchange.APIKey, cfg.Exchange.APISecret, log)
	if cfg.Trading.Mode == config.ModeLive {
		if _, err := client.FetchBalance(ctx); err != nil {
			if exchange.IsFatal(err) {
				log.Fatal().Err(err).Msg("exchange rejected credentials")
			}
			log.Warn().Err(err).Msg("startup balance check failed, continuing")
		}
	}

	var prices exchange.TickerSource = client
	if cfg.Exchange.StreamPrices {
		feed := exchange.NewFeed(exchange.ProviderBinance, cfg.Exchange.Symbols, log, exchange.WithWSURL(cfg.Exchange.WSURL))
		go func() {
			if err := feed.Run(ctx, nil); err != nil && !errors.Is(err, context.Canceled) {
				log.Error().Err(err).Msg("price feed stopped, falling back to REST tickers")
			}
		}()
		prices = exchange.NewPriceCache(feed, client, cfg.PriceMaxAge())
	}
	live := market{Client: client, prices: prices}

	ledger := paper.NewLedger(256)
	var loopOpts []engine.Option
	var (
		data     engine.MarketData = live
		venue    execution.Venue   = client
		recorder                   = paper.MultiRecorder{ledger}
	)
	if cfg.Trading.Mode == config.ModePaper {
		account := paper.NewAccount(cfg.Trading.QuoteAsset, cfg.Paper.StartingCash)
		pv := paper.NewVenue(live, account, cfg.Paper.SlippageBps, log)
		data, venue = pv, pv
		loopOpts = append(loopOpts, engine.WithPaperAccount(account))
	}
	if cfg.Paper.FillsPath != "" {
		jsonl, err := paper.NewJSONLRecorder(cfg.Paper.FillsPath, cfg.Trading.Mode, log)
		if err != nil {
			log.Fatal().Err(err).Str("path", cfg.Paper.FillsPath).Msg("open fills file")
		}
		defer jsonl.Close()
		recorder = append(recorder, jsonl)
	}
	broker := execution.NewExecutor(venue, log, execution.WithRecorder(recorder))

	notifier := notify.Multi{notify.NewLog(log)}
	if tg := cfg.Notify.Telegram; tg.Token != "" && tg.ChatID != "" {
		notifier = append(notifier, notify.NewTelegram(tg.BaseURL, tg.Token, tg.ChatID, log))
	} else {
		log.Warn().Msg("telegram not configured, notifications go to the log only")
	}

	params := cfg.Strategy.Params
	eval := strategy.Build(cfg.Strategy.Mode, strategy.Params{
		RSIBuyBelow:  params.RSIBuyBelow,
		RSISellAbove: params.RSISellAbove,
		StopLossPct:  cfg.Trading.StopLossPct,
	})
	store := position.NewStore()
	loop := engine.New(engine.SettingsFrom(cfg), data, broker, notifier, eval, store, log, loopOpts...)

	if cfg.App.MetricsAddr != "" {
		router := api.NewRouter(store, loop, ledger, log)
		go func() {
			if err := api.Serve(ctx, cfg.App.MetricsAddr, router, log); err != nil {
				log.Error().Err(err).Msg("http api stopped")
			}
		}()
	}

	if err := loop.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("trading loop exited")
	}
	logShutdown(log, store)
}

func logShutdown(log zerolog.Logger, store *position.Store) {
	for _, pos := range store.Snapshot() {
		log.Warn().Str("sym", pos.Symbol).Float64("qty", pos.Quantity).Float64("entry", pos.EntryPrice).Msg("position still open at shutdown")
	}
	log.Info().Msg("shutting down")
}

func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
