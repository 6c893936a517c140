package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	path := filepath.Join("testdata", "config.yaml")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.App.Name != "kingbot-test" {
		t.Fatalf("unexpected App.Name: %s", cfg.App.Name)
	}
	if cfg.App.MetricsAddr != ":9102" {
		t.Fatalf("unexpected metrics addr: %s", cfg.App.MetricsAddr)
	}
	if len(cfg.Exchange.Symbols) != 3 || cfg.Exchange.Symbols[0] != "BTC/USDC" {
		t.Fatalf("unexpected symbols %+v", cfg.Exchange.Symbols)
	}
	if !cfg.Exchange.StreamPrices {
		t.Fatalf("expected stream_prices enabled")
	}
	if cfg.Trading.Capital != 70 {
		t.Fatalf("unexpected capital: %.2f", cfg.Trading.Capital)
	}
	if cfg.Trading.StopLossPct != 0.03 {
		t.Fatalf("unexpected stop loss: %.4f", cfg.Trading.StopLossPct)
	}
	if cfg.Trading.QuoteAsset != "USDC" {
		t.Fatalf("expected quote asset derived from symbols, got %s", cfg.Trading.QuoteAsset)
	}
	if cfg.Trading.QuantityPrecision != 5 {
		t.Fatalf("expected default precision 5, got %d", cfg.Trading.QuantityPrecision)
	}
	if cfg.PollInterval() != 30*time.Second {
		t.Fatalf("unexpected poll interval %s", cfg.PollInterval())
	}
	if cfg.StatusInterval() != 5*time.Minute {
		t.Fatalf("unexpected status interval %s", cfg.StatusInterval())
	}
	if cfg.Risk.MaxNotionalPerTrade != 50 {
		t.Fatalf("unexpected max notional %.2f", cfg.Risk.MaxNotionalPerTrade)
	}
	if cfg.Strategy.Params.MACDFast != 12 || cfg.Strategy.Params.MACDSlow != 26 || cfg.Strategy.Params.MACDSignal != 9 {
		t.Fatalf("unexpected macd defaults %+v", cfg.Strategy.Params)
	}
	if cfg.Paper.StartingCash != 70 {
		t.Fatalf("expected starting cash to default to capital, got %.2f", cfg.Paper.StartingCash)
	}
	if cfg.Paper.SlippageBps != 3 {
		t.Fatalf("expected slippage 3 bps, got %.2f", cfg.Paper.SlippageBps)
	}
	if cfg.Notify.Telegram.ChatID != "12345" {
		t.Fatalf("unexpected chat id %q", cfg.Notify.Telegram.ChatID)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected fixture to validate, got %v", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	cfg, err := Load(filepath.Join("testdata", "config.yaml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	cfg.Trading.Capital = 120
	path := filepath.Join(t.TempDir(), "out.yaml")
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	reloaded, err := Load(path)
	if err != nil {
		t.Fatalf("reload returned error: %v", err)
	}
	if reloaded.Trading.Capital != 120 {
		t.Fatalf("expected capital 120 after round trip, got %.2f", reloaded.Trading.Capital)
	}
	if err := Save(path, nil); err == nil {
		t.Fatalf("expected error saving nil config")
	}
}

func validConfig() *Config {
	cfg := &Config{
		Exchange: Exchange{Symbols: []string{"BTC/USDC", "ETH/USDC"}},
		Trading:  Trading{Capital: 100},
	}
	cfg.ApplyDefaults()
	return cfg
}

func TestValidate(t *testing.T) {
	cases := map[string]func(*Config){
		"no symbols":        func(c *Config) { c.Exchange.Symbols = nil },
		"duplicate symbol":  func(c *Config) { c.Exchange.Symbols = []string{"BTC/USDC", "BTC/USDC"} },
		"blank symbol":      func(c *Config) { c.Exchange.Symbols = []string{" "} },
		"zero capital":      func(c *Config) { c.Trading.Capital = 0 },
		"bad mode":          func(c *Config) { c.Trading.Mode = "margin" },
		"stop loss too big": func(c *Config) { c.Trading.StopLossPct = 1.5 },
		"poll too fast":     func(c *Config) { c.Trading.PollIntervalSecs = 1 },
		"fast >= slow":      func(c *Config) { c.Strategy.Params.MACDFast = 30 },
		"short history":     func(c *Config) { c.Exchange.CandleLimit = 20 },
		"live without keys": func(c *Config) { c.Trading.Mode = ModeLive },
		"negative slippage": func(c *Config) { c.Paper.SlippageBps = -1 },
		"unknown exchange streaming": func(c *Config) {
			c.Exchange.Name = "binance_us"
			c.Exchange.StreamPrices = true
		},
		"unknown exchange polling": func(c *Config) { c.Exchange.Name = "kraken" },
	}
	for name, mutate := range cases {
		cfg := validConfig()
		mutate(cfg)
		err := cfg.Validate()
		if err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
		if !errors.Is(err, ErrInvalid) {
			t.Fatalf("%s: expected ErrInvalid, got %v", name, err)
		}
	}

	if err := validConfig().Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}

	mixedCase := &Config{
		Exchange: Exchange{Name: " Binance ", Symbols: []string{"BTC/USDC"}, StreamPrices: true},
		Trading:  Trading{Capital: 100},
	}
	mixedCase.ApplyDefaults()
	if err := mixedCase.Validate(); err != nil {
		t.Fatalf("expected exchange name to be normalised, got %v", err)
	}
}

func TestLoadEnvOverlaysCredentials(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	if err := os.WriteFile(envPath, []byte("API_SECRET=from-file\nTELEGRAM_CHAT_ID=999\n"), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	t.Setenv("API_KEY", "from-env")
	for _, key := range []string{"API_SECRET", "TELEGRAM_TOKEN", "TELEGRAM_CHAT_ID"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}

	cfg := validConfig()
	if err := cfg.LoadEnv(envPath); err != nil {
		t.Fatalf("LoadEnv returned error: %v", err)
	}
	if cfg.Exchange.APIKey != "from-env" {
		t.Fatalf("expected api key from env, got %q", cfg.Exchange.APIKey)
	}
	if cfg.Exchange.APISecret != "from-file" {
		t.Fatalf("expected api secret from .env, got %q", cfg.Exchange.APISecret)
	}
	if cfg.Notify.Telegram.ChatID != "999" {
		t.Fatalf("expected chat id from .env, got %q", cfg.Notify.Telegram.ChatID)
	}

	cfg.Trading.Mode = ModeLive
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected live config with credentials to validate, got %v", err)
	}
}

func TestLoadEnvMissingFileIsFine(t *testing.T) {
	cfg := validConfig()
	if err := cfg.LoadEnv(filepath.Join(t.TempDir(), "absent.env")); err != nil {
		t.Fatalf("expected missing env file to be ignored, got %v", err)
	}
}
