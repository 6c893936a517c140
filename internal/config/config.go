// Package config exposes strongly typed application configuration structs loaded from YAML.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Trading modes.
const (
	ModeLive  = "live"
	ModePaper = "paper"
)

// ExchangeBinance is the only venue the REST client and price feed speak.
const ExchangeBinance = "binance"

// MinPollInterval keeps the candle polling cadence inside Binance's public rate limits.
const MinPollInterval = 5 * time.Second

// ErrInvalid marks configuration that must stop the process before the loop starts.
var ErrInvalid = errors.New("invalid config")

// App captures process-wide runtime settings such as name, environment, metrics, and logging levels.
type App struct {
	Name        string `yaml:"name"`
	Env         string `yaml:"env"`
	MetricsAddr string `yaml:"metrics_addr"`
	LogLevel    string `yaml:"log_level"`
}

// Exchange describes the spot venue connectivity parameters and the traded symbol set.
type Exchange struct {
	Name            string   `yaml:"name"`
	BaseURL         string   `yaml:"base_url"`
	WSURL           string   `yaml:"ws_url"`
	Symbols         []string `yaml:"symbols"`
	APIKey          string   `yaml:"api_key"`
	APISecret       string   `yaml:"api_secret"`
	Interval        string   `yaml:"interval"`
	CandleLimit     int      `yaml:"candle_limit"`
	StreamPrices    bool     `yaml:"stream_prices"`
	PriceMaxAgeSecs int      `yaml:"price_max_age_secs"`
}

// Trading holds the capital budget and loop cadence.
type Trading struct {
	Mode               string  `yaml:"mode"`
	Capital            float64 `yaml:"capital"`
	QuoteAsset         string  `yaml:"quote_asset"`
	StopLossPct        float64 `yaml:"stop_loss_pct"`
	QuantityPrecision  int     `yaml:"quantity_precision"`
	PollIntervalSecs   int     `yaml:"poll_interval_secs"`
	StatusIntervalSecs int     `yaml:"status_interval_secs"`
}

// Risk encodes guard-rails for how much size the executor may take on.
type Risk struct {
	MaxNotionalPerTrade float64 `yaml:"max_notional_per_trade"`
}

// StrategyParams groups tunable knobs for the RSI/MACD evaluator.
type StrategyParams struct {
	RSIWindow    int     `yaml:"rsi_window"`
	RSIBuyBelow  float64 `yaml:"rsi_buy_below"`
	RSISellAbove float64 `yaml:"rsi_sell_above"`
	MACDFast     int     `yaml:"macd_fast"`
	MACDSlow     int     `yaml:"macd_slow"`
	MACDSignal   int     `yaml:"macd_signal"`
}

// Strategy specifies which strategy is active along with the parameter bundle.
type Strategy struct {
	Mode   string         `yaml:"mode"`
	Params StrategyParams `yaml:"params"`
}

// Paper captures paper-trading account settings.
type Paper struct {
	StartingCash float64 `yaml:"starting_cash"`
	SlippageBps  float64 `yaml:"slippage_bps"`
	FillsPath    string  `yaml:"fills_path"`
}

// Telegram configures the push notification channel.
type Telegram struct {
	BaseURL string `yaml:"base_url"`
	Token   string `yaml:"token"`
	ChatID  string `yaml:"chat_id"`
}

// Notify groups notification sinks.
type Notify struct {
	Telegram Telegram `yaml:"telegram"`
}

// Config collects every configuration leaf for easy marshaling from YAML.
type Config struct {
	App      App      `yaml:"app"`
	Exchange Exchange `yaml:"exchange"`
	Trading  Trading  `yaml:"trading"`
	Risk     Risk     `yaml:"risk"`
	Strategy Strategy `yaml:"strategy"`
	Paper    Paper    `yaml:"paper"`
	Notify   Notify   `yaml:"notify"`
}

// Load reads a YAML file from disk and hydrates a Config struct with defaults applied.
func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var config Config
	if err := yaml.NewDecoder(file).Decode(&config); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	config.ApplyDefaults()
	return &config, nil
}

// Save persists a Config struct to disk as YAML.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// LoadEnv overlays credentials from the environment, reading envFile first when it exists.
// Values already present in the process environment win over the file.
func (c *Config) LoadEnv(envFile string) error {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("load env file: %w", err)
		}
	}
	overlay(&c.Exchange.APIKey, "API_KEY")
	overlay(&c.Exchange.APISecret, "API_SECRET")
	overlay(&c.Notify.Telegram.Token, "TELEGRAM_TOKEN")
	overlay(&c.Notify.Telegram.ChatID, "TELEGRAM_CHAT_ID")
	return nil
}

func overlay(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

// ApplyDefaults fills zero values with the bot's stock settings.
func (c *Config) ApplyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "kingbot"
	}
	if c.App.LogLevel == "" {
		c.App.LogLevel = "info"
	}
	if c.Exchange.Name == "" {
		c.Exchange.Name = ExchangeBinance
	}
	c.Exchange.Name = strings.ToLower(strings.TrimSpace(c.Exchange.Name))
	if c.Exchange.Interval == "" {
		c.Exchange.Interval = "1m"
	}
	if c.Exchange.CandleLimit <= 0 {
		c.Exchange.CandleLimit = 100
	}
	if c.Exchange.PriceMaxAgeSecs <= 0 {
		c.Exchange.PriceMaxAgeSecs = 10
	}
	if c.Trading.Mode == "" {
		c.Trading.Mode = ModePaper
	}
	c.Trading.Mode = strings.ToLower(c.Trading.Mode)
	if c.Trading.QuoteAsset == "" {
		c.Trading.QuoteAsset = quoteFromSymbols(c.Exchange.Symbols)
	}
	if c.Trading.StopLossPct == 0 {
		c.Trading.StopLossPct = 0.03
	}
	if c.Trading.QuantityPrecision <= 0 {
		c.Trading.QuantityPrecision = 5
	}
	if c.Trading.PollIntervalSecs <= 0 {
		c.Trading.PollIntervalSecs = 30
	}
	if c.Trading.StatusIntervalSecs <= 0 {
		c.Trading.StatusIntervalSecs = 300
	}
	p := &c.Strategy.Params
	if p.RSIWindow <= 0 {
		p.RSIWindow = 14
	}
	if p.RSIBuyBelow == 0 {
		p.RSIBuyBelow = 30
	}
	if p.RSISellAbove == 0 {
		p.RSISellAbove = 70
	}
	if p.MACDFast <= 0 {
		p.MACDFast = 12
	}
	if p.MACDSlow <= 0 {
		p.MACDSlow = 26
	}
	if p.MACDSignal <= 0 {
		p.MACDSignal = 9
	}
	if c.Paper.StartingCash <= 0 {
		c.Paper.StartingCash = c.Trading.Capital
	}
}

// Validate reports the first setting that makes the bot unsafe to start.
func (c *Config) Validate() error {
	if len(c.Exchange.Symbols) == 0 {
		return fmt.Errorf("%w: exchange.symbols must not be empty", ErrInvalid)
	}
	seen := make(map[string]struct{}, len(c.Exchange.Symbols))
	for _, sym := range c.Exchange.Symbols {
		if strings.TrimSpace(sym) == "" {
			return fmt.Errorf("%w: exchange.symbols contains an empty symbol", ErrInvalid)
		}
		if _, dup := seen[sym]; dup {
			return fmt.Errorf("%w: duplicate symbol %s", ErrInvalid, sym)
		}
		seen[sym] = struct{}{}
	}
	if c.Exchange.Name != ExchangeBinance {
		return fmt.Errorf("%w: exchange.name must be %q, got %q", ErrInvalid, ExchangeBinance, c.Exchange.Name)
	}
	if c.Trading.Mode != ModeLive && c.Trading.Mode != ModePaper {
		return fmt.Errorf("%w: trading.mode must be live or paper, got %q", ErrInvalid, c.Trading.Mode)
	}
	if c.Trading.Capital <= 0 {
		return fmt.Errorf("%w: trading.capital must be > 0", ErrInvalid)
	}
	if c.Trading.StopLossPct <= 0 || c.Trading.StopLossPct >= 1 {
		return fmt.Errorf("%w: trading.stop_loss_pct must be in (0,1)", ErrInvalid)
	}
	if c.PollInterval() < MinPollInterval {
		return fmt.Errorf("%w: trading.poll_interval_secs must be >= %d", ErrInvalid, int(MinPollInterval/time.Second))
	}
	p := c.Strategy.Params
	if p.MACDFast >= p.MACDSlow {
		return fmt.Errorf("%w: strategy.params.macd_fast must be < macd_slow", ErrInvalid)
	}
	if need := p.MACDSlow + p.MACDSignal - 1; c.Exchange.CandleLimit < need {
		return fmt.Errorf("%w: exchange.candle_limit must be >= %d for MACD warm-up", ErrInvalid, need)
	}
	if c.Trading.Mode == ModeLive && (c.Exchange.APIKey == "" || c.Exchange.APISecret == "") {
		return fmt.Errorf("%w: API_KEY and API_SECRET are required in live mode", ErrInvalid)
	}
	if c.Paper.SlippageBps < 0 {
		return fmt.Errorf("%w: paper.slippage_bps must be >= 0", ErrInvalid)
	}
	return nil
}

// PollInterval is the main loop cadence.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Trading.PollIntervalSecs) * time.Second
}

// StatusInterval is the status report cadence.
func (c *Config) StatusInterval() time.Duration {
	return time.Duration(c.Trading.StatusIntervalSecs) * time.Second
}

// PriceMaxAge bounds how stale a streamed price may be before the REST ticker is used.
func (c *Config) PriceMaxAge() time.Duration {
	return time.Duration(c.Exchange.PriceMaxAgeSecs) * time.Second
}

func quoteFromSymbols(symbols []string) string {
	for _, sym := range symbols {
		if _, quote, ok := strings.Cut(sym, "/"); ok && quote != "" {
			return strings.ToUpper(quote)
		}
	}
	return "USDT"
}
