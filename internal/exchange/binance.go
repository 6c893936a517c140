// Package exchange hosts the spot venue connector and streaming price sources.
package exchange

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"kingbot-go/internal/execution"
	"kingbot-go/internal/signal"
)

const defaultBaseURL = "https://api.binance.com"

// Client implements the Binance spot REST endpoints the bot needs.
type Client struct {
	apiKey     string
	apiSecret  string
	baseURL    string
	httpClient *http.Client
	log        zerolog.Logger
	now        func() time.Time
}

// ClientOption configures Client construction parameters.
type ClientOption func(*Client)

// WithHTTPClient swaps the transport, mainly for tests.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// NewClient returns a ready-to-use client. Public endpoints work without credentials.
func NewClient(baseURL, apiKey, apiSecret string, log zerolog.Logger, opts ...ClientOption) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	c := &Client{
		apiKey:     apiKey,
		apiSecret:  apiSecret,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
		log:        log,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchCandles retrieves up to limit candles, oldest first, dropping rows that break time ordering.
func (c *Client) FetchCandles(ctx context.Context, symbol, interval string, limit int) ([]signal.Candle, error) {
	params := url.Values{}
	params.Set("symbol", VenueSymbol(symbol))
	params.Set("interval", interval)
	params.Set("limit", strconv.Itoa(limit))

	var raw [][]any
	if err := c.get(ctx, "klines", "/api/v3/klines", params, false, &raw); err != nil {
		return nil, err
	}

	candles := make([]signal.Candle, 0, len(raw))
	for _, entry := range raw {
		candle, ok := parseKline(entry)
		if !ok {
			continue
		}
		if n := len(candles); n > 0 && !candle.OpenTime.After(candles[n-1].OpenTime) {
			continue
		}
		candles = append(candles, candle)
	}
	if len(candles) == 0 {
		return nil, transient("klines", errors.New("no candles returned"))
	}
	return candles, nil
}

func parseKline(entry []any) (signal.Candle, bool) {
	if len(entry) < 6 {
		return signal.Candle{}, false
	}
	openMs, ok := entry[0].(float64)
	if !ok {
		return signal.Candle{}, false
	}
	var vals [5]float64
	for i := range vals {
		v, err := strconv.ParseFloat(fmt.Sprint(entry[i+1]), 64)
		if err != nil {
			return signal.Candle{}, false
		}
		vals[i] = v
	}
	return signal.Candle{
		OpenTime: time.UnixMilli(int64(openMs)).UTC(),
		Open:     vals[0],
		High:     vals[1],
		Low:      vals[2],
		Close:    vals[3],
		Volume:   vals[4],
	}, true
}

// FetchTicker returns the last traded price.
func (c *Client) FetchTicker(ctx context.Context, symbol string) (float64, error) {
	params := url.Values{}
	params.Set("symbol", VenueSymbol(symbol))

	var payload struct {
		Price string `json:"price"`
	}
	if err := c.get(ctx, "ticker", "/api/v3/ticker/price", params, false, &payload); err != nil {
		return 0, err
	}
	price, err := strconv.ParseFloat(payload.Price, 64)
	if err != nil || price <= 0 {
		return 0, transient("ticker", fmt.Errorf("bad price %q", payload.Price))
	}
	return price, nil
}

// FetchBalance returns free balances by asset, omitting zero entries.
func (c *Client) FetchBalance(ctx context.Context) (map[string]float64, error) {
	var payload struct {
		Balances []struct {
			Asset string `json:"asset"`
			Free  string `json:"free"`
		} `json:"balances"`
	}
	if err := c.get(ctx, "account", "/api/v3/account", url.Values{}, true, &payload); err != nil {
		return nil, err
	}
	out := make(map[string]float64, len(payload.Balances))
	for _, b := range payload.Balances {
		free, err := strconv.ParseFloat(b.Free, 64)
		if err != nil || free == 0 {
			continue
		}
		out[strings.ToUpper(b.Asset)] = free
	}
	return out, nil
}

type orderResponse struct {
	Symbol              string `json:"symbol"`
	OrderID             int64  `json:"orderId"`
	ClientOrderID       string `json:"clientOrderId"`
	TransactTime        int64  `json:"transactTime"`
	ExecutedQty         string `json:"executedQty"`
	CummulativeQuoteQty string `json:"cummulativeQuoteQty"`
	Status              string `json:"status"`
	Fills               []struct {
		Price string `json:"price"`
		Qty   string `json:"qty"`
	} `json:"fills"`
}

// PlaceMarketOrder submits a MARKET order and reports the volume-weighted fill.
func (c *Client) PlaceMarketOrder(ctx context.Context, order execution.Order) (execution.Fill, error) {
	params := url.Values{}
	params.Set("symbol", VenueSymbol(order.Symbol))
	params.Set("side", string(order.Side))
	params.Set("type", "MARKET")
	params.Set("quantity", decimal.NewFromFloat(order.Qty).String())
	params.Set("newOrderRespType", "FULL")
	if order.ClientOrderID != "" {
		params.Set("newClientOrderId", order.ClientOrderID)
	}

	var resp orderResponse
	if err := c.do(ctx, "order", http.MethodPost, "/api/v3/order", params, true, &resp); err != nil {
		return execution.Fill{}, err
	}

	qty, price := resp.average()
	if qty <= 0 || price <= 0 {
		return execution.Fill{}, transient("order", fmt.Errorf("order %d not filled (status %s)", resp.OrderID, resp.Status))
	}
	return execution.Fill{
		ID:            strconv.FormatInt(resp.OrderID, 10),
		ClientOrderID: resp.ClientOrderID,
		Symbol:        order.Symbol,
		Side:          order.Side,
		Qty:           qty,
		Price:         price,
		Ts:            time.UnixMilli(resp.TransactTime).UTC(),
	}, nil
}

func (r orderResponse) average() (qty, price float64) {
	var totalQty, totalQuote decimal.Decimal
	for _, f := range r.Fills {
		p, errP := decimal.NewFromString(f.Price)
		q, errQ := decimal.NewFromString(f.Qty)
		if errP != nil || errQ != nil {
			continue
		}
		totalQty = totalQty.Add(q)
		totalQuote = totalQuote.Add(p.Mul(q))
	}
	if totalQty.IsZero() {
		q, errQ := decimal.NewFromString(r.ExecutedQty)
		quote, errC := decimal.NewFromString(r.CummulativeQuoteQty)
		if errQ != nil || errC != nil || q.IsZero() {
			return 0, 0
		}
		totalQty, totalQuote = q, quote
	}
	return totalQty.InexactFloat64(), totalQuote.Div(totalQty).InexactFloat64()
}

func (c *Client) get(ctx context.Context, op, path string, params url.Values, signed bool, out any) error {
	return c.do(ctx, op, http.MethodGet, path, params, signed, out)
}

func (c *Client) do(ctx context.Context, op, method, path string, params url.Values, signed bool, out any) error {
	if signed && (c.apiKey == "" || c.apiSecret == "") {
		return fmt.Errorf("%s: %w: api key/secret required", op, ErrFatal)
	}

	payload := params.Encode()
	if signed {
		if payload != "" {
			payload += "&"
		}
		payload += "recvWindow=5000&timestamp=" + strconv.FormatInt(c.now().UnixMilli(), 10)
		payload += "&signature=" + sign(c.apiSecret, payload)
	}

	endpoint := c.baseURL + path
	var body io.Reader
	if method == http.MethodGet {
		if payload != "" {
			endpoint += "?" + payload
		}
	} else {
		body = strings.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", op, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if c.apiKey != "" {
		req.Header.Set("X-MBX-APIKEY", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return transient(op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		apiErr := &APIError{Status: resp.StatusCode}
		if json.Unmarshal(data, apiErr) != nil || apiErr.Msg == "" {
			apiErr.Msg = strings.TrimSpace(string(data))
		}
		c.log.Debug().Str("op", op).Int("status", resp.StatusCode).Int("code", apiErr.Code).Msg("binance request rejected")
		return classify(op, apiErr)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return transient(op, fmt.Errorf("decode: %w", err))
	}
	return nil
}
