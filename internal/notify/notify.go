// Package notify delivers human-readable bot events on a best-effort basis.
package notify

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"kingbot-go/internal/metrics"
)

// DefaultTelegramURL is the public Bot API host.
const DefaultTelegramURL = "https://api.telegram.org"

// DefaultSendTimeout bounds one sendMessage call so a slow chat cannot stall a tick.
const DefaultSendTimeout = 3 * time.Second

// Notifier pushes a message somewhere a human will read it. Implementations swallow delivery errors.
type Notifier interface {
	Notify(ctx context.Context, text string)
}

// Telegram posts messages to a chat through the Bot API sendMessage method.
type Telegram struct {
	baseURL string
	token   string
	chatID  string
	timeout time.Duration
	http    *http.Client
	log     zerolog.Logger
}

// TelegramOption configures a Telegram notifier.
type TelegramOption func(*Telegram)

// WithTimeout overrides DefaultSendTimeout.
func WithTimeout(d time.Duration) TelegramOption {
	return func(t *Telegram) {
		if d > 0 {
			t.timeout = d
		}
	}
}

// NewTelegram builds a Telegram notifier. An empty baseURL selects the public API.
func NewTelegram(baseURL, token, chatID string, log zerolog.Logger, opts ...TelegramOption) *Telegram {
	if baseURL == "" {
		baseURL = DefaultTelegramURL
	}
	t := &Telegram{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		chatID:  chatID,
		timeout: DefaultSendTimeout,
		log:     log,
	}
	for _, opt := range opts {
		opt(t)
	}
	t.http = &http.Client{Timeout: t.timeout}
	return t
}

// Notify implements Notifier.
func (t *Telegram) Notify(ctx context.Context, text string) {
	if err := t.send(ctx, text); err != nil {
		metrics.NotificationsFailedTotal.Inc()
		t.log.Warn().Err(err).Msg("telegram notify failed")
	}
}

func (t *Telegram) send(ctx context.Context, text string) error {
	if t.token == "" || t.chatID == "" {
		return fmt.Errorf("telegram token or chat id missing")
	}
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	form := url.Values{"chat_id": {t.chatID}, "text": {text}}
	endpoint := t.baseURL + "/bot" + t.token + "/sendMessage"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.http.Do(req)
	if err != nil {
		// url.Error embeds the request URL, which carries the bot token.
		return fmt.Errorf("sendMessage: %s", redact(err.Error(), t.token))
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("sendMessage: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func redact(s, secret string) string {
	if secret == "" {
		return s
	}
	return strings.ReplaceAll(s, secret, "***")
}

// Log writes notifications to the structured logger. Used when no chat is configured.
type Log struct {
	log zerolog.Logger
}

// NewLog returns a logger-backed notifier.
func NewLog(log zerolog.Logger) *Log { return &Log{log: log} }

// Notify implements Notifier.
func (l *Log) Notify(_ context.Context, text string) {
	l.log.Info().Str("text", text).Msg("notify")
}

// Multi fans a message out to every notifier in order.
type Multi []Notifier

// Notify implements Notifier.
func (m Multi) Notify(ctx context.Context, text string) {
	for _, n := range m {
		if n != nil {
			n.Notify(ctx, text)
		}
	}
}
