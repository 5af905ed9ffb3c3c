package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
)

// DefaultTelegramBaseURL is the public Bot API endpoint.
const DefaultTelegramBaseURL = "https://api.telegram.org"

// TelegramNotifier sends watchlist reports via the Telegram Bot API.
type TelegramNotifier struct {
	BotToken string
	ChatID   string
	BaseURL  string
	Client   *http.Client

	// RetryInterval is the first backoff wait of SendWithRetry.
	RetryInterval time.Duration

	log logrus.FieldLogger
}

// NewTelegramNotifier creates a notifier with optional proxy support.
func NewTelegramNotifier(botToken, chatID, proxyURL string, log logrus.FieldLogger) *TelegramNotifier {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &TelegramNotifier{
		BotToken: botToken,
		ChatID:   chatID,
		BaseURL:  DefaultTelegramBaseURL,
		Client: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
		},
		RetryInterval: time.Second,
		log:           log,
	}
}

func (t *TelegramNotifier) endpoint(method string) string {
	return fmt.Sprintf("%s/bot%s/%s", t.BaseURL, t.BotToken, method)
}

// Send posts an HTML message to the configured chat.
func (t *TelegramNotifier) Send(ctx context.Context, text string) error {
	payload := map[string]string{
		"chat_id":    t.ChatID,
		"text":       text,
		"parse_mode": "HTML",
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint("sendMessage"), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.Client.Do(req)
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("telegram API error: status %d, body: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

// SendWithRetry sends a message with exponential backoff, at most
// maxRetries+1 attempts.
func (t *TelegramNotifier) SendWithRetry(ctx context.Context, text string, maxRetries int) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = t.RetryInterval
	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(maxRetries)), ctx)

	attempt := 0
	err := backoff.RetryNotify(func() error {
		attempt++
		return t.Send(ctx, text)
	}, policy, func(err error, wait time.Duration) {
		t.log.WithFields(logrus.Fields{
			"attempt": attempt,
			"of":      maxRetries + 1,
			"wait":    wait,
		}).WithError(err).Warn("telegram send failed, retrying")
	})
	if err != nil {
		return fmt.Errorf("telegram send after %d attempt(s): %w", attempt, err)
	}
	return nil
}
