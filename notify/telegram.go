package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Notifier delivers human-readable alerts. Delivery is fire-and-forget:
// failures are logged, never propagated or retried.
type Notifier interface {
	Notify(ctx context.Context, message string)
}

// markdownEscapes are the characters Telegram's MarkdownV2 mode requires
// to be backslash-escaped.
const markdownEscapes = "_*[]()~`>#+-=|{}.!"

// EscapeMarkdown escapes a message for Telegram MarkdownV2 delivery.
func EscapeMarkdown(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if strings.ContainsRune(markdownEscapes, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Telegram sends alerts through the Bot API sendMessage endpoint.
type Telegram struct {
	httpClient *http.Client
	baseURL    string
	token      string
	chatID     string
	logger     *zap.Logger
}

// Option configures a Telegram notifier.
type Option func(*Telegram)

// WithBaseURL overrides the Bot API host, used in tests.
func WithBaseURL(url string) Option {
	return func(t *Telegram) { t.baseURL = url }
}

func NewTelegram(token, chatID string, logger *zap.Logger, opts ...Option) *Telegram {
	t := &Telegram{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    "https://api.telegram.org",
		token:      token,
		chatID:     chatID,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

type sendMessageRequest struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

// Notify delivers one message. Errors are swallowed after logging so a
// flaky notification channel can never stall the trading loop.
func (t *Telegram) Notify(ctx context.Context, message string) {
	payload, err := json.Marshal(sendMessageRequest{
		ChatID:    t.chatID,
		Text:      EscapeMarkdown(message),
		ParseMode: "MarkdownV2",
	})
	if err != nil {
		t.logger.Error("Failed to encode telegram payload", zap.Error(err))
		return
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", t.baseURL, t.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		t.logger.Error("Failed to build telegram request", zap.Error(err))
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		t.logger.Error("Failed to send telegram alert", zap.Error(err))
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		t.logger.Error("Telegram alert rejected",
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", body))
	}
}

// Nop discards all notifications. Used by tests and the simulate command.
type Nop struct{}

func (Nop) Notify(context.Context, string) {}
