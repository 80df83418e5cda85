package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/amishk599/jobscout/internal/model"
)

// Ensure TelegramNotifier implements model.Notifier.
var _ model.Notifier = (*TelegramNotifier)(nil)

const telegramBaseURL = "https://api.telegram.org"

// TelegramNotifier posts digests to a Telegram chat through the Bot API.
type TelegramNotifier struct {
	botToken   string
	chatID     string
	maxPerRun  int
	baseURL    string
	pause      time.Duration
	httpClient *http.Client
	logger     *slog.Logger
}

// NewTelegramNotifier returns a notifier that sends one message per listing
// after a header with the total count.
func NewTelegramNotifier(botToken, chatID string, maxPerRun int, httpClient *http.Client, logger *slog.Logger) *TelegramNotifier {
	return &TelegramNotifier{
		botToken:   botToken,
		chatID:     chatID,
		maxPerRun:  maxPerRun,
		baseURL:    telegramBaseURL,
		pause:      time.Second,
		httpClient: httpClient,
		logger:     logger,
	}
}

// Notify sends the digest. An empty slice sends NoResultsMessage. Without a
// bot token and chat id it sends nothing and returns model.ErrNotConfigured.
func (n *TelegramNotifier) Notify(ctx context.Context, listings []model.Listing) error {
	if model.MissingCredential(n.botToken, n.chatID) {
		n.logger.Warn("telegram not configured, skipping notification", "listings", len(listings))
		return fmt.Errorf("telegram: %w", model.ErrNotConfigured)
	}

	var messages []string
	if len(listings) == 0 {
		messages = []string{NoResultsMessage}
	} else {
		messages = append(messages, headerText(len(listings)))
		for _, l := range capped(listings, n.maxPerRun) {
			messages = append(messages, telegramMessage(l))
		}
	}
	return deliver(ctx, n.logger, "telegram", messages, n.pause, n.send)
}

func telegramMessage(l model.Listing) string {
	var b strings.Builder
	fmt.Fprintf(&b, "*%s*\n", boldText(l.Title))
	fmt.Fprintf(&b, "🏢 %s\n", escapeMarkdown(l.CompanyName))
	fmt.Fprintf(&b, "📍 %s\n", escapeMarkdown(displayLocation(l)))
	fmt.Fprintf(&b, "🔗 [Apply Here](%s)\n", l.URL)
	fmt.Fprintf(&b, "🏷️ %s", escapeMarkdown(joinTags(l.Tags)))
	return b.String()
}

var markdownEscaper = strings.NewReplacer("_", `\_`, "*", `\*`, "`", "\\`", "[", `\[`)

// boldText prepares text for a *bold* entity. Legacy Markdown reads entity
// content literally until the closing '*', so escapes would show up as
// backslashes and only '*' itself has to go.
func boldText(s string) string {
	return strings.ReplaceAll(s, "*", "")
}

// escapeMarkdown protects free text from Telegram's legacy Markdown parser,
// which rejects the whole message on an unbalanced entity.
func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}

type telegramRequest struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

type telegramResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

func (n *TelegramNotifier) send(ctx context.Context, text string) error {
	body, err := json.Marshal(telegramRequest{ChatID: n.chatID, Text: text, ParseMode: "Markdown"})
	if err != nil {
		return fmt.Errorf("marshal telegram payload: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", n.baseURL, n.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		// The URL embeds the bot token; keep it out of logs.
		return fmt.Errorf("post to telegram: %w", redactToken(err, n.botToken))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var tr telegramResponse
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		if json.Unmarshal(raw, &tr) == nil && tr.Description != "" {
			return fmt.Errorf("telegram returned %d: %s", resp.StatusCode, tr.Description)
		}
		return fmt.Errorf("telegram returned %d", resp.StatusCode)
	}
	return nil
}

type redactedError struct {
	msg string
	err error
}

func (e *redactedError) Error() string { return e.msg }
func (e *redactedError) Unwrap() error { return e.err }

func redactToken(err error, token string) error {
	if token == "" {
		return err
	}
	return &redactedError{msg: strings.ReplaceAll(err.Error(), token, "<redacted>"), err: err}
}
