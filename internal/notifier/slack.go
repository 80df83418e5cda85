package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/amishk599/jobscout/internal/model"
)

// Ensure SlackNotifier implements model.Notifier.
var _ model.Notifier = (*SlackNotifier)(nil)

// SlackNotifier sends listing digests to a Slack channel via Incoming Webhooks.
type SlackNotifier struct {
	webhookURL string
	maxPerRun  int
	pause      time.Duration
	httpClient *http.Client
	logger     *slog.Logger
}

// NewSlackNotifier returns a notifier that posts a header and one Block Kit
// message per listing to Slack.
func NewSlackNotifier(webhookURL string, maxPerRun int, httpClient *http.Client, logger *slog.Logger) *SlackNotifier {
	return &SlackNotifier{
		webhookURL: webhookURL,
		maxPerRun:  maxPerRun,
		pause:      500 * time.Millisecond,
		httpClient: httpClient,
		logger:     logger,
	}
}

// Notify sends the digest. An empty slice sends NoResultsMessage.
// Returns an error only if ALL messages fail. Individual failures are logged.
func (s *SlackNotifier) Notify(ctx context.Context, listings []model.Listing) error {
	if s.webhookURL == "" {
		s.logger.Warn("slack webhook not configured, skipping notification", "listings", len(listings))
		return fmt.Errorf("slack: %w", model.ErrNotConfigured)
	}

	var payloads []slackPayload
	if len(listings) == 0 {
		payloads = append(payloads, textPayload(NoResultsMessage))
	} else {
		payloads = append(payloads, textPayload(headerText(len(listings))))
		for _, l := range capped(listings, s.maxPerRun) {
			payloads = append(payloads, buildPayload(l))
		}
	}

	messages := make([]string, 0, len(payloads))
	for _, p := range payloads {
		body, err := json.Marshal(p)
		if err != nil {
			return fmt.Errorf("marshal slack payload: %w", err)
		}
		messages = append(messages, string(body))
	}
	return deliver(ctx, s.logger, "slack", messages, s.pause, s.sendMessage)
}

func (s *SlackNotifier) sendMessage(ctx context.Context, body string) error {
	resp, err := s.post(ctx, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		secs, _ := strconv.Atoi(resp.Header.Get("Retry-After"))
		if secs <= 0 {
			secs = 1
		}
		s.logger.Warn("slack rate limited, retrying", "retry_after_secs", secs)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(secs) * time.Second):
		}

		resp2, err := s.post(ctx, body)
		if err != nil {
			return fmt.Errorf("retry: %w", err)
		}
		defer resp2.Body.Close()

		if resp2.StatusCode != http.StatusOK {
			return fmt.Errorf("slack returned %d on retry", resp2.StatusCode)
		}
		return nil
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("slack returned %d", resp.StatusCode)
	}
	return nil
}

func (s *SlackNotifier) post(ctx context.Context, body string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build slack request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("post to slack: %w", err)
	}
	return resp, nil
}

// Block Kit payload types.

type slackPayload struct {
	Text   string       `json:"text,omitempty"`
	Blocks []slackBlock `json:"blocks,omitempty"`
}

type slackBlock struct {
	Type     string         `json:"type"`
	Text     *slackText     `json:"text,omitempty"`
	Fields   []slackText    `json:"fields,omitempty"`
	Elements []slackElement `json:"elements,omitempty"`
}

type slackText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type slackElement struct {
	Type  string    `json:"type"`
	Text  slackText `json:"text"`
	URL   string    `json:"url"`
	Style string    `json:"style"`
}

func textPayload(text string) slackPayload {
	return slackPayload{Text: text}
}

func buildPayload(l model.Listing) slackPayload {
	postedText := "Unknown"
	if l.PostedAt != nil {
		postedText = l.PostedAt.Format("2006-01-02")
	}

	blocks := []slackBlock{
		{
			Type: "header",
			Text: &slackText{Type: "plain_text", Text: l.Title},
		},
		{
			Type: "section",
			Fields: []slackText{
				{Type: "mrkdwn", Text: "*Company:*\n" + l.CompanyName},
				{Type: "mrkdwn", Text: "*Location:*\n" + displayLocation(l)},
			},
		},
		{
			Type: "section",
			Fields: []slackText{
				{Type: "mrkdwn", Text: "*Seniority:*\n" + l.Seniority},
				{Type: "mrkdwn", Text: "*Modality:*\n" + l.Modality},
				{Type: "mrkdwn", Text: "*Posted:*\n" + postedText},
				{Type: "mrkdwn", Text: "*Source:*\n" + l.Source},
			},
		},
	}

	if len(l.Tags) > 0 {
		blocks = append(blocks, slackBlock{
			Type: "section",
			Text: &slackText{Type: "mrkdwn", Text: "🏷️ " + joinTags(l.Tags)},
		})
	}

	blocks = append(blocks,
		slackBlock{
			Type: "actions",
			Elements: []slackElement{
				{
					Type:  "button",
					Text:  slackText{Type: "plain_text", Text: "Apply Here"},
					URL:   l.URL,
					Style: "primary",
				},
			},
		},
		slackBlock{Type: "divider"},
	)

	return slackPayload{Text: l.Title, Blocks: blocks}
}
