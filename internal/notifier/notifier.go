// Package notifier delivers listing digests to Telegram, Slack or the log.
package notifier

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/amishk599/jobscout/internal/model"
)

const (
	// DefaultMaxPerRun caps the per-listing messages in one digest.
	DefaultMaxPerRun = 10

	// NoResultsMessage is sent when a run produced nothing to report.
	NoResultsMessage = "No new jobs found matching your criteria."

	unknownLocation = "Unknown"
)

// headerText announces the total, including listings past the cap.
func headerText(total int) string {
	return fmt.Sprintf("🚀 Found %d new jobs!", total)
}

// capped returns at most max listings. max <= 0 means DefaultMaxPerRun.
func capped(listings []model.Listing, max int) []model.Listing {
	if max <= 0 {
		max = DefaultMaxPerRun
	}
	if len(listings) > max {
		return listings[:max]
	}
	return listings
}

func displayLocation(l model.Listing) string {
	if l.Location == "" || l.Location == model.NotSpecified {
		return unknownLocation
	}
	return l.Location
}

// deliver sends each message in order, pausing between them. Failures are
// logged and counted; it returns an error only when every message failed.
func deliver(ctx context.Context, logger *slog.Logger, channel string, messages []string, pause time.Duration, send func(context.Context, string) error) error {
	if len(messages) == 0 {
		return nil
	}

	failures := 0
	for i, msg := range messages {
		if i > 0 && pause > 0 {
			select {
			case <-ctx.Done():
				return fmt.Errorf("%s delivery cancelled: %w", channel, ctx.Err())
			case <-time.After(pause):
			}
		}

		if err := send(ctx, msg); err != nil {
			logger.Error("notification failed", "channel", channel, "message", i, "error", err)
			failures++
		}
	}

	if failures == len(messages) {
		return fmt.Errorf("all %d %s messages failed", failures, channel)
	}
	logger.Info("notifications complete", "channel", channel, "sent", len(messages)-failures, "failed", failures)
	return nil
}

// SendTestMessage sends one synthetic listing to verify the integration works.
func SendTestMessage(ctx context.Context, n model.Notifier) error {
	now := time.Now().UTC()
	salary := 1500
	test := model.Listing{
		ID:          "test-" + uuid.NewString(),
		Title:       "Test Notification: Integration Verified",
		CompanyName: "jobscout",
		Seniority:   "Senior",
		Modality:    "Remote",
		Location:    "Remote",
		URL:         "https://github.com/amishk599/jobscout",
		Salary:      &salary,
		PostedAt:    &now,
		Source:      "test",
		Tags:        []string{"Remote", "test"},
		CreatedAt:   now,
	}
	return n.Notify(ctx, []model.Listing{test})
}

func joinTags(tags []string) string {
	return strings.Join(tags, ", ")
}
