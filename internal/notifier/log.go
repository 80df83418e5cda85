package notifier

import (
	"context"
	"log/slog"

	"github.com/amishk599/jobscout/internal/model"
)

// Ensure LogNotifier implements model.Notifier.
var _ model.Notifier = (*LogNotifier)(nil)

// LogNotifier writes digests to the given logger as structured messages.
type LogNotifier struct {
	maxPerRun int
	logger    *slog.Logger
}

// NewLogNotifier returns a notifier that logs each listing via slog.
func NewLogNotifier(maxPerRun int, logger *slog.Logger) *LogNotifier {
	return &LogNotifier{maxPerRun: maxPerRun, logger: logger}
}

// Notify logs the header and each listing up to the cap.
// Returns nil (stdout logging does not fail).
func (n *LogNotifier) Notify(_ context.Context, listings []model.Listing) error {
	if len(listings) == 0 {
		n.logger.Info(NoResultsMessage)
		return nil
	}

	n.logger.Info(headerText(len(listings)))
	for _, l := range capped(listings, n.maxPerRun) {
		args := []any{
			"source", l.Source,
			"company", l.CompanyName,
			"title", l.Title,
			"location", displayLocation(l),
			"url", l.URL,
		}
		if len(l.Tags) > 0 {
			args = append(args, "tags", joinTags(l.Tags))
		}
		if l.PostedAt != nil {
			args = append(args, "posted_at", *l.PostedAt)
		}
		n.logger.Info("new listing", args...)
	}
	return nil
}
