// Package pipeline runs one aggregation cycle: fetch, validate, filter,
// save, notify and mark.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/amishk599/jobscout/internal/model"
)

// Query pairs a source with the criteria it is searched with.
type Query struct {
	Source   model.Source
	Criteria model.SearchCriteria
}

// Options tune a Pipeline's behaviour.
type Options struct {
	// NotifyWhenEmpty sends the notifier's "no results" message when a run
	// leaves nothing unnotified.
	NotifyWhenEmpty bool
}

// Summary counts what happened at each stage of a run.
type Summary struct {
	RunID          string
	Fetched        int
	Invalid        int
	Matched        int
	Saved          model.SaveResult
	Unnotified     int
	Notified       bool
	Marked         int
	Missing        int
	FailedSources  []string
	SkippedSources []string
}

// Pipeline owns one run over every configured source.
type Pipeline struct {
	queries  []Query
	filter   model.ListingFilter
	store    model.ListingStore
	notifier model.Notifier
	validate *validator.Validate
	opts     Options
	logger   *slog.Logger
}

// New creates a pipeline wired with all its dependencies.
func New(
	queries []Query,
	filter model.ListingFilter,
	store model.ListingStore,
	notifier model.Notifier,
	opts Options,
	logger *slog.Logger,
) *Pipeline {
	return &Pipeline{
		queries:  queries,
		filter:   filter,
		store:    store,
		notifier: notifier,
		validate: validator.New(),
		opts:     opts,
		logger:   logger,
	}
}

// Run executes one cycle. Source failures are logged and skipped; store
// failures abort the run. A notifier failure leaves listings unmarked so
// the next run retries them.
func (p *Pipeline) Run(ctx context.Context) (Summary, error) {
	sum := Summary{RunID: uuid.NewString()}
	logger := p.logger.With("run_id", sum.RunID)
	logger.Info("run started", "sources", len(p.queries))

	fetched := p.fetchAll(ctx, logger, &sum)
	sum.Fetched = len(fetched)
	if err := ctx.Err(); err != nil {
		return sum, fmt.Errorf("run %s: %w", sum.RunID, err)
	}

	valid := p.validListings(logger, fetched)
	sum.Invalid = len(fetched) - len(valid)

	var matched []model.Listing
	for _, l := range valid {
		if p.filter.Match(l) {
			matched = append(matched, l)
		}
	}
	sum.Matched = len(matched)

	saved, err := p.store.Save(ctx, matched)
	if err != nil {
		return sum, fmt.Errorf("run %s: saving listings: %w", sum.RunID, err)
	}
	sum.Saved = saved

	pending, err := p.store.Unnotified(ctx)
	if err != nil {
		return sum, fmt.Errorf("run %s: loading unnotified listings: %w", sum.RunID, err)
	}
	sum.Unnotified = len(pending)

	if len(pending) == 0 {
		logger.Info("no new listings to notify")
		if p.opts.NotifyWhenEmpty {
			if err := p.notifier.Notify(ctx, nil); err != nil && !errors.Is(err, model.ErrNotConfigured) {
				logger.Error("sending empty digest failed", "error", err)
			}
		}
		p.logSummary(logger, sum)
		return sum, nil
	}

	if err := p.notifier.Notify(ctx, pending); err != nil {
		if errors.Is(err, model.ErrNotConfigured) {
			logger.Warn("no notification destination, listings stay unnotified", "pending", len(pending))
			p.logSummary(logger, sum)
			return sum, nil
		}
		logger.Error("notification failed, listings stay unnotified", "pending", len(pending), "error", err)
		p.logSummary(logger, sum)
		return sum, nil
	}
	sum.Notified = true

	marked, err := p.store.MarkNotified(ctx, model.Keys(pending))
	if err != nil {
		return sum, fmt.Errorf("run %s: marking notified: %w", sum.RunID, err)
	}
	sum.Marked = marked.Marked
	sum.Missing = len(marked.Missing)
	for _, k := range marked.Missing {
		logger.Warn("notified listing missing from store", "key", k.String())
	}

	p.logSummary(logger, sum)
	return sum, nil
}

// fetchAll calls every source in order. Sources are never called
// concurrently.
func (p *Pipeline) fetchAll(ctx context.Context, logger *slog.Logger, sum *Summary) []model.Listing {
	var all []model.Listing
	for _, q := range p.queries {
		if ctx.Err() != nil {
			return all
		}

		name := q.Source.Name()
		res := safeFetch(ctx, q)
		switch {
		case !res.OK():
			logger.Error("source failed", "source", name, "error", res.Err)
			sum.FailedSources = append(sum.FailedSources, name)
		case res.Reason != "":
			logger.Warn("source skipped", "source", name, "reason", res.Reason)
			sum.SkippedSources = append(sum.SkippedSources, name)
		default:
			logger.Info("source fetched", "source", name, "query", q.Criteria.Query, "count", len(res.Listings))
			all = append(all, res.Listings...)
		}
	}
	return all
}

// safeFetch turns a panicking adapter into a failed result so one vendor
// cannot take the run down.
func safeFetch(ctx context.Context, q Query) (res model.FetchResult) {
	defer func() {
		if r := recover(); r != nil {
			res = model.Failed(q.Source.Name(), fmt.Errorf("panic: %v", r))
		}
	}()
	return q.Source.Fetch(ctx, q.Criteria)
}

func (p *Pipeline) validListings(logger *slog.Logger, listings []model.Listing) []model.Listing {
	valid := make([]model.Listing, 0, len(listings))
	for _, l := range listings {
		if err := p.validate.Struct(l); err != nil {
			var verrs validator.ValidationErrors
			fields := []string{}
			if errors.As(err, &verrs) {
				for _, fe := range verrs {
					fields = append(fields, fe.Field()+":"+fe.Tag())
				}
			}
			logger.Warn("dropping invalid listing", "key", l.Key().String(), "fields", fields)
			continue
		}
		valid = append(valid, l)
	}
	return valid
}

func (p *Pipeline) logSummary(logger *slog.Logger, sum Summary) {
	logger.Info("run finished",
		"fetched", sum.Fetched,
		"invalid", sum.Invalid,
		"matched", sum.Matched,
		"inserted", sum.Saved.Inserted,
		"skipped", sum.Saved.Skipped,
		"updated", sum.Saved.Updated,
		"unnotified", sum.Unnotified,
		"notified", sum.Notified,
		"marked", sum.Marked,
		"failed_sources", sum.FailedSources,
	)
}
