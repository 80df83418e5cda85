package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amishk599/jobscout/internal/filter"
	"github.com/amishk599/jobscout/internal/model"
	"github.com/amishk599/jobscout/internal/notifier"
	"github.com/amishk599/jobscout/internal/store"
)

// --- Fakes ---

// fakeSource returns a canned result and counts calls.
type fakeSource struct {
	name   string
	result model.FetchResult
	panics bool
	calls  int
}

func (s *fakeSource) Name() string { return s.name }

func (s *fakeSource) Fetch(_ context.Context, _ model.SearchCriteria) model.FetchResult {
	s.calls++
	if s.panics {
		panic("unexpected payload")
	}
	return s.result
}

// recordingNotifier records each digest it was asked to send.
type recordingNotifier struct {
	digests [][]model.Listing
	err     error
}

func (n *recordingNotifier) Notify(_ context.Context, listings []model.Listing) error {
	n.digests = append(n.digests, listings)
	return n.err
}

// failingStore wraps a real store and fails the chosen operation.
type failingStore struct {
	model.ListingStore
	failSave bool
	failMark bool
}

func (s *failingStore) Save(ctx context.Context, l []model.Listing) (model.SaveResult, error) {
	if s.failSave {
		return model.SaveResult{}, errors.New("disk full")
	}
	return s.ListingStore.Save(ctx, l)
}

func (s *failingStore) MarkNotified(ctx context.Context, k []model.ListingKey) (model.MarkResult, error) {
	if s.failMark {
		return model.MarkResult{}, errors.New("disk full")
	}
	return s.ListingStore.MarkNotified(ctx, k)
}

// --- Helpers ---

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func listing(source, id, title string) model.Listing {
	return model.Listing{
		ID:          id,
		Title:       title,
		CompanyName: "Acme",
		Seniority:   "Senior",
		Modality:    "Remote",
		Location:    "Chile",
		URL:         "https://example.com/" + id,
		Source:      source,
	}
}

func source(name string, listings ...model.Listing) *fakeSource {
	return &fakeSource{name: name, result: model.FetchResult{Source: name, Listings: listings}}
}

func queries(sources ...model.Source) []Query {
	out := make([]Query, len(sources))
	for i, s := range sources {
		out[i] = Query{Source: s, Criteria: model.SearchCriteria{Query: "data engineer"}}
	}
	return out
}

func dataFilter() *filter.KeywordFilter {
	return filter.NewKeywordFilter([]string{"data"}, []string{"sales"}, nil)
}

// --- Tests ---

func TestRun_FetchFilterSaveNotifyMark(t *testing.T) {
	st := store.NewMemoryStore(model.ConflictIgnore)
	rec := &recordingNotifier{}
	adzuna := source(model.SourceAdzuna,
		listing(model.SourceAdzuna, "1", "Data Engineer"),
		listing(model.SourceAdzuna, "2", "Sales Executive"),
	)
	gob := source(model.SourceGetOnBoard, listing(model.SourceGetOnBoard, "1", "Data Analyst"))

	p := New(queries(adzuna, gob), dataFilter(), st, rec, Options{}, discardLogger())
	sum, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.NotEmpty(t, sum.RunID)
	assert.Equal(t, 3, sum.Fetched)
	assert.Equal(t, 2, sum.Matched)
	assert.Equal(t, 2, sum.Saved.Inserted)
	assert.True(t, sum.Notified)
	assert.Equal(t, 2, sum.Marked)

	require.Len(t, rec.digests, 1)
	assert.Equal(t, []string{"Data Engineer", "Data Analyst"}, titles(rec.digests[0]))

	pending, err := st.Unnotified(context.Background())
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestRun_SecondRunDoesNotRenotify(t *testing.T) {
	st := store.NewMemoryStore(model.ConflictIgnore)
	rec := &recordingNotifier{}
	src := source(model.SourceAdzuna, listing(model.SourceAdzuna, "1", "Data Engineer"))

	p := New(queries(src), dataFilter(), st, rec, Options{}, discardLogger())
	_, err := p.Run(context.Background())
	require.NoError(t, err)

	sum, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Saved.Skipped)
	assert.Equal(t, 0, sum.Unnotified)
	assert.False(t, sum.Notified)
	assert.Len(t, rec.digests, 1, "no digest expected when nothing is new")
}

func TestRun_NotifyWhenEmpty(t *testing.T) {
	rec := &recordingNotifier{}
	p := New(queries(source(model.SourceAdzuna)), dataFilter(), store.NewMemoryStore(model.ConflictIgnore),
		rec, Options{NotifyWhenEmpty: true}, discardLogger())

	_, err := p.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, rec.digests, 1)
	assert.Empty(t, rec.digests[0])
}

func TestRun_FailedSourceDoesNotStopOthers(t *testing.T) {
	broken := &fakeSource{name: model.SourceJSearch, result: model.Failed(model.SourceJSearch, errors.New("timeout"))}
	panicky := &fakeSource{name: "Panicky", panics: true}
	skipped := &fakeSource{name: model.SourceAdzuna, result: model.Skipped(model.SourceAdzuna, "missing credentials")}
	healthy := source(model.SourceGetOnBoard, listing(model.SourceGetOnBoard, "9", "Data Engineer"))

	rec := &recordingNotifier{}
	p := New(queries(broken, panicky, skipped, healthy), dataFilter(), store.NewMemoryStore(model.ConflictIgnore),
		rec, Options{}, discardLogger())

	sum, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{model.SourceJSearch, "Panicky"}, sum.FailedSources)
	assert.Equal(t, []string{model.SourceAdzuna}, sum.SkippedSources)
	assert.Equal(t, 1, sum.Marked)
	assert.Equal(t, 1, healthy.calls)
}

func TestRun_DropsInvalidListings(t *testing.T) {
	bad := listing(model.SourceAdzuna, "2", "Data Engineer")
	bad.URL = "not a url"
	noTitle := listing(model.SourceAdzuna, "3", "")

	rec := &recordingNotifier{}
	src := source(model.SourceAdzuna, listing(model.SourceAdzuna, "1", "Data Engineer"), bad, noTitle)
	p := New(queries(src), dataFilter(), store.NewMemoryStore(model.ConflictIgnore), rec, Options{}, discardLogger())

	sum, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Invalid)
	assert.Equal(t, 1, sum.Saved.Inserted)
}

func TestRun_NotifierFailureLeavesListingsUnmarked(t *testing.T) {
	st := store.NewMemoryStore(model.ConflictIgnore)
	rec := &recordingNotifier{err: errors.New("all 2 telegram messages failed")}
	src := source(model.SourceAdzuna, listing(model.SourceAdzuna, "1", "Data Engineer"))

	p := New(queries(src), dataFilter(), st, rec, Options{}, discardLogger())
	sum, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.False(t, sum.Notified)
	assert.Zero(t, sum.Marked)

	pending, err := st.Unnotified(context.Background())
	require.NoError(t, err)
	assert.Len(t, pending, 1, "listing must be retried next run")
}

func TestRun_UnconfiguredNotifierLeavesListingsUnmarked(t *testing.T) {
	st := store.NewMemoryStore(model.ConflictIgnore)
	telegram := notifier.NewTelegramNotifier("", "", 10, nil, discardLogger())
	src := source(model.SourceJSearch, listing(model.SourceJSearch, "j1", "Data Engineer"))

	p := New(queries(src), dataFilter(), st, telegram, Options{NotifyWhenEmpty: true}, discardLogger())
	sum, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.False(t, sum.Notified)
	assert.Zero(t, sum.Marked)

	pending, err := st.Unnotified(context.Background())
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "j1", pending[0].ID)
}

func TestRun_SaveFailureIsFatal(t *testing.T) {
	st := &failingStore{ListingStore: store.NewMemoryStore(model.ConflictIgnore), failSave: true}
	rec := &recordingNotifier{}
	src := source(model.SourceAdzuna, listing(model.SourceAdzuna, "1", "Data Engineer"))

	p := New(queries(src), dataFilter(), st, rec, Options{}, discardLogger())
	_, err := p.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "saving listings")
	assert.Empty(t, rec.digests)
}

func TestRun_MarkFailureIsFatal(t *testing.T) {
	st := &failingStore{ListingStore: store.NewMemoryStore(model.ConflictIgnore), failMark: true}
	src := source(model.SourceAdzuna, listing(model.SourceAdzuna, "1", "Data Engineer"))

	p := New(queries(src), dataFilter(), st, &recordingNotifier{}, Options{}, discardLogger())
	sum, err := p.Run(context.Background())
	require.Error(t, err)
	assert.True(t, sum.Notified)
}

func TestRun_CancelledContext(t *testing.T) {
	src := source(model.SourceAdzuna, listing(model.SourceAdzuna, "1", "Data Engineer"))
	p := New(queries(src), dataFilter(), store.NewMemoryStore(model.ConflictIgnore), &recordingNotifier{}, Options{}, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := p.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, src.calls)
}

func titles(listings []model.Listing) []string {
	out := make([]string, len(listings))
	for i, l := range listings {
		out[i] = l.Title
	}
	return out
}
