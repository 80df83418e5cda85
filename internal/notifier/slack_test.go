package notifier

import (
	"context"
	"errors"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/amishk599/jobscout/internal/model"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func timePtr(t time.Time) *time.Time { return &t }

func sampleListing(title, company string) model.Listing {
	return model.Listing{
		ID:          title + "-" + company,
		Title:       title,
		CompanyName: company,
		Seniority:   "Senior",
		Modality:    "Remote",
		Location:    "Chile",
		URL:         "https://example.com/apply",
		PostedAt:    timePtr(time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)),
		Source:      model.SourceAdzuna,
		Tags:        []string{"Remote", "LinkedIn"},
	}
}

func newTestSlack(srv *httptest.Server, max int) *SlackNotifier {
	n := NewSlackNotifier(srv.URL, max, srv.Client(), discardLogger())
	n.pause = 0
	return n
}

// recordingServer stores every request body it receives.
func recordingServer(t *testing.T, status int) (*httptest.Server, func() [][]byte) {
	t.Helper()
	var (
		mu     sync.Mutex
		bodies [][]byte
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		mu.Lock()
		bodies = append(bodies, b)
		mu.Unlock()
		w.WriteHeader(status)
		w.Write([]byte(`{"ok":true}`))
	}))
	t.Cleanup(srv.Close)
	return srv, func() [][]byte {
		mu.Lock()
		defer mu.Unlock()
		return append([][]byte(nil), bodies...)
	}
}

func TestSlackNotifier_EmptySendsNoResults(t *testing.T) {
	srv, bodies := recordingServer(t, http.StatusOK)
	n := newTestSlack(srv, 10)

	if err := n.Notify(context.Background(), nil); err != nil {
		t.Fatalf("Notify(nil) = %v, want nil", err)
	}

	got := bodies()
	if len(got) != 1 {
		t.Fatalf("expected 1 HTTP call, got %d", len(got))
	}
	var payload slackPayload
	if err := json.Unmarshal(got[0], &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if payload.Text != NoResultsMessage {
		t.Errorf("text = %q, want %q", payload.Text, NoResultsMessage)
	}
}

func TestSlackNotifier_HeaderThenListings(t *testing.T) {
	srv, bodies := recordingServer(t, http.StatusOK)
	n := newTestSlack(srv, 10)

	listings := []model.Listing{
		sampleListing("Engineer 1", "A"),
		sampleListing("Engineer 2", "B"),
		sampleListing("Engineer 3", "C"),
	}
	if err := n.Notify(context.Background(), listings); err != nil {
		t.Fatalf("Notify() = %v, want nil", err)
	}

	got := bodies()
	if len(got) != 4 {
		t.Fatalf("expected 4 HTTP calls (header + 3), got %d", len(got))
	}
	var header slackPayload
	json.Unmarshal(got[0], &header)
	if header.Text != "🚀 Found 3 new jobs!" {
		t.Errorf("header = %q", header.Text)
	}
}

func TestSlackNotifier_CapsListings(t *testing.T) {
	srv, bodies := recordingServer(t, http.StatusOK)
	n := newTestSlack(srv, 2)

	var listings []model.Listing
	for i := 0; i < 5; i++ {
		listings = append(listings, sampleListing("Engineer", string(rune('A'+i))))
	}
	if err := n.Notify(context.Background(), listings); err != nil {
		t.Fatalf("Notify() = %v", err)
	}

	got := bodies()
	if len(got) != 3 {
		t.Fatalf("expected 3 HTTP calls (header + 2), got %d", len(got))
	}
	var header slackPayload
	json.Unmarshal(got[0], &header)
	if header.Text != "🚀 Found 5 new jobs!" {
		t.Errorf("header must announce the full count, got %q", header.Text)
	}
}

func TestSlackNotifier_AllFail(t *testing.T) {
	srv, _ := recordingServer(t, http.StatusInternalServerError)
	n := newTestSlack(srv, 10)

	err := n.Notify(context.Background(), []model.Listing{sampleListing("A", "X"), sampleListing("B", "Y")})
	if err == nil {
		t.Error("expected error when all messages fail, got nil")
	}
}

func TestSlackNotifier_PartialFailure(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := newTestSlack(srv, 10)
	if err := n.Notify(context.Background(), []model.Listing{sampleListing("Succeeds", "B")}); err != nil {
		t.Errorf("expected nil (partial success), got %v", err)
	}
}

func TestSlackNotifier_RateLimited(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := newTestSlack(srv, 10)
	if err := n.Notify(context.Background(), nil); err != nil {
		t.Fatalf("expected nil after retry, got %v", err)
	}
	if c := calls.Load(); c != 2 {
		t.Errorf("expected 2 HTTP calls (initial + retry), got %d", c)
	}
}

func TestSlackNotifier_NotConfigured(t *testing.T) {
	n := NewSlackNotifier("", 10, http.DefaultClient, discardLogger())
	err := n.Notify(context.Background(), []model.Listing{sampleListing("A", "B")})
	if !errors.Is(err, model.ErrNotConfigured) {
		t.Errorf("Notify() = %v, want ErrNotConfigured", err)
	}
}

func TestBuildPayload(t *testing.T) {
	l := sampleListing("SRE", "TestCo")
	l.Location = model.NotSpecified
	l.PostedAt = nil

	payload := buildPayload(l)
	if len(payload.Blocks) != 6 {
		t.Fatalf("expected 6 blocks, got %d", len(payload.Blocks))
	}
	if payload.Blocks[0].Type != "header" || payload.Blocks[0].Text.Text != "SRE" {
		t.Errorf("block[0] = %+v", payload.Blocks[0])
	}
	if loc := payload.Blocks[1].Fields[1].Text; loc != "*Location:*\nUnknown" {
		t.Errorf("location field = %q", loc)
	}
	if posted := payload.Blocks[2].Fields[2].Text; posted != "*Posted:*\nUnknown" {
		t.Errorf("posted field = %q", posted)
	}
	if tags := payload.Blocks[3].Text.Text; tags != "🏷️ Remote, LinkedIn" {
		t.Errorf("tags block = %q", tags)
	}
	if payload.Blocks[4].Type != "actions" || payload.Blocks[4].Elements[0].URL != l.URL {
		t.Errorf("block[4] not the apply button: %+v", payload.Blocks[4])
	}
	if payload.Blocks[5].Type != "divider" {
		t.Errorf("block[5] type = %q, want divider", payload.Blocks[5].Type)
	}
}
