package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/amishk599/jobscout/internal/model"
)

func newTestStore(t *testing.T, policy model.ConflictPolicy) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := NewSQLiteStore(dbPath, policy)
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testListing(source, id string) model.Listing {
	return model.Listing{
		ID:          id,
		Title:       "Data Engineer",
		CompanyName: "Acme",
		Seniority:   "Senior",
		Modality:    "Remote",
		Location:    "Chile",
		Description: "Build pipelines",
		URL:         "https://example.com/jobs/" + id,
		Source:      source,
		Tags:        []string{"Remote"},
	}
}

func TestSQLiteSaveTwiceSkipsDuplicate(t *testing.T) {
	s := newTestStore(t, model.ConflictIgnore)
	ctx := context.Background()
	l := testListing(model.SourceAdzuna, "1")

	res, err := s.Save(ctx, []model.Listing{l})
	if err != nil {
		t.Fatalf("first Save: %v", err)
	}
	if res.Inserted != 1 {
		t.Errorf("first Save inserted %d, want 1", res.Inserted)
	}

	l.Title = "Changed"
	res, err = s.Save(ctx, []model.Listing{l})
	if err != nil {
		t.Fatalf("second Save: %v", err)
	}
	if res.Inserted != 0 || res.Skipped != 1 {
		t.Errorf("second Save = %+v, want 1 skipped", res)
	}

	got, err := s.Unnotified(ctx)
	if err != nil {
		t.Fatalf("Unnotified: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d listings, want 1", len(got))
	}
	if got[0].Title != "Data Engineer" {
		t.Errorf("title = %q, want the first write to win", got[0].Title)
	}
}

func TestSQLiteSameIDDifferentSource(t *testing.T) {
	s := newTestStore(t, model.ConflictIgnore)
	ctx := context.Background()

	res, err := s.Save(ctx, []model.Listing{
		testListing(model.SourceAdzuna, "42"),
		testListing(model.SourceGetOnBoard, "42"),
	})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if res.Inserted != 2 {
		t.Errorf("inserted %d, want 2", res.Inserted)
	}
}

func TestSQLiteMarkNotified(t *testing.T) {
	s := newTestStore(t, model.ConflictIgnore)
	ctx := context.Background()

	a := testListing(model.SourceAdzuna, "a")
	b := testListing(model.SourceAdzuna, "b")
	c := testListing(model.SourceJSearch, "c")
	if _, err := s.Save(ctx, []model.Listing{a, b, c}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	missing := model.ListingKey{Source: model.SourceAdzuna, ID: "nope"}
	res, err := s.MarkNotified(ctx, []model.ListingKey{a.Key(), c.Key(), missing})
	if err != nil {
		t.Fatalf("MarkNotified: %v", err)
	}
	if res.Marked != 2 {
		t.Errorf("marked %d, want 2", res.Marked)
	}
	if len(res.Missing) != 1 || res.Missing[0] != missing {
		t.Errorf("missing = %v, want [%v]", res.Missing, missing)
	}

	got, err := s.Unnotified(ctx)
	if err != nil {
		t.Fatalf("Unnotified: %v", err)
	}
	if len(got) != 1 || got[0].Key() != b.Key() {
		t.Errorf("unnotified = %v, want only %v", model.Keys(got), b.Key())
	}
}

func TestSQLiteUnnotifiedInsertionOrder(t *testing.T) {
	s := newTestStore(t, model.ConflictIgnore)
	ctx := context.Background()

	ids := []string{"z", "a", "m"}
	for _, id := range ids {
		if _, err := s.Save(ctx, []model.Listing{testListing(model.SourceAdzuna, id)}); err != nil {
			t.Fatalf("Save %s: %v", id, err)
		}
	}

	got, err := s.Unnotified(ctx)
	if err != nil {
		t.Fatalf("Unnotified: %v", err)
	}
	if len(got) != len(ids) {
		t.Fatalf("got %d listings, want %d", len(got), len(ids))
	}
	for i, id := range ids {
		if got[i].ID != id {
			t.Errorf("position %d = %q, want %q", i, got[i].ID, id)
		}
	}
}

func TestSQLiteRoundTripsOptionalFields(t *testing.T) {
	s := newTestStore(t, model.ConflictIgnore)
	ctx := context.Background()

	salary := 1500
	posted := time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC)
	l := testListing(model.SourceJSearch, "full")
	l.Salary = &salary
	l.PostedAt = &posted
	l.Tags = []string{"Remote", "LinkedIn"}

	bare := testListing(model.SourceJSearch, "bare")
	bare.Tags = nil

	if _, err := s.Save(ctx, []model.Listing{l, bare}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := s.Unnotified(ctx)
	if err != nil {
		t.Fatalf("Unnotified: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d listings, want 2", len(got))
	}

	full := got[0]
	if full.Salary == nil || *full.Salary != 1500 {
		t.Errorf("salary = %v, want 1500", full.Salary)
	}
	if full.PostedAt == nil || !full.PostedAt.Equal(posted) {
		t.Errorf("posted = %v, want %v", full.PostedAt, posted)
	}
	if len(full.Tags) != 2 || full.Tags[1] != "LinkedIn" {
		t.Errorf("tags = %v", full.Tags)
	}
	if full.CreatedAt.IsZero() {
		t.Error("expected CreatedAt to be set on insert")
	}
	if full.IsNotified {
		t.Error("expected new listing to be unnotified")
	}

	if got[1].Salary != nil || got[1].PostedAt != nil || len(got[1].Tags) != 0 {
		t.Errorf("bare listing gained fields: %+v", got[1])
	}
}

func TestSQLiteOverwriteKeepsNotifiedFlag(t *testing.T) {
	s := newTestStore(t, model.ConflictOverwrite)
	ctx := context.Background()
	l := testListing(model.SourceAdzuna, "1")

	if _, err := s.Save(ctx, []model.Listing{l}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := s.MarkNotified(ctx, []model.ListingKey{l.Key()}); err != nil {
		t.Fatalf("MarkNotified: %v", err)
	}

	l.Title = "Staff Data Engineer"
	res, err := s.Save(ctx, []model.Listing{l})
	if err != nil {
		t.Fatalf("overwrite Save: %v", err)
	}
	if res.Updated != 1 {
		t.Errorf("updated %d, want 1", res.Updated)
	}

	unnotified, err := s.Unnotified(ctx)
	if err != nil {
		t.Fatalf("Unnotified: %v", err)
	}
	if len(unnotified) != 0 {
		t.Errorf("overwrite reset the notified flag: %v", model.Keys(unnotified))
	}

	var title string
	if err := s.db.QueryRow("SELECT title FROM listings WHERE source = ? AND id = ?", l.Source, l.ID).Scan(&title); err != nil {
		t.Fatalf("reading title: %v", err)
	}
	if title != "Staff Data Engineer" {
		t.Errorf("title = %q, want overwritten value", title)
	}
}

func TestSQLiteMergeFillsEmptyColumns(t *testing.T) {
	s := newTestStore(t, model.ConflictMerge)
	ctx := context.Background()

	first := testListing(model.SourceGetOnBoard, "1")
	first.Seniority = model.NotSpecified
	first.Description = ""
	if _, err := s.Save(ctx, []model.Listing{first}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	salary := 3000
	second := testListing(model.SourceGetOnBoard, "1")
	second.Title = "Ignored Title"
	second.Seniority = "Junior"
	second.Description = "Filled later"
	second.Salary = &salary

	res, err := s.Save(ctx, []model.Listing{second})
	if err != nil {
		t.Fatalf("merge Save: %v", err)
	}
	if res.Updated != 1 {
		t.Errorf("updated %d, want 1", res.Updated)
	}

	got, err := s.Unnotified(ctx)
	if err != nil {
		t.Fatalf("Unnotified: %v", err)
	}
	m := got[0]
	if m.Title != "Data Engineer" {
		t.Errorf("title = %q, merge must not replace filled columns", m.Title)
	}
	if m.Seniority != "Junior" || m.Description != "Filled later" {
		t.Errorf("merge did not fill empty columns: %+v", m)
	}
	if m.Salary == nil || *m.Salary != 3000 {
		t.Errorf("salary = %v, want 3000", m.Salary)
	}

	// Same payload again has nothing left to fill.
	res, err = s.Save(ctx, []model.Listing{second})
	if err != nil {
		t.Fatalf("repeat merge Save: %v", err)
	}
	if res.Skipped != 1 {
		t.Errorf("repeat merge = %+v, want 1 skipped", res)
	}
}

func TestSQLiteSaveRollsBackBatch(t *testing.T) {
	s := newTestStore(t, model.ConflictIgnore)
	ctx := context.Background()

	_, err := s.db.Exec(`CREATE TRIGGER reject_boom BEFORE INSERT ON listings
		WHEN NEW.title = 'boom'
		BEGIN SELECT RAISE(ABORT, 'boom'); END`)
	if err != nil {
		t.Fatalf("creating trigger: %v", err)
	}

	bad := testListing(model.SourceAdzuna, "2")
	bad.Title = "boom"
	_, err = s.Save(ctx, []model.Listing{testListing(model.SourceAdzuna, "1"), bad})
	if err == nil {
		t.Fatal("expected Save to fail")
	}

	got, err := s.Unnotified(ctx)
	if err != nil {
		t.Fatalf("Unnotified: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("batch was partially committed: %v", model.Keys(got))
	}
}

func TestSQLiteReopenKeepsState(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "persist.db")
	ctx := context.Background()

	s, err := NewSQLiteStore(dbPath, model.ConflictIgnore)
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	l := testListing(model.SourceAdzuna, "1")
	if _, err := s.Save(ctx, []model.Listing{l}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := s.MarkNotified(ctx, []model.ListingKey{l.Key()}); err != nil {
		t.Fatalf("MarkNotified: %v", err)
	}
	s.Close()

	s, err = NewSQLiteStore(dbPath, model.ConflictIgnore)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()

	res, err := s.Save(ctx, []model.Listing{l})
	if err != nil {
		t.Fatalf("Save after reopen: %v", err)
	}
	if res.Skipped != 1 {
		t.Errorf("Save after reopen = %+v, want 1 skipped", res)
	}
	got, err := s.Unnotified(ctx)
	if err != nil {
		t.Fatalf("Unnotified: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected nothing unnotified after reopen, got %v", model.Keys(got))
	}
}
