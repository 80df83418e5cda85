package adapter

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/amishk599/jobscout/internal/model"
)

const jsearchPayload = `{
	"status": "OK",
	"data": [
		{
			"job_id": "abc123==",
			"job_title": "Jr Python Developer",
			"employer_name": "Globex",
			"job_publisher": "LinkedIn",
			"job_city": "Santiago",
			"job_country": "CL",
			"job_description": "Python and SQL.",
			"job_apply_link": "https://globex.example/apply/abc123",
			"job_is_remote": true,
			"job_posted_at_datetime_utc": "2024-06-02T08:00:00.000Z",
			"job_min_salary": 50000,
			"job_max_salary": null
		},
		{
			"job_id": "def456",
			"job_title": "Data Analyst",
			"employer_name": "Initech",
			"job_country": "CL",
			"job_description": "Modalidad hibrida en Santiago.",
			"job_apply_link": "https://initech.example/jobs/def456",
			"job_is_remote": null
		}
	]
}`

func TestJSearchFetch_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Header.Get("X-RapidAPI-Key") != "secret" {
			t.Errorf("missing RapidAPI key header")
		}
		if r.Header.Get("X-RapidAPI-Host") != "jsearch.p.rapidapi.com" {
			t.Errorf("missing RapidAPI host header")
		}
		q := r.URL.Query()
		if q.Get("query") != "python" || q.Get("country") != "cl" || q.Get("date_posted") != "week" {
			t.Errorf("unexpected query: %v", q)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(jsearchPayload))
	}))
	defer srv.Close()

	a := NewJSearchAdapter(JSearchOptions{APIKey: "secret", Country: "cl"}, testNormalizer(), testClient(srv))
	res := a.Fetch(context.Background(), model.SearchCriteria{Query: "python", DatePosted: "week"})
	if !res.OK() {
		t.Fatalf("unexpected error: %v", res.Err)
	}
	if len(res.Listings) != 2 {
		t.Fatalf("expected 2 listings, got %d", len(res.Listings))
	}

	l := res.Listings[0]
	if l.Source != model.SourceJSearch {
		t.Errorf("source = %q", l.Source)
	}
	if l.Seniority != "Junior" {
		t.Errorf("seniority = %q, want Junior", l.Seniority)
	}
	if l.Modality != "Remote" {
		t.Errorf("modality = %q, want Remote", l.Modality)
	}
	if len(l.Tags) != 2 || l.Tags[0] != "Remote" || l.Tags[1] != "LinkedIn" {
		t.Errorf("tags = %v, want [Remote LinkedIn]", l.Tags)
	}
	if l.Location != "Santiago, Cl" {
		t.Errorf("location = %q", l.Location)
	}
	if l.Salary == nil || *l.Salary != 50000 {
		t.Errorf("salary = %v, want 50000", l.Salary)
	}
	if l.PostedAt == nil || l.PostedAt.Month() != 6 {
		t.Errorf("posted = %v", l.PostedAt)
	}

	second := res.Listings[1]
	if second.Modality != "Hybrid" {
		t.Errorf("modality = %q, want Hybrid from description", second.Modality)
	}
	if second.Location != "Chile" {
		t.Errorf("location = %q, want Chile", second.Location)
	}
	if len(second.Tags) != 0 {
		t.Errorf("tags = %v, want none", second.Tags)
	}
}

func TestJSearchFetch_MissingCredentials(t *testing.T) {
	a := NewJSearchAdapter(JSearchOptions{}, testNormalizer(), http.DefaultClient)
	res := a.Fetch(context.Background(), model.SearchCriteria{Query: "python"})
	if !res.OK() || len(res.Listings) != 0 || res.Reason == "" {
		t.Errorf("expected an empty skipped result, got %+v", res)
	}
}

func TestJSearchFetch_MalformedJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{not valid json`))
	}))
	defer srv.Close()

	a := NewJSearchAdapter(JSearchOptions{APIKey: "secret"}, testNormalizer(), testClient(srv))
	res := a.Fetch(context.Background(), model.SearchCriteria{Query: "python"})
	if res.OK() {
		t.Fatal("expected error for malformed JSON, got nil")
	}
}
