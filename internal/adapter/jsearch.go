package adapter

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/amishk599/jobscout/internal/model"
	"github.com/amishk599/jobscout/internal/normalize"
)

const (
	jsearchBaseURL = "https://jsearch.p.rapidapi.com"
	jsearchHost    = "jsearch.p.rapidapi.com"
)

type jsearchResponse struct {
	Status string       `json:"status"`
	Data   []jsearchJob `json:"data"`
}

type jsearchJob struct {
	ID           flexString `json:"job_id"`
	Title        string     `json:"job_title"`
	EmployerName string     `json:"employer_name"`
	Publisher    string     `json:"job_publisher"`
	City         string     `json:"job_city"`
	Country      string     `json:"job_country"`
	Description  string     `json:"job_description"`
	ApplyLink    string     `json:"job_apply_link"`
	IsRemote     *bool      `json:"job_is_remote"`
	PostedAtUTC  string     `json:"job_posted_at_datetime_utc"`
	MinSalary    flexFloat  `json:"job_min_salary"`
	MaxSalary    flexFloat  `json:"job_max_salary"`
}

// JSearchOptions configures the JSearch (RapidAPI) search.
type JSearchOptions struct {
	APIKey   string
	Country  string // ISO code; falls back to the criteria location
	NumPages int
}

// JSearchAdapter fetches listings from the JSearch API on RapidAPI.
type JSearchAdapter struct {
	opts       JSearchOptions
	normalizer *normalize.Normalizer
	client     *http.Client
}

// NewJSearchAdapter creates a new adapter for the JSearch API.
func NewJSearchAdapter(opts JSearchOptions, normalizer *normalize.Normalizer, client *http.Client) *JSearchAdapter {
	if opts.NumPages <= 0 {
		opts.NumPages = 1
	}
	return &JSearchAdapter{opts: opts, normalizer: normalizer, client: client}
}

// Name returns the vendor name.
func (a *JSearchAdapter) Name() string { return model.SourceJSearch }

// Fetch runs one search request; JSearch paginates server side via num_pages.
func (a *JSearchAdapter) Fetch(ctx context.Context, criteria model.SearchCriteria) model.FetchResult {
	if model.MissingCredential(a.opts.APIKey) {
		return model.Skipped(a.Name(), "missing JSearch api_key")
	}

	headers := map[string]string{
		"X-RapidAPI-Key":  a.opts.APIKey,
		"X-RapidAPI-Host": jsearchHost,
	}

	var resp jsearchResponse
	if err := getJSON(ctx, a.client, a.Name(), jsearchBaseURL+"/search", a.query(criteria), headers, &resp); err != nil {
		return model.Failed(a.Name(), err)
	}

	listings := make([]model.Listing, 0, len(resp.Data))
	for _, job := range resp.Data {
		listings = append(listings, a.toListing(job))
	}
	return model.FetchResult{Source: a.Name(), Listings: listings}
}

func (a *JSearchAdapter) query(criteria model.SearchCriteria) url.Values {
	q := url.Values{}
	q.Set("query", criteria.Query)
	q.Set("page", "1")
	q.Set("num_pages", strconv.Itoa(a.opts.NumPages))

	country := a.opts.Country
	if country == "" {
		country = criteria.Location
	}
	if country != "" {
		q.Set("country", country)
	}
	if criteria.DatePosted != "" {
		q.Set("date_posted", criteria.DatePosted)
	}
	return q
}

func (a *JSearchAdapter) toListing(job jsearchJob) model.Listing {
	remote := job.IsRemote != nil && *job.IsRemote

	l := model.Listing{
		ID:          string(job.ID),
		Title:       job.Title,
		CompanyName: job.EmployerName,
		Seniority:   normalize.ExtractSeniority(job.Title),
		Location:    a.normalizer.Location(joinNonEmpty(", ", job.City, job.Country)),
		Description: job.Description,
		URL:         job.ApplyLink,
		Salary:      normalize.Salary(job.MinSalary.Ptr(), job.MaxSalary.Ptr()),
		Source:      model.SourceJSearch,
	}

	if remote {
		l.Modality = "Remote"
		l.Tags = append(l.Tags, "Remote")
	} else {
		l.Modality = normalize.ExtractModality(job.Title + " " + job.Description)
	}
	if job.Publisher != "" {
		l.Tags = append(l.Tags, job.Publisher)
	}
	if t, err := time.Parse(time.RFC3339, job.PostedAtUTC); err == nil {
		l.PostedAt = &t
	}
	return l
}
