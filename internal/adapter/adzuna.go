package adapter

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/amishk599/jobscout/internal/model"
	"github.com/amishk599/jobscout/internal/normalize"
)

const adzunaBaseURL = "https://api.adzuna.com/v1/api/jobs"

type adzunaResponse struct {
	Count   int         `json:"count"`
	Results []adzunaJob `json:"results"`
}

type adzunaJob struct {
	ID          flexString     `json:"id"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	RedirectURL string         `json:"redirect_url"`
	Created     string         `json:"created"`
	SalaryMin   flexFloat      `json:"salary_min"`
	SalaryMax   flexFloat      `json:"salary_max"`
	Company     adzunaCompany  `json:"company"`
	Location    adzunaLocation `json:"location"`
}

type adzunaCompany struct {
	DisplayName string `json:"display_name"`
}

type adzunaLocation struct {
	DisplayName string   `json:"display_name"`
	Area        []string `json:"area"`
}

// AdzunaOptions configures the Adzuna search.
type AdzunaOptions struct {
	AppID          string
	APIKey         string
	Country        string // ISO code in the URL path, e.g. "us"
	MaxDaysOld     int
	ResultsPerPage int
	MaxPages       int

	// PageWait, when set, is called before every page after the first so
	// multi-page searches stay within the source's rate limit.
	PageWait func(ctx context.Context) error
}

// AdzunaAdapter fetches listings from the Adzuna search API.
type AdzunaAdapter struct {
	opts       AdzunaOptions
	normalizer *normalize.Normalizer
	client     *http.Client
}

// NewAdzunaAdapter creates a new adapter for the Adzuna API.
func NewAdzunaAdapter(opts AdzunaOptions, normalizer *normalize.Normalizer, client *http.Client) *AdzunaAdapter {
	if opts.Country == "" {
		opts.Country = "us"
	}
	if opts.ResultsPerPage <= 0 {
		opts.ResultsPerPage = 20
	}
	if opts.MaxPages <= 0 {
		opts.MaxPages = 1
	}
	return &AdzunaAdapter{opts: opts, normalizer: normalizer, client: client}
}

// Name returns the vendor name.
func (a *AdzunaAdapter) Name() string { return model.SourceAdzuna }

// Fetch walks result pages 1..MaxPages and stops early on a short page.
func (a *AdzunaAdapter) Fetch(ctx context.Context, criteria model.SearchCriteria) model.FetchResult {
	if model.MissingCredential(a.opts.AppID, a.opts.APIKey) {
		return model.Skipped(a.Name(), "missing Adzuna app_id or api_key")
	}

	var listings []model.Listing
	for page := 1; page <= a.opts.MaxPages; page++ {
		if page > 1 && a.opts.PageWait != nil {
			if err := a.opts.PageWait(ctx); err != nil {
				return model.Failed(a.Name(), fmt.Errorf("page %d: %w", page, err))
			}
		}

		var resp adzunaResponse
		endpoint := fmt.Sprintf("%s/%s/search/%d", adzunaBaseURL, a.opts.Country, page)
		if err := getJSON(ctx, a.client, a.Name(), endpoint, a.query(criteria), nil, &resp); err != nil {
			return model.Failed(a.Name(), fmt.Errorf("page %d: %w", page, err))
		}

		for _, job := range resp.Results {
			listings = append(listings, a.toListing(job))
		}
		if len(resp.Results) < a.opts.ResultsPerPage {
			break
		}
	}

	return model.FetchResult{Source: a.Name(), Listings: listings}
}

func (a *AdzunaAdapter) query(criteria model.SearchCriteria) url.Values {
	q := url.Values{}
	q.Set("app_id", a.opts.AppID)
	q.Set("app_key", a.opts.APIKey)
	q.Set("results_per_page", strconv.Itoa(a.opts.ResultsPerPage))
	q.Set("content-type", "application/json")
	if criteria.Query != "" {
		q.Set("what", criteria.Query)
	}
	if criteria.Location != "" {
		q.Set("where", criteria.Location)
	}
	if a.opts.MaxDaysOld > 0 {
		q.Set("max_days_old", strconv.Itoa(a.opts.MaxDaysOld))
	}
	if criteria.MinSalary != nil {
		q.Set("salary_min", strconv.FormatFloat(*criteria.MinSalary, 'f', 0, 64))
	}
	return q
}

func (a *AdzunaAdapter) toListing(job adzunaJob) model.Listing {
	location := job.Location.DisplayName
	if location == "" {
		location = joinNonEmpty(", ", job.Location.Area...)
	}

	l := model.Listing{
		ID:          string(job.ID),
		Title:       job.Title,
		CompanyName: job.Company.DisplayName,
		Seniority:   normalize.ExtractSeniority(job.Title),
		Modality:    normalize.ExtractModality(job.Title + " " + job.Description),
		Location:    a.normalizer.Location(location),
		Description: job.Description,
		URL:         job.RedirectURL,
		Salary:      normalize.Salary(job.SalaryMin.Ptr(), job.SalaryMax.Ptr()),
		Source:      model.SourceAdzuna,
	}
	if t, err := time.Parse(time.RFC3339, job.Created); err == nil {
		l.PostedAt = &t
	}
	if l.Modality == "Remote" {
		l.Tags = append(l.Tags, "Remote")
	}
	return l
}
