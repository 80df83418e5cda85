package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/amishk599/jobscout/internal/model"
	"github.com/amishk599/jobscout/internal/normalize"
)

const getOnBoardBaseURL = "https://www.getonbrd.com/api/v0"

type getOnBoardResponse struct {
	Data []getOnBoardJob `json:"data"`
}

type getOnBoardJob struct {
	ID         flexString           `json:"id"`
	Attributes getOnBoardAttributes `json:"attributes"`
	Links      struct {
		PublicURL string `json:"public_url"`
	} `json:"links"`
}

type getOnBoardAttributes struct {
	Title               string            `json:"title"`
	Description         string            `json:"description"`
	DescriptionHeadline string            `json:"description_headline"`
	Country             string            `json:"country"`
	Remote              bool              `json:"remote"`
	RemoteModality      string            `json:"remote_modality"`
	Seniority           relationID        `json:"seniority"`
	MinSalary           flexFloat         `json:"min_salary"`
	MaxSalary           flexFloat         `json:"max_salary"`
	PublishedAt         flexFloat         `json:"published_at"`
	Company             getOnBoardCompany `json:"company"`
}

type getOnBoardCompany struct {
	Data struct {
		Attributes struct {
			Name string `json:"name"`
		} `json:"attributes"`
	} `json:"data"`
}

// relationID decodes a JSON:API relationship id that may arrive as a bare
// number, a string, or {"data":{"id":N}}.
type relationID string

func (r *relationID) UnmarshalJSON(b []byte) error {
	*r = ""
	b = bytes.TrimSpace(b)
	if len(b) == 0 || b[0] != '{' {
		var s flexString
		if err := s.UnmarshalJSON(b); err != nil {
			return nil
		}
		*r = relationID(s)
		return nil
	}

	var wrapped struct {
		Data struct {
			ID flexString `json:"id"`
		} `json:"data"`
	}
	if err := json.Unmarshal(b, &wrapped); err != nil {
		return nil
	}
	*r = relationID(wrapped.Data.ID)
	return nil
}

// GetOnBoardOptions configures the GetOnBoard search.
type GetOnBoardOptions struct {
	CountryCode string
	PerPage     int
}

// GetOnBoardAdapter fetches listings from the public GetOnBoard API.
type GetOnBoardAdapter struct {
	opts       GetOnBoardOptions
	normalizer *normalize.Normalizer
	client     *http.Client
}

// NewGetOnBoardAdapter creates a new adapter for the GetOnBoard API.
func NewGetOnBoardAdapter(opts GetOnBoardOptions, normalizer *normalize.Normalizer, client *http.Client) *GetOnBoardAdapter {
	if opts.CountryCode == "" {
		opts.CountryCode = "CL"
	}
	if opts.PerPage <= 0 {
		opts.PerPage = 10
	}
	return &GetOnBoardAdapter{opts: opts, normalizer: normalizer, client: client}
}

// Name returns the vendor name.
func (a *GetOnBoardAdapter) Name() string { return model.SourceGetOnBoard }

// Fetch runs one search request. The API needs no credentials.
func (a *GetOnBoardAdapter) Fetch(ctx context.Context, criteria model.SearchCriteria) model.FetchResult {
	q := url.Values{}
	q.Set("query", criteria.Query)
	q.Set("per_page", strconv.Itoa(a.opts.PerPage))
	q.Set("country_code", a.opts.CountryCode)
	q.Set("expand", `["company"]`)

	var resp getOnBoardResponse
	if err := getJSON(ctx, a.client, a.Name(), getOnBoardBaseURL+"/search/jobs", q, nil, &resp); err != nil {
		return model.Failed(a.Name(), err)
	}

	listings := make([]model.Listing, 0, len(resp.Data))
	for _, job := range resp.Data {
		listings = append(listings, a.toListing(job))
	}
	return model.FetchResult{Source: a.Name(), Listings: listings}
}

func (a *GetOnBoardAdapter) toListing(job getOnBoardJob) model.Listing {
	attrs := job.Attributes

	description := normalize.HTMLToMarkdown(attrs.Description)
	if description == "" {
		description = attrs.DescriptionHeadline
	}

	l := model.Listing{
		ID:          string(job.ID),
		Title:       attrs.Title,
		CompanyName: attrs.Company.Data.Attributes.Name,
		Seniority:   a.normalizer.Seniority(string(attrs.Seniority)),
		Location:    a.normalizer.Location(attrs.Country),
		Description: description,
		URL:         job.Links.PublicURL,
		Salary:      normalize.Salary(attrs.MinSalary.Ptr(), attrs.MaxSalary.Ptr()),
		Source:      model.SourceGetOnBoard,
	}

	switch {
	case attrs.RemoteModality != "":
		l.Modality = a.normalizer.Modality(attrs.RemoteModality)
	case attrs.Remote:
		l.Modality = "Remote"
	default:
		l.Modality = normalize.ExtractModality(attrs.Title + " " + description)
	}
	if attrs.Remote {
		l.Tags = append(l.Tags, "Remote")
	}
	if attrs.PublishedAt.Valid && attrs.PublishedAt.Value > 0 {
		t := time.Unix(int64(attrs.PublishedAt.Value), 0).UTC()
		l.PostedAt = &t
	}
	return l
}
