package model

import (
	"context"
	"fmt"
	"time"
)

// NotSpecified is the sentinel used when a normalized field cannot be determined.
const NotSpecified = "Not specified"

// Vendor names as stored in Listing.Source.
const (
	SourceAdzuna     = "Adzuna"
	SourceJSearch    = "JSearch"
	SourceGetOnBoard = "GetOnBoard"
)

// Listing is the canonical representation of one job posting from any vendor.
type Listing struct {
	ID          string     `validate:"required"`     // unique per source
	Title       string     `validate:"required"`     // job title
	CompanyName string     `validate:"required"`     // employer display name
	Seniority   string                                // canonical seniority or NotSpecified
	Modality    string                                // Remote, Hybrid, Onsite or NotSpecified
	Location    string                                // canonical location or NotSpecified
	Description string                                // plain text or lightweight markdown
	URL         string     `validate:"required,url"` // apply link
	Salary      *int                                  // nil when the vendor gave no range
	PostedAt    *time.Time                            // nullable (not all APIs provide this)
	Source      string     `validate:"required"`     // vendor name
	Tags        []string                              // e.g. "Remote", publisher

	IsNotified bool      // set once the listing was part of a delivered digest
	CreatedAt  time.Time // our clock (set on first persistence)
}

// Key returns the source-qualified dedup key of the listing.
func (l Listing) Key() ListingKey {
	return ListingKey{Source: l.Source, ID: l.ID}
}

// ListingKey identifies a stored listing. Vendors may reuse each other's
// IDs, so the source is part of the key.
type ListingKey struct {
	Source string
	ID     string
}

func (k ListingKey) String() string {
	return fmt.Sprintf("%s:%s", k.Source, k.ID)
}

// Keys returns the keys of listings in order.
func Keys(listings []Listing) []ListingKey {
	keys := make([]ListingKey, len(listings))
	for i, l := range listings {
		keys[i] = l.Key()
	}
	return keys
}

// SearchCriteria describes what to ask a vendor for. It is passed by value
// into every Source and never mutated.
type SearchCriteria struct {
	Query           string
	Location        string
	MinSalary       *float64
	Seniority       string
	ExperienceYears *int
	DatePosted      string // "today", "3days", "week", "month" or "all"
}

// FetchResult is what a Source hands back for one search. Exactly one of
// the following holds: Err is set (the call failed), Reason is set (the
// source deliberately returned nothing), or Listings carries the results.
type FetchResult struct {
	Source   string
	Listings []Listing
	Reason   string
	Err      error
}

// OK reports whether the fetch completed without a transport or decode error.
func (r FetchResult) OK() bool {
	return r.Err == nil
}

// Failed builds a FetchResult for a failed call.
func Failed(source string, err error) FetchResult {
	return FetchResult{Source: source, Err: err}
}

// Skipped builds an empty FetchResult that explains why nothing was fetched.
func Skipped(source, reason string) FetchResult {
	return FetchResult{Source: source, Reason: reason}
}

// ConflictPolicy decides what Save does when a listing's key already exists.
type ConflictPolicy string

const (
	// ConflictIgnore keeps the stored record untouched (first write wins).
	ConflictIgnore ConflictPolicy = "ignore"
	// ConflictOverwrite replaces content columns, keeping IsNotified and CreatedAt.
	ConflictOverwrite ConflictPolicy = "overwrite"
	// ConflictMerge fills only the stored record's empty columns.
	ConflictMerge ConflictPolicy = "merge"
)

// ParseConflictPolicy maps a config value to a ConflictPolicy. Empty means ignore.
func ParseConflictPolicy(s string) (ConflictPolicy, error) {
	switch ConflictPolicy(s) {
	case "", ConflictIgnore:
		return ConflictIgnore, nil
	case ConflictOverwrite, ConflictMerge:
		return ConflictPolicy(s), nil
	default:
		return "", fmt.Errorf("unknown conflict policy %q (want ignore, overwrite or merge)", s)
	}
}

// SaveResult counts what happened to each listing passed to Save.
type SaveResult struct {
	Inserted int
	Skipped  int
	Updated  int
}

// MarkResult counts what happened to each key passed to MarkNotified.
type MarkResult struct {
	Marked  int
	Missing []ListingKey
}

// Source fetches listings from one vendor API.
type Source interface {
	Name() string
	Fetch(ctx context.Context, criteria SearchCriteria) FetchResult
}

// ListingStore persists listings and tracks which were already notified.
type ListingStore interface {
	Save(ctx context.Context, listings []Listing) (SaveResult, error)
	Unnotified(ctx context.Context) ([]Listing, error)
	MarkNotified(ctx context.Context, keys []ListingKey) (MarkResult, error)
	Close() error
}

// Notifier sends a digest of new listings.
type Notifier interface {
	Notify(ctx context.Context, listings []Listing) error
}

// ListingFilter decides whether a listing is relevant.
type ListingFilter interface {
	Match(listing Listing) bool
}
