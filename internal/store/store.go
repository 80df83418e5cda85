// Package store implements model.ListingStore over SQLite, Postgres and memory.
package store

import (
	"time"

	"github.com/amishk599/jobscout/internal/model"
)

// resolveConflict decides what Save writes when incoming shares a key with
// existing. It returns the record to store and whether anything changed.
// IsNotified and CreatedAt always come from the stored record.
func resolveConflict(policy model.ConflictPolicy, existing, incoming model.Listing) (model.Listing, bool) {
	switch policy {
	case model.ConflictOverwrite:
		incoming.IsNotified = existing.IsNotified
		incoming.CreatedAt = existing.CreatedAt
		return incoming, true
	case model.ConflictMerge:
		merged := merge(existing, incoming)
		return merged, !equalContent(existing, merged)
	default:
		return existing, false
	}
}

// merge fills the empty columns of existing from incoming.
func merge(existing, incoming model.Listing) model.Listing {
	out := existing
	fill := func(dst *string, src string) {
		if (*dst == "" || *dst == model.NotSpecified) && src != "" && src != model.NotSpecified {
			*dst = src
		}
	}
	fill(&out.Title, incoming.Title)
	fill(&out.CompanyName, incoming.CompanyName)
	fill(&out.Seniority, incoming.Seniority)
	fill(&out.Modality, incoming.Modality)
	fill(&out.Location, incoming.Location)
	fill(&out.Description, incoming.Description)
	fill(&out.URL, incoming.URL)
	if out.Salary == nil && incoming.Salary != nil {
		v := *incoming.Salary
		out.Salary = &v
	}
	if out.PostedAt == nil && incoming.PostedAt != nil {
		t := *incoming.PostedAt
		out.PostedAt = &t
	}
	if len(out.Tags) == 0 && len(incoming.Tags) > 0 {
		out.Tags = append([]string(nil), incoming.Tags...)
	}
	return out
}

func equalContent(a, b model.Listing) bool {
	if a.Title != b.Title || a.CompanyName != b.CompanyName || a.Seniority != b.Seniority ||
		a.Modality != b.Modality || a.Location != b.Location || a.Description != b.Description ||
		a.URL != b.URL {
		return false
	}
	if (a.Salary == nil) != (b.Salary == nil) || (a.Salary != nil && *a.Salary != *b.Salary) {
		return false
	}
	if (a.PostedAt == nil) != (b.PostedAt == nil) || (a.PostedAt != nil && !a.PostedAt.Equal(*b.PostedAt)) {
		return false
	}
	if len(a.Tags) != len(b.Tags) {
		return false
	}
	for i := range a.Tags {
		if a.Tags[i] != b.Tags[i] {
			return false
		}
	}
	return true
}

func nowUTC() time.Time {
	return time.Now().UTC()
}
