package filter

import (
	"strings"

	"github.com/amishk599/jobscout/internal/model"
)

// DefaultTargetKeywords is used when the config does not name any.
var DefaultTargetKeywords = []string{
	// seniority
	"junior", "jr", "trainee", "semisenior", "semi senior", "ssr", "early career",
	// roles
	"data engineer", "ingeniero de datos", "backend", "data scientist",
	"analytics engineer", "data analyst", "analista de datos", "data analytics",
	// stack
	"python", "sql", "postgresql", "xgboost", "prefect", "airflow", "dagster",
	"dbt", "aws", "docker", "pyspark", "pandas",
}

// DefaultExcludeKeywords drops senior-track roles.
var DefaultExcludeKeywords = []string{
	"senior", "sr.", "lead", "principal", "architect", "manager", "experto",
}

// DefaultExceptionKeywords rescue listings excluded only because "senior"
// appears inside "semi senior".
var DefaultExceptionKeywords = []string{"semi senior", "semi-senior", "semisenior"}

// KeywordFilter matches listings against include, exclude and exception
// keyword lists over the listing's title, description and company name.
// Matching is case-insensitive substring matching.
type KeywordFilter struct {
	targets    []string
	excludes   []string
	exceptions []string
}

// NewKeywordFilter returns a filter over the given keyword lists. An empty
// target list accepts everything that survives the exclusion pass.
func NewKeywordFilter(targets, excludes, exceptions []string) *KeywordFilter {
	return &KeywordFilter{
		targets:    lowerAll(targets),
		excludes:   lowerAll(excludes),
		exceptions: lowerAll(exceptions),
	}
}

// Match returns false when an excluded term appears without any exception
// phrase, and otherwise true if any target keyword appears (or no target
// keywords are configured).
func (f *KeywordFilter) Match(l model.Listing) bool {
	text := strings.ToLower(l.Title + " " + l.Description + " " + l.CompanyName)

	if containsAny(text, f.excludes) && !containsAny(text, f.exceptions) {
		return false
	}

	if len(f.targets) == 0 {
		return true
	}
	return containsAny(text, f.targets)
}

// Filter returns the listings that match, preserving input order.
func (f *KeywordFilter) Filter(listings []model.Listing) []model.Listing {
	var matched []model.Listing
	for _, l := range listings {
		if f.Match(l) {
			matched = append(matched, l)
		}
	}
	return matched
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if kw != "" && strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

func lowerAll(keywords []string) []string {
	out := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		out = append(out, strings.ToLower(strings.TrimSpace(kw)))
	}
	return out
}
