package normalize

import (
	"regexp"
	"strings"

	"github.com/amishk599/jobscout/internal/model"
)

type phrase struct {
	text      string
	canonical string
}

// Checked before single words so "semi senior" is not read as "senior".
var seniorityPhrases = []phrase{
	{"semi senior", "Semi-Senior"},
	{"semi-senior", "Semi-Senior"},
	{"semisenior", "Semi-Senior"},
	{"senior manager", "Manager"},
}

type word struct {
	re        *regexp.Regexp
	canonical string
}

func wordTerm(w, canonical string) word {
	return word{re: regexp.MustCompile(`\b` + regexp.QuoteMeta(w) + `\b`), canonical: canonical}
}

var seniorityWords = []word{
	wordTerm("trainee", "Trainee"),
	wordTerm("intern", "Trainee"),
	wordTerm("junior", "Junior"),
	wordTerm("jr", "Junior"),
	wordTerm("ssr", "Semi-Senior"),
	wordTerm("mid", "Mid"),
	wordTerm("senior", "Senior"),
	wordTerm("sr", "Senior"),
	wordTerm("lead", "Lead"),
	wordTerm("staff", "Staff"),
	wordTerm("principal", "Principal"),
	wordTerm("manager", "Manager"),
}

// ExtractSeniority scans a job title for a seniority term. Multi-word
// phrases win over single words; among single words the earliest one in
// the title wins. Returns model.NotSpecified when nothing matches.
func ExtractSeniority(title string) string {
	text := Fold(title)
	if text == "" {
		return model.NotSpecified
	}

	for _, p := range seniorityPhrases {
		if strings.Contains(text, p.text) {
			return p.canonical
		}
	}

	best, bestPos := model.NotSpecified, -1
	for _, w := range seniorityWords {
		loc := w.re.FindStringIndex(text)
		if loc == nil {
			continue
		}
		if bestPos == -1 || loc[0] < bestPos {
			best, bestPos = w.canonical, loc[0]
		}
	}
	return best
}

var (
	remoteKeywords = []string{"remote", "remoto", "teletrabajo", "work from home", "wfh"}
	hybridKeywords = []string{"hybrid", "hibrid"}
	onsiteKeywords = []string{"onsite", "on-site", "on site", "presencial", "in-office", "in office"}
)

// ExtractModality scans free text for remote, hybrid and onsite keywords,
// in that priority order.
func ExtractModality(text string) string {
	folded := Fold(text)
	switch {
	case containsAny(folded, remoteKeywords):
		return "Remote"
	case containsAny(folded, hybridKeywords):
		return "Hybrid"
	case containsAny(folded, onsiteKeywords):
		return "Onsite"
	default:
		return model.NotSpecified
	}
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

// Salary returns the integer midpoint of min and max when both are
// present, whichever bound exists otherwise, and nil when neither does.
// No currency conversion is applied.
func Salary(min, max *float64) *int {
	var v int
	switch {
	case min != nil && max != nil:
		v = int((*min + *max) / 2)
	case min != nil:
		v = int(*min)
	case max != nil:
		v = int(*max)
	default:
		return nil
	}
	return &v
}
