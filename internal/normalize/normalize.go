// Package normalize maps raw vendor values onto the canonical vocabulary
// used by model.Listing.
package normalize

import (
	"fmt"
	"log/slog"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/amishk599/jobscout/internal/model"
)

var locationTable = map[string]string{
	"cl":           "Chile",
	"chile":        "Chile",
	"chile, chile": "Chile",
	"remote":       "Remote",
}

var seniorityTable = map[string]string{
	"jr":          "Junior",
	"junior":      "Junior",
	"ssr":         "Semi-Senior",
	"semi senior": "Semi-Senior",
	"mid":         "Mid",
	"senior":      "Senior",
	"sr":          "Senior",
	"lead":        "Lead",
	"staff":       "Staff",
	"principal":   "Principal",

	// GetOnBoard seniority ids
	"1": "No experience",
	"2": "Junior",
	"3": "Semi Senior",
	"4": "Senior",
	"5": "Expert",
}

var modalityTable = map[string]string{
	"remote":       "Remote",
	"remote_local": "Remote",
	"fully_remote": "Remote",
	"remoto":       "Remote",
	"hybrid":       "Hybrid",
	"hibrido":      "Hybrid",
	"onsite":       "Onsite",
	"presencial":   "Onsite",
	"no_remote":    "Onsite",
}

// Normalizer looks raw values up in the canonical tables and logs values
// it does not know, so the tables can be extended.
type Normalizer struct {
	logger *slog.Logger
}

// New returns a Normalizer that reports unmapped values to logger.
func New(logger *slog.Logger) *Normalizer {
	return &Normalizer{logger: logger}
}

// Location returns the canonical location for raw.
func (n *Normalizer) Location(raw any) string {
	return n.lookup("location", raw, locationTable)
}

// Seniority returns the canonical seniority for raw.
func (n *Normalizer) Seniority(raw any) string {
	return n.lookup("seniority", raw, seniorityTable)
}

// Modality returns the canonical work modality for raw.
func (n *Normalizer) Modality(raw any) string {
	return n.lookup("modality", raw, modalityTable)
}

func (n *Normalizer) lookup(field string, raw any, table map[string]string) string {
	val := Fold(toString(raw))
	if val == "" {
		return model.NotSpecified
	}
	if canonical, ok := table[val]; ok {
		return canonical
	}
	n.logger.Warn("unmapped value", "field", field, "raw", raw)
	return titleCase(val)
}

// Fold lower-cases s, trims it and strips diacritics ("Híbrido" -> "hibrido").
func Fold(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return folded
}

func titleCase(s string) string {
	return cases.Title(language.Und).String(s)
}

// toString flattens the scalar shapes vendors send into a trimmed string.
// Lists contribute their first element.
func toString(raw any) string {
	switch v := raw.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case []string:
		if len(v) == 0 {
			return ""
		}
		return strings.TrimSpace(v[0])
	case []any:
		if len(v) == 0 {
			return ""
		}
		return toString(v[0])
	case fmt.Stringer:
		return strings.TrimSpace(v.String())
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}
