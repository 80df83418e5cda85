package model

import "strings"

// MissingCredential reports whether any value is empty or still a
// placeholder copied from the example config.
func MissingCredential(values ...string) bool {
	for _, v := range values {
		v = strings.ToLower(strings.TrimSpace(v))
		if v == "" || strings.HasPrefix(v, "your_") || strings.HasPrefix(v, "your-") ||
			v == "changeme" || v == "xxx" || strings.HasPrefix(v, "${") {
			return true
		}
	}
	return false
}
