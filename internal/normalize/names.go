package normalize

import (
	"regexp"
	"strings"
)

var multiSpace = regexp.MustCompile(`\s+`)

// Label collapses whitespace and trims a human-readable description.
// Returns "" if the input is nil.
func Label(v *string) string {
	if v == nil {
		return ""
	}
	return multiSpace.ReplaceAllString(strings.TrimSpace(*v), " ")
}

// HospitalType canonicalizes ownership labels: "pemerintah " -> "Pemerintah".
func HospitalType(s string) string {
	s = strings.ToLower(multiSpace.ReplaceAllString(strings.TrimSpace(s), " "))
	if s == "" {
		return ""
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
