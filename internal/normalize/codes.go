package normalize

import (
	"regexp"
	"strings"
)

var whitespace = regexp.MustCompile(`\s+`)

// Code trims, uppercases and removes inner whitespace from a clinical code.
// Punctuation is kept: "i21.0 " becomes "I21.0".
func Code(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	return whitespace.ReplaceAllString(strings.ToUpper(s), "")
}

// Codes normalizes every entry and drops the ones that end up empty,
// preserving order.
func Codes(in []string) []string {
	out := make([]string, 0, len(in))
	for _, c := range in {
		if n := Code(c); n != "" {
			out = append(out, n)
		}
	}
	return out
}

// OptCode normalizes a nullable code. Returns "" if the input is nil.
func OptCode(v *string) string {
	if v == nil {
		return ""
	}
	return Code(*v)
}
