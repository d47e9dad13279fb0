package normalize

import (
	"slices"
	"sort"
	"strings"

	"github.com/gyeh/cbgtariff/internal/model"
)

// Signature builds the canonical procedure signature: codes normalized,
// de-duplicated, sorted lexicographically and joined with
// model.SignatureSeparator. No procedures yields "".
func Signature(procedures []string) string {
	codes := Codes(procedures)
	if len(codes) == 0 {
		return ""
	}
	sort.Strings(codes)
	uniq := codes[:1]
	for _, c := range codes[1:] {
		if c != uniq[len(uniq)-1] {
			uniq = append(uniq, c)
		}
	}
	return strings.Join(uniq, model.SignatureSeparator)
}

// CanonicalSignature re-canonicalizes a stored signature. Blank members are
// dropped, so malformed values like "36.07||36.06 " still match the claim
// they describe. Separators ";" and "," seen in older exports are accepted.
func CanonicalSignature(stored *string) string {
	if stored == nil {
		return ""
	}
	s := strings.NewReplacer(";", model.SignatureSeparator, ",", model.SignatureSeparator).Replace(*stored)
	return Signature(strings.Split(s, model.SignatureSeparator))
}

// SignatureContains reports whether anchor is one of the members of the
// canonical signature sig. Partial codes never match: "36.0" is not a member
// of "36.06|36.07".
func SignatureContains(sig, anchor string) bool {
	if sig == "" || anchor == "" {
		return false
	}
	return slices.Contains(strings.Split(sig, model.SignatureSeparator), anchor)
}
