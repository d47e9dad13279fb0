package model

import (
	"fmt"
	"strings"
)

// Severity markers. SeverityNone is used for every outpatient code.
const (
	SeverityNone     = "0"
	SeverityMild     = "I"
	SeverityModerate = "II"
	SeveritySevere   = "III"
)

// GroupingCode is a CBG-style code: CMG-CaseType-Specific-Severity, e.g. "I-4-10-II".
type GroupingCode struct {
	CMG      string
	CaseType string
	Specific string
	Severity string
}

// ParseGroupingCode splits and validates a grouping code.
func ParseGroupingCode(s string) (GroupingCode, error) {
	parts := strings.Split(strings.ToUpper(strings.TrimSpace(s)), "-")
	if len(parts) != 4 {
		return GroupingCode{}, fmt.Errorf("grouping code %q: want 4 dash-separated segments, got %d", s, len(parts))
	}
	gc := GroupingCode{CMG: parts[0], CaseType: parts[1], Specific: parts[2], Severity: parts[3]}
	if err := gc.Validate(); err != nil {
		return GroupingCode{}, fmt.Errorf("grouping code %q: %w", s, err)
	}
	return gc, nil
}

// Validate checks the syntax of each segment.
func (g GroupingCode) Validate() error {
	if len(g.CMG) != 1 || g.CMG[0] < 'A' || g.CMG[0] > 'Z' {
		return fmt.Errorf("CMG segment %q must be a single letter", g.CMG)
	}
	if len(g.CaseType) != 1 || !isDigit(g.CaseType[0]) {
		return fmt.Errorf("case type segment %q must be a single digit", g.CaseType)
	}
	if len(g.Specific) != 2 || !isDigit(g.Specific[0]) || !isDigit(g.Specific[1]) {
		return fmt.Errorf("specific segment %q must be two digits", g.Specific)
	}
	switch g.Severity {
	case SeverityNone, SeverityMild, SeverityModerate, SeveritySevere:
	default:
		return fmt.Errorf("severity segment %q must be one of 0, I, II, III", g.Severity)
	}
	return nil
}

// String joins the four segments.
func (g GroupingCode) String() string {
	return g.CMG + "-" + g.CaseType + "-" + g.Specific + "-" + g.Severity
}

// Prefix returns "CMG-CaseType-", the key used to search sibling codes.
func (g GroupingCode) Prefix() string {
	return g.CMG + "-" + g.CaseType + "-"
}

// WellFormed reports whether s parses as a grouping code.
func WellFormed(s string) bool {
	_, err := ParseGroupingCode(s)
	return err == nil
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }
