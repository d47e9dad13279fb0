package model

import "strings"

// SignatureSeparator joins sorted procedure codes into a procedure signature.
const SignatureSeparator = "|"

// MaxSimilarProcedures caps ProcedureInfo.Similar.
const MaxSimilarProcedures = 10

// HistoricalCase is one aggregated row of the case history: how many past
// claims with this (diagnosis, signature, service) were grouped to Code.
// An empty Signature means the claims carried no procedure.
type HistoricalCase struct {
	Diagnosis    string
	Signature    string
	Service      ServiceContext
	GroupingCode string
	Frequency    int64
}

// ChapterMapping maps the diagnosis range [Chapter+RangeStart, Chapter+RangeEnd)
// to a CMG letter. RangeEnd may be 100 to cover the whole letter.
// Within one Priority tier ranges must not overlap.
type ChapterMapping struct {
	Chapter     string
	RangeStart  int
	RangeEnd    int
	CMG         string
	Description string
	Priority    int
}

// Contains reports whether the chapter key (letter, number) falls in the range.
func (m ChapterMapping) Contains(letter string, number int) bool {
	return m.Chapter == letter && number >= m.RangeStart && number < m.RangeEnd
}

// Overlaps reports whether two mappings share any diagnosis key.
func (m ChapterMapping) Overlaps(o ChapterMapping) bool {
	return m.Chapter == o.Chapter && m.RangeStart < o.RangeEnd && o.RangeStart < m.RangeEnd
}

// ChapterKey extracts the chapter letter and two-digit number from an
// ICD-10 style code ("I21.0" -> "I", 21). ok is false for codes that do not
// start with a letter followed by two digits.
func ChapterKey(diagnosis string) (letter string, number int, ok bool) {
	d := strings.ToUpper(strings.TrimSpace(diagnosis))
	if len(d) < 3 || d[0] < 'A' || d[0] > 'Z' || !isDigit(d[1]) || !isDigit(d[2]) {
		return "", 0, false
	}
	return d[:1], int(d[1]-'0')*10 + int(d[2]-'0'), true
}

// ProcedureInfo is the classification metadata of one procedure code.
type ProcedureInfo struct {
	Code         string
	ChapterStart string
	ChapterEnd   string
	Category     string
	BodySystem   string
	IsMajor      bool
	Similar      []string
}

// TariffRow is one Tariff Master entry. Amounts are whole rupiah.
type TariffRow struct {
	GroupingCode  string
	Service       TariffService
	Regional      string
	HospitalClass string
	HospitalType  string
	Tier1         int64
	Tier2         int64
	Tier3         int64
	Description   string
	Active        bool
}

// TariffKey is the fully specified classification a tariff is priced for.
type TariffKey struct {
	GroupingCode  string
	Service       TariffService
	Regional      string
	HospitalClass string
	HospitalType  string
}

// Key returns the row's lookup key.
func (t TariffRow) Key() TariffKey {
	return TariffKey{
		GroupingCode:  t.GroupingCode,
		Service:       t.Service,
		Regional:      t.Regional,
		HospitalClass: t.HospitalClass,
		HospitalType:  t.HospitalType,
	}
}
