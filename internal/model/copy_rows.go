package model

// CopyRow is a normalized reference row that can be streamed through COPY.
type CopyRow interface {
	CopyValues() []any
}

// CaseHistoryColumns returns the COPY column order for ref.case_history.
func CaseHistoryColumns() []string {
	return []string{"diagnosis", "procedure_signature", "service_context", "grouping_code", "frequency"}
}

// CopyValues returns the row in CaseHistoryColumns order. The empty
// signature is written as NULL.
func (c HistoricalCase) CopyValues() []any {
	var sig *string
	if c.Signature != "" {
		s := c.Signature
		sig = &s
	}
	return []any{c.Diagnosis, sig, string(c.Service), c.GroupingCode, c.Frequency}
}

// ChapterMappingColumns returns the COPY column order for ref.chapter_mappings.
func ChapterMappingColumns() []string {
	return []string{"chapter", "range_start", "range_end", "cmg", "description", "priority"}
}

func (m ChapterMapping) CopyValues() []any {
	return []any{m.Chapter, int32(m.RangeStart), int32(m.RangeEnd), m.CMG, m.Description, int32(m.Priority)}
}

// ProcedureColumns returns the COPY column order for ref.procedures.
func ProcedureColumns() []string {
	return []string{"code", "chapter_start", "chapter_end", "category", "body_system", "is_major", "similar_codes"}
}

func (p ProcedureInfo) CopyValues() []any {
	similar := p.Similar
	if similar == nil {
		similar = []string{}
	}
	return []any{p.Code, p.ChapterStart, p.ChapterEnd, p.Category, p.BodySystem, p.IsMajor, similar}
}

// TariffColumns returns the COPY column order for ref.tariffs.
func TariffColumns() []string {
	return []string{
		"grouping_code", "service", "regional", "hospital_class", "hospital_type",
		"tarif_kelas_1", "tarif_kelas_2", "tarif_kelas_3", "description", "active",
	}
}

func (t TariffRow) CopyValues() []any {
	return []any{
		t.GroupingCode, string(t.Service), t.Regional, t.HospitalClass, t.HospitalType,
		t.Tier1, t.Tier2, t.Tier3, t.Description, t.Active,
	}
}
