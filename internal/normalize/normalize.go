package normalize

import (
	"fmt"
	"strings"

	"github.com/gyeh/cbgtariff/internal/model"
)

// ToHistoricalCase converts a Parquet case-history record into a normalized
// HistoricalCase. Rows with a malformed grouping code, unknown service
// context or non-positive frequency are rejected.
func ToHistoricalCase(r *model.CaseHistoryRecord) (model.HistoricalCase, error) {
	dx := Code(r.Diagnosis)
	if dx == "" {
		return model.HistoricalCase{}, fmt.Errorf("empty diagnosis")
	}
	svc, err := model.ParseServiceContext(r.ServiceContext)
	if err != nil {
		return model.HistoricalCase{}, err
	}
	gc, err := model.ParseGroupingCode(r.GroupingCode)
	if err != nil {
		return model.HistoricalCase{}, err
	}
	if r.Frequency <= 0 {
		return model.HistoricalCase{}, fmt.Errorf("frequency must be positive, got %d", r.Frequency)
	}
	return model.HistoricalCase{
		Diagnosis:    dx,
		Signature:    CanonicalSignature(r.ProcedureSignature),
		Service:      svc,
		GroupingCode: gc.String(),
		Frequency:    r.Frequency,
	}, nil
}

// ToChapterMapping converts and validates a chapter mapping record.
func ToChapterMapping(r *model.ChapterMappingRecord) (model.ChapterMapping, error) {
	chapter := Code(r.Chapter)
	if len(chapter) != 1 || chapter[0] < 'A' || chapter[0] > 'Z' {
		return model.ChapterMapping{}, fmt.Errorf("chapter %q must be a single letter", r.Chapter)
	}
	cmg := Code(r.CMG)
	if len(cmg) != 1 || cmg[0] < 'A' || cmg[0] > 'Z' {
		return model.ChapterMapping{}, fmt.Errorf("cmg %q must be a single letter", r.CMG)
	}
	if r.RangeStart < 0 || r.RangeEnd > 100 || r.RangeStart >= r.RangeEnd {
		return model.ChapterMapping{}, fmt.Errorf("range [%d, %d) is empty or outside 0..100", r.RangeStart, r.RangeEnd)
	}
	return model.ChapterMapping{
		Chapter:     chapter,
		RangeStart:  int(r.RangeStart),
		RangeEnd:    int(r.RangeEnd),
		CMG:         cmg,
		Description: Label(r.Description),
		Priority:    int(r.Priority),
	}, nil
}

// ToProcedureInfo converts a procedure record. The similar list is
// normalized, stripped of self-references and duplicates, and capped at
// model.MaxSimilarProcedures while keeping its precomputed order.
func ToProcedureInfo(r *model.ProcedureRecord) (model.ProcedureInfo, error) {
	code := Code(r.Code)
	if code == "" {
		return model.ProcedureInfo{}, fmt.Errorf("empty procedure code")
	}
	seen := map[string]bool{code: true}
	similar := make([]string, 0, len(r.SimilarCodes))
	for _, s := range Codes(r.SimilarCodes) {
		if seen[s] || len(similar) == model.MaxSimilarProcedures {
			continue
		}
		seen[s] = true
		similar = append(similar, s)
	}
	return model.ProcedureInfo{
		Code:         code,
		ChapterStart: OptCode(r.ChapterStart),
		ChapterEnd:   OptCode(r.ChapterEnd),
		Category:     Label(r.Category),
		BodySystem:   Label(r.BodySystem),
		IsMajor:      r.IsMajor,
		Similar:      similar,
	}, nil
}

// ToTariffRow converts a Tariff Master record. A missing active flag means active.
func ToTariffRow(r *model.TariffRecord) (model.TariffRow, error) {
	gc, err := model.ParseGroupingCode(r.GroupingCode)
	if err != nil {
		return model.TariffRow{}, err
	}
	var svc model.TariffService
	switch strings.ToUpper(strings.TrimSpace(r.Service)) {
	case string(model.TariffInpatient):
		svc = model.TariffInpatient
	case string(model.TariffOutpatient):
		svc = model.TariffOutpatient
	default:
		parsed, err := model.ParseServiceContext(r.Service)
		if err != nil {
			return model.TariffRow{}, err
		}
		svc = parsed.Tariff()
	}
	regional := strings.TrimSpace(r.Regional)
	class := Code(r.HospitalClass)
	htype := HospitalType(r.HospitalType)
	if regional == "" || class == "" || htype == "" {
		return model.TariffRow{}, fmt.Errorf("incomplete facility classification (regional=%q class=%q type=%q)",
			r.Regional, r.HospitalClass, r.HospitalType)
	}
	active := true
	if r.Active != nil {
		active = *r.Active
	}
	return model.TariffRow{
		GroupingCode:  gc.String(),
		Service:       svc,
		Regional:      regional,
		HospitalClass: class,
		HospitalType:  htype,
		Tier1:         Rupiah(r.Tier1),
		Tier2:         Rupiah(r.Tier2),
		Tier3:         Rupiah(r.Tier3),
		Description:   Label(r.Description),
		Active:        active,
	}, nil
}
