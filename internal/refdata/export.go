package refdata

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/parquet-go/parquet-go"

	"github.com/gyeh/cbgtariff/internal/model"
)

// WriteParquet writes d as the four reference files LoadParquet reads,
// creating dir if needed.
func WriteParquet(dir string, d Data) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}

	cases := make([]model.CaseHistoryRecord, len(d.Cases))
	for i, c := range d.Cases {
		cases[i] = model.CaseHistoryRecord{
			Diagnosis:          c.Diagnosis,
			ProcedureSignature: optString(c.Signature),
			ServiceContext:     string(c.Service),
			GroupingCode:       c.GroupingCode,
			Frequency:          c.Frequency,
		}
	}
	if err := writeFile(dir, model.CasesTable, cases); err != nil {
		return err
	}

	chapters := make([]model.ChapterMappingRecord, len(d.Chapters))
	for i, m := range d.Chapters {
		chapters[i] = model.ChapterMappingRecord{
			Chapter:     m.Chapter,
			RangeStart:  int32(m.RangeStart),
			RangeEnd:    int32(m.RangeEnd),
			CMG:         m.CMG,
			Description: optString(m.Description),
			Priority:    int32(m.Priority),
		}
	}
	if err := writeFile(dir, model.ChaptersTable, chapters); err != nil {
		return err
	}

	procs := make([]model.ProcedureRecord, len(d.Procedures))
	for i, p := range d.Procedures {
		procs[i] = model.ProcedureRecord{
			Code:         p.Code,
			ChapterStart: optString(p.ChapterStart),
			ChapterEnd:   optString(p.ChapterEnd),
			Category:     optString(p.Category),
			BodySystem:   optString(p.BodySystem),
			IsMajor:      p.IsMajor,
			SimilarCodes: p.Similar,
		}
	}
	if err := writeFile(dir, model.ProceduresTable, procs); err != nil {
		return err
	}

	tariffs := make([]model.TariffRecord, len(d.Tariffs))
	for i, t := range d.Tariffs {
		t1, t2, t3 := float64(t.Tier1), float64(t.Tier2), float64(t.Tier3)
		active := t.Active
		tariffs[i] = model.TariffRecord{
			GroupingCode:  t.GroupingCode,
			Service:       string(t.Service),
			Regional:      t.Regional,
			HospitalClass: t.HospitalClass,
			HospitalType:  t.HospitalType,
			Tier1:         &t1,
			Tier2:         &t2,
			Tier3:         &t3,
			Description:   optString(t.Description),
			Active:        &active,
		}
	}
	return writeFile(dir, model.TariffsTable, tariffs)
}

func writeFile[T any](dir string, table model.RefTable, rows []T) error {
	path := filepath.Join(dir, ParquetFiles[table.Name])
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%s: %w", table.Name, err)
	}
	defer f.Close()

	w := parquet.NewGenericWriter[T](f)
	if _, err := w.Write(rows); err != nil {
		return fmt.Errorf("%s: write: %w", table.Name, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("%s: close writer: %w", table.Name, err)
	}
	return f.Close()
}

func optString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
