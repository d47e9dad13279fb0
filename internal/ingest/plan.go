package ingest

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/gyeh/cbgtariff/internal/model"
	"github.com/gyeh/cbgtariff/internal/normalize"
	"github.com/gyeh/cbgtariff/internal/parquetread"
)

// PlanReport describes what loading a file would do, without touching the
// database.
type PlanReport struct {
	Table        model.RefTable
	FilePath     string
	FileSHA256   string
	SizeBytes    int64
	NumRows      int64
	RowsValid    int64
	RowsRejected int64
	// Reasons counts rejections by normalization error text.
	Reasons map[string]int64
}

// Plan validates the schema and runs every row through normalization.
func Plan(log zerolog.Logger, table model.RefTable, path string) (*PlanReport, error) {
	dg, err := normalize.FileDigest(path)
	if err != nil {
		return nil, err
	}
	schema, numRows, err := parquetread.FileSchema(path)
	if err != nil {
		return nil, err
	}
	if err := parquetread.ValidateSchema(schema, table); err != nil {
		return nil, err
	}

	rep := &PlanReport{
		Table:      table,
		FilePath:   path,
		FileSHA256: dg.SHA256,
		SizeBytes:  dg.Size,
		NumRows:    numRows,
		Reasons:    make(map[string]int64),
	}
	tally := func(rowNum int64, err error) {
		if err == nil {
			rep.RowsValid++
			return
		}
		rep.RowsRejected++
		rep.Reasons[err.Error()]++
		log.Debug().Err(err).Str("table", table.Name).Int64("row", rowNum).Msg("row would be rejected")
	}

	switch table.Name {
	case model.CasesTable.Name:
		_, err = parquetread.Each(path, func(n int64, r *model.CaseHistoryRecord) error {
			_, err := normalize.ToHistoricalCase(r)
			tally(n, err)
			return nil
		})
	case model.ChaptersTable.Name:
		_, err = parquetread.Each(path, func(n int64, r *model.ChapterMappingRecord) error {
			_, err := normalize.ToChapterMapping(r)
			tally(n, err)
			return nil
		})
	case model.ProceduresTable.Name:
		_, err = parquetread.Each(path, func(n int64, r *model.ProcedureRecord) error {
			_, err := normalize.ToProcedureInfo(r)
			tally(n, err)
			return nil
		})
	case model.TariffsTable.Name:
		_, err = parquetread.Each(path, func(n int64, r *model.TariffRecord) error {
			_, err := normalize.ToTariffRow(r)
			tally(n, err)
			return nil
		})
	default:
		return nil, fmt.Errorf("unknown reference table %q", table.Name)
	}
	if err != nil {
		return nil, err
	}
	return rep, nil
}
