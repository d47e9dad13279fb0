package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/gyeh/cbgtariff/internal/db"
	"github.com/gyeh/cbgtariff/internal/model"
	"github.com/gyeh/cbgtariff/internal/normalize"
	"github.com/gyeh/cbgtariff/internal/parquetread"
)

const copyBufferSize = 1024

// StageResult holds metrics from the staging phase.
type StageResult struct {
	RowsRead     int64
	RowsLoaded   int64
	RowsRejected int64
	Duration     time.Duration
}

// Stage empties the target table and COPY-loads the normalized rows of the
// preflighted file inside tx. Rows that fail normalization are counted and
// logged, never loaded.
func Stage(ctx context.Context, tx pgx.Tx, log zerolog.Logger, pf *PreflightResult) (*StageResult, error) {
	start := time.Now()

	if _, err := tx.Exec(ctx, "DELETE FROM "+pgx.Identifier{"ref", pf.Table.Table}.Sanitize()); err != nil {
		return nil, fmt.Errorf("clear %s: %w", pf.Table.Table, err)
	}

	var (
		res *StageResult
		err error
	)
	switch pf.Table.Name {
	case model.CasesTable.Name:
		res, err = copyTable(ctx, tx, log, pf, model.CaseHistoryColumns(), normalize.ToHistoricalCase)
	case model.ChaptersTable.Name:
		res, err = copyTable(ctx, tx, log, pf, model.ChapterMappingColumns(), normalize.ToChapterMapping)
	case model.ProceduresTable.Name:
		res, err = copyTable(ctx, tx, log, pf, model.ProcedureColumns(), normalize.ToProcedureInfo)
	case model.TariffsTable.Name:
		res, err = copyTable(ctx, tx, log, pf, model.TariffColumns(), normalize.ToTariffRow)
	default:
		return nil, fmt.Errorf("unknown reference table %q", pf.Table.Name)
	}
	if err != nil {
		return nil, err
	}

	res.Duration = time.Since(start)
	log.Info().
		Int64("rows_read", res.RowsRead).
		Int64("rows_loaded", res.RowsLoaded).
		Int64("rows_rejected", res.RowsRejected).
		Str("duration", res.Duration.String()).
		Float64("rows_per_sec", float64(res.RowsLoaded)/res.Duration.Seconds()).
		Msg("copy complete")
	return res, nil
}

// copyTable streams records of type R from the file, converts them to T and
// feeds them to COPY through a channel-backed source.
func copyTable[R any, T model.CopyRow](ctx context.Context, tx pgx.Tx, log zerolog.Logger, pf *PreflightResult, columns []string, convert func(*R) (T, error)) (*StageResult, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	ch := make(chan T, copyBufferSize)
	errCh := make(chan error, 1)
	res := &StageResult{}

	// Producer goroutine: read Parquet → normalize → push to channel
	go func() {
		defer close(ch)
		read, err := parquetread.Each(pf.FilePath, func(rowNum int64, rec *R) error {
			row, normErr := convert(rec)
			if normErr != nil {
				res.RowsRejected++
				log.Warn().Err(normErr).Int64("row", rowNum).Msg("row rejected")
				return nil
			}
			select {
			case ch <- row:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
		res.RowsRead = read
		errCh <- err
	}()

	loaded, copyErr := tx.CopyFrom(ctx, pgx.Identifier{"ref", pf.Table.Table}, columns, db.NewChannelSource(ch))
	if copyErr != nil {
		// Unblock the producer before waiting for it.
		cancel()
	}
	prodErr := <-errCh

	if copyErr != nil {
		return nil, fmt.Errorf("copy %s: %w", pf.Table.Table, copyErr)
	}
	if prodErr != nil {
		return nil, fmt.Errorf("read %s: %w", pf.Table.Name, prodErr)
	}
	res.RowsLoaded = loaded
	return res, nil
}
