// Package ingest bulk-loads the reference tables from Parquet into the ref
// schema. Each table is replaced atomically: the delete, the COPY and the
// load bookkeeping share one transaction.
package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/gyeh/cbgtariff/internal/config"
	"github.com/gyeh/cbgtariff/internal/model"
)

// PipelineError wraps an error with the phase where it occurred.
type PipelineError struct {
	Phase string
	Table string
	Err   error
}

func (e *PipelineError) Error() string {
	if e.Table == "" {
		return fmt.Sprintf("%s: %s", e.Phase, e.Err)
	}
	return fmt.Sprintf("%s %s: %s", e.Phase, e.Table, e.Err)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

// Run loads every reference table that has a file configured, in
// model.AllRefTables order. It stops at the first failing table; tables
// loaded before it stay loaded.
func Run(ctx context.Context, pool *pgxpool.Pool, log zerolog.Logger, cfg *config.Config) ([]model.LoadSummary, error) {
	var summaries []model.LoadSummary
	for _, table := range model.AllRefTables {
		path, ok := cfg.Files[table.Name]
		if !ok {
			continue
		}
		s, err := LoadTable(ctx, pool, log.With().Str("table", table.Name).Logger(), table, path, cfg.Force)
		if err != nil {
			return summaries, err
		}
		summaries = append(summaries, *s)
	}
	return summaries, nil
}

// LoadTable runs preflight → stage → finalize for one reference table.
func LoadTable(ctx context.Context, pool *pgxpool.Pool, log zerolog.Logger, table model.RefTable, path string, force bool) (*model.LoadSummary, error) {
	totalStart := time.Now()

	log.Info().Str("file", path).Msg("starting preflight")
	pf, err := Preflight(ctx, pool, log, table, path, force)
	if err != nil {
		return nil, &PipelineError{Phase: "preflight", Table: table.Name, Err: err}
	}

	if pf.AlreadyLoaded {
		log.Info().
			Str("load_id", pf.LoadID.String()).
			Str("sha256", pf.FileSHA256).
			Msg("file already loaded, skipping (use --force to reload)")
		return &model.LoadSummary{
			Table:         table.Name,
			FilePath:      pf.FilePath,
			FileSHA256:    pf.FileSHA256,
			LoadID:        pf.LoadID.String(),
			AlreadyLoaded: true,
			DurationTotal: time.Since(totalStart),
		}, nil
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		MarkFailed(ctx, pool, log, pf.LoadID)
		return nil, &PipelineError{Phase: "stage", Table: table.Name, Err: err}
	}
	defer tx.Rollback(ctx)

	log.Info().Msg("starting copy")
	res, err := Stage(ctx, tx, log, pf)
	if err != nil {
		_ = tx.Rollback(ctx)
		MarkFailed(ctx, pool, log, pf.LoadID)
		return nil, &PipelineError{Phase: "stage", Table: table.Name, Err: err}
	}

	if err := Finalize(ctx, tx, log, pf, res); err != nil {
		_ = tx.Rollback(ctx)
		MarkFailed(ctx, pool, log, pf.LoadID)
		return nil, &PipelineError{Phase: "finalize", Table: table.Name, Err: err}
	}
	if err := tx.Commit(ctx); err != nil {
		MarkFailed(ctx, pool, log, pf.LoadID)
		return nil, &PipelineError{Phase: "finalize", Table: table.Name, Err: err}
	}

	if err := Analyze(ctx, pool, table); err != nil {
		log.Warn().Err(err).Msg("ANALYZE failed (non-fatal)")
	}

	summary := &model.LoadSummary{
		Table:         table.Name,
		FilePath:      pf.FilePath,
		FileSHA256:    pf.FileSHA256,
		LoadID:        pf.LoadID.String(),
		RowsRead:      res.RowsRead,
		RowsLoaded:    res.RowsLoaded,
		RowsRejected:  res.RowsRejected,
		DurationCopy:  res.Duration,
		DurationTotal: time.Since(totalStart),
	}

	log.Info().
		Int64("rows_read", summary.RowsRead).
		Int64("rows_loaded", summary.RowsLoaded).
		Int64("rows_rejected", summary.RowsRejected).
		Str("total_duration", summary.DurationTotal.String()).
		Msg("reference table loaded")

	return summary, nil
}
