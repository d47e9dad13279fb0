package ingest

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/gyeh/cbgtariff/internal/model"
	"github.com/gyeh/cbgtariff/internal/sql"
)

// Finalize supersedes older loads of the table and activates this one.
// It runs inside the staging transaction so readers never see the new rows
// without the matching active load.
func Finalize(ctx context.Context, tx pgx.Tx, log zerolog.Logger, pf *PreflightResult, res *StageResult) error {
	tag, err := tx.Exec(ctx, sql.SupersedeLoads, pf.Table.Name, pf.LoadID)
	if err != nil {
		return fmt.Errorf("supersede older loads: %w", err)
	}
	log.Info().Int64("superseded", tag.RowsAffected()).Msg("older loads superseded")

	if _, err := tx.Exec(ctx, sql.UpdateLoadStatus, pf.LoadID, "active",
		res.RowsRead, res.RowsLoaded, res.RowsRejected); err != nil {
		return fmt.Errorf("activate load: %w", err)
	}
	log.Info().Str("load_id", pf.LoadID.String()).Msg("load activated")
	return nil
}

// Analyze refreshes planner statistics for the table.
func Analyze(ctx context.Context, pool *pgxpool.Pool, table model.RefTable) error {
	_, err := pool.Exec(ctx, "ANALYZE "+pgx.Identifier{"ref", table.Table}.Sanitize())
	return err
}
