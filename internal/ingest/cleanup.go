package ingest

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/gyeh/cbgtariff/internal/sql"
)

// MarkFailed records a failed load. Row counts are left untouched. The
// caller has already rolled back, so the previous active data is intact.
func MarkFailed(ctx context.Context, pool *pgxpool.Pool, log zerolog.Logger, loadID uuid.UUID) {
	if _, err := pool.Exec(ctx, sql.UpdateLoadStatus, loadID, "failed", nil, nil, nil); err != nil {
		log.Warn().Err(err).Str("load_id", loadID.String()).Msg("failed to mark load as failed")
	}
}
