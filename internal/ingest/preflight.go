package ingest

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/gyeh/cbgtariff/internal/model"
	"github.com/gyeh/cbgtariff/internal/normalize"
	"github.com/gyeh/cbgtariff/internal/parquetread"
	"github.com/gyeh/cbgtariff/internal/sql"
)

// PreflightResult holds all context resolved during the preflight phase.
type PreflightResult struct {
	Table      model.RefTable
	FilePath   string
	FileSHA256 string
	// LoadID identifies the ref.dataset_loads row. When AlreadyLoaded is
	// true it is the existing active load; otherwise a new pending one.
	LoadID        uuid.UUID
	NumRows       int64
	AlreadyLoaded bool
}

// Preflight hashes the file, validates its schema and registers a pending
// load. An active load of the same file short-circuits unless force is set.
func Preflight(ctx context.Context, pool *pgxpool.Pool, log zerolog.Logger, table model.RefTable, path string, force bool) (*PreflightResult, error) {
	start := time.Now()

	sha, err := normalize.FileHash(path)
	if err != nil {
		return nil, fmt.Errorf("preflight hash: %w", err)
	}

	schema, numRows, err := parquetread.FileSchema(path)
	if err != nil {
		return nil, fmt.Errorf("preflight open: %w", err)
	}
	if err := parquetread.ValidateSchema(schema, table); err != nil {
		return nil, fmt.Errorf("preflight validate: %w", err)
	}

	log.Info().
		Str("file", filepath.Base(path)).
		Str("sha256", sha).
		Int64("rows", numRows).
		Dur("duration", time.Since(start)).
		Msg("preflight complete")

	pf := &PreflightResult{
		Table:      table,
		FilePath:   path,
		FileSHA256: sha,
		NumRows:    numRows,
	}

	if !force {
		var existing uuid.UUID
		err := pool.QueryRow(ctx, sql.LookupActiveLoad, table.Name, sha).Scan(&existing)
		switch {
		case err == nil:
			pf.LoadID = existing
			pf.AlreadyLoaded = true
			return pf, nil
		case !errors.Is(err, pgx.ErrNoRows):
			return nil, fmt.Errorf("lookup active load: %w", err)
		}
	}

	pf.LoadID = uuid.New()
	if _, err := pool.Exec(ctx, sql.RegisterLoad, pf.LoadID, table.Name, filepath.Base(path), sha); err != nil {
		return nil, fmt.Errorf("register load: %w", err)
	}
	return pf, nil
}
