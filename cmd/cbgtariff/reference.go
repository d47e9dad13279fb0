package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gyeh/cbgtariff/internal/config"
	"github.com/gyeh/cbgtariff/internal/db"
	"github.com/gyeh/cbgtariff/internal/exitcode"
	"github.com/gyeh/cbgtariff/internal/refdata"
)

// reference is the repository a command resolves against. live is nil in
// direct mode, where nothing is cached.
type reference struct {
	repo refdata.Repository
	live *refdata.Live
	pool *pgxpool.Pool
}

func (r *reference) Close() {
	if r.pool != nil {
		r.pool.Close()
	}
}

// openReference builds the repository for cfg.ReferenceMode, exiting with
// the matching code when the source is unusable. name labels the database
// session; maxConns of 0 keeps the pgx default.
func openReference(ctx context.Context, name string, maxConns int32) *reference {
	if err := cfg.ValidateReference(); err != nil {
		log.Error().Err(err).Msg("config validation failed")
		os.Exit(exitcode.UsageError)
	}

	ref := &reference{}
	if cfg.ReferenceMode != config.ModeSnapshot {
		pool, err := db.NewPool(ctx, cfg.DSN, db.PoolOptions{
			StatementTimeout: cfg.StatementTimeout,
			AppName:          "cbgtariff " + name,
			MaxConns:         maxConns,
		})
		if err != nil {
			log.Error().Err(err).Msg("database connection failed")
			os.Exit(exitcode.DBConnError)
		}
		ref.pool = pool
	}

	var loader refdata.Loader
	switch cfg.ReferenceMode {
	case config.ModeDirect:
		ref.repo = refdata.NewPostgres(ref.pool)
		return ref
	case config.ModePostgres:
		loader = func(ctx context.Context) (refdata.Data, error) {
			return refdata.LoadPostgres(ctx, ref.pool)
		}
	default:
		dir := cfg.ReferenceDir
		loader = func(context.Context) (refdata.Data, error) {
			return refdata.LoadParquet(dir, log)
		}
	}

	live, err := refdata.NewLive(ctx, loader, log)
	if err != nil {
		ref.Close()
		log.Error().Err(fmt.Errorf("load reference snapshot: %w", err)).Msg("reference data unavailable")
		os.Exit(exitcode.LoadError)
	}
	ref.repo = live
	ref.live = live
	return ref
}
