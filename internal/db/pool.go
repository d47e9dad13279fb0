package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PoolOptions tunes a pool for one command.
type PoolOptions struct {
	// StatementTimeout becomes the session statement_timeout. "0" disables
	// it, which bulk loads and exports need; empty keeps the server default.
	StatementTimeout string
	// AppName is reported as application_name, e.g. "cbgtariff serve".
	AppName string
	// MaxConns caps the pool. Zero keeps the pgx default.
	MaxConns int32
}

// NewPool creates and pings a pgxpool for the reference schema.
func NewPool(ctx context.Context, dsn string, opts PoolOptions) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}

	params := cfg.ConnConfig.RuntimeParams
	if opts.StatementTimeout != "" {
		params["statement_timeout"] = opts.StatementTimeout
	}
	if opts.AppName != "" {
		params["application_name"] = opts.AppName
	} else {
		params["application_name"] = "cbgtariff"
	}
	if opts.MaxConns > 0 {
		cfg.MaxConns = opts.MaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}
