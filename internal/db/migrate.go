package db

import (
	"context"
	"fmt"
	"io/fs"
	"sort"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	embedsql "github.com/gyeh/cbgtariff/internal/sql"
)

// migrationLockID serializes concurrent migrate runs.
const migrationLockID = 0x636267 // "cbg"

const bootstrap = `
CREATE SCHEMA IF NOT EXISTS ref;
CREATE TABLE IF NOT EXISTS ref.schema_migrations (
    name       text        PRIMARY KEY,
    applied_at timestamptz NOT NULL DEFAULT now()
)`

// ApplyMigrations runs the embedded SQL migrations in filename order, each
// in its own transaction, recording them in ref.schema_migrations. Already
// recorded migrations are skipped; the DDL itself also uses IF NOT EXISTS.
func ApplyMigrations(ctx context.Context, pool *pgxpool.Pool, log zerolog.Logger) error {
	entries, err := fs.ReadDir(embedsql.Migrations, "migrations")
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	if _, err := pool.Exec(ctx, bootstrap); err != nil {
		return fmt.Errorf("bootstrap migrations table: %w", err)
	}

	applied, skipped := 0, 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		data, err := fs.ReadFile(embedsql.Migrations, "migrations/"+name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}

		done, err := applyOne(ctx, pool, name, string(data))
		if err != nil {
			return fmt.Errorf("execute migration %s: %w", name, err)
		}
		if done {
			log.Info().Str("migration", name).Msg("migration applied")
			applied++
		} else {
			skipped++
		}
	}

	log.Info().Int("applied", applied).Int("already_applied", skipped).Msg("migrations complete")
	return nil
}

// applyOne runs one migration unless it is already recorded. It reports
// whether the migration ran.
func applyOne(ctx context.Context, pool *pgxpool.Pool, name, body string) (bool, error) {
	ran := false
	err := pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", int64(migrationLockID)); err != nil {
			return err
		}
		var exists bool
		if err := tx.QueryRow(ctx,
			"SELECT EXISTS (SELECT 1 FROM ref.schema_migrations WHERE name = $1)", name).Scan(&exists); err != nil {
			return err
		}
		if exists {
			return nil
		}
		if _, err := tx.Exec(ctx, body); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, "INSERT INTO ref.schema_migrations (name) VALUES ($1)", name); err != nil {
			return err
		}
		ran = true
		return nil
	})
	return ran, err
}
