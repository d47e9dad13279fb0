package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/gyeh/cbgtariff/internal/db"
	"github.com/gyeh/cbgtariff/internal/exitcode"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database schema migrations",
	RunE:  runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	if cfg.DSN == "" {
		log.Error().Msg("--dsn or CBG_DB_URL is required")
		os.Exit(exitcode.UsageError)
	}

	pool, err := db.NewPool(ctx, cfg.DSN, db.PoolOptions{StatementTimeout: cfg.StatementTimeout, AppName: "cbgtariff migrate"})
	if err != nil {
		log.Error().Err(err).Msg("database connection failed")
		os.Exit(exitcode.DBConnError)
	}
	err = db.ApplyMigrations(ctx, pool, log)
	pool.Close()
	if err != nil {
		log.Error().Err(err).Msg("migration failed")
		os.Exit(exitcode.LoadError)
	}

	log.Info().Msg("all migrations applied successfully")
	return nil
}
