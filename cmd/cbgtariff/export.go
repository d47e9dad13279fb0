package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gyeh/cbgtariff/internal/db"
	"github.com/gyeh/cbgtariff/internal/exitcode"
	"github.com/gyeh/cbgtariff/internal/refdata"
)

var exportCmd = &cobra.Command{
	Use:   "export DIR",
	Short: "Write the active ref schema rows as a Parquet snapshot directory",
	Args:  cobra.ExactArgs(1),
	RunE:  runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	if cfg.DSN == "" {
		log.Error().Msg("--dsn or CBG_DB_URL is required")
		os.Exit(exitcode.UsageError)
	}
	pool, err := db.NewPool(ctx, cfg.DSN, db.PoolOptions{StatementTimeout: "0", AppName: "cbgtariff export"})
	if err != nil {
		log.Error().Err(err).Msg("database connection failed")
		os.Exit(exitcode.DBConnError)
	}
	d, err := refdata.LoadPostgres(ctx, pool)
	// The snapshot is in memory; os.Exit below would skip a deferred Close.
	pool.Close()
	if err != nil {
		log.Error().Err(err).Msg("read reference tables failed")
		os.Exit(exitcode.LoadError)
	}
	// Refuse to publish a snapshot that serve would reject.
	snap, err := refdata.Build(d)
	if err != nil {
		log.Error().Err(err).Msg("reference tables are inconsistent")
		os.Exit(exitcode.ValidationError)
	}
	if err := refdata.WriteParquet(args[0], d); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}

	c := snap.Counts()
	fmt.Printf("Exported %s: %d cases, %d chapters, %d procedures, %d tariffs\n",
		args[0], c.Cases, c.Chapters, c.Procedures, c.Tariffs)
	return nil
}
