package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gyeh/cbgtariff/internal/db"
	"github.com/gyeh/cbgtariff/internal/exitcode"
	"github.com/gyeh/cbgtariff/internal/ingest"
	"github.com/gyeh/cbgtariff/internal/model"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Load reference Parquet files into the ref schema",
	RunE:  runIngest,
}

// fileFlags holds one path per reference table, shared by ingest and plan.
var fileFlags = func() map[string]*string {
	m := make(map[string]*string, len(model.AllRefTables))
	for _, t := range model.AllRefTables {
		m[t.Name] = new(string)
	}
	return m
}()

// addFileFlags registers --cases, --chapters, --procedures and --tariffs.
func addFileFlags(cmd *cobra.Command) {
	for _, t := range model.AllRefTables {
		cmd.Flags().StringVar(fileFlags[t.Name], t.Name, "", fmt.Sprintf("Path to the %s Parquet file", t.Name))
	}
}

func init() {
	f := ingestCmd.Flags()
	addFileFlags(ingestCmd)
	f.BoolVar(&cfg.Force, "force", false, "Reload even if the same file is already active")
	rootCmd.AddCommand(ingestCmd)
}

// collectFiles merges the per-table flags into cfg.Files.
func collectFiles() {
	for name, p := range fileFlags {
		if *p != "" {
			cfg.Files[name] = *p
		}
	}
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	collectFiles()

	if err := cfg.ValidateWithDSN(); err != nil {
		log.Error().Err(err).Msg("config validation failed")
		os.Exit(exitcode.UsageError)
	}

	// Bulk loads must not hit the serving statement timeout.
	pool, err := db.NewPool(ctx, cfg.DSN, db.PoolOptions{StatementTimeout: "0", AppName: "cbgtariff ingest"})
	if err != nil {
		log.Error().Err(err).Msg("database connection failed")
		os.Exit(exitcode.DBConnError)
	}
	summaries, err := ingest.Run(ctx, pool, log, &cfg)
	// os.Exit skips deferred calls.
	pool.Close()

	for _, s := range summaries {
		if s.AlreadyLoaded {
			fmt.Printf("%-10s already loaded (load %s)\n", s.Table, s.LoadID)
			continue
		}
		fmt.Printf("%-10s %d rows loaded, %d rejected (%.1fs)\n",
			s.Table, s.RowsLoaded, s.RowsRejected, s.DurationTotal.Seconds())
	}
	if err != nil {
		var pe *ingest.PipelineError
		if errors.As(err, &pe) {
			log.Error().Err(pe.Err).Str("phase", pe.Phase).Str("table", pe.Table).Msg("ingest failed")
		} else {
			log.Error().Err(err).Msg("ingest failed")
		}
	}
	if code := ingestExitCode(summaries, err); code != exitcode.Success {
		os.Exit(code)
	}
	return nil
}

// ingestExitCode maps a pipeline outcome to the process exit code.
func ingestExitCode(summaries []model.LoadSummary, err error) int {
	if err != nil {
		var pe *ingest.PipelineError
		if errors.As(err, &pe) {
			switch pe.Phase {
			case "preflight":
				return exitcode.ValidationError
			case "stage":
				return exitcode.CopyError
			}
		}
		return exitcode.LoadError
	}
	for _, s := range summaries {
		if s.RowsRejected > 0 {
			return exitcode.PartialSuccess
		}
	}
	return exitcode.Success
}
