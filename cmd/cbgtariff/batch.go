package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/gyeh/cbgtariff/internal/adjudicate"
	"github.com/gyeh/cbgtariff/internal/exitcode"
	"github.com/gyeh/cbgtariff/internal/grouping"
	"github.com/gyeh/cbgtariff/internal/progress"
	"github.com/gyeh/cbgtariff/internal/worker"
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Adjudicate a JSONL file of claims concurrently",
	Long:  "Reads one claim per line from --in, adjudicates them with a worker pool and writes one result per line to --out (stdout by default).",
	RunE:  runBatch,
}

func init() {
	f := batchCmd.Flags()
	f.StringVar(&cfg.InPath, "in", "", "Input JSONL file of claims (required)")
	f.StringVar(&cfg.OutPath, "out", "", "Output JSONL file (default stdout)")
	f.IntVar(&cfg.Workers, "workers", cfg.Workers, "Concurrent adjudications")
	f.BoolVar(&cfg.NoProgress, "no-progress", false, "Disable progress bars")
	rootCmd.AddCommand(batchCmd)
}

func runBatch(cmd *cobra.Command, args []string) error {
	if err := cfg.ValidateBatch(); err != nil {
		log.Error().Err(err).Msg("config validation failed")
		os.Exit(exitcode.UsageError)
	}

	in, err := os.Open(cfg.InPath)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	claims, err := worker.ReadClaims(in)
	in.Close()
	if err != nil {
		log.Error().Err(err).Msg("failed to read claims")
		os.Exit(exitcode.ValidationError)
	}

	// Handle signals
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\nInterrupted, cleaning up...")
		cancel()
	}()

	ref := openReference(ctx, "batch", int32(cfg.Workers)+2)
	code, err := adjudicateAll(ctx, ref, claims)
	// os.Exit skips deferred calls.
	ref.Close()
	if err != nil {
		return err
	}
	if code != exitcode.Success {
		os.Exit(code)
	}
	return nil
}

// adjudicateAll runs the pool, writes the results and returns the exit code
// for the batch outcome.
func adjudicateAll(ctx context.Context, ref *reference, claims []worker.Claim) (int, error) {
	var mgr progress.Manager
	if cfg.NoProgress {
		mgr = progress.NoopManager{}
	} else {
		mgr = progress.NewMPBManager(os.Stderr)
	}

	startTime := time.Now()
	pool := &worker.Pool{
		Workers:  cfg.Workers,
		Service:  adjudicate.NewService(ref.repo, grouping.Options{MinDiagnosisCases: cfg.MinDiagnosisCases}, log),
		Progress: mgr,
	}
	results, runErr := pool.Run(ctx, claims)
	mgr.Wait()
	if runErr != nil {
		log.Error().Err(runErr).Msg("batch aborted")
		return exitcode.LoadError, nil
	}

	out := os.Stdout
	if cfg.OutPath != "" {
		f, err := os.Create(cfg.OutPath)
		if err != nil {
			return exitcode.Success, fmt.Errorf("create output: %w", err)
		}
		defer f.Close()
		out = f
	}
	w := bufio.NewWriter(out)
	if err := worker.WriteResults(w, results); err != nil {
		return exitcode.Success, fmt.Errorf("write results: %w", err)
	}
	if err := w.Flush(); err != nil {
		return exitcode.Success, fmt.Errorf("write results: %w", err)
	}

	sum := worker.Summarize(results)
	log.Info().
		Int("total", sum.Total).
		Int("resolved", sum.Resolved).
		Int("unpriced", sum.Unpriced).
		Int("unresolved", sum.Unresolved).
		Int("failed", sum.Failed).
		Str("duration", time.Since(startTime).Round(time.Millisecond).String()).
		Msg("batch complete")

	if sum.Failed > 0 {
		return exitcode.PartialSuccess, nil
	}
	return exitcode.Success, nil
}
