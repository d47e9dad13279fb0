package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/gyeh/cbgtariff/internal/exitcode"
	"github.com/gyeh/cbgtariff/internal/ingest"
	"github.com/gyeh/cbgtariff/internal/model"
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Dry-run validation and stats for reference files (no writes)",
	RunE:  runPlan,
}

func init() {
	addFileFlags(planCmd)
	rootCmd.AddCommand(planCmd)
}

func runPlan(cmd *cobra.Command, args []string) error {
	collectFiles()
	if err := cfg.ValidateFiles(); err != nil {
		log.Error().Err(err).Msg("config validation failed")
		os.Exit(exitcode.UsageError)
	}

	fmt.Println("=== cbgtariff plan ===")
	rejected := false
	for _, t := range model.AllRefTables {
		path, ok := cfg.Files[t.Name]
		if !ok {
			continue
		}
		rep, err := ingest.Plan(log, t, path)
		if err != nil {
			log.Error().Err(err).Str("table", t.Name).Msg("plan failed")
			os.Exit(exitcode.ValidationError)
		}

		fmt.Println()
		fmt.Printf("Table:      %s → ref.%s\n", t.Name, t.Table)
		fmt.Printf("File:       %s\n", rep.FilePath)
		fmt.Printf("SHA-256:    %s\n", rep.FileSHA256)
		fmt.Printf("Size:       %d bytes\n", rep.SizeBytes)
		fmt.Printf("Total rows: %d\n", rep.NumRows)
		fmt.Printf("Valid rows: %d\n", rep.RowsValid)
		fmt.Printf("Rejected:   %d\n", rep.RowsRejected)

		reasons := make([]string, 0, len(rep.Reasons))
		for r := range rep.Reasons {
			reasons = append(reasons, r)
		}
		sort.Slice(reasons, func(i, j int) bool { return rep.Reasons[reasons[i]] > rep.Reasons[reasons[j]] })
		for i, r := range reasons {
			if i == 5 {
				fmt.Printf("  ... %d more reasons\n", len(reasons)-i)
				break
			}
			fmt.Printf("  %6d  %s\n", rep.Reasons[r], r)
		}
		if rep.RowsRejected > 0 {
			rejected = true
		}
	}
	fmt.Println()
	fmt.Println("Schema validation: OK")

	if rejected {
		os.Exit(exitcode.PartialSuccess)
	}
	return nil
}
