package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/gyeh/cbgtariff/internal/adjudicate"
	"github.com/gyeh/cbgtariff/internal/api"
	"github.com/gyeh/cbgtariff/internal/exitcode"
	"github.com/gyeh/cbgtariff/internal/grouping"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Resolve and price one claim, printing the result as JSON",
	RunE:  runResolve,
}

var (
	resolveReq  adjudicate.Request
	resolveOnly bool
)

func init() {
	f := resolveCmd.Flags()
	f.StringVar(&resolveReq.PrimaryDiagnosis, "diagnosis", "", "Primary ICD-10 diagnosis (required)")
	f.StringSliceVar(&resolveReq.SecondaryDiagnoses, "secondary", nil, "Secondary diagnoses")
	f.StringSliceVar(&resolveReq.Procedures, "procedures", nil, "ICD-9-CM procedures, main procedure first")
	f.StringVar(&resolveReq.ServiceContext, "service", "", "inpatient or outpatient (required)")
	f.StringVar(&resolveReq.RegionalZone, "regional", "", "Regional zone")
	f.StringVar(&resolveReq.HospitalClass, "class", "", "Hospital class")
	f.StringVar(&resolveReq.HospitalType, "type", "", "Hospital type")
	f.IntVar(&resolveReq.InsuranceTier, "tier", 0, "Insurance tier 1-3 (default 1)")
	f.BoolVar(&resolveOnly, "resolve-only", false, "Skip pricing and print only the grouping resolution")
	_ = resolveCmd.MarkFlagRequired("diagnosis")
	_ = resolveCmd.MarkFlagRequired("service")
	rootCmd.AddCommand(resolveCmd)
}

func runResolve(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	ref := openReference(ctx, "resolve", 2)
	code, err := resolveClaim(ctx, ref, os.Stdout)
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

// resolveClaim writes the outcome for resolveReq to w and returns the exit
// code its status maps to.
func resolveClaim(ctx context.Context, ref *reference, w io.Writer) (int, error) {
	svc := adjudicate.NewService(ref.repo, grouping.Options{MinDiagnosisCases: cfg.MinDiagnosisCases}, log)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	if resolveOnly {
		claim, err := adjudicate.ClaimFromRequest(resolveReq)
		if err != nil {
			return serviceErrorCode(err), nil
		}
		out, err := svc.Resolve(ctx, claim)
		if err != nil {
			return serviceErrorCode(err), nil
		}
		if err := enc.Encode(api.ResolveResponse{
			Resolved:   out.Resolved(),
			Result:     out.Result,
			Unresolved: out.Unresolved,
		}); err != nil {
			return exitcode.Success, err
		}
		if !out.Resolved() {
			return exitcode.Unresolved, nil
		}
		return exitcode.Success, nil
	}

	resp, err := svc.Adjudicate(ctx, resolveReq)
	if err != nil {
		return serviceErrorCode(err), nil
	}
	if err := enc.Encode(resp); err != nil {
		return exitcode.Success, err
	}
	switch resp.Status {
	case adjudicate.StatusUnresolved:
		return exitcode.Unresolved, nil
	case adjudicate.StatusResolvedUnpriced:
		return exitcode.PartialSuccess, nil
	}
	return exitcode.Success, nil
}

// serviceErrorCode logs err and returns the exit code for its class.
func serviceErrorCode(err error) int {
	var inputErr *grouping.InputError
	if errors.As(err, &inputErr) {
		log.Error().Str("field", inputErr.Field).Msg(inputErr.Error())
		return exitcode.ValidationError
	}
	log.Error().Err(err).Msg("reference data unavailable")
	return exitcode.LoadError
}
