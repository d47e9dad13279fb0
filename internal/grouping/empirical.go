package grouping

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/gyeh/cbgtariff/internal/model"
	"github.com/gyeh/cbgtariff/internal/normalize"
	"github.com/gyeh/cbgtariff/internal/refdata"
)

// exactMatch looks up the full (diagnosis, signature, service) triple.
func exactMatch(ctx context.Context, repo refdata.Repository, c model.ClaimContext, _ Options) (*model.ResolutionResult, string, error) {
	sig := normalize.Signature(c.Procedures)
	hit, err := repo.FindExact(ctx, c.PrimaryDiagnosis, sig, c.Service)
	if err != nil {
		return nil, "", err
	}
	if hit == nil {
		return nil, fmt.Sprintf("no case with signature %q", sig), nil
	}
	return &model.ResolutionResult{
		Code:       hit.Code,
		Confidence: ConfidenceExact,
		CaseCount:  hit.Cases,
	}, "", nil
}

// partialMatch anchors on the main procedure and ignores the rest.
func partialMatch(ctx context.Context, repo refdata.Repository, c model.ClaimContext, _ Options) (*model.ResolutionResult, string, error) {
	anchor := c.MainProcedure()
	if anchor == "" {
		return nil, "no main procedure", nil
	}
	hit, err := repo.FindByMember(ctx, c.PrimaryDiagnosis, anchor, c.Service)
	if err != nil {
		return nil, "", err
	}
	if hit == nil {
		return nil, fmt.Sprintf("no case containing %s", anchor), nil
	}
	res := &model.ResolutionResult{
		Code:       hit.Code,
		Confidence: ConfidencePartial,
		CaseCount:  hit.Cases,
	}
	if ignored := c.Procedures[1:]; len(ignored) > 0 {
		res.Warnings = append(res.Warnings, model.Warning{
			Kind:    model.WarnProceduresIgnored,
			Message: fmt.Sprintf("matched on main procedure %s only; ignored %s", anchor, strings.Join(ignored, ", ")),
			Codes:   append([]string(nil), ignored...),
		})
	}
	return res, "", nil
}

// diagnosisOnly ranks every grouping code seen with the diagnosis by case
// share. Confidence depends on how dominant the top code is.
func diagnosisOnly(ctx context.Context, repo refdata.Repository, c model.ClaimContext, opts Options) (*model.ResolutionResult, string, error) {
	groups, total, err := repo.FindTopByDiagnosis(ctx, c.PrimaryDiagnosis, c.Service, 1+MaxAlternatives)
	if err != nil {
		return nil, "", err
	}
	if len(groups) == 0 || total <= 0 {
		return nil, "diagnosis absent from case history", nil
	}
	if total < opts.minDiagnosisCases() {
		return nil, fmt.Sprintf("only %d cases for diagnosis, need %d", total, opts.minDiagnosisCases()), nil
	}

	top := groups[0]
	share := float64(top.Cases) / float64(total)
	confidence := ConfidenceDiagnosisWeak
	switch {
	case share >= 0.5:
		confidence = ConfidenceDiagnosisMajority
	case share >= 0.3:
		confidence = ConfidenceDiagnosisPlural
	}

	res := &model.ResolutionResult{
		Code:       top.Code,
		Confidence: confidence,
		CaseCount:  top.Cases,
	}
	for _, g := range groups[1:] {
		res.Alternatives = append(res.Alternatives, model.Alternative{
			Code:      g.Code,
			CaseCount: g.Cases,
			Percent:   percent(g.Cases, total),
		})
	}
	msg := fmt.Sprintf("matched on diagnosis only (%.1f%% of %d cases); procedures were not considered",
		percent(top.Cases, total), total)
	if c.HasProcedures() {
		msg += "; ignored " + strings.Join(c.Procedures, ", ")
	}
	res.Warnings = append(res.Warnings, model.Warning{
		Kind:    model.WarnProceduresIgnored,
		Message: msg,
		Codes:   append([]string{}, c.Procedures...),
	})
	return res, "", nil
}

// similarProcedure swaps the main procedure for each precomputed similar
// procedure in order and retries the exact lookup.
func similarProcedure(ctx context.Context, repo refdata.Repository, c model.ClaimContext, _ Options) (*model.ResolutionResult, string, error) {
	main := c.MainProcedure()
	if main == "" {
		return nil, "no main procedure", nil
	}
	info, err := repo.FindProcedure(ctx, main)
	if err != nil {
		return nil, "", err
	}
	if info == nil || len(info.Similar) == 0 {
		return nil, fmt.Sprintf("no similar procedures for %s", main), nil
	}

	procs := append([]string(nil), c.Procedures...)
	for _, alt := range info.Similar {
		procs[0] = alt
		sig := normalize.Signature(procs)
		hit, err := repo.FindExact(ctx, c.PrimaryDiagnosis, sig, c.Service)
		if err != nil {
			return nil, "", err
		}
		if hit == nil {
			continue
		}
		return &model.ResolutionResult{
			Code:       hit.Code,
			Confidence: ConfidenceSimilar,
			CaseCount:  hit.Cases,
			Warnings: []model.Warning{{
				Kind:    model.WarnProcedureSubstituted,
				Message: fmt.Sprintf("no history for %s; matched using similar procedure %s", main, alt),
				Codes:   []string{main, alt},
			}},
		}, "", nil
	}
	return nil, fmt.Sprintf("none of %d similar procedures matched", len(info.Similar)), nil
}

// percent returns part/total as a percentage rounded to one decimal.
func percent(part, total int64) float64 {
	return math.Round(float64(part)/float64(total)*1000) / 10
}
