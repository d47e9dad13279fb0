package grouping

import (
	"context"
	"fmt"

	"github.com/gyeh/cbgtariff/internal/model"
	"github.com/gyeh/cbgtariff/internal/refdata"
)

// Case-type digits. 6–9 are reserved for obstetric and neonatal groups,
// which rule-based construction does not produce: such claims resolve only
// through case history.
const (
	CaseTypeInpatientProcedure    = "1"
	CaseTypeOutpatientMajor       = "2"
	CaseTypeOutpatientMinor       = "3"
	CaseTypeInpatientNonProcedure = "4"
	CaseTypeOutpatientNoProcedure = "5"
)

// CaseTypeDescriptions labels every case-type digit, reserved ones included.
var CaseTypeDescriptions = map[string]string{
	"1": "Inpatient procedure",
	"2": "Outpatient major procedure",
	"3": "Outpatient significant procedure",
	"4": "Inpatient non-procedure",
	"5": "Outpatient non-procedure",
	"6": "Inpatient obstetric",
	"7": "Outpatient obstetric",
	"8": "Inpatient neonatal",
	"9": "Outpatient neonatal",
}

// SeverityDescriptions labels each severity marker.
var SeverityDescriptions = map[string]string{
	model.SeverityNone:     "No severity (outpatient)",
	model.SeverityMild:     "Mild",
	model.SeverityModerate: "Moderate",
	model.SeveritySevere:   "Severe",
}

// severityFallbacks is the fixed order tried when the computed severity has
// no tariff row.
var severityFallbacks = []string{
	model.SeverityMild,
	model.SeverityModerate,
	model.SeveritySevere,
	model.SeverityNone,
}

// ruleBased synthesizes CMG-CaseType-Specific-Severity and only returns it
// once the Tariff Master confirms the code exists.
func ruleBased(ctx context.Context, repo refdata.Repository, c model.ClaimContext, _ Options) (*model.ResolutionResult, string, error) {
	chapter, err := repo.FindChapter(ctx, c.PrimaryDiagnosis)
	if err != nil {
		return nil, "", err
	}
	if chapter == nil {
		return nil, fmt.Sprintf("diagnosis %s is not covered by any chapter mapping", c.PrimaryDiagnosis), nil
	}

	caseType, err := caseTypeFor(ctx, repo, c)
	if err != nil {
		return nil, "", err
	}

	gc := model.GroupingCode{CMG: chapter.CMG, CaseType: caseType}
	specific, err := repo.FindTariffPrefix(ctx, gc.Prefix())
	if err != nil {
		return nil, "", err
	}
	if specific == "" {
		return nil, fmt.Sprintf("tariff master has no codes under %s", gc.Prefix()), nil
	}
	gc.Specific = specific

	wanted := severityFor(c)
	gc.Severity = wanted
	ok, err := repo.TariffExists(ctx, gc.String(), c.Service.Tariff())
	if err != nil {
		return nil, "", err
	}
	if ok {
		return &model.ResolutionResult{Code: gc.String(), Confidence: ConfidenceRuleBased}, "", nil
	}

	for _, sev := range severityFallbacks {
		if sev == wanted {
			continue
		}
		gc.Severity = sev
		ok, err := repo.TariffExists(ctx, gc.String(), c.Service.Tariff())
		if err != nil {
			return nil, "", err
		}
		if !ok {
			continue
		}
		return &model.ResolutionResult{
			Code:       gc.String(),
			Confidence: ConfidenceRuleBasedAdjusted,
			Warnings: []model.Warning{{
				Kind: model.WarnSeverityAdjusted,
				Message: fmt.Sprintf("severity %s computed from %d secondary diagnoses has no tariff; used %s",
					wanted, len(c.SecondaryDiagnoses), sev),
				Codes: []string{wanted, sev},
			}},
		}, "", nil
	}

	gc.Severity = wanted
	return nil, fmt.Sprintf("no severity variant of %s%s exists in the tariff master", gc.Prefix(), gc.Specific), nil
}

// caseTypeFor derives the case-type digit from service context and the main
// procedure. Outpatient procedures unknown to the procedure table count as minor.
func caseTypeFor(ctx context.Context, repo refdata.Repository, c model.ClaimContext) (string, error) {
	if c.Service == model.Inpatient {
		if c.HasProcedures() {
			return CaseTypeInpatientProcedure, nil
		}
		return CaseTypeInpatientNonProcedure, nil
	}
	if !c.HasProcedures() {
		return CaseTypeOutpatientNoProcedure, nil
	}
	info, err := repo.FindProcedure(ctx, c.MainProcedure())
	if err != nil {
		return "", err
	}
	if info != nil && info.IsMajor {
		return CaseTypeOutpatientMajor, nil
	}
	return CaseTypeOutpatientMinor, nil
}

// severityFor escalates inpatient severity with comorbidity count.
func severityFor(c model.ClaimContext) string {
	if c.Service == model.Outpatient {
		return model.SeverityNone
	}
	switch n := len(c.SecondaryDiagnoses); {
	case n == 0:
		return model.SeverityMild
	case n <= 2:
		return model.SeverityModerate
	default:
		return model.SeveritySevere
	}
}
