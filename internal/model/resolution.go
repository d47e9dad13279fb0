package model

// Strategy identifies which level of the fallback chain produced a code.
type Strategy string

const (
	StrategyExact     Strategy = "exact_match"
	StrategyPartial   Strategy = "partial_match"
	StrategyDiagnosis Strategy = "diagnosis_only"
	StrategySimilar   Strategy = "similar_procedure"
	StrategyRuleBased Strategy = "rule_based"
)

// Warning kinds attached to successful resolutions.
const (
	WarnProceduresIgnored    = "procedures_ignored"
	WarnProcedureSubstituted = "procedure_substituted"
	WarnSeverityAdjusted     = "severity_adjusted"
	WarnTierDefaulted        = "tier_defaulted"
)

// Warning is additive metadata on a result, never an error.
type Warning struct {
	Kind    string   `json:"kind"`
	Message string   `json:"message"`
	Codes   []string `json:"codes,omitempty"`
}

// Alternative is a runner-up grouping code from diagnosis-only matching.
type Alternative struct {
	Code      string  `json:"code"`
	CaseCount int64   `json:"case_count"`
	Percent   float64 `json:"percent"`
}

// ResolutionResult is a successfully resolved grouping code plus how it was derived.
type ResolutionResult struct {
	Code         string        `json:"code"`
	Strategy     Strategy      `json:"strategy"`
	Confidence   int           `json:"confidence"`
	CaseCount    int64         `json:"case_count"`
	Warnings     []Warning     `json:"warnings"`
	Alternatives []Alternative `json:"alternatives"`
}

// NotResolvable reports that every strategy was exhausted for a diagnosis.
type NotResolvable struct {
	Diagnosis string `json:"diagnosis"`
	Reason    string `json:"reason"`
}
