// Package grouping maps a claim's clinical codes to a grouping code through
// a five-level fallback chain: exact history, partial history,
// diagnosis-only history, similar-procedure history, and rule-based
// construction validated against the Tariff Master.
package grouping

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/gyeh/cbgtariff/internal/model"
	"github.com/gyeh/cbgtariff/internal/normalize"
	"github.com/gyeh/cbgtariff/internal/refdata"
)

// Confidence scores per strategy. They are non-increasing along the chain.
const (
	ConfidenceExact             = 98
	ConfidencePartial           = 90
	ConfidenceDiagnosisMajority = 85 // top code holds >= 50% of cases
	ConfidenceDiagnosisPlural   = 80 // >= 30%
	ConfidenceDiagnosisWeak     = 75
	ConfidenceSimilar           = 70
	ConfidenceRuleBased         = 60
	ConfidenceRuleBasedAdjusted = 55
)

// MaxAlternatives is how many runner-up codes diagnosis-only matching reports.
const MaxAlternatives = 2

// Outcome is either a resolved code or a NotResolvable explanation.
// Exactly one field is set.
type Outcome struct {
	Result     *model.ResolutionResult
	Unresolved *model.NotResolvable
}

// Resolved reports whether a grouping code was produced.
func (o Outcome) Resolved() bool { return o.Result != nil }

// Options tunes the chain without changing its order or scores.
type Options struct {
	// MinDiagnosisCases is the case count diagnosis-only matching needs
	// before it accepts a distribution. Values below 1 mean 1. Raising it
	// lets sparse diagnoses fall through to similar-procedure matching.
	MinDiagnosisCases int64
}

func (o Options) minDiagnosisCases() int64 {
	if o.MinDiagnosisCases < 1 {
		return 1
	}
	return o.MinDiagnosisCases
}

// strategy returns a result on a hit, or nil and a short miss reason.
type strategy func(ctx context.Context, repo refdata.Repository, c model.ClaimContext, opts Options) (*model.ResolutionResult, string, error)

var chain = []struct {
	name model.Strategy
	run  strategy
}{
	{model.StrategyExact, exactMatch},
	{model.StrategyPartial, partialMatch},
	{model.StrategyDiagnosis, diagnosisOnly},
	{model.StrategySimilar, similarProcedure},
	{model.StrategyRuleBased, ruleBased},
}

// Resolver runs the fallback chain against a read-only repository. It holds
// no mutable state and is safe for concurrent use.
type Resolver struct {
	repo refdata.Repository
	opts Options
	log  zerolog.Logger
}

// NewResolver creates a resolver over repo.
func NewResolver(repo refdata.Repository, opts Options, log zerolog.Logger) *Resolver {
	return &Resolver{repo: repo, opts: opts, log: log}
}

// Resolve normalizes the claim and tries each strategy in order, returning
// the first hit. Exhausting the chain is a normal outcome, not an error.
// Errors are either *InputError or *InfraError.
func (r *Resolver) Resolve(ctx context.Context, claim model.ClaimContext) (Outcome, error) {
	c, err := normalizeClaim(claim)
	if err != nil {
		return Outcome{}, err
	}
	repo := refdata.Pin(r.repo)

	var lastMiss string
	for _, s := range chain {
		res, miss, err := s.run(ctx, repo, c, r.opts)
		if err != nil {
			return Outcome{}, &InfraError{Strategy: s.name, Err: err}
		}
		if res != nil {
			res.Strategy = s.name
			r.log.Debug().
				Str("diagnosis", c.PrimaryDiagnosis).
				Str("strategy", string(s.name)).
				Str("code", res.Code).
				Int("confidence", res.Confidence).
				Msg("grouping code resolved")
			return Outcome{Result: res}, nil
		}
		r.log.Debug().
			Str("diagnosis", c.PrimaryDiagnosis).
			Str("strategy", string(s.name)).
			Str("miss", miss).
			Msg("strategy did not match")
		lastMiss = miss
	}

	return Outcome{Unresolved: &model.NotResolvable{
		Diagnosis: c.PrimaryDiagnosis,
		Reason: fmt.Sprintf("no grouping code for diagnosis %s (%s): no matching case history and rule-based construction failed: %s",
			c.PrimaryDiagnosis, c.Service, lastMiss),
	}}, nil
}

// normalizeClaim returns a copy with trimmed, upper-cased codes. Secondary
// diagnoses are de-duplicated and the primary diagnosis is removed from them.
func normalizeClaim(in model.ClaimContext) (model.ClaimContext, error) {
	c := model.ClaimContext{
		PrimaryDiagnosis: normalize.Code(in.PrimaryDiagnosis),
		Procedures:       normalize.Codes(in.Procedures),
		Service:          in.Service,
	}
	if c.PrimaryDiagnosis == "" {
		return c, &InputError{Field: "primary_diagnosis", Reason: "is required"}
	}
	if !c.Service.Valid() {
		return c, &InputError{Field: "service_context", Reason: fmt.Sprintf("%q is not inpatient or outpatient", in.Service)}
	}
	seen := map[string]bool{c.PrimaryDiagnosis: true}
	for _, dx := range normalize.Codes(in.SecondaryDiagnoses) {
		if !seen[dx] {
			seen[dx] = true
			c.SecondaryDiagnoses = append(c.SecondaryDiagnoses, dx)
		}
	}
	return c, nil
}
