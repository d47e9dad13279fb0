package grouping

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/gyeh/cbgtariff/internal/model"
	"github.com/gyeh/cbgtariff/internal/refdata"
	"github.com/gyeh/cbgtariff/internal/refdata/refdatatest"
)

func newResolver(t *testing.T, opts Options) *Resolver {
	t.Helper()
	return NewResolver(refdatatest.Snapshot(t), opts, zerolog.Nop())
}

func mustResolve(t *testing.T, r *Resolver, c model.ClaimContext) *model.ResolutionResult {
	t.Helper()
	out, err := r.Resolve(context.Background(), c)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !out.Resolved() {
		t.Fatalf("expected a grouping code, got unresolved: %s", out.Unresolved.Reason)
	}
	return out.Result
}

func hasWarning(res *model.ResolutionResult, kind string) bool {
	for _, w := range res.Warnings {
		if w.Kind == kind {
			return true
		}
	}
	return false
}

func TestResolve_ExactMatch(t *testing.T) {
	r := newResolver(t, Options{})
	res := mustResolve(t, r, model.ClaimContext{
		PrimaryDiagnosis: "I21.0",
		Procedures:       []string{"36.07", "36.06"},
		Service:          model.Inpatient,
	})
	// Two codes tie at 40 cases; the lexicographically smaller wins.
	if res.Code != "I-1-10-II" {
		t.Errorf("code = %s, want I-1-10-II", res.Code)
	}
	if res.Strategy != model.StrategyExact || res.Confidence != ConfidenceExact {
		t.Errorf("strategy = %s/%d, want exact_match/98", res.Strategy, res.Confidence)
	}
	if res.CaseCount != 40 {
		t.Errorf("case count = %d, want 40", res.CaseCount)
	}
	if len(res.Warnings) != 0 {
		t.Errorf("unexpected warnings: %+v", res.Warnings)
	}
}

func TestResolve_ExactMatchNormalizesInput(t *testing.T) {
	r := newResolver(t, Options{})
	res := mustResolve(t, r, model.ClaimContext{
		PrimaryDiagnosis: " i21.0 ",
		Procedures:       []string{"36.06 ", "36.07", "36.06"},
		Service:          model.Inpatient,
	})
	if res.Code != "I-1-10-II" || res.Strategy != model.StrategyExact {
		t.Errorf("got %s via %s, want I-1-10-II via exact_match", res.Code, res.Strategy)
	}
}

func TestResolve_ExactMatchWithoutProcedures(t *testing.T) {
	r := newResolver(t, Options{})
	res := mustResolve(t, r, model.ClaimContext{PrimaryDiagnosis: "I21.0", Service: model.Inpatient})
	if res.Code != "I-4-10-I" || res.Strategy != model.StrategyExact {
		t.Errorf("got %s via %s, want I-4-10-I via exact_match", res.Code, res.Strategy)
	}
}

func TestResolve_PartialMatch(t *testing.T) {
	r := newResolver(t, Options{})
	res := mustResolve(t, r, model.ClaimContext{
		PrimaryDiagnosis: "J18.9",
		Procedures:       []string{"96.04", "93.90"},
		Service:          model.Inpatient,
	})
	if res.Code != "J-1-30-III" {
		t.Errorf("code = %s, want J-1-30-III", res.Code)
	}
	if res.Strategy != model.StrategyPartial || res.Confidence != ConfidencePartial {
		t.Errorf("strategy = %s/%d, want partial_match/90", res.Strategy, res.Confidence)
	}
	if !hasWarning(res, model.WarnProceduresIgnored) {
		t.Fatalf("expected procedures_ignored warning, got %+v", res.Warnings)
	}
	if got := res.Warnings[0].Codes; !reflect.DeepEqual(got, []string{"93.90"}) {
		t.Errorf("ignored codes = %v, want [93.90]", got)
	}
}

func TestResolve_PartialMatchAnchorInAnyPosition(t *testing.T) {
	r := newResolver(t, Options{})
	// 99.04 sorts after 36.06 in the stored signature.
	res := mustResolve(t, r, model.ClaimContext{
		PrimaryDiagnosis: "I50.0",
		Procedures:       []string{"99.04", "93.90"},
		Service:          model.Inpatient,
	})
	if res.Strategy != model.StrategyPartial || res.Confidence != ConfidencePartial {
		t.Fatalf("strategy = %s/%d, want partial_match/90", res.Strategy, res.Confidence)
	}
	if res.Code != "I-1-10-II" || res.CaseCount != 12 {
		t.Errorf("got %s (%d cases), want I-1-10-II (12)", res.Code, res.CaseCount)
	}
	if got := res.Warnings[0].Codes; !reflect.DeepEqual(got, []string{"93.90"}) {
		t.Errorf("ignored codes = %v, want [93.90]", got)
	}
}

func TestResolve_DiagnosisOnly(t *testing.T) {
	r := newResolver(t, Options{})
	res := mustResolve(t, r, model.ClaimContext{
		PrimaryDiagnosis: "A09.0",
		Procedures:       []string{"99.99"},
		Service:          model.Outpatient,
	})
	if res.Code != "A-5-13-0" {
		t.Errorf("code = %s, want A-5-13-0", res.Code)
	}
	if res.Strategy != model.StrategyDiagnosis {
		t.Errorf("strategy = %s, want diagnosis_only", res.Strategy)
	}
	// 70 of 120 cases.
	if res.Confidence != ConfidenceDiagnosisMajority {
		t.Errorf("confidence = %d, want %d", res.Confidence, ConfidenceDiagnosisMajority)
	}
	if res.CaseCount != 70 {
		t.Errorf("case count = %d, want 70", res.CaseCount)
	}
	want := []model.Alternative{
		{Code: "A-3-11-0", CaseCount: 30, Percent: 25},
		{Code: "A-3-12-0", CaseCount: 20, Percent: 16.7},
	}
	if !reflect.DeepEqual(res.Alternatives, want) {
		t.Errorf("alternatives = %+v, want %+v", res.Alternatives, want)
	}
	if !hasWarning(res, model.WarnProceduresIgnored) {
		t.Errorf("expected procedures_ignored warning, got %+v", res.Warnings)
	}
}

func TestResolve_DiagnosisOnlyWithoutProceduresStillWarns(t *testing.T) {
	r := newResolver(t, Options{})
	res := mustResolve(t, r, model.ClaimContext{PrimaryDiagnosis: "A09.0", Service: model.Outpatient})
	if res.Strategy != model.StrategyDiagnosis {
		t.Fatalf("strategy = %s, want diagnosis_only", res.Strategy)
	}
	if len(res.Warnings) != 1 || res.Warnings[0].Kind != model.WarnProceduresIgnored {
		t.Fatalf("warnings = %+v, want one procedures_ignored", res.Warnings)
	}
	if len(res.Warnings[0].Codes) != 0 {
		t.Errorf("ignored codes = %v, want none", res.Warnings[0].Codes)
	}
}

func TestDiagnosisOnly_ConfidenceBands(t *testing.T) {
	tests := []struct {
		name  string
		cases []int64
		want  int
	}{
		{"majority", []int64{50, 30, 20}, ConfidenceDiagnosisMajority},
		{"plural", []int64{30, 30, 25, 15}, ConfidenceDiagnosisPlural},
		{"weak", []int64{25, 25, 25, 25}, ConfidenceDiagnosisWeak},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := refdata.Data{}
			for i, n := range tt.cases {
				d.Cases = append(d.Cases, model.HistoricalCase{
					Diagnosis:    "R50.9",
					Signature:    "",
					Service:      model.Inpatient,
					GroupingCode: "R-4-1" + string(rune('0'+i)) + "-I",
					Frequency:    n,
				})
			}
			snap, err := refdata.Build(d)
			if err != nil {
				t.Fatalf("Build: %v", err)
			}
			c := model.ClaimContext{PrimaryDiagnosis: "R50.9", Service: model.Inpatient}
			res, _, err := diagnosisOnly(context.Background(), snap, c, Options{})
			if err != nil {
				t.Fatalf("diagnosisOnly: %v", err)
			}
			if res == nil {
				t.Fatal("expected a result")
			}
			if res.Confidence != tt.want {
				t.Errorf("confidence = %d, want %d", res.Confidence, tt.want)
			}
			if len(res.Alternatives) > MaxAlternatives {
				t.Errorf("got %d alternatives, max %d", len(res.Alternatives), MaxAlternatives)
			}
		})
	}
}

func TestResolve_SimilarProcedure(t *testing.T) {
	r := newResolver(t, Options{MinDiagnosisCases: 10})
	res := mustResolve(t, r, model.ClaimContext{
		PrimaryDiagnosis: "K35.8",
		Procedures:       []string{"47.09"},
		Service:          model.Inpatient,
	})
	if res.Code != "K-1-13-I" {
		t.Errorf("code = %s, want K-1-13-I", res.Code)
	}
	if res.Strategy != model.StrategySimilar || res.Confidence != ConfidenceSimilar {
		t.Errorf("strategy = %s/%d, want similar_procedure/70", res.Strategy, res.Confidence)
	}
	if !hasWarning(res, model.WarnProcedureSubstituted) {
		t.Fatalf("expected procedure_substituted warning, got %+v", res.Warnings)
	}
	if got := res.Warnings[0].Codes; !reflect.DeepEqual(got, []string{"47.09", "47.01"}) {
		t.Errorf("substitution codes = %v, want [47.09 47.01]", got)
	}
}

func TestResolve_SparseDiagnosisAcceptedByDefault(t *testing.T) {
	r := newResolver(t, Options{})
	res := mustResolve(t, r, model.ClaimContext{
		PrimaryDiagnosis: "K35.8",
		Procedures:       []string{"47.09"},
		Service:          model.Inpatient,
	})
	if res.Strategy != model.StrategyDiagnosis {
		t.Errorf("strategy = %s, want diagnosis_only", res.Strategy)
	}
}

func TestResolve_RuleBased(t *testing.T) {
	r := newResolver(t, Options{})
	res := mustResolve(t, r, model.ClaimContext{PrimaryDiagnosis: "N18.5", Service: model.Inpatient})
	if res.Code != "N-4-10-I" {
		t.Errorf("code = %s, want N-4-10-I", res.Code)
	}
	if res.Strategy != model.StrategyRuleBased || res.Confidence != ConfidenceRuleBased {
		t.Errorf("strategy = %s/%d, want rule_based/60", res.Strategy, res.Confidence)
	}
	if res.CaseCount != 0 {
		t.Errorf("case count = %d, want 0", res.CaseCount)
	}
}

func TestResolve_RuleBasedSeverityFallback(t *testing.T) {
	r := newResolver(t, Options{})
	res := mustResolve(t, r, model.ClaimContext{
		PrimaryDiagnosis:   "N18.5",
		SecondaryDiagnoses: []string{"E11.9"},
		Service:            model.Inpatient,
	})
	// Severity II has no tariff row; I is the first fallback that does.
	if res.Code != "N-4-10-I" {
		t.Errorf("code = %s, want N-4-10-I", res.Code)
	}
	if res.Confidence != ConfidenceRuleBasedAdjusted {
		t.Errorf("confidence = %d, want %d", res.Confidence, ConfidenceRuleBasedAdjusted)
	}
	if !hasWarning(res, model.WarnSeverityAdjusted) {
		t.Errorf("expected severity_adjusted warning, got %+v", res.Warnings)
	}
}

func TestResolve_RuleBasedSevere(t *testing.T) {
	r := newResolver(t, Options{})
	res := mustResolve(t, r, model.ClaimContext{
		PrimaryDiagnosis:   "N18.5",
		SecondaryDiagnoses: []string{"E11.9", "I10", "D64.9", "E11.9", "N18.5"},
		Service:            model.Inpatient,
	})
	if res.Code != "N-4-10-III" || res.Confidence != ConfidenceRuleBased {
		t.Errorf("got %s/%d, want N-4-10-III/60", res.Code, res.Confidence)
	}
}

func TestResolve_RuleBasedOverNonCanonicalStoredCodes(t *testing.T) {
	snap, err := refdata.Build(refdata.Data{
		Chapters: []model.ChapterMapping{{Chapter: "n", RangeStart: 0, RangeEnd: 100, CMG: "n"}},
		Tariffs: []model.TariffRow{{
			GroupingCode: "n-4-10-i", Service: model.TariffInpatient,
			Regional: "1", HospitalClass: "B", HospitalType: "Pemerintah", Active: true,
		}},
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	r := NewResolver(snap, Options{}, zerolog.Nop())
	res := mustResolve(t, r, model.ClaimContext{PrimaryDiagnosis: "N18.5", Service: model.Inpatient})
	if res.Code != "N-4-10-I" || res.Strategy != model.StrategyRuleBased || res.Confidence != ConfidenceRuleBased {
		t.Errorf("got %s via %s (%d), want N-4-10-I via rule_based (60)", res.Code, res.Strategy, res.Confidence)
	}
}

func TestResolve_RuleBasedChapterPriority(t *testing.T) {
	r := newResolver(t, Options{})
	res := mustResolve(t, r, model.ClaimContext{PrimaryDiagnosis: "K72.0", Service: model.Inpatient})
	if res.Code != "B-4-12-I" {
		t.Errorf("code = %s, want B-4-12-I from the higher-priority carve-out", res.Code)
	}
}

func TestResolve_RuleBasedOutpatientCaseTypes(t *testing.T) {
	tests := []struct {
		proc string
		want string
	}{
		{"47.09", "K-2-11-0"}, // major
		{"99.18", "K-3-14-0"}, // minor
		{"12.34", "K-3-14-0"}, // unknown counts as minor
	}
	r := newResolver(t, Options{})
	for _, tt := range tests {
		t.Run(tt.proc, func(t *testing.T) {
			res := mustResolve(t, r, model.ClaimContext{
				PrimaryDiagnosis: "K50.0",
				Procedures:       []string{tt.proc},
				Service:          model.Outpatient,
			})
			if res.Code != tt.want || res.Strategy != model.StrategyRuleBased {
				t.Errorf("got %s via %s, want %s via rule_based", res.Code, res.Strategy, tt.want)
			}
		})
	}
}

func TestResolve_Unresolved(t *testing.T) {
	r := newResolver(t, Options{})
	out, err := r.Resolve(context.Background(), model.ClaimContext{PrimaryDiagnosis: "Z99.9", Service: model.Inpatient})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if out.Resolved() {
		t.Fatalf("expected unresolved, got %s", out.Result.Code)
	}
	if out.Unresolved.Diagnosis != "Z99.9" {
		t.Errorf("diagnosis = %s, want Z99.9", out.Unresolved.Diagnosis)
	}
	if !strings.Contains(out.Unresolved.Reason, "Z99.9") {
		t.Errorf("reason %q does not name the diagnosis", out.Unresolved.Reason)
	}
}

func TestResolve_InputErrors(t *testing.T) {
	r := newResolver(t, Options{})
	tests := []struct {
		name  string
		claim model.ClaimContext
		field string
	}{
		{"blank diagnosis", model.ClaimContext{PrimaryDiagnosis: "  ", Service: model.Inpatient}, "primary_diagnosis"},
		{"bad service", model.ClaimContext{PrimaryDiagnosis: "I21.0", Service: "daycare"}, "service_context"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Resolve(context.Background(), tt.claim)
			var ie *InputError
			if !errors.As(err, &ie) {
				t.Fatalf("expected *InputError, got %v", err)
			}
			if ie.Field != tt.field {
				t.Errorf("field = %s, want %s", ie.Field, tt.field)
			}
		})
	}
}

func TestResolve_InfraErrorPropagates(t *testing.T) {
	r := NewResolver(refdatatest.Broken{}, Options{}, zerolog.Nop())
	out, err := r.Resolve(context.Background(), model.ClaimContext{PrimaryDiagnosis: "I21.0", Service: model.Inpatient})
	var ie *InfraError
	if !errors.As(err, &ie) {
		t.Fatalf("expected *InfraError, got %v", err)
	}
	if ie.Strategy != model.StrategyExact {
		t.Errorf("strategy = %s, want exact_match", ie.Strategy)
	}
	if !errors.Is(err, refdatatest.ErrBroken) {
		t.Errorf("error does not wrap the repository failure: %v", err)
	}
	if out.Resolved() || out.Unresolved != nil {
		t.Errorf("infra failure must not produce an outcome: %+v", out)
	}
}

func TestResolve_Idempotent(t *testing.T) {
	r := newResolver(t, Options{})
	claims := []model.ClaimContext{
		{PrimaryDiagnosis: "I21.0", Procedures: []string{"36.06", "36.07"}, Service: model.Inpatient},
		{PrimaryDiagnosis: "A09.0", Procedures: []string{"99.99"}, Service: model.Outpatient},
		{PrimaryDiagnosis: "N18.5", SecondaryDiagnoses: []string{"E11.9"}, Service: model.Inpatient},
		{PrimaryDiagnosis: "Z99.9", Service: model.Inpatient},
	}
	for _, c := range claims {
		a, err := r.Resolve(context.Background(), c)
		if err != nil {
			t.Fatalf("Resolve(%s): %v", c.PrimaryDiagnosis, err)
		}
		b, err := r.Resolve(context.Background(), c)
		if err != nil {
			t.Fatalf("Resolve(%s): %v", c.PrimaryDiagnosis, err)
		}
		if !reflect.DeepEqual(a, b) {
			t.Errorf("%s: results differ between calls: %+v vs %+v", c.PrimaryDiagnosis, a, b)
		}
	}
}

// Any (diagnosis, signature, service) present in the history must resolve
// by exact match to its most frequent code.
func TestResolve_HistoryAlwaysExact(t *testing.T) {
	r := newResolver(t, Options{})
	for _, hc := range refdatatest.Data().Cases {
		var procs []string
		if hc.Signature != "" {
			procs = strings.Split(hc.Signature, model.SignatureSeparator)
		}
		res := mustResolve(t, r, model.ClaimContext{
			PrimaryDiagnosis: hc.Diagnosis,
			Procedures:       procs,
			Service:          hc.Service,
		})
		if res.Strategy != model.StrategyExact || res.Confidence != ConfidenceExact {
			t.Errorf("%s %q: strategy %s, want exact_match", hc.Diagnosis, hc.Signature, res.Strategy)
		}
	}
}

func TestChain_ConfidenceNonIncreasing(t *testing.T) {
	floors := map[model.Strategy][2]int{
		model.StrategyExact:     {ConfidenceExact, ConfidenceExact},
		model.StrategyPartial:   {ConfidencePartial, ConfidencePartial},
		model.StrategyDiagnosis: {ConfidenceDiagnosisWeak, ConfidenceDiagnosisMajority},
		model.StrategySimilar:   {ConfidenceSimilar, ConfidenceSimilar},
		model.StrategyRuleBased: {ConfidenceRuleBasedAdjusted, ConfidenceRuleBased},
	}
	prevMin := 101
	for _, s := range chain {
		band, ok := floors[s.name]
		if !ok {
			t.Fatalf("no confidence band for %s", s.name)
		}
		if band[1] > prevMin {
			t.Errorf("%s max confidence %d exceeds previous strategy's minimum %d", s.name, band[1], prevMin)
		}
		prevMin = band[0]
	}
}

func TestNormalizeClaim_SecondaryDiagnoses(t *testing.T) {
	c, err := normalizeClaim(model.ClaimContext{
		PrimaryDiagnosis:   "n18.5",
		SecondaryDiagnoses: []string{"e11.9", "N18.5", "E11.9 ", "", "I10"},
		Service:            model.Inpatient,
	})
	if err != nil {
		t.Fatalf("normalizeClaim: %v", err)
	}
	if want := []string{"E11.9", "I10"}; !reflect.DeepEqual(c.SecondaryDiagnoses, want) {
		t.Errorf("secondary = %v, want %v", c.SecondaryDiagnoses, want)
	}
}

func TestSeverityFor(t *testing.T) {
	tests := []struct {
		svc  model.ServiceContext
		n    int
		want string
	}{
		{model.Outpatient, 4, model.SeverityNone},
		{model.Inpatient, 0, model.SeverityMild},
		{model.Inpatient, 1, model.SeverityModerate},
		{model.Inpatient, 2, model.SeverityModerate},
		{model.Inpatient, 3, model.SeveritySevere},
	}
	for _, tt := range tests {
		c := model.ClaimContext{Service: tt.svc, SecondaryDiagnoses: make([]string, tt.n)}
		if got := severityFor(c); got != tt.want {
			t.Errorf("severityFor(%s, %d) = %s, want %s", tt.svc, tt.n, got, tt.want)
		}
	}
}
