package adjudicate

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/gyeh/cbgtariff/internal/grouping"
	"github.com/gyeh/cbgtariff/internal/model"
	"github.com/gyeh/cbgtariff/internal/refdata/refdatatest"
	"github.com/gyeh/cbgtariff/internal/tariff"
)

func newService(t *testing.T) *Service {
	t.Helper()
	return NewService(refdatatest.Snapshot(t), grouping.Options{}, zerolog.Nop())
}

func TestAdjudicate_Resolved(t *testing.T) {
	resp, err := newService(t).Adjudicate(context.Background(), Request{
		PrimaryDiagnosis: "I21.0",
		Procedures:       []string{"36.06", "36.07"},
		ServiceContext:   "inpatient",
		RegionalZone:     "2",
		HospitalClass:    "B",
		HospitalType:     "Pemerintah",
		InsuranceTier:    3,
	})
	if err != nil {
		t.Fatalf("Adjudicate: %v", err)
	}
	if resp.Status != StatusResolved {
		t.Fatalf("status = %s, want resolved (%s)", resp.Status, resp.TariffReason)
	}
	if resp.GroupingCode == nil || *resp.GroupingCode != "I-1-10-II" {
		t.Errorf("grouping code = %v", resp.GroupingCode)
	}
	if resp.Tariff == nil || resp.Tariff.Amount != 10_000_000 || resp.Tariff.RequestedTier != 3 {
		t.Errorf("tariff = %+v", resp.Tariff)
	}
	if resp.Strategy == nil || resp.Strategy.Name != model.StrategyExact || resp.Strategy.Confidence != 98 {
		t.Errorf("strategy = %+v", resp.Strategy)
	}

	bd := resp.Breakdown
	if bd == nil {
		t.Fatal("missing breakdown")
	}
	if bd.CMG.Code != "I" || bd.CMG.Description != "Cardiovascular system" {
		t.Errorf("cmg segment = %+v", bd.CMG)
	}
	if bd.CaseType.Code != "1" || bd.CaseType.Description == "" {
		t.Errorf("case type segment = %+v", bd.CaseType)
	}
	if bd.Specific.Code != "10" || !strings.Contains(bd.Specific.Description, "myocardial") {
		t.Errorf("specific segment = %+v", bd.Specific)
	}
	if bd.Severity.Code != "II" || bd.Severity.Description != "Moderate" {
		t.Errorf("severity segment = %+v", bd.Severity)
	}
}

func TestAdjudicate_ResolvedUnpriced(t *testing.T) {
	resp, err := newService(t).Adjudicate(context.Background(), Request{
		PrimaryDiagnosis: "I21.0",
		Procedures:       []string{"36.06", "36.07"},
		ServiceContext:   "inpatient",
		RegionalZone:     "1",
		HospitalClass:    "B",
		HospitalType:     "Pemerintah",
		InsuranceTier:    1,
	})
	if err != nil {
		t.Fatalf("Adjudicate: %v", err)
	}
	if resp.Status != StatusResolvedUnpriced {
		t.Fatalf("status = %s, want resolved_unpriced", resp.Status)
	}
	if resp.GroupingCode == nil || *resp.GroupingCode != "I-1-10-II" {
		t.Errorf("grouping code = %v", resp.GroupingCode)
	}
	if resp.Tariff != nil {
		t.Errorf("tariff = %+v, want nil", resp.Tariff)
	}
	if resp.TariffReason == "" {
		t.Error("missing tariff reason")
	}
	if resp.Breakdown == nil || resp.Breakdown.Specific.Description != "" {
		t.Errorf("breakdown = %+v", resp.Breakdown)
	}
}

func TestAdjudicate_Unresolved(t *testing.T) {
	resp, err := newService(t).Adjudicate(context.Background(), Request{
		PrimaryDiagnosis: "Z99.9",
		ServiceContext:   "inpatient",
		RegionalZone:     "1",
		HospitalClass:    "B",
		HospitalType:     "Pemerintah",
	})
	if err != nil {
		t.Fatalf("Adjudicate: %v", err)
	}
	if resp.Status != StatusUnresolved {
		t.Fatalf("status = %s, want unresolved", resp.Status)
	}
	if resp.GroupingCode != nil || resp.Tariff != nil || resp.Strategy != nil || resp.Breakdown != nil {
		t.Errorf("unresolved response carries resolution data: %+v", resp)
	}
	if !strings.Contains(resp.ErrorReason, "Z99.9") {
		t.Errorf("error reason %q does not name the diagnosis", resp.ErrorReason)
	}
}

func TestAdjudicate_RuleBasedCodeIsPriceable(t *testing.T) {
	resp, err := newService(t).Adjudicate(context.Background(), Request{
		PrimaryDiagnosis:   "N18.5",
		SecondaryDiagnoses: []string{"E11.9"},
		ServiceContext:     "RI",
		RegionalZone:       "1",
		HospitalClass:      "B",
		HospitalType:       "Pemerintah",
		InsuranceTier:      1,
	})
	if err != nil {
		t.Fatalf("Adjudicate: %v", err)
	}
	if resp.Status != StatusResolved {
		t.Fatalf("status = %s (%s)", resp.Status, resp.TariffReason)
	}
	if resp.Strategy.Name != model.StrategyRuleBased || resp.Strategy.Confidence != 55 {
		t.Errorf("strategy = %+v", resp.Strategy)
	}
	if len(resp.Strategy.Warnings) != 1 || resp.Strategy.Warnings[0].Kind != model.WarnSeverityAdjusted {
		t.Errorf("warnings = %+v", resp.Strategy.Warnings)
	}
	if resp.Tariff.Amount != 4_100_000 {
		t.Errorf("amount = %d", resp.Tariff.Amount)
	}
}

func TestAdjudicate_TierDefaulted(t *testing.T) {
	resp, err := newService(t).Adjudicate(context.Background(), Request{
		PrimaryDiagnosis: "A09.0",
		ServiceContext:   "outpatient",
		RegionalZone:     "1",
		HospitalClass:    "B",
		HospitalType:     "Pemerintah",
		InsuranceTier:    7,
	})
	if err != nil {
		t.Fatalf("Adjudicate: %v", err)
	}
	if resp.Tariff == nil || resp.Tariff.RequestedTier != int(tariff.DefaultTier) || resp.Tariff.Amount != 250_000 {
		t.Fatalf("tariff = %+v", resp.Tariff)
	}
	if len(resp.Warnings) != 1 || resp.Warnings[0].Kind != model.WarnTierDefaulted {
		t.Errorf("warnings = %+v", resp.Warnings)
	}
	if resp.Classification.InsuranceTier != 7 {
		t.Errorf("classification echoes tier %d, want 7", resp.Classification.InsuranceTier)
	}
}

func TestAdjudicate_AbsentTierUsesDefaultSilently(t *testing.T) {
	resp, err := newService(t).Adjudicate(context.Background(), Request{
		PrimaryDiagnosis: "A09.0",
		ServiceContext:   "outpatient",
		RegionalZone:     "1",
		HospitalClass:    "B",
		HospitalType:     "Pemerintah",
	})
	if err != nil {
		t.Fatalf("Adjudicate: %v", err)
	}
	if len(resp.Warnings) != 0 {
		t.Errorf("warnings = %+v", resp.Warnings)
	}
	if resp.Classification.InsuranceTier != 1 {
		t.Errorf("tier = %d, want 1", resp.Classification.InsuranceTier)
	}
}

func TestAdjudicate_InputErrors(t *testing.T) {
	base := Request{
		PrimaryDiagnosis: "I21.0",
		ServiceContext:   "inpatient",
		RegionalZone:     "1",
		HospitalClass:    "B",
		HospitalType:     "Pemerintah",
	}
	tests := []struct {
		name   string
		mutate func(*Request)
		field  string
	}{
		{"no diagnosis", func(r *Request) { r.PrimaryDiagnosis = "" }, "primary_diagnosis"},
		{"bad service", func(r *Request) { r.ServiceContext = "home" }, "service_context"},
		{"no regional", func(r *Request) { r.RegionalZone = " " }, "regional_zone"},
		{"no class", func(r *Request) { r.HospitalClass = "" }, "hospital_class"},
		{"no type", func(r *Request) { r.HospitalType = "" }, "hospital_type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := base
			tt.mutate(&req)
			_, err := newService(t).Adjudicate(context.Background(), req)
			var ie *grouping.InputError
			if !errors.As(err, &ie) {
				t.Fatalf("expected *grouping.InputError, got %v", err)
			}
			if ie.Field != tt.field {
				t.Errorf("field = %s, want %s", ie.Field, tt.field)
			}
		})
	}
}

func TestAdjudicate_InfraError(t *testing.T) {
	svc := NewService(refdatatest.Broken{}, grouping.Options{}, zerolog.Nop())
	_, err := svc.Adjudicate(context.Background(), Request{
		PrimaryDiagnosis: "I21.0",
		ServiceContext:   "inpatient",
		RegionalZone:     "1",
		HospitalClass:    "B",
		HospitalType:     "Pemerintah",
	})
	var ie *grouping.InfraError
	if !errors.As(err, &ie) {
		t.Fatalf("expected *grouping.InfraError, got %v", err)
	}
}
