package refdata_test

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/gyeh/cbgtariff/internal/model"
	"github.com/gyeh/cbgtariff/internal/refdata"
	"github.com/gyeh/cbgtariff/internal/refdata/refdatatest"
)

func TestBuild_Counts(t *testing.T) {
	s := refdatatest.Snapshot(t)
	c := s.Counts()
	d := refdatatest.Data()
	if c.Cases != len(d.Cases) || c.Chapters != len(d.Chapters) || c.Procedures != len(d.Procedures) {
		t.Errorf("unexpected counts %+v", c)
	}
	// Two of the fixture tariff rows are inactive.
	if c.Tariffs != len(d.Tariffs)-2 {
		t.Errorf("tariffs = %d, want %d active rows", c.Tariffs, len(d.Tariffs)-2)
	}
	if s.Version() != "fixture" {
		t.Errorf("version = %q", s.Version())
	}
}

func TestBuild_RejectsMalformed(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*refdata.Data)
	}{
		{"bad case code", func(d *refdata.Data) { d.Cases[0].GroupingCode = "I-1-1-II" }},
		{"bad case service", func(d *refdata.Data) { d.Cases[0].Service = "daycare" }},
		{"bad tariff code", func(d *refdata.Data) { d.Tariffs[0].GroupingCode = "I1-10-II" }},
		{"duplicate active tariff", func(d *refdata.Data) { d.Tariffs = append(d.Tariffs, d.Tariffs[0]) }},
		{"duplicate active tariff after canonicalization", func(d *refdata.Data) {
			dup := d.Tariffs[0]
			dup.GroupingCode = strings.ToLower(dup.GroupingCode)
			dup.HospitalType = " " + strings.ToUpper(dup.HospitalType)
			d.Tariffs = append(d.Tariffs, dup)
		}},
		{"bad tariff service", func(d *refdata.Data) { d.Tariffs[0].Service = "inpatient" }},
		{"incomplete classification", func(d *refdata.Data) { d.Tariffs[0].HospitalClass = " " }},
		{"overlapping chapters", func(d *refdata.Data) {
			d.Chapters = append(d.Chapters, model.ChapterMapping{Chapter: "K", RangeStart: 75, RangeEnd: 90, CMG: "D", Priority: 10})
		}},
		{"empty chapter range", func(d *refdata.Data) {
			d.Chapters = append(d.Chapters, model.ChapterMapping{Chapter: "C", RangeStart: 10, RangeEnd: 10, CMG: "C"})
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := refdatatest.Data()
			tt.mutate(&d)
			_, err := refdata.Build(d)
			if !errors.Is(err, refdata.ErrMalformed) {
				t.Fatalf("expected ErrMalformed, got %v", err)
			}
		})
	}
}

func TestBuild_OverlapAcrossPrioritiesAllowed(t *testing.T) {
	d := refdatatest.Data()
	d.Chapters = append(d.Chapters, model.ChapterMapping{Chapter: "K", RangeStart: 80, RangeEnd: 90, CMG: "D", Priority: 5})
	if _, err := refdata.Build(d); err != nil {
		t.Fatalf("Build: %v", err)
	}
}

func TestBuild_DuplicateInactiveTariffAllowed(t *testing.T) {
	d := refdatatest.Data()
	dup := d.Tariffs[0]
	dup.Active = false
	d.Tariffs = append(d.Tariffs, dup)
	if _, err := refdata.Build(d); err != nil {
		t.Fatalf("Build: %v", err)
	}
}

func TestSnapshot_Lookups(t *testing.T) {
	ctx := context.Background()
	s := refdatatest.Snapshot(t)

	hit, err := s.FindExact(ctx, "I21.0", "36.06|36.07", model.Inpatient)
	if err != nil || hit == nil || hit.Code != "I-1-10-II" || hit.Cases != 40 {
		t.Errorf("FindExact = %+v, %v", hit, err)
	}
	if hit, _ := s.FindExact(ctx, "I21.0", "36.06|36.07", model.Outpatient); hit != nil {
		t.Errorf("FindExact matched the wrong service context: %+v", hit)
	}

	// "36.06" alone outranks nothing here; 36.06|36.07 has the higher frequency.
	hit, err = s.FindByMember(ctx, "I21.0", "36.06", model.Inpatient)
	if err != nil || hit == nil || hit.Code != "I-1-10-II" {
		t.Errorf("FindByMember = %+v, %v", hit, err)
	}
	hit, err = s.FindByMember(ctx, "I21.0", "36.07", model.Inpatient)
	if err != nil || hit == nil || hit.Code != "I-1-10-II" || hit.Cases != 40 {
		t.Errorf("FindByMember(second member) = %+v, %v", hit, err)
	}
	if hit, _ := s.FindByMember(ctx, "I21.0", "36.0", model.Inpatient); hit != nil {
		t.Errorf("FindByMember matched a partial code: %+v", hit)
	}

	groups, total, err := s.FindTopByDiagnosis(ctx, "A09.0", model.Outpatient, 2)
	if err != nil {
		t.Fatalf("FindTopByDiagnosis: %v", err)
	}
	want := []refdata.CodeCount{{Code: "A-5-13-0", Cases: 70}, {Code: "A-3-11-0", Cases: 30}}
	if !reflect.DeepEqual(groups, want) || total != 120 {
		t.Errorf("FindTopByDiagnosis = %+v, %d", groups, total)
	}

	ch, err := s.FindChapter(ctx, "K72.0")
	if err != nil || ch == nil || ch.CMG != "B" {
		t.Errorf("FindChapter(K72.0) = %+v, %v", ch, err)
	}
	ch, _ = s.FindChapter(ctx, "K78.0")
	if ch == nil || ch.CMG != "K" {
		t.Errorf("FindChapter(K78.0) = %+v, want CMG K (range end is exclusive)", ch)
	}
	if ch, _ := s.FindChapter(ctx, "Z99.9"); ch != nil {
		t.Errorf("FindChapter(Z99.9) = %+v, want nil", ch)
	}

	if desc, _ := s.DescribeCMG(ctx, "K"); desc != "Digestive system" {
		t.Errorf("DescribeCMG(K) = %q", desc)
	}

	p, err := s.FindProcedure(ctx, "47.09")
	if err != nil || p == nil || !reflect.DeepEqual(p.Similar, []string{"47.19", "47.01"}) {
		t.Errorf("FindProcedure = %+v, %v", p, err)
	}

	if specific, _ := s.FindTariffPrefix(ctx, "N-4-"); specific != "10" {
		t.Errorf("FindTariffPrefix(N-4-) = %q, want 10", specific)
	}
	if specific, _ := s.FindTariffPrefix(ctx, "Q-4-"); specific != "" {
		t.Errorf("FindTariffPrefix(Q-4-) = %q, want empty", specific)
	}

	if ok, _ := s.TariffExists(ctx, "N-4-10-I", model.TariffInpatient); !ok {
		t.Error("TariffExists(N-4-10-I, RI) = false")
	}
	if ok, _ := s.TariffExists(ctx, "N-4-10-I", model.TariffOutpatient); ok {
		t.Error("TariffExists(N-4-10-I, RJ) = true")
	}
	if ok, _ := s.TariffExists(ctx, "N-4-12-II", model.TariffInpatient); ok {
		t.Error("TariffExists counted an inactive row")
	}

	n, _ := s.CountTariffClassifications(ctx, "I-1-10-II", model.TariffInpatient)
	if n != 2 {
		t.Errorf("CountTariffClassifications = %d, want 2", n)
	}
}

func TestSnapshot_FindProcedureReturnsCopy(t *testing.T) {
	ctx := context.Background()
	s := refdatatest.Snapshot(t)
	p, _ := s.FindProcedure(ctx, "47.09")
	p.Similar[0] = "XX"
	again, _ := s.FindProcedure(ctx, "47.09")
	if again.Similar[0] != "47.19" {
		t.Errorf("snapshot mutated through returned procedure: %v", again.Similar)
	}
}

func TestSnapshot_CanonicalizesStoredSignatures(t *testing.T) {
	d := refdata.Data{Cases: []model.HistoricalCase{
		{Diagnosis: "i21.0", Signature: "36.07||36.06 ", Service: model.Inpatient, GroupingCode: "I-1-10-II", Frequency: 4},
	}}
	s, err := refdata.Build(d)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	hit, _ := s.FindExact(context.Background(), "I21.0", "36.06|36.07", model.Inpatient)
	if hit == nil || hit.Code != "I-1-10-II" {
		t.Errorf("FindExact = %+v", hit)
	}
}

func TestBuild_CanonicalizesStoredCodes(t *testing.T) {
	ctx := context.Background()
	d := refdata.Data{
		Cases: []model.HistoricalCase{
			{Diagnosis: "N18.5", Signature: "", Service: model.Inpatient, GroupingCode: "i-4-10-i", Frequency: 3},
		},
		Procedures: []model.ProcedureInfo{
			{Code: " 47.09", Similar: []string{"47.19 ", ""}},
		},
		Tariffs: []model.TariffRow{{
			GroupingCode:  "n-4-10-i",
			Service:       model.TariffInpatient,
			Regional:      " 1 ",
			HospitalClass: "b",
			HospitalType:  " pemerintah",
			Tier1:         100,
			Active:        true,
		}},
	}
	s, err := refdata.Build(d)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	hit, _ := s.FindExact(ctx, "N18.5", "", model.Inpatient)
	if hit == nil || hit.Code != "I-4-10-I" {
		t.Errorf("FindExact = %+v, want I-4-10-I", hit)
	}
	if specific, _ := s.FindTariffPrefix(ctx, "N-4-"); specific != "10" {
		t.Errorf("FindTariffPrefix(N-4-) = %q, want 10", specific)
	}
	if ok, _ := s.TariffExists(ctx, "N-4-10-I", model.TariffInpatient); !ok {
		t.Error("TariffExists(N-4-10-I) = false for a row stored as n-4-10-i")
	}
	row, _ := s.FindTariff(ctx, model.TariffKey{
		GroupingCode: "N-4-10-I", Service: model.TariffInpatient,
		Regional: "1", HospitalClass: "B", HospitalType: "Pemerintah",
	})
	if row == nil || row.GroupingCode != "N-4-10-I" || row.Tier1 != 100 {
		t.Errorf("FindTariff = %+v", row)
	}
	p, _ := s.FindProcedure(ctx, "47.09")
	if p == nil || len(p.Similar) != 1 || p.Similar[0] != "47.19" {
		t.Errorf("FindProcedure = %+v", p)
	}
}
