// Package refdatatest provides a small, internally consistent reference
// dataset for tests of the resolver, tariff lookup and HTTP surface.
package refdatatest

import (
	"context"
	"errors"
	"testing"

	"github.com/gyeh/cbgtariff/internal/model"
	"github.com/gyeh/cbgtariff/internal/refdata"
)

// Data returns a fresh copy of the fixture tables.
//
// Notable entries:
//   - I21.0 inpatient with 36.06+36.07 ties between I-1-10-II and I-1-11-II at 40 cases.
//   - A09.0 outpatient is only ever seen with procedures.
//   - J18.9 inpatient is seen with 96.04|96.71, so 96.04 anchors a partial match.
//   - I50.0 inpatient is seen with 36.06|99.04, so 99.04 anchors a partial match
//     from the second position while 88.72 dominates the diagnosis.
//   - K35.8 inpatient has 5 cases, all with 47.01; 47.09 lists 47.01 as similar.
//   - N18.5 and K72.0 have no history; N18.5 has no II severity in the tariffs.
//   - I-1-10-II is priced in regional 2 / B / Pemerintah but not in regional 1 / B.
func Data() refdata.Data {
	return refdata.Data{
		Version: "fixture",
		Cases: []model.HistoricalCase{
			{Diagnosis: "I21.0", Signature: "36.06|36.07", Service: model.Inpatient, GroupingCode: "I-1-11-II", Frequency: 40},
			{Diagnosis: "I21.0", Signature: "36.06|36.07", Service: model.Inpatient, GroupingCode: "I-1-10-II", Frequency: 40},
			{Diagnosis: "I21.0", Signature: "36.06", Service: model.Inpatient, GroupingCode: "I-1-12-I", Frequency: 7},
			{Diagnosis: "I21.0", Signature: "", Service: model.Inpatient, GroupingCode: "I-4-10-I", Frequency: 3},

			{Diagnosis: "A09.0", Signature: "89.03", Service: model.Outpatient, GroupingCode: "A-5-13-0", Frequency: 50},
			{Diagnosis: "A09.0", Signature: "89.03|99.18", Service: model.Outpatient, GroupingCode: "A-5-13-0", Frequency: 20},
			{Diagnosis: "A09.0", Signature: "99.18", Service: model.Outpatient, GroupingCode: "A-3-11-0", Frequency: 30},
			{Diagnosis: "A09.0", Signature: "99.29", Service: model.Outpatient, GroupingCode: "A-3-12-0", Frequency: 20},

			{Diagnosis: "J18.9", Signature: "96.04|96.71", Service: model.Inpatient, GroupingCode: "J-1-30-III", Frequency: 12},
			{Diagnosis: "J18.9", Signature: "", Service: model.Inpatient, GroupingCode: "J-4-16-II", Frequency: 60},

			{Diagnosis: "I50.0", Signature: "36.06|99.04", Service: model.Inpatient, GroupingCode: "I-1-10-II", Frequency: 12},
			{Diagnosis: "I50.0", Signature: "88.72", Service: model.Inpatient, GroupingCode: "I-1-20-I", Frequency: 50},

			{Diagnosis: "K35.8", Signature: "47.01", Service: model.Inpatient, GroupingCode: "K-1-13-I", Frequency: 5},
		},
		Chapters: []model.ChapterMapping{
			{Chapter: "A", RangeStart: 0, RangeEnd: 100, CMG: "A", Description: "Infectious and parasitic diseases", Priority: 0},
			{Chapter: "I", RangeStart: 0, RangeEnd: 100, CMG: "I", Description: "Cardiovascular system", Priority: 0},
			{Chapter: "J", RangeStart: 0, RangeEnd: 100, CMG: "J", Description: "Respiratory system", Priority: 0},
			{Chapter: "K", RangeStart: 0, RangeEnd: 100, CMG: "K", Description: "Digestive system", Priority: 0},
			{Chapter: "K", RangeStart: 70, RangeEnd: 78, CMG: "B", Description: "Hepatobiliary and pancreatic system", Priority: 10},
			{Chapter: "N", RangeStart: 0, RangeEnd: 100, CMG: "N", Description: "Kidney and urinary tract", Priority: 0},
		},
		Procedures: []model.ProcedureInfo{
			{Code: "36.06", Category: "Cardiac", BodySystem: "Cardiovascular", IsMajor: true},
			{Code: "47.09", Category: "Appendectomy", BodySystem: "Digestive", IsMajor: true, Similar: []string{"47.19", "47.01"}},
			{Code: "47.01", Category: "Appendectomy", BodySystem: "Digestive", IsMajor: true},
			{Code: "39.95", Category: "Hemodialysis", BodySystem: "Urinary", IsMajor: true},
			{Code: "99.18", Category: "Injection", BodySystem: "Other", IsMajor: false},
		},
		Tariffs: []model.TariffRow{
			tariff("I-1-10-II", model.TariffInpatient, "2", "B", "Pemerintah", 15_000_000, 12_500_000, 10_000_000, "Acute myocardial infarction procedures (moderate)"),
			tariff("I-1-10-II", model.TariffInpatient, "1", "A", "Pemerintah", 16_500_000, 13_750_000, 11_000_000, "Acute myocardial infarction procedures (moderate)"),
			tariff("A-5-13-0", model.TariffOutpatient, "1", "B", "Pemerintah", 250_000, 220_000, 200_000, "Gastroenteritis outpatient"),
			tariff("J-1-30-III", model.TariffInpatient, "1", "B", "Pemerintah", 9_800_000, 8_200_000, 7_100_000, "Respiratory procedures (severe)"),
			tariff("N-4-10-I", model.TariffInpatient, "1", "B", "Pemerintah", 4_100_000, 3_500_000, 2_900_000, "Renal failure (mild)"),
			tariff("N-4-10-I", model.TariffInpatient, "2", "B", "Swasta", 4_400_000, 3_700_000, 3_100_000, "Renal failure (mild)"),
			tariff("N-4-10-III", model.TariffInpatient, "1", "B", "Pemerintah", 7_300_000, 6_100_000, 5_200_000, "Renal failure (severe)"),
			tariff("N-4-11-I", model.TariffInpatient, "1", "B", "Pemerintah", 3_900_000, 3_300_000, 2_800_000, "Urinary tract infection (mild)"),
			inactive(tariff("N-4-12-II", model.TariffInpatient, "1", "B", "Pemerintah", 1, 1, 1, "Retired")),
			inactive(tariff("N-4-12-II", model.TariffInpatient, "1", "C", "Pemerintah", 1, 1, 1, "Retired")),
			tariff("B-4-12-I", model.TariffInpatient, "1", "B", "Pemerintah", 6_200_000, 5_100_000, 4_400_000, "Liver disease (mild)"),
			tariff("K-2-11-0", model.TariffOutpatient, "1", "B", "Pemerintah", 900_000, 780_000, 650_000, "Digestive major outpatient procedure"),
			tariff("K-3-14-0", model.TariffOutpatient, "1", "B", "Pemerintah", 400_000, 350_000, 300_000, "Digestive minor outpatient procedure"),
		},
	}
}

// Snapshot builds the fixture snapshot and fails the test on error.
func Snapshot(t testing.TB) *refdata.Snapshot {
	t.Helper()
	s, err := refdata.Build(Data())
	if err != nil {
		t.Fatalf("build fixture snapshot: %v", err)
	}
	return s
}

// ErrBroken is returned by every method of Broken.
var ErrBroken = errors.New("reference store unavailable")

// Broken is a repository whose every call fails, for exercising
// infrastructure error paths.
type Broken struct{}

var _ refdata.Repository = Broken{}

func (Broken) FindExact(context.Context, string, string, model.ServiceContext) (*refdata.CodeCount, error) {
	return nil, ErrBroken
}

func (Broken) FindByMember(context.Context, string, string, model.ServiceContext) (*refdata.CodeCount, error) {
	return nil, ErrBroken
}

func (Broken) FindTopByDiagnosis(context.Context, string, model.ServiceContext, int) ([]refdata.CodeCount, int64, error) {
	return nil, 0, ErrBroken
}

func (Broken) FindChapter(context.Context, string) (*model.ChapterMapping, error) {
	return nil, ErrBroken
}

func (Broken) DescribeCMG(context.Context, string) (string, error) { return "", ErrBroken }

func (Broken) FindProcedure(context.Context, string) (*model.ProcedureInfo, error) {
	return nil, ErrBroken
}

func (Broken) FindTariffPrefix(context.Context, string) (string, error) { return "", ErrBroken }

func (Broken) TariffExists(context.Context, string, model.TariffService) (bool, error) {
	return false, ErrBroken
}

func (Broken) FindTariff(context.Context, model.TariffKey) (*model.TariffRow, error) {
	return nil, ErrBroken
}

func (Broken) CountTariffClassifications(context.Context, string, model.TariffService) (int, error) {
	return 0, ErrBroken
}

func tariff(code string, svc model.TariffService, regional, class, typ string, t1, t2, t3 int64, desc string) model.TariffRow {
	return model.TariffRow{
		GroupingCode:  code,
		Service:       svc,
		Regional:      regional,
		HospitalClass: class,
		HospitalType:  typ,
		Tier1:         t1,
		Tier2:         t2,
		Tier3:         t3,
		Description:   desc,
		Active:        true,
	}
}

func inactive(r model.TariffRow) model.TariffRow {
	r.Active = false
	return r
}
