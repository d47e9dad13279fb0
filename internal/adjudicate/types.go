package adjudicate

import "github.com/gyeh/cbgtariff/internal/model"

// Status is the terminal state of one adjudication.
type Status string

const (
	StatusResolved         Status = "resolved"
	StatusUnresolved       Status = "unresolved"
	StatusResolvedUnpriced Status = "resolved_unpriced"
)

// Request is the service-boundary form of a claim plus its pricing context.
type Request struct {
	PrimaryDiagnosis   string   `json:"primary_diagnosis"`
	SecondaryDiagnoses []string `json:"secondary_diagnoses"`
	Procedures         []string `json:"procedures"`
	ServiceContext     string   `json:"service_context"`
	RegionalZone       string   `json:"regional_zone"`
	HospitalClass      string   `json:"hospital_class"`
	HospitalType       string   `json:"hospital_type"`
	InsuranceTier      int      `json:"insurance_tier"`
}

// Response is the composite result. GroupingCode, Breakdown, Tariff and
// Strategy are null when Status is unresolved; Tariff is null when it is
// resolved_unpriced.
type Response struct {
	Status         Status          `json:"status"`
	GroupingCode   *string         `json:"grouping_code"`
	Breakdown      *Breakdown      `json:"breakdown"`
	Tariff         *TariffAmounts  `json:"tariff"`
	Strategy       *StrategyInfo   `json:"strategy"`
	Warnings       []model.Warning `json:"warnings,omitempty"`
	TariffReason   string          `json:"tariff_reason,omitempty"`
	ErrorReason    string          `json:"error_reason,omitempty"`
	Classification Classification  `json:"classification"`
}

// Segment is one component of a grouping code with its label.
type Segment struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

// Breakdown decomposes a grouping code into its four segments.
type Breakdown struct {
	CMG      Segment `json:"cmg"`
	CaseType Segment `json:"case_type"`
	Specific Segment `json:"specific"`
	Severity Segment `json:"severity"`
}

// TariffAmounts exposes every tier even though one was requested.
type TariffAmounts struct {
	Tier1         int64  `json:"tarif_kelas_1"`
	Tier2         int64  `json:"tarif_kelas_2"`
	Tier3         int64  `json:"tarif_kelas_3"`
	RequestedTier int    `json:"requested_tier"`
	Amount        int64  `json:"amount"`
	Description   string `json:"description,omitempty"`
}

// StrategyInfo is the resolution metadata.
type StrategyInfo struct {
	Name         model.Strategy      `json:"name"`
	Confidence   int                 `json:"confidence"`
	CaseCount    int64               `json:"case_count"`
	Warnings     []model.Warning     `json:"warnings"`
	Alternatives []model.Alternative `json:"alternatives"`
}

// Classification echoes the requested pricing context.
type Classification struct {
	ServiceContext string `json:"service_context"`
	RegionalZone   string `json:"regional_zone"`
	HospitalClass  string `json:"hospital_class"`
	HospitalType   string `json:"hospital_type"`
	InsuranceTier  int    `json:"insurance_tier"`
}
