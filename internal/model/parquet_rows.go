package model

// Parquet layouts of the four reference tables as exported by the claims
// warehouse. Money fields are float64 in Parquet and rounded to whole rupiah
// during normalization.

// CaseHistoryRecord is one aggregated case-history row.
type CaseHistoryRecord struct {
	Diagnosis          string  `parquet:"diagnosis"`
	ProcedureSignature *string `parquet:"procedure_signature,optional"`
	ServiceContext     string  `parquet:"service_context"`
	GroupingCode       string  `parquet:"grouping_code"`
	Frequency          int64   `parquet:"frequency"`
}

// ChapterMappingRecord is one diagnosis-range → CMG row.
type ChapterMappingRecord struct {
	Chapter     string  `parquet:"chapter"`
	RangeStart  int32   `parquet:"range_start"`
	RangeEnd    int32   `parquet:"range_end"`
	CMG         string  `parquet:"cmg"`
	Description *string `parquet:"description,optional"`
	Priority    int32   `parquet:"priority"`
}

// ProcedureRecord is one procedure classification row.
type ProcedureRecord struct {
	Code         string   `parquet:"code"`
	ChapterStart *string  `parquet:"chapter_start,optional"`
	ChapterEnd   *string  `parquet:"chapter_end,optional"`
	Category     *string  `parquet:"category,optional"`
	BodySystem   *string  `parquet:"body_system,optional"`
	IsMajor      bool     `parquet:"is_major"`
	SimilarCodes []string `parquet:"similar_codes,list"`
}

// TariffRecord is one Tariff Master row.
type TariffRecord struct {
	GroupingCode  string   `parquet:"grouping_code"`
	Service       string   `parquet:"service"`
	Regional      string   `parquet:"regional"`
	HospitalClass string   `parquet:"hospital_class"`
	HospitalType  string   `parquet:"hospital_type"`
	Tier1         *float64 `parquet:"tarif_kelas_1,optional"`
	Tier2         *float64 `parquet:"tarif_kelas_2,optional"`
	Tier3         *float64 `parquet:"tarif_kelas_3,optional"`
	Description   *string  `parquet:"description,optional"`
	Active        *bool    `parquet:"active,optional"`
}
