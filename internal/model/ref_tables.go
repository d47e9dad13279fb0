package model

// RefTable describes one reference table: its Parquet source columns and
// the Postgres table it is loaded into.
type RefTable struct {
	Name     string   // e.g. "cases"
	Table    string   // table name inside the ref schema
	Required []string // Parquet columns that must be present
}

var (
	CasesTable = RefTable{
		Name:     "cases",
		Table:    "case_history",
		Required: []string{"diagnosis", "service_context", "grouping_code", "frequency"},
	}
	ChaptersTable = RefTable{
		Name:     "chapters",
		Table:    "chapter_mappings",
		Required: []string{"chapter", "range_start", "range_end", "cmg", "priority"},
	}
	ProceduresTable = RefTable{
		Name:     "procedures",
		Table:    "procedures",
		Required: []string{"code", "is_major"},
	}
	TariffsTable = RefTable{
		Name:     "tariffs",
		Table:    "tariffs",
		Required: []string{"grouping_code", "service", "regional", "hospital_class", "hospital_type"},
	}
)

// AllRefTables lists the reference tables in load order.
var AllRefTables = []RefTable{CasesTable, ChaptersTable, ProceduresTable, TariffsTable}

// RefTableByName returns the RefTable for the given name, or ok=false.
func RefTableByName(name string) (RefTable, bool) {
	for _, t := range AllRefTables {
		if t.Name == name {
			return t, true
		}
	}
	return RefTable{}, false
}
