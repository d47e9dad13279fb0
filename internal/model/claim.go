package model

// ClaimContext is the already-normalized input to one resolution.
// Procedures are order-significant: the first entry is the main procedure.
type ClaimContext struct {
	PrimaryDiagnosis   string
	SecondaryDiagnoses []string
	Procedures         []string
	Service            ServiceContext
}

// MainProcedure returns the first procedure code, or "" when none was supplied.
func (c ClaimContext) MainProcedure() string {
	if len(c.Procedures) == 0 {
		return ""
	}
	return c.Procedures[0]
}

// HasProcedures reports whether at least one procedure was supplied.
func (c ClaimContext) HasProcedures() bool {
	return len(c.Procedures) > 0
}
