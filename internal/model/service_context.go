package model

import (
	"fmt"
	"strings"
)

// ServiceContext is the care setting a claim was delivered in.
type ServiceContext string

const (
	Inpatient  ServiceContext = "inpatient"
	Outpatient ServiceContext = "outpatient"
)

// TariffService is the Tariff Master's vocabulary for a service context.
type TariffService string

const (
	TariffInpatient  TariffService = "RI" // rawat inap
	TariffOutpatient TariffService = "RJ" // rawat jalan
)

// ParseServiceContext accepts the internal names as well as the tariff
// vocabulary, case-insensitively.
func ParseServiceContext(s string) (ServiceContext, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "inpatient", "ri", "rawat_inap":
		return Inpatient, nil
	case "outpatient", "rj", "rawat_jalan":
		return Outpatient, nil
	}
	return "", fmt.Errorf("unknown service context %q (want inpatient or outpatient)", s)
}

// Valid reports whether s is one of the two known contexts.
func (s ServiceContext) Valid() bool {
	return s == Inpatient || s == Outpatient
}

// Tariff translates the service context into the Tariff Master's vocabulary.
func (s ServiceContext) Tariff() TariffService {
	if s == Inpatient {
		return TariffInpatient
	}
	return TariffOutpatient
}
