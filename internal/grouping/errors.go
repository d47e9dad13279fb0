package grouping

import (
	"fmt"

	"github.com/gyeh/cbgtariff/internal/model"
)

// InputError rejects a claim before any reference query is made.
type InputError struct {
	Field  string
	Reason string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("invalid claim: %s %s", e.Field, e.Reason)
}

// InfraError wraps a reference-store failure. It aborts the whole
// resolution; a failed query is never treated as "no match".
type InfraError struct {
	Strategy model.Strategy
	Err      error
}

func (e *InfraError) Error() string {
	return fmt.Sprintf("%s: reference store: %s", e.Strategy, e.Err)
}

func (e *InfraError) Unwrap() error {
	return e.Err
}
