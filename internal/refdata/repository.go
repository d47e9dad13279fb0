// Package refdata provides read-only access to the reference tables the
// grouping engine depends on: case history, chapter mappings, procedure
// metadata and the Tariff Master. Two implementations exist: a Postgres
// repository that queries ref.* directly, and an immutable in-memory
// Snapshot built once from Postgres or Parquet and swapped explicitly via Live.
package refdata

import (
	"context"
	"errors"
	"fmt"

	"github.com/gyeh/cbgtariff/internal/model"
)

// CodeCount is a grouping code with the number of historical cases behind it.
type CodeCount struct {
	Code  string
	Cases int64
}

// Repository is the capability set the resolver and tariff lookup need.
// Lookups that find nothing return a nil/zero value and a nil error; errors
// are reserved for infrastructure failures and malformed stored data.
type Repository interface {
	// FindExact returns the highest-frequency case with exactly this
	// diagnosis, signature ("" = no procedure) and service context.
	FindExact(ctx context.Context, diagnosis, signature string, svc model.ServiceContext) (*CodeCount, error)
	// FindByMember returns the highest-frequency case whose signature
	// contains anchor as one of its members, in any position.
	FindByMember(ctx context.Context, diagnosis, anchor string, svc model.ServiceContext) (*CodeCount, error)
	// FindTopByDiagnosis groups all cases for the diagnosis by grouping code
	// and returns up to limit groups by case count, plus the total case count
	// over every group.
	FindTopByDiagnosis(ctx context.Context, diagnosis string, svc model.ServiceContext, limit int) ([]CodeCount, int64, error)
	// FindChapter returns the highest-priority mapping containing the diagnosis.
	FindChapter(ctx context.Context, diagnosis string) (*model.ChapterMapping, error)
	// DescribeCMG returns the description of the base (lowest-priority) mapping for a CMG letter.
	DescribeCMG(ctx context.Context, cmg string) (string, error)
	FindProcedure(ctx context.Context, code string) (*model.ProcedureInfo, error)
	// FindTariffPrefix returns the most frequent specific sub-code among
	// active tariff rows whose code starts with prefix, or "".
	FindTariffPrefix(ctx context.Context, prefix string) (string, error)
	TariffExists(ctx context.Context, code string, svc model.TariffService) (bool, error)
	FindTariff(ctx context.Context, key model.TariffKey) (*model.TariffRow, error)
	// CountTariffClassifications counts active rows for the code across all
	// facility classifications.
	CountTariffClassifications(ctx context.Context, code string, svc model.TariffService) (int, error)
}

// ErrMalformed marks reference data that violates the table contract.
var ErrMalformed = errors.New("malformed reference data")

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformed, fmt.Sprintf(format, args...))
}

// checkCode rejects grouping codes read from storage that are not well-formed.
func checkCode(table, code string) error {
	if _, err := model.ParseGroupingCode(code); err != nil {
		return malformed("%s: %v", table, err)
	}
	return nil
}
