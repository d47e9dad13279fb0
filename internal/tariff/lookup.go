// Package tariff prices a resolved grouping code for one facility
// classification and insurance tier.
package tariff

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gyeh/cbgtariff/internal/model"
	"github.com/gyeh/cbgtariff/internal/normalize"
	"github.com/gyeh/cbgtariff/internal/refdata"
)

// Tier is an insurance coverage class selecting one reimbursement column.
type Tier int

const (
	Tier1 Tier = 1
	Tier2 Tier = 2
	Tier3 Tier = 3
)

// DefaultTier is used when a request names a tier other than 1, 2 or 3.
// Callers learn about the substitution through Price.TierDefaulted.
const DefaultTier = Tier1

// ParseTier validates n. Unrecognized values map to DefaultTier with
// defaulted=true; they are never rejected.
func ParseTier(n int) (t Tier, defaulted bool) {
	switch Tier(n) {
	case Tier1, Tier2, Tier3:
		return Tier(n), false
	}
	return DefaultTier, true
}

// Amount selects the tier's column from a tariff row.
func (t Tier) Amount(row model.TariffRow) int64 {
	switch t {
	case Tier2:
		return row.Tier2
	case Tier3:
		return row.Tier3
	}
	return row.Tier1
}

// Query is one pricing request.
type Query struct {
	Code          string
	Service       model.ServiceContext
	Regional      string
	HospitalClass string
	HospitalType  string
	Tier          int
}

// Key translates the query into the Tariff Master's vocabulary.
func (q Query) Key() model.TariffKey {
	return model.TariffKey{
		GroupingCode:  strings.ToUpper(strings.TrimSpace(q.Code)),
		Service:       q.Service.Tariff(),
		Regional:      strings.TrimSpace(q.Regional),
		HospitalClass: normalize.Code(q.HospitalClass),
		HospitalType:  normalize.HospitalType(q.HospitalType),
	}
}

// Price is the matched row plus the amount for the requested tier.
type Price struct {
	Row           model.TariffRow
	Tier          Tier
	TierDefaulted bool
	Amount        int64
}

// ErrNotPriced matches every *NotPricedError.
var ErrNotPriced = errors.New("grouping code not priced for this classification")

// NotPricedError means the code is valid but no active row exists for the
// exact classification requested. OtherClassifications counts the active
// rows the code has elsewhere, which is 0 when it is unpriced everywhere.
type NotPricedError struct {
	Key                  model.TariffKey
	OtherClassifications int
}

func (e *NotPricedError) Error() string {
	return fmt.Sprintf("%s: no active tariff for %s (service=%s regional=%s class=%s type=%s; priced in %d other classifications)",
		ErrNotPriced, e.Key.GroupingCode, e.Key.Service, e.Key.Regional, e.Key.HospitalClass, e.Key.HospitalType,
		e.OtherClassifications)
}

func (e *NotPricedError) Is(target error) bool {
	return target == ErrNotPriced
}

// QueryError rejects an incomplete or malformed pricing request.
type QueryError struct {
	Reason string
}

func (e *QueryError) Error() string {
	return "invalid tariff query: " + e.Reason
}

// Lookup reads the Tariff Master through a repository.
type Lookup struct {
	repo refdata.Repository
}

// NewLookup creates a Lookup over repo.
func NewLookup(repo refdata.Repository) *Lookup {
	return &Lookup{repo: repo}
}

// GetTariff performs the exact-key lookup restricted to active rows.
// It returns *QueryError for bad input, *NotPricedError when the
// classification has no row, and wrapped repository errors otherwise.
func (l *Lookup) GetTariff(ctx context.Context, q Query) (*Price, error) {
	key := q.Key()
	if _, err := model.ParseGroupingCode(key.GroupingCode); err != nil {
		return nil, &QueryError{Reason: err.Error()}
	}
	if !q.Service.Valid() {
		return nil, &QueryError{Reason: fmt.Sprintf("service context %q is not inpatient or outpatient", q.Service)}
	}
	if key.Regional == "" || key.HospitalClass == "" || key.HospitalType == "" {
		return nil, &QueryError{Reason: "regional_zone, hospital_class and hospital_type are required for pricing"}
	}

	repo := refdata.Pin(l.repo)
	row, err := repo.FindTariff(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("tariff lookup: %w", err)
	}
	if row == nil {
		n, err := repo.CountTariffClassifications(ctx, key.GroupingCode, key.Service)
		if err != nil {
			return nil, fmt.Errorf("tariff lookup: %w", err)
		}
		return nil, &NotPricedError{Key: key, OtherClassifications: n}
	}

	tier, defaulted := ParseTier(q.Tier)
	return &Price{
		Row:           *row,
		Tier:          tier,
		TierDefaulted: defaulted,
		Amount:        tier.Amount(*row),
	}, nil
}
