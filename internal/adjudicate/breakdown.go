package adjudicate

import (
	"context"
	"fmt"

	"github.com/gyeh/cbgtariff/internal/grouping"
	"github.com/gyeh/cbgtariff/internal/model"
	"github.com/gyeh/cbgtariff/internal/refdata"
)

// breakdown labels each segment of code. The specific segment is described
// by the priced tariff row when one was found.
func (s *Service) breakdown(ctx context.Context, repo refdata.Repository, code string, priced *TariffAmounts) (*Breakdown, error) {
	gc, err := model.ParseGroupingCode(code)
	if err != nil {
		return nil, fmt.Errorf("breakdown: %w", err)
	}
	cmgDesc, err := repo.DescribeCMG(ctx, gc.CMG)
	if err != nil {
		return nil, fmt.Errorf("breakdown: %w", err)
	}
	specificDesc := ""
	if priced != nil {
		specificDesc = priced.Description
	}
	return &Breakdown{
		CMG:      Segment{Code: gc.CMG, Description: cmgDesc},
		CaseType: Segment{Code: gc.CaseType, Description: grouping.CaseTypeDescriptions[gc.CaseType]},
		Specific: Segment{Code: gc.Specific, Description: specificDesc},
		Severity: Segment{Code: gc.Severity, Description: grouping.SeverityDescriptions[gc.Severity]},
	}, nil
}
