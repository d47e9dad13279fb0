// Package adjudicate composes grouping-code resolution and tariff lookup
// into a single claim response.
package adjudicate

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/gyeh/cbgtariff/internal/grouping"
	"github.com/gyeh/cbgtariff/internal/model"
	"github.com/gyeh/cbgtariff/internal/refdata"
	"github.com/gyeh/cbgtariff/internal/tariff"
)

// Service resolves and prices claims. It is stateless; every call pins one
// reference snapshot for its whole duration.
type Service struct {
	repo refdata.Repository
	opts grouping.Options
	log  zerolog.Logger
}

// NewService creates a Service over repo.
func NewService(repo refdata.Repository, opts grouping.Options, log zerolog.Logger) *Service {
	return &Service{repo: repo, opts: opts, log: log}
}

// ClaimFromRequest validates the request fields the resolver needs.
func ClaimFromRequest(req Request) (model.ClaimContext, error) {
	if strings.TrimSpace(req.PrimaryDiagnosis) == "" {
		return model.ClaimContext{}, &grouping.InputError{Field: "primary_diagnosis", Reason: "is required"}
	}
	svc, err := model.ParseServiceContext(req.ServiceContext)
	if err != nil {
		return model.ClaimContext{}, &grouping.InputError{Field: "service_context", Reason: err.Error()}
	}
	return model.ClaimContext{
		PrimaryDiagnosis:   req.PrimaryDiagnosis,
		SecondaryDiagnoses: req.SecondaryDiagnoses,
		Procedures:         req.Procedures,
		Service:            svc,
	}, nil
}

// Resolve runs only the grouping chain.
func (s *Service) Resolve(ctx context.Context, claim model.ClaimContext) (grouping.Outcome, error) {
	return grouping.NewResolver(refdata.Pin(s.repo), s.opts, s.log).Resolve(ctx, claim)
}

// Price runs only the tariff lookup.
func (s *Service) Price(ctx context.Context, q tariff.Query) (*tariff.Price, error) {
	return tariff.NewLookup(refdata.Pin(s.repo)).GetTariff(ctx, q)
}

// Adjudicate resolves the claim, prices the code and builds the breakdown.
// Unresolved and unpriced claims are successful responses with the matching
// Status; the returned error is either *grouping.InputError or an
// infrastructure failure.
func (s *Service) Adjudicate(ctx context.Context, req Request) (*Response, error) {
	claim, err := ClaimFromRequest(req)
	if err != nil {
		return nil, err
	}
	for _, f := range []struct{ name, value string }{
		{"regional_zone", req.RegionalZone},
		{"hospital_class", req.HospitalClass},
		{"hospital_type", req.HospitalType},
	} {
		if strings.TrimSpace(f.value) == "" {
			return nil, &grouping.InputError{Field: f.name, Reason: "is required for pricing"}
		}
	}

	repo := refdata.Pin(s.repo)
	resp := &Response{Classification: Classification{
		ServiceContext: string(claim.Service),
		RegionalZone:   req.RegionalZone,
		HospitalClass:  req.HospitalClass,
		HospitalType:   req.HospitalType,
		InsuranceTier:  req.InsuranceTier,
	}}
	if resp.Classification.InsuranceTier == 0 {
		resp.Classification.InsuranceTier = int(tariff.DefaultTier)
	}

	outcome, err := grouping.NewResolver(repo, s.opts, s.log).Resolve(ctx, claim)
	if err != nil {
		return nil, err
	}
	if !outcome.Resolved() {
		resp.Status = StatusUnresolved
		resp.ErrorReason = outcome.Unresolved.Reason
		s.log.Info().
			Str("diagnosis", outcome.Unresolved.Diagnosis).
			Str("status", string(resp.Status)).
			Msg("claim adjudicated")
		return resp, nil
	}

	res := outcome.Result
	code := res.Code
	resp.GroupingCode = &code
	resp.Strategy = &StrategyInfo{
		Name:         res.Strategy,
		Confidence:   res.Confidence,
		CaseCount:    res.CaseCount,
		Warnings:     nonNil(res.Warnings),
		Alternatives: nonNilAlts(res.Alternatives),
	}

	price, err := tariff.NewLookup(repo).GetTariff(ctx, tariff.Query{
		Code:          code,
		Service:       claim.Service,
		Regional:      req.RegionalZone,
		HospitalClass: req.HospitalClass,
		HospitalType:  req.HospitalType,
		Tier:          resp.Classification.InsuranceTier,
	})
	var np *tariff.NotPricedError
	switch {
	case errors.As(err, &np):
		resp.Status = StatusResolvedUnpriced
		resp.TariffReason = np.Error()
	case err != nil:
		return nil, err
	default:
		resp.Status = StatusResolved
		resp.Tariff = &TariffAmounts{
			Tier1:         price.Row.Tier1,
			Tier2:         price.Row.Tier2,
			Tier3:         price.Row.Tier3,
			RequestedTier: int(price.Tier),
			Amount:        price.Amount,
			Description:   price.Row.Description,
		}
		if price.TierDefaulted {
			resp.Warnings = append(resp.Warnings, model.Warning{
				Kind: model.WarnTierDefaulted,
				Message: fmt.Sprintf("insurance tier %d is not 1, 2 or 3; priced at tier %d",
					req.InsuranceTier, tariff.DefaultTier),
			})
		}
	}

	bd, err := s.breakdown(ctx, repo, code, resp.Tariff)
	if err != nil {
		return nil, err
	}
	resp.Breakdown = bd

	s.log.Info().
		Str("diagnosis", claim.PrimaryDiagnosis).
		Str("code", code).
		Str("strategy", string(res.Strategy)).
		Int("confidence", res.Confidence).
		Str("status", string(resp.Status)).
		Msg("claim adjudicated")
	return resp, nil
}

func nonNil(w []model.Warning) []model.Warning {
	if w == nil {
		return []model.Warning{}
	}
	return w
}

func nonNilAlts(a []model.Alternative) []model.Alternative {
	if a == nil {
		return []model.Alternative{}
	}
	return a
}
