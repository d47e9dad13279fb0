package refdata

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gyeh/cbgtariff/internal/model"
	"github.com/gyeh/cbgtariff/internal/normalize"
	embedsql "github.com/gyeh/cbgtariff/internal/sql"
)

// Postgres queries the ref schema on every call.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres creates a repository backed by pool.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

var _ Repository = (*Postgres)(nil)

func (p *Postgres) scanCodeCount(ctx context.Context, what, query string, args ...any) (*CodeCount, error) {
	var cc CodeCount
	err := p.pool.QueryRow(ctx, query, args...).Scan(&cc.Code, &cc.Cases)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", what, err)
	}
	if err := checkCode("case_history", cc.Code); err != nil {
		return nil, err
	}
	return &cc, nil
}

func (p *Postgres) FindExact(ctx context.Context, diagnosis, signature string, svc model.ServiceContext) (*CodeCount, error) {
	return p.scanCodeCount(ctx, "find exact", embedsql.FindExact, diagnosis, signature, string(svc))
}

func (p *Postgres) FindByMember(ctx context.Context, diagnosis, anchor string, svc model.ServiceContext) (*CodeCount, error) {
	return p.scanCodeCount(ctx, "find by member", embedsql.FindByMember, diagnosis, anchor, string(svc))
}

func (p *Postgres) FindTopByDiagnosis(ctx context.Context, diagnosis string, svc model.ServiceContext, limit int) ([]CodeCount, int64, error) {
	rows, err := p.pool.Query(ctx, embedsql.FindTopByDiagnosis, diagnosis, string(svc), limit)
	if err != nil {
		return nil, 0, fmt.Errorf("find top by diagnosis: %w", err)
	}
	defer rows.Close()

	var (
		out   []CodeCount
		total int64
	)
	for rows.Next() {
		var cc CodeCount
		if err := rows.Scan(&cc.Code, &cc.Cases, &total); err != nil {
			return nil, 0, fmt.Errorf("scan top by diagnosis: %w", err)
		}
		if err := checkCode("case_history", cc.Code); err != nil {
			return nil, 0, err
		}
		out = append(out, cc)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("find top by diagnosis: %w", err)
	}
	return out, total, nil
}

func (p *Postgres) FindChapter(ctx context.Context, diagnosis string) (*model.ChapterMapping, error) {
	letter, number, ok := model.ChapterKey(diagnosis)
	if !ok {
		return nil, nil
	}
	var (
		m                model.ChapterMapping
		start, end, prio int32
	)
	err := p.pool.QueryRow(ctx, embedsql.FindChapter, letter, number).
		Scan(&m.Chapter, &start, &end, &m.CMG, &m.Description, &prio)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find chapter: %w", err)
	}
	m.RangeStart, m.RangeEnd, m.Priority = int(start), int(end), int(prio)
	if len(m.CMG) != 1 || m.CMG[0] < 'A' || m.CMG[0] > 'Z' {
		return nil, malformed("chapter_mappings: cmg %q for %s%02d", m.CMG, letter, number)
	}
	return &m, nil
}

func (p *Postgres) DescribeCMG(ctx context.Context, cmg string) (string, error) {
	var desc string
	err := p.pool.QueryRow(ctx, embedsql.DescribeCMG, cmg).Scan(&desc)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("describe cmg: %w", err)
	}
	return desc, nil
}

func (p *Postgres) FindProcedure(ctx context.Context, code string) (*model.ProcedureInfo, error) {
	var pi model.ProcedureInfo
	err := p.pool.QueryRow(ctx, embedsql.FindProcedure, code).
		Scan(&pi.Code, &pi.ChapterStart, &pi.ChapterEnd, &pi.Category, &pi.BodySystem, &pi.IsMajor, &pi.Similar)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find procedure: %w", err)
	}
	pi.Similar = normalize.Codes(pi.Similar)
	return &pi, nil
}

func (p *Postgres) FindTariffPrefix(ctx context.Context, prefix string) (string, error) {
	var (
		specific string
		n        int64
	)
	err := p.pool.QueryRow(ctx, embedsql.FindTariffPrefix, prefix).Scan(&specific, &n)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("find tariff prefix: %w", err)
	}
	if len(specific) != 2 || specific[0] < '0' || specific[0] > '9' || specific[1] < '0' || specific[1] > '9' {
		return "", malformed("tariffs: specific segment %q under %s", specific, prefix)
	}
	return specific, nil
}

func (p *Postgres) TariffExists(ctx context.Context, code string, svc model.TariffService) (bool, error) {
	var ok bool
	if err := p.pool.QueryRow(ctx, embedsql.TariffExists, code, string(svc)).Scan(&ok); err != nil {
		return false, fmt.Errorf("tariff exists: %w", err)
	}
	return ok, nil
}

func (p *Postgres) FindTariff(ctx context.Context, key model.TariffKey) (*model.TariffRow, error) {
	var (
		t   model.TariffRow
		svc string
	)
	err := p.pool.QueryRow(ctx, embedsql.FindTariff,
		key.GroupingCode, string(key.Service), key.Regional, key.HospitalClass, key.HospitalType).
		Scan(&t.GroupingCode, &svc, &t.Regional, &t.HospitalClass, &t.HospitalType,
			&t.Tier1, &t.Tier2, &t.Tier3, &t.Description, &t.Active)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find tariff: %w", err)
	}
	t.Service = model.TariffService(svc)
	return &t, nil
}

func (p *Postgres) CountTariffClassifications(ctx context.Context, code string, svc model.TariffService) (int, error) {
	var n int64
	if err := p.pool.QueryRow(ctx, embedsql.CountTariffClassifications, code, string(svc)).Scan(&n); err != nil {
		return 0, fmt.Errorf("count tariff classifications: %w", err)
	}
	return int(n), nil
}
