package refdata

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/gyeh/cbgtariff/internal/model"
)

// Loader produces the reference data a snapshot is built from.
type Loader func(ctx context.Context) (Data, error)

// Live holds the current Snapshot and replaces it only when Reload is
// called. Readers never observe a partially built snapshot.
type Live struct {
	load    Loader
	log     zerolog.Logger
	current atomic.Pointer[Snapshot]
}

// NewLive builds the first snapshot with load and returns a Live serving it.
func NewLive(ctx context.Context, load Loader, log zerolog.Logger) (*Live, error) {
	l := &Live{load: load, log: log}
	if _, err := l.Reload(ctx); err != nil {
		return nil, err
	}
	return l, nil
}

// Reload rebuilds the snapshot from the loader and swaps it in. On failure
// the previous snapshot stays in service.
func (l *Live) Reload(ctx context.Context) (*Snapshot, error) {
	d, err := l.load(ctx)
	if err != nil {
		return nil, fmt.Errorf("reload reference data: %w", err)
	}
	s, err := Build(d)
	if err != nil {
		return nil, fmt.Errorf("build reference snapshot: %w", err)
	}
	prev := l.current.Swap(s)
	ev := l.log.Info().
		Str("version", s.Version()).
		Int("cases", s.counts.Cases).
		Int("chapters", s.counts.Chapters).
		Int("procedures", s.counts.Procedures).
		Int("tariffs", s.counts.Tariffs)
	if prev != nil {
		ev = ev.Str("previous_version", prev.Version())
	}
	ev.Msg("reference snapshot loaded")
	return s, nil
}

// Current returns the snapshot in service.
func (l *Live) Current() *Snapshot {
	return l.current.Load()
}

// Pin returns a repository that answers every call of one resolution from
// the same data. A Live is pinned to its current snapshot; anything else is
// returned unchanged.
func Pin(r Repository) Repository {
	if l, ok := r.(*Live); ok {
		return l.Current()
	}
	return r
}

var _ Repository = (*Live)(nil)

func (l *Live) FindExact(ctx context.Context, diagnosis, signature string, svc model.ServiceContext) (*CodeCount, error) {
	return l.Current().FindExact(ctx, diagnosis, signature, svc)
}

func (l *Live) FindByMember(ctx context.Context, diagnosis, anchor string, svc model.ServiceContext) (*CodeCount, error) {
	return l.Current().FindByMember(ctx, diagnosis, anchor, svc)
}

func (l *Live) FindTopByDiagnosis(ctx context.Context, diagnosis string, svc model.ServiceContext, limit int) ([]CodeCount, int64, error) {
	return l.Current().FindTopByDiagnosis(ctx, diagnosis, svc, limit)
}

func (l *Live) FindChapter(ctx context.Context, diagnosis string) (*model.ChapterMapping, error) {
	return l.Current().FindChapter(ctx, diagnosis)
}

func (l *Live) DescribeCMG(ctx context.Context, cmg string) (string, error) {
	return l.Current().DescribeCMG(ctx, cmg)
}

func (l *Live) FindProcedure(ctx context.Context, code string) (*model.ProcedureInfo, error) {
	return l.Current().FindProcedure(ctx, code)
}

func (l *Live) FindTariffPrefix(ctx context.Context, prefix string) (string, error) {
	return l.Current().FindTariffPrefix(ctx, prefix)
}

func (l *Live) TariffExists(ctx context.Context, code string, svc model.TariffService) (bool, error) {
	return l.Current().TariffExists(ctx, code, svc)
}

func (l *Live) FindTariff(ctx context.Context, key model.TariffKey) (*model.TariffRow, error) {
	return l.Current().FindTariff(ctx, key)
}

func (l *Live) CountTariffClassifications(ctx context.Context, code string, svc model.TariffService) (int, error) {
	return l.Current().CountTariffClassifications(ctx, code, svc)
}
