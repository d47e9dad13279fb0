package refdata

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/gyeh/cbgtariff/internal/model"
	"github.com/gyeh/cbgtariff/internal/normalize"
)

// Data is the raw content of the four reference tables.
type Data struct {
	Version    string
	Cases      []model.HistoricalCase
	Chapters   []model.ChapterMapping
	Procedures []model.ProcedureInfo
	Tariffs    []model.TariffRow
}

type caseKey struct {
	diagnosis string
	service   model.ServiceContext
}

type tariffCodeKey struct {
	code    string
	service model.TariffService
}

// Snapshot is an immutable, fully indexed copy of the reference tables.
// It is safe for concurrent use; nothing mutates it after Build returns.
// Its lookups apply the same ordering and tie-breaks as the Postgres queries.
type Snapshot struct {
	version  string
	loadedAt time.Time

	cases      map[caseKey][]model.HistoricalCase // frequency desc, code asc
	chapters   map[string][]model.ChapterMapping  // priority desc, cmg asc
	cmgDesc    map[string]string
	procedures map[string]model.ProcedureInfo
	tariffs    map[model.TariffKey]model.TariffRow
	tariffKeys map[tariffCodeKey]int
	prefixBest map[string]string

	counts Counts
}

// Counts reports how many rows of each table a snapshot holds.
type Counts struct {
	Cases      int `json:"cases"`
	Chapters   int `json:"chapters"`
	Procedures int `json:"procedures"`
	Tariffs    int `json:"tariffs"`
}

var _ Repository = (*Snapshot)(nil)

// Build validates d and indexes it into a Snapshot. Stored codes,
// signatures and facility labels are re-canonicalized the way the ingest
// normalizers produce them; malformed grouping codes, overlapping chapter ranges
// within one priority tier and duplicate active tariff keys are errors.
func Build(d Data) (*Snapshot, error) {
	s := &Snapshot{
		version:    d.Version,
		loadedAt:   time.Now().UTC(),
		cases:      make(map[caseKey][]model.HistoricalCase),
		chapters:   make(map[string][]model.ChapterMapping),
		cmgDesc:    make(map[string]string),
		procedures: make(map[string]model.ProcedureInfo, len(d.Procedures)),
		tariffs:    make(map[model.TariffKey]model.TariffRow, len(d.Tariffs)),
		tariffKeys: make(map[tariffCodeKey]int),
		prefixBest: make(map[string]string),
	}

	for i, c := range d.Cases {
		gc, err := model.ParseGroupingCode(c.GroupingCode)
		if err != nil {
			return nil, fmt.Errorf("case %d: %w", i, malformed("case_history: %v", err))
		}
		c.GroupingCode = gc.String()
		if !c.Service.Valid() {
			return nil, fmt.Errorf("case %d: %w", i, malformed("case_history: service context %q", c.Service))
		}
		sig := c.Signature
		c.Signature = normalize.CanonicalSignature(&sig)
		c.Diagnosis = normalize.Code(c.Diagnosis)
		k := caseKey{c.Diagnosis, c.Service}
		s.cases[k] = append(s.cases[k], c)
	}
	for _, list := range s.cases {
		sort.Slice(list, func(i, j int) bool {
			if list[i].Frequency != list[j].Frequency {
				return list[i].Frequency > list[j].Frequency
			}
			return list[i].GroupingCode < list[j].GroupingCode
		})
	}

	if err := s.indexChapters(d.Chapters); err != nil {
		return nil, err
	}

	for i, p := range d.Procedures {
		p.Code = normalize.Code(p.Code)
		if p.Code == "" {
			return nil, fmt.Errorf("procedure %d: %w", i, malformed("procedures: empty code"))
		}
		p.Similar = normalize.Codes(p.Similar)
		s.procedures[p.Code] = p
	}

	prefixCounts := make(map[string]map[string]int)
	for i, t := range d.Tariffs {
		gc, err := model.ParseGroupingCode(t.GroupingCode)
		if err != nil {
			return nil, fmt.Errorf("tariff %d: %w", i, malformed("tariffs: %v", err))
		}
		if !t.Active {
			continue
		}
		t.GroupingCode = gc.String()
		t.Regional = strings.TrimSpace(t.Regional)
		t.HospitalClass = normalize.Code(t.HospitalClass)
		t.HospitalType = normalize.HospitalType(t.HospitalType)
		if t.Service != model.TariffInpatient && t.Service != model.TariffOutpatient {
			return nil, fmt.Errorf("tariff %d: %w", i, malformed("tariffs: service %q", t.Service))
		}
		if t.Regional == "" || t.HospitalClass == "" || t.HospitalType == "" {
			return nil, fmt.Errorf("tariff %d: %w", i, malformed("tariffs: incomplete classification for %s", t.GroupingCode))
		}
		k := t.Key()
		if _, dup := s.tariffs[k]; dup {
			return nil, fmt.Errorf("tariff %d: %w", i, malformed("tariffs: duplicate active key %+v", k))
		}
		s.tariffs[k] = t
		s.tariffKeys[tariffCodeKey{t.GroupingCode, t.Service}]++
		byPrefix := prefixCounts[gc.Prefix()]
		if byPrefix == nil {
			byPrefix = make(map[string]int)
			prefixCounts[gc.Prefix()] = byPrefix
		}
		byPrefix[gc.Specific]++
	}
	for prefix, bySpecific := range prefixCounts {
		best, bestN := "", 0
		for specific, n := range bySpecific {
			if n > bestN || (n == bestN && specific < best) {
				best, bestN = specific, n
			}
		}
		s.prefixBest[prefix] = best
	}

	s.counts = Counts{
		Cases:      len(d.Cases),
		Chapters:   len(d.Chapters),
		Procedures: len(s.procedures),
		Tariffs:    len(s.tariffs),
	}
	return s, nil
}

func (s *Snapshot) indexChapters(chapters []model.ChapterMapping) error {
	for i, m := range chapters {
		m.Chapter = normalize.Code(m.Chapter)
		m.CMG = normalize.Code(m.CMG)
		if len(m.CMG) != 1 || m.CMG[0] < 'A' || m.CMG[0] > 'Z' {
			return fmt.Errorf("chapter %d: %w", i, malformed("chapter_mappings: cmg %q", m.CMG))
		}
		if m.RangeStart >= m.RangeEnd {
			return fmt.Errorf("chapter %d: %w", i, malformed("chapter_mappings: empty range %s[%d,%d)", m.Chapter, m.RangeStart, m.RangeEnd))
		}
		for _, o := range s.chapters[m.Chapter] {
			if o.Priority == m.Priority && o.Overlaps(m) {
				return fmt.Errorf("chapter %d: %w", i, malformed(
					"chapter_mappings: %s[%d,%d) overlaps %s[%d,%d) at priority %d",
					m.Chapter, m.RangeStart, m.RangeEnd, o.Chapter, o.RangeStart, o.RangeEnd, m.Priority))
			}
		}
		s.chapters[m.Chapter] = append(s.chapters[m.Chapter], m)
	}
	base := make(map[string]model.ChapterMapping)
	for letter, list := range s.chapters {
		sort.Slice(list, func(i, j int) bool {
			if list[i].Priority != list[j].Priority {
				return list[i].Priority > list[j].Priority
			}
			return list[i].CMG < list[j].CMG
		})
		s.chapters[letter] = list
		for _, m := range list {
			b, ok := base[m.CMG]
			if !ok || m.Priority < b.Priority ||
				(m.Priority == b.Priority && (m.Chapter < b.Chapter || (m.Chapter == b.Chapter && m.RangeStart < b.RangeStart))) {
				base[m.CMG] = m
			}
		}
	}
	for cmg, m := range base {
		s.cmgDesc[cmg] = m.Description
	}
	return nil
}

// Version identifies the data the snapshot was built from.
func (s *Snapshot) Version() string { return s.version }

// LoadedAt is when the snapshot was built.
func (s *Snapshot) LoadedAt() time.Time { return s.loadedAt }

// Counts reports table sizes.
func (s *Snapshot) Counts() Counts { return s.counts }

func (s *Snapshot) FindExact(_ context.Context, diagnosis, signature string, svc model.ServiceContext) (*CodeCount, error) {
	for _, c := range s.cases[caseKey{diagnosis, svc}] {
		if c.Signature == signature {
			return &CodeCount{Code: c.GroupingCode, Cases: c.Frequency}, nil
		}
	}
	return nil, nil
}

func (s *Snapshot) FindByMember(_ context.Context, diagnosis, anchor string, svc model.ServiceContext) (*CodeCount, error) {
	if anchor == "" {
		return nil, nil
	}
	for _, c := range s.cases[caseKey{diagnosis, svc}] {
		if normalize.SignatureContains(c.Signature, anchor) {
			return &CodeCount{Code: c.GroupingCode, Cases: c.Frequency}, nil
		}
	}
	return nil, nil
}

func (s *Snapshot) FindTopByDiagnosis(_ context.Context, diagnosis string, svc model.ServiceContext, limit int) ([]CodeCount, int64, error) {
	byCode := make(map[string]int64)
	var total int64
	for _, c := range s.cases[caseKey{diagnosis, svc}] {
		byCode[c.GroupingCode] += c.Frequency
		total += c.Frequency
	}
	out := make([]CodeCount, 0, len(byCode))
	for code, n := range byCode {
		out = append(out, CodeCount{Code: code, Cases: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Cases != out[j].Cases {
			return out[i].Cases > out[j].Cases
		}
		return out[i].Code < out[j].Code
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, total, nil
}

func (s *Snapshot) FindChapter(_ context.Context, diagnosis string) (*model.ChapterMapping, error) {
	letter, number, ok := model.ChapterKey(diagnosis)
	if !ok {
		return nil, nil
	}
	for _, m := range s.chapters[letter] {
		if m.Contains(letter, number) {
			m := m
			return &m, nil
		}
	}
	return nil, nil
}

func (s *Snapshot) DescribeCMG(_ context.Context, cmg string) (string, error) {
	return s.cmgDesc[cmg], nil
}

func (s *Snapshot) FindProcedure(_ context.Context, code string) (*model.ProcedureInfo, error) {
	p, ok := s.procedures[code]
	if !ok {
		return nil, nil
	}
	p.Similar = append([]string(nil), p.Similar...)
	return &p, nil
}

func (s *Snapshot) FindTariffPrefix(_ context.Context, prefix string) (string, error) {
	return s.prefixBest[strings.ToUpper(prefix)], nil
}

func (s *Snapshot) TariffExists(_ context.Context, code string, svc model.TariffService) (bool, error) {
	return s.tariffKeys[tariffCodeKey{code, svc}] > 0, nil
}

func (s *Snapshot) FindTariff(_ context.Context, key model.TariffKey) (*model.TariffRow, error) {
	t, ok := s.tariffs[key]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

func (s *Snapshot) CountTariffClassifications(_ context.Context, code string, svc model.TariffService) (int, error) {
	return s.tariffKeys[tariffCodeKey{code, svc}], nil
}
