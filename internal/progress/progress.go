package progress

import (
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
)

// Tracker tracks progress through one input.
type Tracker interface {
	Increment()
	SetCounter(name string, value int64)
	Done()
}

// Manager creates trackers.
type Manager interface {
	NewTracker(name string, total int64) Tracker
	Wait()
}

// MPBManager implements Manager using the mpb multi-progress-bar library.
type MPBManager struct {
	container *mpb.Progress
}

// NewMPBManager creates a new mpb-based progress manager writing to out.
func NewMPBManager(out io.Writer) *MPBManager {
	return &MPBManager{container: mpb.New(mpb.WithWidth(60), mpb.WithOutput(out))}
}

// NewTracker adds a bar of total steps. total <= 0 means unknown.
func (m *MPBManager) NewTracker(name string, total int64) Tracker {
	t := &mpbTracker{counters: make(map[string]int64)}
	t.summary.Store("")
	t.bar = m.container.AddBar(total,
		mpb.PrependDecorators(
			decor.Name(name+" ", decor.WCSyncSpaceR),
			decor.CountersNoUnit("%d/%d", decor.WCSyncWidth),
		),
		mpb.AppendDecorators(
			decor.Percentage(decor.WC{W: 5}),
			decor.Any(func(decor.Statistics) string {
				return t.summary.Load().(string)
			}),
		),
	)
	return t
}

// Wait waits for all progress bars to finish.
func (m *MPBManager) Wait() {
	m.container.Wait()
}

type mpbTracker struct {
	bar *mpb.Bar

	mu       sync.Mutex
	order    []string
	counters map[string]int64
	summary  atomic.Value
}

func (t *mpbTracker) Increment() {
	t.bar.Increment()
}

// SetCounter records a named count shown after the bar, in first-set order.
func (t *mpbTracker) SetCounter(name string, value int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.counters[name]; !ok {
		t.order = append(t.order, name)
	}
	t.counters[name] = value
	s := ""
	for _, n := range t.order {
		s += fmt.Sprintf("  %s=%d", n, t.counters[n])
	}
	t.summary.Store(s)
}

func (t *mpbTracker) Done() {
	t.bar.SetTotal(-1, true)
}

// NoopManager is a no-op progress manager for non-interactive use.
type NoopManager struct{}

func (NoopManager) NewTracker(string, int64) Tracker { return noopTracker{} }

func (NoopManager) Wait() {}

type noopTracker struct{}

func (noopTracker) Increment()               {}
func (noopTracker) SetCounter(string, int64) {}
func (noopTracker) Done()                    {}
