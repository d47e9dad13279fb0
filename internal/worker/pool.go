package worker

import (
	"context"
	"errors"
	"sync"

	"github.com/gyeh/cbgtariff/internal/adjudicate"
	"github.com/gyeh/cbgtariff/internal/grouping"
	"github.com/gyeh/cbgtariff/internal/progress"
)

// Adjudicator is the part of adjudicate.Service the pool needs.
type Adjudicator interface {
	Adjudicate(ctx context.Context, req adjudicate.Request) (*adjudicate.Response, error)
}

// Pool adjudicates claims concurrently.
type Pool struct {
	Workers  int
	Service  Adjudicator
	Progress progress.Manager
}

// Run adjudicates every claim and returns results in input order.
// Claims rejected for bad input are recorded in their Result; the first
// infrastructure failure cancels the remaining work and is returned.
// Callers wait on the progress manager after Run returns.
func (p *Pool) Run(ctx context.Context, claims []Claim) ([]Result, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make([]Result, len(claims))
	tracker := p.Progress.NewTracker("claims", int64(len(claims)))
	var counts counters

	workers := p.Workers
	if workers < 1 {
		workers = 1
	}
	sem := make(chan struct{}, workers)
	var (
		wg       sync.WaitGroup
		errOnce  sync.Once
		firstErr error
	)

	for i, claim := range claims {
		wg.Add(1)
		go func(idx int, cl Claim) {
			defer wg.Done()

			// Acquire semaphore
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				results[idx] = Result{Line: cl.Line, ClaimID: cl.ClaimID, Error: ctx.Err().Error()}
				return
			}
			defer func() { <-sem }()

			res := Result{Line: cl.Line, ClaimID: cl.ClaimID}
			switch {
			case cl.ParseErr != nil:
				res.Error = cl.ParseErr.Error()
			default:
				resp, err := p.Service.Adjudicate(ctx, cl.Request)
				var inputErr *grouping.InputError
				switch {
				case errors.As(err, &inputErr):
					res.Error = err.Error()
				case err != nil:
					res.Error = err.Error()
					errOnce.Do(func() {
						firstErr = err
						cancel()
					})
				default:
					res.Response = resp
				}
			}
			results[idx] = res
			counts.add(res)
			counts.report(tracker)
			tracker.Increment()
		}(i, claim)
	}

	wg.Wait()
	tracker.Done()
	return results, firstErr
}

type counters struct {
	mu sync.Mutex
	Summary
}

func (c *counters) add(r Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Summary.add(r)
}

func (c *counters) report(t progress.Tracker) {
	c.mu.Lock()
	defer c.mu.Unlock()
	t.SetCounter("resolved", int64(c.Resolved))
	t.SetCounter("unpriced", int64(c.Unpriced))
	t.SetCounter("unresolved", int64(c.Unresolved))
	t.SetCounter("failed", int64(c.Failed))
}
