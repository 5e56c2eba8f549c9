package align

import (
	"context"
	"sync"
	"time"

	"market-align/internal/windows"
)

// Sweep resolves every catalog window for one ticker around an event time.
// Windows that fail to resolve are simply absent from the result.
func (e *Engine) Sweep(ctx context.Context, ticker string, eventTime time.Time) SweepResult {
	result := make(SweepResult, windows.Count())
	for _, w := range windows.Catalog() {
		target := windows.TargetFor(w, eventTime)
		if point, ok := e.locator.Locate(ctx, ticker, target, w.Tolerance); ok {
			result[w.Name] = point
		}
	}
	return result
}

// alignAll runs the instrument sweep and the two benchmark sweeps
// concurrently. The sweeps are independent; one ticker's missing data never
// blocks another's results. All three complete before this returns, which is
// the barrier derived metrics rely on.
func (e *Engine) alignAll(ctx context.Context, ticker string, eventTime time.Time) (instrument, spy, qqq SweepResult) {
	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		instrument = e.Sweep(ctx, ticker, eventTime)
	}()
	go func() {
		defer wg.Done()
		spy = e.Sweep(ctx, BenchmarkSPY, eventTime)
	}()
	go func() {
		defer wg.Done()
		qqq = e.Sweep(ctx, BenchmarkQQQ, eventTime)
	}()
	wg.Wait()
	return instrument, spy, qqq
}
