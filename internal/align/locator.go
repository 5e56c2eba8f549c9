package align

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"market-align/internal/storage"
)

// maxFallbackDays bounds how far past the target the locator will drift.
// One trading week of staleness is the most a downstream model can tolerate.
const maxFallbackDays = 5

// Locator resolves the closest observed price to a target time, widening the
// search day by day when the exact day holds no usable observation. It holds
// no state across calls.
type Locator struct {
	prices       storage.PriceStore
	queryTimeout time.Duration
	logger       zerolog.Logger
}

// NewLocator constructs a locator over a price store. queryTimeout bounds
// each per-day store query; zero disables the bound.
func NewLocator(prices storage.PriceStore, queryTimeout time.Duration, logger zerolog.Logger) *Locator {
	return &Locator{
		prices:       prices,
		queryTimeout: queryTimeout,
		logger:       logger.With().Str("component", "locator").Logger(),
	}
}

// Locate finds the price observation nearest to target within tolerance,
// falling back across up to five later calendar days. Weekend days are
// skipped without a query but still consume a fallback day. On later days
// the observation is compared against the target shifted to the same
// wall-clock time on that day, and the tolerance loosens linearly with the
// drift. A false return means no usable observation exists; that is an
// expected outcome, not an error.
func (l *Locator) Locate(ctx context.Context, ticker string, target time.Time, tolerance time.Duration) (PricePoint, bool) {
	for dayOffset := 0; dayOffset <= maxFallbackDays; dayOffset++ {
		shifted := target.AddDate(0, 0, dayOffset)
		if wd := shifted.Weekday(); wd == time.Saturday || wd == time.Sunday {
			continue
		}

		bars, err := l.queryDay(ctx, ticker, shifted)
		if err != nil {
			// Store failures degrade to absence for this day; the window
			// as a whole may still resolve on a later day.
			l.logger.Warn().Err(err).
				Str("ticker", ticker).
				Time("target", target).
				Int("day_offset", dayOffset).
				Msg("price query failed; treating day as empty")
			continue
		}
		if len(bars) == 0 {
			continue
		}

		best, diff := closestBar(bars, shifted)
		effective := tolerance * time.Duration(dayOffset+1)
		if diff > effective {
			continue
		}

		confidence := 1 - diff.Minutes()/effective.Minutes()
		if confidence < 0 {
			confidence = 0
		}

		return PricePoint{
			Price:        best.Close,
			Timestamp:    best.Timestamp,
			Confidence:   confidence,
			Volume:       best.Volume,
			FallbackDays: dayOffset,
		}, true
	}

	l.logger.Debug().
		Str("ticker", ticker).
		Time("target", target).
		Msg("no observation within fallback horizon")
	return PricePoint{}, false
}

func (l *Locator) queryDay(ctx context.Context, ticker string, t time.Time) ([]storage.PriceBar, error) {
	if l.queryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.queryTimeout)
		defer cancel()
	}

	dayStart := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	return l.prices.BarsBetween(ctx, ticker, dayStart, dayStart.AddDate(0, 0, 1))
}

func closestBar(bars []storage.PriceBar, target time.Time) (storage.PriceBar, time.Duration) {
	best := bars[0]
	minDiff := absDuration(best.Timestamp.Sub(target))
	for _, bar := range bars[1:] {
		diff := absDuration(bar.Timestamp.Sub(target))
		if diff < minDiff {
			best = bar
			minDiff = diff
		}
	}
	return best, minDiff
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
