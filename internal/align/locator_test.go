package align

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"market-align/internal/storage"
)

// fakePrices serves bars from memory and can fail on demand.
type fakePrices struct {
	bars    map[string][]storage.PriceBar
	err     error
	errOnce bool
	queries int
}

func (f *fakePrices) BarsBetween(_ context.Context, ticker string, from, to time.Time) ([]storage.PriceBar, error) {
	f.queries++
	if f.err != nil {
		err := f.err
		if f.errOnce {
			f.err = nil
		}
		return nil, err
	}
	var out []storage.PriceBar
	for _, bar := range f.bars[ticker] {
		if !bar.Timestamp.Before(from) && bar.Timestamp.Before(to) {
			out = append(out, bar)
		}
	}
	return out, nil
}

func (f *fakePrices) UpsertBars(_ context.Context, bars []storage.PriceBar) (int, error) {
	for _, bar := range bars {
		if f.bars == nil {
			f.bars = make(map[string][]storage.PriceBar)
		}
		f.bars[bar.Ticker] = append(f.bars[bar.Ticker], bar)
	}
	return len(bars), nil
}

func barAt(ticker string, ts time.Time, close float64) storage.PriceBar {
	price := decimal.NewFromFloat(close)
	return storage.PriceBar{
		Ticker:    ticker,
		Timestamp: ts,
		Open:      price,
		High:      price,
		Low:       price,
		Close:     price,
		Volume:    1000,
	}
}

func newTestLocator(prices storage.PriceStore) *Locator {
	return NewLocator(prices, 0, zerolog.Nop())
}

func TestLocateExactMatch(t *testing.T) {
	// Monday during the session.
	target := time.Date(2024, 7, 1, 14, 30, 0, 0, time.UTC)
	prices := &fakePrices{bars: map[string][]storage.PriceBar{
		"AAPL": {barAt("AAPL", target, 195.42)},
	}}

	point, ok := newTestLocator(prices).Locate(context.Background(), "AAPL", target, 5*time.Minute)
	if !ok {
		t.Fatal("expected a match on the exact timestamp")
	}
	if point.FallbackDays != 0 {
		t.Fatalf("expected fallbackDays 0, got %d", point.FallbackDays)
	}
	if point.Confidence != 1 {
		t.Fatalf("expected confidence 1 for zero diff, got %f", point.Confidence)
	}
	if !point.Price.Equal(decimal.NewFromFloat(195.42)) {
		t.Fatalf("unexpected price %s", point.Price)
	}
	if point.Volume != 1000 {
		t.Fatalf("unexpected volume %d", point.Volume)
	}
}

func TestLocatePicksClosestObservation(t *testing.T) {
	target := time.Date(2024, 7, 1, 14, 30, 0, 0, time.UTC)
	prices := &fakePrices{bars: map[string][]storage.PriceBar{
		"AAPL": {
			barAt("AAPL", target.Add(-4*time.Minute), 100),
			barAt("AAPL", target.Add(1*time.Minute), 101),
			barAt("AAPL", target.Add(3*time.Minute), 102),
		},
	}}

	point, ok := newTestLocator(prices).Locate(context.Background(), "AAPL", target, 5*time.Minute)
	if !ok {
		t.Fatal("expected a match")
	}
	if !point.Price.Equal(decimal.NewFromInt(101)) {
		t.Fatalf("expected the 1-minute-away bar, got price %s", point.Price)
	}
	if point.Confidence <= 0 || point.Confidence >= 1 {
		t.Fatalf("confidence should be in (0,1) for a near miss, got %f", point.Confidence)
	}
}

func TestLocateWeekendFallback(t *testing.T) {
	// Saturday target: Saturday and Sunday are skipped without a query, and
	// Monday's session resolves at day offset 2 with tripled tolerance.
	target := time.Date(2024, 7, 6, 10, 0, 0, 0, time.UTC) // Saturday
	monday := time.Date(2024, 7, 8, 10, 0, 0, 0, time.UTC)
	prices := &fakePrices{bars: map[string][]storage.PriceBar{
		"AAPL": {barAt("AAPL", monday, 198.0)},
	}}

	point, ok := newTestLocator(prices).Locate(context.Background(), "AAPL", target, 4*time.Hour)
	if !ok {
		t.Fatal("expected Monday fallback to resolve")
	}
	if point.FallbackDays != 2 {
		t.Fatalf("expected fallbackDays 2, got %d", point.FallbackDays)
	}
	if point.Confidence != 1 {
		t.Fatalf("Monday bar sits exactly on the shifted target; confidence should be 1, got %f", point.Confidence)
	}
	if prices.queries != 1 {
		t.Fatalf("weekend days must not be queried; got %d queries", prices.queries)
	}
}

func TestLocateToleranceLoosensWithFallback(t *testing.T) {
	// Target Thursday; no Thursday data, Friday bar 8 minutes off the
	// shifted target. Base tolerance 5m fails on day 0 but the day-1
	// effective tolerance of 10m accepts it.
	target := time.Date(2024, 7, 4, 15, 0, 0, 0, time.UTC) // Thursday
	friday := time.Date(2024, 7, 5, 15, 8, 0, 0, time.UTC)
	prices := &fakePrices{bars: map[string][]storage.PriceBar{
		"AAPL": {barAt("AAPL", friday, 200)},
	}}

	point, ok := newTestLocator(prices).Locate(context.Background(), "AAPL", target, 5*time.Minute)
	if !ok {
		t.Fatal("expected day-1 fallback to resolve")
	}
	if point.FallbackDays != 1 {
		t.Fatalf("expected fallbackDays 1, got %d", point.FallbackDays)
	}
	if point.Confidence < 0 || point.Confidence > 1 {
		t.Fatalf("confidence out of bounds: %f", point.Confidence)
	}
}

func TestLocateAbsentAfterHorizon(t *testing.T) {
	target := time.Date(2024, 7, 1, 14, 30, 0, 0, time.UTC)
	prices := &fakePrices{bars: map[string][]storage.PriceBar{}}

	if _, ok := newTestLocator(prices).Locate(context.Background(), "AAPL", target, 5*time.Minute); ok {
		t.Fatal("no data anywhere should return absent")
	}
}

func TestLocateFallbackNeverExceedsHorizon(t *testing.T) {
	target := time.Date(2024, 7, 1, 14, 30, 0, 0, time.UTC)
	// Data exists, but nine calendar days out; the locator must not reach it.
	far := target.AddDate(0, 0, 9)
	prices := &fakePrices{bars: map[string][]storage.PriceBar{
		"AAPL": {barAt("AAPL", far, 150)},
	}}

	if _, ok := newTestLocator(prices).Locate(context.Background(), "AAPL", target, 4*time.Hour); ok {
		t.Fatal("observations beyond the 5-day horizon must not resolve")
	}
}

func TestLocateStoreErrorDegradesToAbsence(t *testing.T) {
	target := time.Date(2024, 7, 1, 14, 30, 0, 0, time.UTC)
	tuesday := time.Date(2024, 7, 2, 14, 30, 0, 0, time.UTC)
	prices := &fakePrices{
		err:     errors.New("connection refused"),
		errOnce: true,
		bars: map[string][]storage.PriceBar{
			"AAPL": {barAt("AAPL", tuesday, 196)},
		},
	}

	point, ok := newTestLocator(prices).Locate(context.Background(), "AAPL", target, 5*time.Minute)
	if !ok {
		t.Fatal("a single failed day query should not fail the whole lookup")
	}
	if point.FallbackDays != 1 {
		t.Fatalf("expected fallbackDays 1 after the errored day, got %d", point.FallbackDays)
	}
}

func TestLocateOutsideToleranceStaysAbsent(t *testing.T) {
	target := time.Date(2024, 7, 1, 14, 30, 0, 0, time.UTC)
	prices := &fakePrices{bars: map[string][]storage.PriceBar{
		"AAPL": {barAt("AAPL", target.Add(20*time.Minute), 195)},
	}}

	if _, ok := newTestLocator(prices).Locate(context.Background(), "AAPL", target, 5*time.Minute); ok {
		t.Fatal("an observation outside tolerance must not resolve")
	}
}
