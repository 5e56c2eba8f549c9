package align

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"market-align/internal/windows"
)

func point(price float64) PricePoint {
	return PricePoint{
		Price:      decimal.NewFromFloat(price),
		Timestamp:  time.Date(2024, 7, 1, 14, 30, 0, 0, time.UTC),
		Confidence: 1,
	}
}

func TestDeriveChanges(t *testing.T) {
	sweep := SweepResult{
		windows.AtEvent:     point(100),
		windows.OneDayAfter: point(110),
		windows.OneMinAfter: point(99),
	}

	changes := DeriveChanges(sweep)
	if len(changes) != 2 {
		t.Fatalf("expected 2 changes, got %d", len(changes))
	}
	if got := changes[windows.OneDayAfter]; !got.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("expected +10%% for 1day_after, got %s", got)
	}
	if got := changes[windows.OneMinAfter]; !got.Equal(decimal.NewFromInt(-1)) {
		t.Fatalf("expected -1%% for 1min_after, got %s", got)
	}
	if _, ok := changes[windows.AtEvent]; ok {
		t.Fatal("at_event must not have a change against itself")
	}
}

func TestDeriveChangesWithoutAnchor(t *testing.T) {
	sweep := SweepResult{windows.OneDayAfter: point(110)}
	if changes := DeriveChanges(sweep); changes != nil {
		t.Fatalf("no anchor price means no derivable changes, got %v", changes)
	}
}

func TestDeriveAlphasRequiresBothLegs(t *testing.T) {
	instrument := map[windows.Name]decimal.Decimal{
		windows.OneDayAfter:  decimal.NewFromInt(10),
		windows.OneWeekAfter: decimal.NewFromInt(5),
	}
	benchmark := map[windows.Name]decimal.Decimal{
		windows.OneDayAfter: decimal.NewFromInt(3),
		// 1week_after missing on the benchmark side.
	}

	alphas := DeriveAlphas(instrument, benchmark)
	if len(alphas) != 1 {
		t.Fatalf("expected exactly 1 alpha, got %d", len(alphas))
	}
	if got := alphas[windows.OneDayAfter]; !got.Equal(decimal.NewFromInt(7)) {
		t.Fatalf("expected alpha 7, got %s", got)
	}
	if _, ok := alphas[windows.OneWeekAfter]; ok {
		t.Fatal("alpha must be absent when the benchmark leg is missing, never zero")
	}
}

func TestDeriveAlphasEmptyInputs(t *testing.T) {
	if alphas := DeriveAlphas(nil, map[windows.Name]decimal.Decimal{}); alphas != nil {
		t.Fatalf("expected nil alphas, got %v", alphas)
	}
	if alphas := DeriveAlphas(map[windows.Name]decimal.Decimal{windows.OneDayAfter: decimal.NewFromInt(1)}, nil); alphas != nil {
		t.Fatalf("expected nil alphas when benchmark side is empty, got %v", alphas)
	}
}
