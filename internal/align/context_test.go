package align

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"market-align/internal/windows"
)

func TestInMarketHours(t *testing.T) {
	cases := []struct {
		name string
		ts   time.Time
		want bool
	}{
		{"monday mid-session", time.Date(2024, 7, 1, 14, 30, 0, 0, time.UTC), true},
		{"session open boundary", time.Date(2024, 7, 1, 13, 30, 0, 0, time.UTC), true},
		{"just before open", time.Date(2024, 7, 1, 13, 29, 0, 0, time.UTC), false},
		{"session close boundary", time.Date(2024, 7, 1, 20, 0, 0, 0, time.UTC), false},
		{"saturday", time.Date(2024, 7, 6, 14, 30, 0, 0, time.UTC), false},
		{"sunday", time.Date(2024, 7, 7, 14, 30, 0, 0, time.UTC), false},
		{"weekday overnight", time.Date(2024, 7, 2, 3, 0, 0, 0, time.UTC), false},
	}
	for _, tc := range cases {
		if got := InMarketHours(tc.ts); got != tc.want {
			t.Errorf("%s: InMarketHours(%s) = %v, want %v", tc.name, tc.ts, got, tc.want)
		}
	}
}

func TestMomentum30Day(t *testing.T) {
	sweep := SweepResult{
		windows.AtEvent:        point(105),
		windows.OneMonthBefore: point(100),
	}
	momentum := Momentum30Day(sweep)
	if momentum == nil {
		t.Fatal("expected momentum with both legs resolved")
	}
	if !momentum.Equal(decimal.NewFromInt(5)) {
		t.Fatalf("expected +5%% momentum, got %s", momentum)
	}
}

func TestMomentum30DayMissingLeg(t *testing.T) {
	if m := Momentum30Day(SweepResult{windows.AtEvent: point(105)}); m != nil {
		t.Fatalf("momentum must be nil without the 30-day leg, got %s", m)
	}
	if m := Momentum30Day(SweepResult{windows.OneMonthBefore: point(100)}); m != nil {
		t.Fatalf("momentum must be nil without the at_event leg, got %s", m)
	}
}

func TestClassifyRegime(t *testing.T) {
	dec := func(v float64) *decimal.Decimal {
		d := decimal.NewFromFloat(v)
		return &d
	}
	cases := []struct {
		momentum *decimal.Decimal
		want     string
	}{
		{dec(5.01), RegimeBull},
		{dec(5), RegimeSideways},
		{dec(0), RegimeSideways},
		{dec(-5), RegimeSideways},
		{dec(-5.01), RegimeBear},
		{nil, RegimeSideways},
	}
	for _, tc := range cases {
		if got := ClassifyRegime(tc.momentum); got != tc.want {
			t.Errorf("ClassifyRegime(%v) = %s, want %s", tc.momentum, got, tc.want)
		}
	}
}
