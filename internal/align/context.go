package align

import (
	"time"

	"github.com/shopspring/decimal"

	"market-align/internal/windows"
)

// regimeThresholdPct splits bull from bear on 30-day benchmark momentum.
var regimeThresholdPct = decimal.NewFromInt(5)

// InMarketHours reports whether t falls inside the regular exchange session,
// Mon-Fri 09:30-16:00 exchange-local.
func InMarketHours(t time.Time) bool {
	local := t.In(windows.ExchangeZone)
	if wd := local.Weekday(); wd == time.Saturday || wd == time.Sunday {
		return false
	}
	minute := local.Hour()*60 + local.Minute()
	open := windows.SessionOpenHour*60 + windows.SessionOpenMinute
	closeM := windows.SessionCloseHour*60 + windows.SessionCloseMinute
	return minute >= open && minute < closeM
}

// Momentum30Day computes the benchmark's 30-day momentum from its sweep:
// the change from the 1month_before window to at_event. Nil when either leg
// is unresolved.
func Momentum30Day(benchmark SweepResult) *decimal.Decimal {
	atEvent, ok := benchmark[windows.AtEvent]
	if !ok {
		return nil
	}
	monthBefore, ok := benchmark[windows.OneMonthBefore]
	if !ok || monthBefore.Price.IsZero() {
		return nil
	}
	momentum := PctChange(atEvent.Price, monthBefore.Price)
	return &momentum
}

// ClassifyRegime maps 30-day momentum to a coarse market regime. Unknown
// momentum classifies as sideways, the neutral label.
func ClassifyRegime(momentum *decimal.Decimal) string {
	if momentum == nil {
		return RegimeSideways
	}
	switch {
	case momentum.GreaterThan(regimeThresholdPct):
		return RegimeBull
	case momentum.LessThan(regimeThresholdPct.Neg()):
		return RegimeBear
	default:
		return RegimeSideways
	}
}
