package align

import (
	"github.com/shopspring/decimal"

	"market-align/internal/windows"
)

var hundred = decimal.NewFromInt(100)

// PctChange computes the simple percentage return from base to price.
func PctChange(price, base decimal.Decimal) decimal.Decimal {
	return price.Sub(base).Div(base).Mul(hundred)
}

// DeriveChanges computes the percentage change for every resolved window
// against the at_event anchor. Nothing is computable when the anchor itself
// is absent; that surfaces through the quality score, not an error.
func DeriveChanges(sweep SweepResult) map[windows.Name]decimal.Decimal {
	anchor, ok := sweep[windows.AtEvent]
	if !ok || anchor.Price.IsZero() {
		return nil
	}

	changes := make(map[windows.Name]decimal.Decimal, len(sweep))
	for name, point := range sweep {
		if name == windows.AtEvent {
			continue
		}
		changes[name] = PctChange(point.Price, anchor.Price)
	}
	return changes
}

// DeriveAlphas computes benchmark-relative alpha per window. An alpha exists
// only where both the instrument's and the benchmark's change resolved for
// the same window; a missing alpha is never written as zero, since zero
// means "moved exactly with the benchmark".
func DeriveAlphas(instrumentChanges, benchmarkChanges map[windows.Name]decimal.Decimal) map[windows.Name]decimal.Decimal {
	if len(instrumentChanges) == 0 || len(benchmarkChanges) == 0 {
		return nil
	}

	alphas := make(map[windows.Name]decimal.Decimal, len(instrumentChanges))
	for name, change := range instrumentChanges {
		benchChange, ok := benchmarkChanges[name]
		if !ok {
			continue
		}
		alphas[name] = change.Sub(benchChange)
	}
	if len(alphas) == 0 {
		return nil
	}
	return alphas
}
