package align

import (
	"testing"

	"market-align/internal/windows"
)

func TestScoreQualityFullSweep(t *testing.T) {
	sweep := make(SweepResult, windows.Count())
	for _, w := range windows.Catalog() {
		sweep[w.Name] = point(100)
	}

	score, missing := ScoreQuality(sweep)
	if score != 1 {
		t.Fatalf("full sweep should score 1, got %f", score)
	}
	if len(missing) != 0 {
		t.Fatalf("full sweep should have no missing windows, got %v", missing)
	}
}

func TestScoreQualityIdentity(t *testing.T) {
	sweep := SweepResult{
		windows.AtEvent:     point(100),
		windows.OneDayAfter: point(101),
	}

	score, missing := ScoreQuality(sweep)
	total := windows.Count()
	if want := float64(total-len(missing)) / float64(total); score != want {
		t.Fatalf("score %f does not equal (total-missing)/total = %f", score, want)
	}
	if len(missing) != total-2 {
		t.Fatalf("expected %d missing windows, got %d", total-2, len(missing))
	}
}

func TestScoreQualityMissingOrderMatchesCatalog(t *testing.T) {
	_, missing := ScoreQuality(SweepResult{})
	if len(missing) != windows.Count() {
		t.Fatalf("empty sweep should miss every window")
	}
	for i, w := range windows.Catalog() {
		if missing[i] != string(w.Name) {
			t.Fatalf("missing list order diverges from catalog at %d: %s vs %s", i, missing[i], w.Name)
		}
	}
}

func TestScoreQualityEmptySweep(t *testing.T) {
	score, _ := ScoreQuality(SweepResult{})
	if score != 0 {
		t.Fatalf("empty sweep should score 0, got %f", score)
	}
}
