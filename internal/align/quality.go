package align

import "market-align/internal/windows"

// ScoreQuality reduces the instrument's sweep to a completeness score and
// the names of every unresolved window, in catalog order. The score counts
// only the instrument's own windows; benchmark gaps show up as absent alphas
// instead.
func ScoreQuality(sweep SweepResult) (score float64, missing []string) {
	total := windows.Count()
	missing = make([]string, 0)
	for _, w := range windows.Catalog() {
		if _, ok := sweep[w.Name]; !ok {
			missing = append(missing, string(w.Name))
		}
	}
	score = float64(total-len(missing)) / float64(total)
	return score, missing
}
