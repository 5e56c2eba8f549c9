package align

import (
	"time"

	"github.com/shopspring/decimal"

	"market-align/internal/windows"
)

// Benchmark tickers. Fixed so alpha figures stay comparable dataset-wide.
const (
	BenchmarkSPY = "SPY"
	BenchmarkQQQ = "QQQ"
)

// Market regime labels.
const (
	RegimeBull     = "bull"
	RegimeBear     = "bear"
	RegimeSideways = "sideways"
)

// PricePoint is one resolved observation for a window. A PricePoint only
// exists when a lookup succeeded; absence is expressed by the key being
// missing from the sweep map, never by a zero-valued point.
type PricePoint struct {
	Price        decimal.Decimal
	Timestamp    time.Time
	Confidence   float64
	Volume       int64
	FallbackDays int
}

// SweepResult maps every resolved window to its observation. Windows that
// exhausted fallback without a match carry no entry.
type SweepResult map[windows.Name]PricePoint

// ProcessingOutcome reports one event's processing attempt to the batch
// driver. It is never persisted.
type ProcessingOutcome struct {
	EventID           string
	Success           bool
	Err               error
	DataQualityScore  float64
	MissingDataPoints []string
	Elapsed           time.Duration
}

// BatchSummary aggregates a batch run for operational reporting.
type BatchSummary struct {
	RunID     string
	Processed int
	Completed int
	Skipped   int
	Started   time.Time
	Elapsed   time.Duration
	// QualityBuckets counts completed events by quality score decile,
	// keyed "0.0" through "1.0".
	QualityBuckets map[string]int
	Outcomes       []ProcessingOutcome
}

// SplitSummary reports a split assignment pass.
type SplitSummary struct {
	Total    int
	Training int
	Testing  int
}
