package storage

import (
	"time"

	"github.com/shopspring/decimal"
)

// Event processing statuses.
const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusSkipped   = "skipped"
)

// Dataset split assignments.
const (
	SplitTraining = "training"
	SplitTesting  = "testing"
)

// CausalEvent is a news-derived event awaiting alignment. Payload carries the
// producer's attributes untouched; this system never interprets them.
type CausalEvent struct {
	ID          string
	Ticker      *string
	PublishedAt time.Time
	Status      string
	Payload     []byte
	CreatedAt   time.Time
}

// PriceBar is one observed OHLCV bar for a ticker.
type PriceBar struct {
	Ticker    string
	Timestamp time.Time
	Open      decimal.Decimal
	High      decimal.Decimal
	Low       decimal.Decimal
	Close     decimal.Decimal
	Volume    int64
}

// WindowObservation is the persisted form of one resolved window price.
type WindowObservation struct {
	Price        decimal.Decimal `json:"price"`
	Timestamp    time.Time       `json:"ts"`
	Confidence   float64         `json:"confidence"`
	Volume       int64           `json:"volume"`
	FallbackDays int             `json:"fallback_days"`
}

// AlignedRecord is the feature record produced for one event, keyed by event
// id. The window and derived maps hold only resolved entries; a missing key
// means the window did not resolve, never that it resolved to zero.
type AlignedRecord struct {
	EventID        string
	Ticker         string
	EventTimestamp time.Time

	Windows  map[string]WindowObservation
	Changes  map[string]decimal.Decimal
	AlphaSPY map[string]decimal.Decimal
	AlphaQQQ map[string]decimal.Decimal

	PriceAtEvent    *decimal.Decimal
	PriceDailyOpen  *decimal.Decimal
	PriceDailyClose *decimal.Decimal

	MarketHours         bool
	MarketRegime        string
	SPYMomentum30DayPct *decimal.Decimal

	DataQualityScore  float64
	MissingDataPoints []string

	DatasetSplit *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// SplitCandidate is the slice of an aligned record the split assignment reads.
type SplitCandidate struct {
	EventID        string
	EventTimestamp time.Time
}
