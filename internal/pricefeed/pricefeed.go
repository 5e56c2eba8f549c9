package pricefeed

import (
	"context"
	"time"

	"market-align/internal/storage"
)

// BarFetcher retrieves OHLCV bars from an upstream market data provider.
type BarFetcher interface {
	FetchBars(ctx context.Context, ticker string, from, to time.Time) ([]storage.PriceBar, error)
}
