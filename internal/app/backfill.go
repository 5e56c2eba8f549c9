package app

import (
	"context"
	"errors"
	"time"

	"market-align/internal/pricefeed"
)

// backfillChunk bounds a single provider request to keep responses small.
const backfillChunk = 24 * time.Hour

// Backfill loads price bars for a ticker and date range into the bar store.
func (a *App) Backfill(ctx context.Context, opts BackfillOptions) error {
	if opts.Ticker == "" {
		return errors.New("--ticker is required")
	}
	from := opts.From.UTC()
	to := opts.To.UTC()
	if !from.Before(to) {
		return errors.New("backfill range is empty; check --from/--to")
	}

	fetcher := pricefeed.NewClient(pricefeed.Options{
		BaseURL:   a.Config.Pricefeed.BaseURL,
		APIKey:    a.Config.Pricefeed.APIKey,
		Timeout:   a.Config.Pricefeed.RequestTimeout,
		UserAgent: a.Config.Pricefeed.UserAgent,
	}, a.Logger)

	db, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if db == nil && !opts.DryRun {
		return errors.New("database.dsn is required to backfill prices")
	}
	if closeStore != nil {
		defer closeStore()
	}
	if opts.DryRun {
		a.Logger.Warn().Msg("backfill dry-run: bars will not be written")
	}

	fetched := 0
	written := 0
	for chunkStart := from; chunkStart.Before(to); chunkStart = chunkStart.Add(backfillChunk) {
		if err := ctx.Err(); err != nil {
			return err
		}

		chunkEnd := chunkStart.Add(backfillChunk)
		if chunkEnd.After(to) {
			chunkEnd = to
		}

		bars, err := fetcher.FetchBars(ctx, opts.Ticker, chunkStart, chunkEnd)
		if err != nil {
			a.Logger.Error().Err(err).
				Time("chunk_start", chunkStart).
				Msg("chunk fetch failed; continuing")
			continue
		}
		fetched += len(bars)

		if opts.DryRun || len(bars) == 0 {
			continue
		}

		n, err := db.UpsertBars(ctx, bars)
		written += n
		if err != nil {
			return err
		}
	}

	a.Logger.Info().
		Str("ticker", opts.Ticker).
		Int("fetched", fetched).
		Int("written", written).
		Msg("backfill complete")
	return nil
}
