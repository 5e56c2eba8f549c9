package app

import (
	"context"
	"errors"
	"fmt"

	"market-align/internal/align"
)

// Process runs a one-shot alignment batch, or a single event when an event
// id is given.
func (a *App) Process(ctx context.Context, opts ProcessOptions) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database.dsn is required to process events")
	}
	defer closeStore()

	engine := a.newEngine(store)

	if opts.EventID != "" {
		outcome := engine.ProcessEventByID(ctx, opts.EventID)
		if !outcome.Success {
			return fmt.Errorf("event %s skipped: %w", opts.EventID, outcome.Err)
		}
		a.Logger.Info().
			Str("event_id", outcome.EventID).
			Float64("quality", outcome.DataQualityScore).
			Msg("event processed")
		return nil
	}

	summary, err := engine.ProcessBatch(ctx, align.BatchOptions{
		From:  opts.From,
		To:    opts.To,
		Force: opts.Force,
		Limit: opts.Limit,
	})
	if err != nil {
		return err
	}

	a.Logger.Info().
		Str("run_id", summary.RunID).
		Int("processed", summary.Processed).
		Int("completed", summary.Completed).
		Int("skipped", summary.Skipped).
		Msg("batch complete")
	return nil
}

// Split assigns the chronological train/test split over processed records.
func (a *App) Split(ctx context.Context) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database.dsn is required to assign splits")
	}
	defer closeStore()

	engine := a.newEngine(store)
	summary, err := engine.AssignSplits(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("assigned %d records: %d training, %d testing\n",
		summary.Total, summary.Training, summary.Testing)
	return nil
}
