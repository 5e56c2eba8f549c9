package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"
)

// Show prints recent aligned records.
func (a *App) Show(ctx context.Context, opts ShowOptions) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot show records")
	}
	defer closeStore()

	total, err := store.CountRecords(ctx)
	if err != nil {
		return err
	}
	if total == 0 {
		fmt.Fprintln(os.Stdout, "no aligned records found")
		return nil
	}

	records, err := store.ListRecentRecords(ctx, opts.Limit)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "showing %d of %d aligned records\n", len(records), total)

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Event\tTicker\tTime (UTC)\tQuality\tRegime\tHours\tMissing\tSplit")

	for _, rec := range records {
		split := ""
		if rec.DatasetSplit != nil {
			split = *rec.DatasetSplit
		}
		fmt.Fprintf(
			writer,
			"%s\t%s\t%s\t%.2f\t%s\t%s\t%d\t%s\n",
			rec.EventID,
			rec.Ticker,
			rec.EventTimestamp.UTC().Format(time.RFC3339),
			rec.DataQualityScore,
			rec.MarketRegime,
			yesNo(rec.MarketHours),
			len(rec.MissingDataPoints),
			split,
		)
	}

	writer.Flush()
	return nil
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
