package app

import (
	"context"
	"encoding/csv"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	chart "github.com/wcharczuk/go-chart/v2"

	"market-align/internal/storage"
)

// Export renders aligned records as CSV and/or a quality/momentum PNG chart.
func (a *App) Export(ctx context.Context, opts ExportOptions) error {
	if opts.CSVPath == "" && opts.PNGPath == "" {
		return errors.New("at least one of --csv or --png must be provided")
	}

	opts.MaxPoints = a.Config.ResolveMaxPoints(opts.MaxPoints)

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot export")
	}
	defer closeStore()

	to := time.Now().UTC()
	if opts.To != nil {
		to = opts.To.UTC()
	}
	from := to.AddDate(-5, 0, 0)
	if opts.From != nil {
		from = opts.From.UTC()
	}
	if !from.Before(to) {
		return errors.New("from must be before to")
	}

	records, err := store.ListRecordsBetween(ctx, from, to)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		a.Logger.Info().Msg("no aligned records found for export window")
		return nil
	}

	downsampled := downsampleRecords(records, opts.MaxPoints)
	a.Logger.Info().Int("total", len(records)).Int("exported", len(downsampled)).Msg("exporting records")

	if opts.CSVPath != "" {
		if err := writeRecordsCSV(opts.CSVPath, downsampled); err != nil {
			return err
		}
	}

	if opts.PNGPath != "" {
		if err := writeRecordsPNG(opts.PNGPath, downsampled); err != nil {
			return err
		}
	}

	return nil
}

func downsampleRecords(records []storage.AlignedRecord, max int) []storage.AlignedRecord {
	if max <= 0 || len(records) <= max {
		return records
	}

	result := make([]storage.AlignedRecord, 0, max)
	step := float64(len(records)-1) / float64(max-1)
	for i := 0; i < max; i++ {
		idx := int(math.Round(step * float64(i)))
		if idx >= len(records) {
			idx = len(records) - 1
		}
		result = append(result, records[idx])
	}
	return result
}

func writeRecordsCSV(path string, records []storage.AlignedRecord) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{
		"event_id", "ticker", "event_ts",
		"price_at_event", "price_daily_open", "price_daily_close",
		"market_hours", "market_regime", "spy_momentum_30day_pct",
		"data_quality_score", "missing_count", "dataset_split",
	}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, rec := range records {
		split := ""
		if rec.DatasetSplit != nil {
			split = *rec.DatasetSplit
		}
		row := []string{
			rec.EventID,
			rec.Ticker,
			rec.EventTimestamp.UTC().Format(time.RFC3339),
			optDecimal(rec.PriceAtEvent),
			optDecimal(rec.PriceDailyOpen),
			optDecimal(rec.PriceDailyClose),
			strconv.FormatBool(rec.MarketHours),
			rec.MarketRegime,
			optDecimal(rec.SPYMomentum30DayPct),
			strconv.FormatFloat(rec.DataQualityScore, 'f', 4, 64),
			strconv.Itoa(len(rec.MissingDataPoints)),
			split,
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}

	return writer.Error()
}

func writeRecordsPNG(path string, records []storage.AlignedRecord) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	x := make([]time.Time, len(records))
	quality := make([]float64, len(records))
	momentum := make([]float64, len(records))

	for i, rec := range records {
		x[i] = rec.EventTimestamp
		quality[i] = rec.DataQualityScore
		if rec.SPYMomentum30DayPct != nil {
			momentum[i] = rec.SPYMomentum30DayPct.InexactFloat64()
		}
	}

	formatter := func(v interface{}) string {
		return chart.FloatValueFormatterWithFormat(v, "%.2f")
	}
	graph := chart.Chart{
		Width:  1280,
		Height: 720,
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeValueFormatter,
		},
		YAxis: chart.YAxis{
			Name:           "Data quality",
			ValueFormatter: formatter,
		},
		YAxisSecondary: chart.YAxis{
			Name:           "SPY 30d momentum (%)",
			ValueFormatter: formatter,
		},
		Series: []chart.Series{
			chart.TimeSeries{
				Name:    "Quality",
				XValues: x,
				YValues: quality,
			},
			chart.TimeSeries{
				Name:    "SPY momentum",
				XValues: x,
				YValues: momentum,
				YAxis:   chart.YAxisSecondary,
			},
		},
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return graph.Render(chart.PNG, file)
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func optDecimal(d *decimal.Decimal) string {
	if d == nil {
		return ""
	}
	return d.String()
}
