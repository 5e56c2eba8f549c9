package align

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"market-align/internal/alerting"
	"market-align/internal/storage"
	"market-align/internal/windows"
)

// Options wire an Engine's dependencies. Events, Prices, and Records are
// injected explicitly so tests can run against in-memory stores.
type Options struct {
	Events        storage.EventStore
	Prices        storage.PriceStore
	Records       storage.AlignedRecordStore
	DefaultTicker string
	Pause         time.Duration
	QueryTimeout  time.Duration
	Notifier      alerting.Notifier
}

// Engine aligns causal events against observed market data: it resolves
// every window, derives change and alpha metrics, classifies market context,
// scores data quality, and upserts the assembled record.
type Engine struct {
	events        storage.EventStore
	records       storage.AlignedRecordStore
	locator       *Locator
	defaultTicker string
	pause         time.Duration
	notifier      alerting.Notifier
	logger        zerolog.Logger
}

// NewEngine constructs an alignment engine.
func NewEngine(opts Options, logger zerolog.Logger) *Engine {
	return &Engine{
		events:        opts.Events,
		records:       opts.Records,
		locator:       NewLocator(opts.Prices, opts.QueryTimeout, logger),
		defaultTicker: opts.DefaultTicker,
		pause:         opts.Pause,
		notifier:      opts.Notifier,
		logger:        logger.With().Str("component", "engine").Logger(),
	}
}

// ProcessEvent runs the full alignment pipeline for one event. Every error
// is absorbed into the outcome; the event ends as completed or skipped and
// the caller's loop never has to stop.
func (e *Engine) ProcessEvent(ctx context.Context, event storage.CausalEvent) ProcessingOutcome {
	started := time.Now()
	outcome := ProcessingOutcome{EventID: event.ID}

	ticker := e.defaultTicker
	if event.Ticker != nil && *event.Ticker != "" {
		ticker = *event.Ticker
	} else {
		e.logger.Warn().Str("event_id", event.ID).Str("ticker", ticker).
			Msg("event carries no ticker; using default")
	}

	instrument, spy, qqq := e.alignAll(ctx, ticker, event.PublishedAt)

	instChanges := DeriveChanges(instrument)
	spyChanges := DeriveChanges(spy)
	qqqChanges := DeriveChanges(qqq)

	momentum := Momentum30Day(spy)
	score, missing := ScoreQuality(instrument)

	rec := storage.AlignedRecord{
		EventID:             event.ID,
		Ticker:              ticker,
		EventTimestamp:      event.PublishedAt,
		Windows:             toObservations(instrument),
		Changes:             toNamedDecimals(instChanges),
		AlphaSPY:            toNamedDecimals(DeriveAlphas(instChanges, spyChanges)),
		AlphaQQQ:            toNamedDecimals(DeriveAlphas(instChanges, qqqChanges)),
		PriceAtEvent:        anchorPrice(instrument, windows.AtEvent),
		PriceDailyOpen:      anchorPrice(instrument, windows.DailyOpen),
		PriceDailyClose:     anchorPrice(instrument, windows.DailyClose),
		MarketHours:         InMarketHours(event.PublishedAt),
		MarketRegime:        ClassifyRegime(momentum),
		SPYMomentum30DayPct: momentum,
		DataQualityScore:    score,
		MissingDataPoints:   missing,
	}

	outcome.DataQualityScore = score
	outcome.MissingDataPoints = missing

	if err := e.records.UpsertAlignedRecord(ctx, rec); err != nil {
		outcome.Err = fmt.Errorf("upsert aligned record: %w", err)
		outcome.Elapsed = time.Since(started)
		e.markSkipped(ctx, event.ID, outcome.Err)
		return outcome
	}

	if err := e.events.UpdateEventStatus(ctx, event.ID, storage.StatusCompleted); err != nil {
		outcome.Err = fmt.Errorf("mark event completed: %w", err)
		outcome.Elapsed = time.Since(started)
		e.logger.Error().Err(err).Str("event_id", event.ID).Msg("status update failed after upsert")
		return outcome
	}

	outcome.Success = true
	outcome.Elapsed = time.Since(started)
	e.logger.Info().
		Str("event_id", event.ID).
		Str("ticker", ticker).
		Float64("quality", score).
		Int("missing", len(missing)).
		Dur("elapsed", outcome.Elapsed).
		Msg("event aligned")
	return outcome
}

// ProcessEventByID fetches and processes a single event.
func (e *Engine) ProcessEventByID(ctx context.Context, id string) ProcessingOutcome {
	event, err := e.events.GetEvent(ctx, id)
	if err != nil {
		e.markSkipped(ctx, id, err)
		return ProcessingOutcome{EventID: id, Err: fmt.Errorf("fetch event: %w", err)}
	}
	return e.ProcessEvent(ctx, event)
}

// BatchOptions filter the batch driver's event selection.
type BatchOptions struct {
	From  *time.Time
	To    *time.Time
	Force bool
	Limit int
}

// ProcessBatch aligns every matching event sequentially with a fixed pause
// between events to bound store load. One event's failure never aborts the
// batch. Returns an error only when the event listing itself fails.
func (e *Engine) ProcessBatch(ctx context.Context, opts BatchOptions) (BatchSummary, error) {
	summary := BatchSummary{
		RunID:          uuid.NewString(),
		Started:        time.Now().UTC(),
		QualityBuckets: make(map[string]int),
	}
	logger := e.logger.With().Str("run_id", summary.RunID).Logger()

	filter := storage.EventFilter{From: opts.From, To: opts.To, Limit: opts.Limit}
	if !opts.Force {
		filter.Status = storage.StatusPending
	}

	events, err := e.events.ListEvents(ctx, filter)
	if err != nil {
		return summary, fmt.Errorf("list events: %w", err)
	}
	logger.Info().Int("events", len(events)).Bool("force", opts.Force).Msg("batch started")

	for i, event := range events {
		if err := ctx.Err(); err != nil {
			summary.Elapsed = time.Since(summary.Started)
			return summary, err
		}

		outcome := e.ProcessEvent(ctx, event)
		summary.Processed++
		summary.Outcomes = append(summary.Outcomes, outcome)
		if outcome.Success {
			summary.Completed++
			summary.QualityBuckets[qualityBucket(outcome.DataQualityScore)]++
		} else {
			summary.Skipped++
			logger.Warn().Err(outcome.Err).Str("event_id", outcome.EventID).Msg("event skipped")
		}

		if e.pause > 0 && i < len(events)-1 {
			select {
			case <-ctx.Done():
				summary.Elapsed = time.Since(summary.Started)
				return summary, ctx.Err()
			case <-time.After(e.pause):
			}
		}
	}

	summary.Elapsed = time.Since(summary.Started)
	logger.Info().
		Int("processed", summary.Processed).
		Int("completed", summary.Completed).
		Int("skipped", summary.Skipped).
		Dur("elapsed", summary.Elapsed).
		Msg("batch finished")

	e.notifySummary(ctx, summary)
	return summary, nil
}

// AssignSplits orders fully-processed records chronologically and labels the
// first 80% as training and the rest as testing. Chronological, never
// random: a random split would leak future movement into the training set.
func (e *Engine) AssignSplits(ctx context.Context) (SplitSummary, error) {
	candidates, err := e.records.ListSplitCandidates(ctx)
	if err != nil {
		return SplitSummary{}, fmt.Errorf("list split candidates: %w", err)
	}

	summary := SplitSummary{Total: len(candidates)}
	trainCount := len(candidates) * 4 / 5

	for i, c := range candidates {
		split := storage.SplitTesting
		if i < trainCount {
			split = storage.SplitTraining
		}
		if err := e.records.AssignSplit(ctx, c.EventID, split); err != nil {
			return summary, fmt.Errorf("assign split for %s: %w", c.EventID, err)
		}
		if split == storage.SplitTraining {
			summary.Training++
		} else {
			summary.Testing++
		}
	}

	e.logger.Info().
		Int("total", summary.Total).
		Int("training", summary.Training).
		Int("testing", summary.Testing).
		Msg("split assigned")
	return summary, nil
}

func (e *Engine) markSkipped(ctx context.Context, eventID string, cause error) {
	if err := e.events.UpdateEventStatus(ctx, eventID, storage.StatusSkipped); err != nil {
		e.logger.Error().Err(err).Str("event_id", eventID).Msg("failed to mark event skipped")
	}
	e.logger.Warn().Err(cause).Str("event_id", eventID).Msg("event skipped")
}

func (e *Engine) notifySummary(ctx context.Context, summary BatchSummary) {
	if e.notifier == nil {
		return
	}
	note := alerting.BatchNote{
		RunID:          summary.RunID,
		Started:        summary.Started,
		Elapsed:        summary.Elapsed,
		Processed:      summary.Processed,
		Completed:      summary.Completed,
		Skipped:        summary.Skipped,
		QualityBuckets: summary.QualityBuckets,
	}
	if err := e.notifier.Notify(ctx, note); err != nil {
		e.logger.Error().Err(err).Str("run_id", summary.RunID).Msg("failed to dispatch batch summary")
	}
}

func qualityBucket(score float64) string {
	return fmt.Sprintf("%.1f", math.Floor(score*10)/10)
}

func toObservations(sweep SweepResult) map[string]storage.WindowObservation {
	out := make(map[string]storage.WindowObservation, len(sweep))
	for name, point := range sweep {
		out[string(name)] = storage.WindowObservation{
			Price:        point.Price,
			Timestamp:    point.Timestamp,
			Confidence:   point.Confidence,
			Volume:       point.Volume,
			FallbackDays: point.FallbackDays,
		}
	}
	return out
}

func toNamedDecimals(values map[windows.Name]decimal.Decimal) map[string]decimal.Decimal {
	if values == nil {
		return nil
	}
	out := make(map[string]decimal.Decimal, len(values))
	for name, value := range values {
		out[string(name)] = value
	}
	return out
}

func anchorPrice(sweep SweepResult, name windows.Name) *decimal.Decimal {
	point, ok := sweep[name]
	if !ok {
		return nil
	}
	price := point.Price
	return &price
}
