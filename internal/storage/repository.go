package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

const (
	listEventsBaseSQL = `SELECT
        id,
        ticker,
        published_at,
        processing_status,
        payload,
        created_at
    FROM causal_events`

	getEventSQL = listEventsBaseSQL + ` WHERE id = $1;`

	updateEventStatusSQL = `UPDATE causal_events
    SET processing_status = $2
    WHERE id = $1;`

	upsertBarSQL = `INSERT INTO price_bars (
        ticker, ts, open, high, low, close, volume
    ) VALUES (
        $1,$2,$3,$4,$5,$6,$7
    )
    ON CONFLICT (ticker, ts) DO UPDATE
    SET open   = EXCLUDED.open,
        high   = EXCLUDED.high,
        low    = EXCLUDED.low,
        close  = EXCLUDED.close,
        volume = EXCLUDED.volume;`

	barsBetweenSQL = `SELECT
        ticker,
        ts,
        open::text,
        high::text,
        low::text,
        close::text,
        volume
    FROM price_bars
    WHERE ticker = $1
      AND ts >= $2
      AND ts < $3
    ORDER BY ts;`

	upsertAlignedRecordSQL = `INSERT INTO aligned_records (
        event_id,
        ticker,
        event_ts,
        windows,
        changes,
        alpha_spy,
        alpha_qqq,
        price_at_event,
        price_daily_open,
        price_daily_close,
        market_hours,
        market_regime,
        spy_momentum_30day_pct,
        data_quality_score,
        missing_data_points,
        updated_at
    ) VALUES (
        $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,NOW()
    )
    ON CONFLICT (event_id) DO UPDATE
    SET ticker                 = EXCLUDED.ticker,
        event_ts               = EXCLUDED.event_ts,
        windows                = EXCLUDED.windows,
        changes                = EXCLUDED.changes,
        alpha_spy              = EXCLUDED.alpha_spy,
        alpha_qqq              = EXCLUDED.alpha_qqq,
        price_at_event         = EXCLUDED.price_at_event,
        price_daily_open       = EXCLUDED.price_daily_open,
        price_daily_close      = EXCLUDED.price_daily_close,
        market_hours           = EXCLUDED.market_hours,
        market_regime          = EXCLUDED.market_regime,
        spy_momentum_30day_pct = EXCLUDED.spy_momentum_30day_pct,
        data_quality_score     = EXCLUDED.data_quality_score,
        missing_data_points    = EXCLUDED.missing_data_points,
        updated_at             = NOW();`

	alignedRecordColumns = `event_id,
        ticker,
        event_ts,
        windows,
        changes,
        alpha_spy,
        alpha_qqq,
        price_at_event::text,
        price_daily_open::text,
        price_daily_close::text,
        market_hours,
        market_regime,
        spy_momentum_30day_pct::text,
        data_quality_score,
        missing_data_points,
        dataset_split,
        created_at,
        updated_at`

	listRecordsBetweenSQL = `SELECT ` + alignedRecordColumns + `
    FROM aligned_records
    WHERE event_ts >= $1
      AND event_ts < $2
    ORDER BY event_ts, event_id;`

	listRecentRecordsSQL = `SELECT ` + alignedRecordColumns + `
    FROM aligned_records
    ORDER BY event_ts DESC
    LIMIT $1;`

	listSplitCandidatesSQL = `SELECT r.event_id, r.event_ts
    FROM aligned_records r
    JOIN causal_events e ON e.id = r.event_id
    WHERE e.processing_status = 'completed'
    ORDER BY r.event_ts, r.event_id;`

	assignSplitSQL = `UPDATE aligned_records
    SET dataset_split = $2, updated_at = NOW()
    WHERE event_id = $1;`

	countRecordsSQL = `SELECT COUNT(*) FROM aligned_records;`
)

// EventFilter narrows event listing. A zero field means "no constraint".
type EventFilter struct {
	Status string
	From   *time.Time
	To     *time.Time
	Limit  int
}

// EventStore defines causal event access for the batch driver.
type EventStore interface {
	ListEvents(ctx context.Context, filter EventFilter) ([]CausalEvent, error)
	GetEvent(ctx context.Context, id string) (CausalEvent, error)
	UpdateEventStatus(ctx context.Context, id, status string) error
}

// PriceStore defines price observation access for the locator and backfill.
type PriceStore interface {
	BarsBetween(ctx context.Context, ticker string, from, to time.Time) ([]PriceBar, error)
	UpsertBars(ctx context.Context, bars []PriceBar) (int, error)
}

// AlignedRecordStore defines persistence for alignment output.
type AlignedRecordStore interface {
	UpsertAlignedRecord(ctx context.Context, rec AlignedRecord) error
	ListRecordsBetween(ctx context.Context, from, to time.Time) ([]AlignedRecord, error)
	ListRecentRecords(ctx context.Context, limit int) ([]AlignedRecord, error)
	ListSplitCandidates(ctx context.Context) ([]SplitCandidate, error)
	AssignSplit(ctx context.Context, eventID, split string) error
	CountRecords(ctx context.Context) (int64, error)
}

// ListEvents lists events matching the filter, ordered by publication time.
func (s *Store) ListEvents(ctx context.Context, filter EventFilter) ([]CausalEvent, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	query := listEventsBaseSQL
	var clauses []string
	var args []interface{}
	if filter.Status != "" {
		args = append(args, filter.Status)
		clauses = append(clauses, fmt.Sprintf("processing_status = $%d", len(args)))
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		clauses = append(clauses, fmt.Sprintf("published_at >= $%d", len(args)))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		clauses = append(clauses, fmt.Sprintf("published_at < $%d", len(args)))
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY published_at, id"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, queryErr := pool.Query(ctx, query, args...)
	if queryErr != nil {
		return nil, fmt.Errorf("list events: %w", queryErr)
	}
	defer rows.Close()

	events := make([]CausalEvent, 0)
	for rows.Next() {
		event, scanErr := scanEvent(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		events = append(events, event)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return events, nil
}

// GetEvent fetches a single event by id.
func (s *Store) GetEvent(ctx context.Context, id string) (CausalEvent, error) {
	pool, err := s.getPool()
	if err != nil {
		return CausalEvent{}, err
	}

	rows, queryErr := pool.Query(ctx, getEventSQL, id)
	if queryErr != nil {
		return CausalEvent{}, fmt.Errorf("get event: %w", queryErr)
	}
	defer rows.Close()

	if !rows.Next() {
		if rows.Err() != nil {
			return CausalEvent{}, rows.Err()
		}
		return CausalEvent{}, pgx.ErrNoRows
	}
	return scanEvent(rows)
}

// UpdateEventStatus writes the processing status back onto the source event.
func (s *Store) UpdateEventStatus(ctx context.Context, id, status string) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	cmdTag, execErr := pool.Exec(ctx, updateEventStatusSQL, id, status)
	if execErr != nil {
		return fmt.Errorf("update event status: %w", execErr)
	}
	if cmdTag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// BarsBetween returns a ticker's observations within [from, to), ordered.
func (s *Store) BarsBetween(ctx context.Context, ticker string, from, to time.Time) ([]PriceBar, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, barsBetweenSQL, ticker, from, to)
	if queryErr != nil {
		return nil, fmt.Errorf("bars between: %w", queryErr)
	}
	defer rows.Close()

	bars := make([]PriceBar, 0)
	for rows.Next() {
		var (
			bar                  PriceBar
			open, hi, lo, closeS string
		)
		if err := rows.Scan(&bar.Ticker, &bar.Timestamp, &open, &hi, &lo, &closeS, &bar.Volume); err != nil {
			return nil, err
		}
		if bar.Open, err = decimal.NewFromString(open); err != nil {
			return nil, fmt.Errorf("parse open: %w", err)
		}
		if bar.High, err = decimal.NewFromString(hi); err != nil {
			return nil, fmt.Errorf("parse high: %w", err)
		}
		if bar.Low, err = decimal.NewFromString(lo); err != nil {
			return nil, fmt.Errorf("parse low: %w", err)
		}
		if bar.Close, err = decimal.NewFromString(closeS); err != nil {
			return nil, fmt.Errorf("parse close: %w", err)
		}
		bars = append(bars, bar)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return bars, nil
}

// UpsertBars writes bars, overwriting duplicates on (ticker, ts). Returns the
// number of bars written.
func (s *Store) UpsertBars(ctx context.Context, bars []PriceBar) (int, error) {
	pool, err := s.getPool()
	if err != nil {
		return 0, err
	}

	written := 0
	for _, bar := range bars {
		_, execErr := pool.Exec(ctx, upsertBarSQL,
			bar.Ticker,
			bar.Timestamp,
			bar.Open.String(),
			bar.High.String(),
			bar.Low.String(),
			bar.Close.String(),
			bar.Volume,
		)
		if execErr != nil {
			return written, fmt.Errorf("upsert bar %s@%s: %w", bar.Ticker, bar.Timestamp.Format(time.RFC3339), execErr)
		}
		written++
	}
	return written, nil
}

// UpsertAlignedRecord persists a record, overwriting any prior attempt for
// the same event id.
func (s *Store) UpsertAlignedRecord(ctx context.Context, rec AlignedRecord) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}

	windowsJSON, err := json.Marshal(rec.Windows)
	if err != nil {
		return fmt.Errorf("marshal windows: %w", err)
	}
	changesJSON, err := json.Marshal(rec.Changes)
	if err != nil {
		return fmt.Errorf("marshal changes: %w", err)
	}
	alphaSPYJSON, err := json.Marshal(rec.AlphaSPY)
	if err != nil {
		return fmt.Errorf("marshal alpha_spy: %w", err)
	}
	alphaQQQJSON, err := json.Marshal(rec.AlphaQQQ)
	if err != nil {
		return fmt.Errorf("marshal alpha_qqq: %w", err)
	}

	missing := rec.MissingDataPoints
	if missing == nil {
		missing = []string{}
	}

	_, execErr := pool.Exec(ctx, upsertAlignedRecordSQL,
		rec.EventID,
		rec.Ticker,
		rec.EventTimestamp,
		windowsJSON,
		changesJSON,
		alphaSPYJSON,
		alphaQQQJSON,
		decimalArg(rec.PriceAtEvent),
		decimalArg(rec.PriceDailyOpen),
		decimalArg(rec.PriceDailyClose),
		rec.MarketHours,
		rec.MarketRegime,
		decimalArg(rec.SPYMomentum30DayPct),
		rec.DataQualityScore,
		missing,
	)
	if execErr != nil {
		return fmt.Errorf("upsert aligned record: %w", execErr)
	}
	return nil
}

// ListRecordsBetween lists records within an event-time window.
func (s *Store) ListRecordsBetween(ctx context.Context, from, to time.Time) ([]AlignedRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listRecordsBetweenSQL, from, to)
	if queryErr != nil {
		return nil, fmt.Errorf("list records between: %w", queryErr)
	}
	defer rows.Close()

	return collectRecords(rows)
}

// ListRecentRecords lists the most recent records by descending event time.
func (s *Store) ListRecentRecords(ctx context.Context, limit int) ([]AlignedRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listRecentRecordsSQL, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list recent records: %w", queryErr)
	}
	defer rows.Close()

	return collectRecords(rows)
}

// ListSplitCandidates lists fully-processed records in chronological order
// with deterministic tie-breaks on event id.
func (s *Store) ListSplitCandidates(ctx context.Context) ([]SplitCandidate, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listSplitCandidatesSQL)
	if queryErr != nil {
		return nil, fmt.Errorf("list split candidates: %w", queryErr)
	}
	defer rows.Close()

	candidates := make([]SplitCandidate, 0)
	for rows.Next() {
		var c SplitCandidate
		if err := rows.Scan(&c.EventID, &c.EventTimestamp); err != nil {
			return nil, err
		}
		candidates = append(candidates, c)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return candidates, nil
}

// AssignSplit labels a record as training or testing data.
func (s *Store) AssignSplit(ctx context.Context, eventID, split string) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	cmdTag, execErr := pool.Exec(ctx, assignSplitSQL, eventID, split)
	if execErr != nil {
		return fmt.Errorf("assign split: %w", execErr)
	}
	if cmdTag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// CountRecords counts stored aligned records.
func (s *Store) CountRecords(ctx context.Context) (int64, error) {
	pool, err := s.getPool()
	if err != nil {
		return 0, err
	}
	var count int64
	if scanErr := pool.QueryRow(ctx, countRecordsSQL).Scan(&count); scanErr != nil {
		return 0, fmt.Errorf("count records: %w", scanErr)
	}
	return count, nil
}

func decimalArg(d *decimal.Decimal) interface{} {
	if d == nil {
		return nil
	}
	return d.String()
}

func scanEvent(rows pgx.Rows) (CausalEvent, error) {
	var (
		event  CausalEvent
		ticker sql.NullString
	)
	if err := rows.Scan(
		&event.ID,
		&ticker,
		&event.PublishedAt,
		&event.Status,
		&event.Payload,
		&event.CreatedAt,
	); err != nil {
		return CausalEvent{}, err
	}
	if ticker.Valid {
		value := ticker.String
		event.Ticker = &value
	}
	return event, nil
}

func collectRecords(rows pgx.Rows) ([]AlignedRecord, error) {
	records := make([]AlignedRecord, 0)
	for rows.Next() {
		rec, scanErr := scanAlignedRecord(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		records = append(records, rec)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return records, nil
}

func scanAlignedRecord(rows pgx.Rows) (AlignedRecord, error) {
	var (
		rec          AlignedRecord
		windowsJSON  []byte
		changesJSON  []byte
		alphaSPYJSON []byte
		alphaQQQJSON []byte
		atEvent      sql.NullString
		dailyOpen    sql.NullString
		dailyClose   sql.NullString
		momentum     sql.NullString
		split        sql.NullString
	)

	if err := rows.Scan(
		&rec.EventID,
		&rec.Ticker,
		&rec.EventTimestamp,
		&windowsJSON,
		&changesJSON,
		&alphaSPYJSON,
		&alphaQQQJSON,
		&atEvent,
		&dailyOpen,
		&dailyClose,
		&rec.MarketHours,
		&rec.MarketRegime,
		&momentum,
		&rec.DataQualityScore,
		&rec.MissingDataPoints,
		&split,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	); err != nil {
		return AlignedRecord{}, err
	}

	if err := json.Unmarshal(windowsJSON, &rec.Windows); err != nil {
		return AlignedRecord{}, fmt.Errorf("unmarshal windows: %w", err)
	}
	if err := json.Unmarshal(changesJSON, &rec.Changes); err != nil {
		return AlignedRecord{}, fmt.Errorf("unmarshal changes: %w", err)
	}
	if err := json.Unmarshal(alphaSPYJSON, &rec.AlphaSPY); err != nil {
		return AlignedRecord{}, fmt.Errorf("unmarshal alpha_spy: %w", err)
	}
	if err := json.Unmarshal(alphaQQQJSON, &rec.AlphaQQQ); err != nil {
		return AlignedRecord{}, fmt.Errorf("unmarshal alpha_qqq: %w", err)
	}

	var err error
	if rec.PriceAtEvent, err = nullDecimal(atEvent); err != nil {
		return AlignedRecord{}, fmt.Errorf("parse price_at_event: %w", err)
	}
	if rec.PriceDailyOpen, err = nullDecimal(dailyOpen); err != nil {
		return AlignedRecord{}, fmt.Errorf("parse price_daily_open: %w", err)
	}
	if rec.PriceDailyClose, err = nullDecimal(dailyClose); err != nil {
		return AlignedRecord{}, fmt.Errorf("parse price_daily_close: %w", err)
	}
	if rec.SPYMomentum30DayPct, err = nullDecimal(momentum); err != nil {
		return AlignedRecord{}, fmt.Errorf("parse spy_momentum_30day_pct: %w", err)
	}

	if split.Valid {
		value := split.String
		rec.DatasetSplit = &value
	}

	return rec, nil
}

func nullDecimal(v sql.NullString) (*decimal.Decimal, error) {
	if !v.Valid {
		return nil, nil
	}
	parsed, err := decimal.NewFromString(v.String)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}
