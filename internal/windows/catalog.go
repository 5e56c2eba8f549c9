package windows

import (
	"fmt"
	"time"
)

// Name identifies a window in the catalog. The set of names is closed;
// downstream maps are keyed by Name rather than by ad-hoc strings.
type Name string

// Offset window names.
const (
	OneMinBefore    Name = "1min_before"
	OneMinAfter     Name = "1min_after"
	FiveMinBefore   Name = "5min_before"
	FiveMinAfter    Name = "5min_after"
	TenMinBefore    Name = "10min_before"
	TenMinAfter     Name = "10min_after"
	ThirtyMinBefore Name = "30min_before"
	ThirtyMinAfter  Name = "30min_after"
	OneHourBefore   Name = "1hour_before"
	OneHourAfter    Name = "1hour_after"
	FourHourBefore  Name = "4hour_before"
	FourHourAfter   Name = "4hour_after"
	OneDayBefore    Name = "1day_before"
	OneDayAfter     Name = "1day_after"
	OneWeekBefore   Name = "1week_before"
	OneWeekAfter    Name = "1week_after"
	OneMonthBefore  Name = "1month_before"
	OneMonthAfter   Name = "1month_after"
	SixMonthBefore  Name = "6month_before"
	SixMonthAfter   Name = "6month_after"
	OneYearBefore   Name = "1year_before"
	OneYearAfter    Name = "1year_after"
)

// Anchor window names, resolved by wall-clock rule rather than offset.
const (
	AtEvent    Name = "at_event"
	DailyOpen  Name = "daily_open"
	DailyClose Name = "daily_close"
)

// Window describes one catalog entry: a signed offset from the event
// timestamp and the base tolerance accepted when matching an observation.
// Anchor windows carry a zero offset and are resolved by TargetFor.
type Window struct {
	Name      Name
	Offset    time.Duration
	Tolerance time.Duration
	Anchor    bool
}

const (
	day   = 24 * time.Hour
	week  = 7 * day
	month = 30 * day
	year  = 365 * day
)

// Anchor tolerances.
const (
	atEventTolerance = 5 * time.Minute
	dailyTolerance   = 60 * time.Minute
)

// Exchange session bounds, fixed-offset exchange local time.
const (
	SessionOpenHour    = 9
	SessionOpenMinute  = 30
	SessionCloseHour   = 16
	SessionCloseMinute = 0
)

// ExchangeZone is the exchange-local zone, held at a constant UTC offset
// year-round. Daylight-saving transitions are intentionally not modelled so
// that derived figures stay comparable across the whole dataset.
var ExchangeZone = time.FixedZone("ET", -4*3600)

var offsets = []time.Duration{
	time.Minute, 5 * time.Minute, 10 * time.Minute, 30 * time.Minute,
	time.Hour, 4 * time.Hour,
	day, week, month, 6 * month, year,
}

var offsetNames = map[time.Duration][2]Name{
	time.Minute:      {OneMinBefore, OneMinAfter},
	5 * time.Minute:  {FiveMinBefore, FiveMinAfter},
	10 * time.Minute: {TenMinBefore, TenMinAfter},
	30 * time.Minute: {ThirtyMinBefore, ThirtyMinAfter},
	time.Hour:        {OneHourBefore, OneHourAfter},
	4 * time.Hour:    {FourHourBefore, FourHourAfter},
	day:              {OneDayBefore, OneDayAfter},
	week:             {OneWeekBefore, OneWeekAfter},
	month:            {OneMonthBefore, OneMonthAfter},
	6 * month:        {SixMonthBefore, SixMonthAfter},
	year:             {OneYearBefore, OneYearAfter},
}

var catalog []Window

func init() {
	catalog = make([]Window, 0, 2*len(offsets)+3)
	for _, off := range offsets {
		names := offsetNames[off]
		tol := ToleranceFor(off)
		catalog = append(catalog,
			Window{Name: names[0], Offset: -off, Tolerance: tol},
			Window{Name: names[1], Offset: off, Tolerance: tol},
		)
	}
	catalog = append(catalog,
		Window{Name: AtEvent, Tolerance: atEventTolerance, Anchor: true},
		Window{Name: DailyOpen, Tolerance: dailyTolerance, Anchor: true},
		Window{Name: DailyClose, Tolerance: dailyTolerance, Anchor: true},
	)

	seen := make(map[Name]struct{}, len(catalog))
	for _, w := range catalog {
		if _, dup := seen[w.Name]; dup {
			panic(fmt.Sprintf("windows: duplicate catalog name %q", w.Name))
		}
		seen[w.Name] = struct{}{}
	}
}

// Catalog returns every window in deterministic order: offset pairs from the
// shortest horizon outward, then the three anchors. Callers must not mutate
// the returned slice.
func Catalog() []Window {
	return catalog
}

// Count is the number of attempted windows per ticker, anchors included.
func Count() int {
	return len(catalog)
}

// ToleranceFor maps an offset magnitude to its base matching tolerance.
// Tolerance widens with the horizon: a price a few minutes off is useless for
// a one-minute window but perfectly serviceable for a one-year one.
func ToleranceFor(offset time.Duration) time.Duration {
	if offset < 0 {
		offset = -offset
	}
	switch {
	case offset <= 10*time.Minute:
		return 5 * time.Minute
	case offset <= time.Hour:
		return 15 * time.Minute
	case offset <= 4*time.Hour:
		return 60 * time.Minute
	case offset <= day:
		return 4 * time.Hour
	case offset <= week:
		return day
	case offset <= month:
		return 3 * day
	default:
		return week
	}
}

// TargetFor resolves the lookup timestamp for a window relative to the event
// time. Offset windows shift the event time; anchors resolve by wall-clock
// rule on the event's calendar day in exchange-local time.
func TargetFor(w Window, eventTime time.Time) time.Time {
	if !w.Anchor {
		return eventTime.Add(w.Offset)
	}
	switch w.Name {
	case DailyOpen:
		local := eventTime.In(ExchangeZone)
		return time.Date(local.Year(), local.Month(), local.Day(),
			SessionOpenHour, SessionOpenMinute, 0, 0, ExchangeZone)
	case DailyClose:
		local := eventTime.In(ExchangeZone)
		return time.Date(local.Year(), local.Month(), local.Day(),
			SessionCloseHour, SessionCloseMinute, 0, 0, ExchangeZone)
	default:
		return eventTime
	}
}
