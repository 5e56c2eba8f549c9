package app

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"market-align/internal/alerting"
	"market-align/internal/align"
	"market-align/internal/config"
	"market-align/internal/scheduler"
	"market-align/internal/storage"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

func (a *App) openStore(ctx context.Context) (*storage.Store, func(), error) {
	if a.Config.Database.DSN == "" {
		return nil, nil, nil
	}

	pool, err := storage.NewPool(ctx, a.Config.Database)
	if err != nil {
		return nil, nil, err
	}

	store := storage.NewStore(pool)
	closer := func() {
		store.Close()
	}
	return store, closer, nil
}

func (a *App) newNotifier() alerting.Notifier {
	if !a.Config.Alerting.Enabled {
		return nil
	}
	if a.Config.Alerting.Telegram.Enabled {
		cfg := a.Config.Alerting.Telegram
		return alerting.NewTelegramNotifier(cfg.BotToken, cfg.ChatID, cfg.APIBase, 10*time.Second, a.Logger)
	}
	return nil
}

func (a *App) newEngine(store *storage.Store) *align.Engine {
	return align.NewEngine(align.Options{
		Events:        store,
		Prices:        store,
		Records:       store,
		DefaultTicker: a.Config.Align.DefaultTicker,
		Pause:         a.Config.Align.BatchPause,
		QueryTimeout:  a.Config.Align.StoreQueryTimeout,
		Notifier:      a.newNotifier(),
	}, a.Logger)
}

// Run executes the long-running alignment service: a scheduler-driven batch
// over pending events on each interval.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database.dsn is required to run the alignment service")
	}
	defer closeStore()

	engine := a.newEngine(store)

	sched := scheduler.New(scheduler.Options{
		Interval:     a.Config.Scheduler.Interval,
		AlignToStart: a.Config.Scheduler.AlignToBucket,
		StartupDelay: a.Config.Scheduler.StartupDelay,
	}, a.Logger)

	a.Logger.Info().Dur("interval", a.Config.Scheduler.Interval).Msg("starting alignment service")
	err = sched.Run(ctx, func(ctx context.Context, _ time.Time) error {
		_, batchErr := engine.ProcessBatch(ctx, align.BatchOptions{})
		return batchErr
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("service terminated with error")
		return err
	}

	a.Logger.Info().Msg("alignment service stopped")
	return nil
}

// ProcessOptions configure a one-shot batch run.
type ProcessOptions struct {
	From    *time.Time
	To      *time.Time
	Force   bool
	Limit   int
	EventID string
}

// BackfillOptions configure the price backfill job.
type BackfillOptions struct {
	Ticker string
	From   time.Time
	To     time.Time
	DryRun bool
}

// ExportOptions hold parameters for exporting aligned records.
type ExportOptions struct {
	From      *time.Time
	To        *time.Time
	CSVPath   string
	PNGPath   string
	MaxPoints int
}

// ShowOptions configure the show command.
type ShowOptions struct {
	Limit int
}
