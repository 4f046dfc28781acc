package app

import (
	"context"
	"errors"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"tf-alerter/internal/alerting"
	"tf-alerter/internal/clock"
	"tf-alerter/internal/config"
	"tf-alerter/internal/exchange"
	"tf-alerter/internal/funding"
	"tf-alerter/internal/overlay"
	"tf-alerter/internal/service"
	"tf-alerter/internal/sound"
	"tf-alerter/internal/storage"
	"tf-alerter/internal/timeframe"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger

	// ConfigPath, when set, enables live reload of snapshot-read settings
	// while `run` is active.
	ConfigPath string
}

// settingsHolder hands out the current configuration to the snapshot
// closures both engines read on every tick/cycle.
type settingsHolder struct {
	mu  sync.RWMutex
	cfg *config.Config
}

func (h *settingsHolder) get() *config.Config {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.cfg
}

func (h *settingsHolder) set(cfg *config.Config) {
	h.mu.Lock()
	h.cfg = cfg
	h.mu.Unlock()
}

func fundingSettings(cfg *config.Config) funding.Settings {
	return funding.Settings{
		Exchanges:        cfg.Funding.Exchanges.EnabledIDs(),
		MinutesText:      cfg.Funding.Minutes,
		ThresholdPosText: cfg.Funding.ThresholdPos,
		ThresholdNegText: cfg.Funding.ThresholdNeg,
		AlertBefore:      cfg.Funding.AlertBefore,
		AlertPercent:     cfg.Funding.AlertPercent,
	}
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

func (a *App) newSoundLibrary() (*timeframe.Table, *sound.Library) {
	table := timeframe.NewTable(a.Config.SoundOverrides())
	library := sound.NewLibrary(a.Config.Timeframes.SoundsDir, a.Logger)
	library.Preload(table)
	return table, library
}

func (a *App) newFetchers() []exchange.Fetcher {
	opts := exchange.Options{
		Timeout:   a.Config.Funding.RequestTimeout,
		UserAgent: a.Config.Funding.UserAgent,
	}
	return []exchange.Fetcher{
		exchange.NewBinance(opts, a.Logger),
		exchange.NewBybit(opts, a.Logger),
		exchange.NewOKX(opts, a.Logger),
		exchange.NewGate(opts, a.Logger),
		exchange.NewBitget(opts, a.Logger),
	}
}

func (a *App) newCache() (funding.Cache, func()) {
	if a.Config.Dedup.Backend == "redis" {
		cache := funding.NewRedisCache(funding.RedisCacheOptions{
			Addr:     a.Config.Dedup.Addr,
			Password: a.Config.Dedup.Pass,
			DB:       a.Config.Dedup.DB,
			TTL:      a.Config.Dedup.TTL,
		}, a.Logger)
		return cache, func() { _ = cache.Close() }
	}
	return funding.NewMemoryCache(a.Config.Dedup.Cap), nil
}

func (a *App) newNotifier() alerting.Notifier {
	if a.Config.Telegram.Enabled {
		cfg := a.Config.Telegram
		return alerting.NewTelegramNotifier(cfg.BotToken, cfg.ChatID, cfg.APIBase, 10*time.Second, a.Logger)
	}
	return nil
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

func (a *App) newService(store *storage.Store, library *sound.Library, player sound.Player) *service.Service {
	opts := service.Options{
		Feed:         alerting.NewFeed(0),
		Notifier:     a.newNotifier(),
		Library:      library,
		Player:       player,
		FundingSound: a.Config.Sounds.Funding,
		Volume:       a.Config.Clock.Volume,
	}
	if store != nil {
		opts.AlertStore = store
		opts.SampleStore = store
	}
	return service.New(opts, a.Logger)
}

// Run executes both engines until interrupted.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		a.Logger.Warn().Msg("database.dsn not configured; persistence disabled")
	}
	if closeStore != nil {
		defer closeStore()
	}

	table, library := a.newSoundLibrary()
	player := sound.NewLogPlayer(a.Logger)
	surface := overlay.NewLogSurface(a.Logger)

	svc := a.newService(store, library, player)

	cache, closeCache := a.newCache()
	if closeCache != nil {
		defer closeCache()
	}

	cfg := a.Config
	holder := &settingsHolder{cfg: cfg}
	sequencer := clock.New(clock.Options{
		LeadTime:       cfg.Clock.LeadTime,
		PollInterval:   cfg.Clock.PollInterval,
		OverlayRefresh: cfg.Clock.OverlayRefresh,
		Volume:         cfg.Clock.Volume,
	}, clock.Deps{
		Table:   table,
		Library: library,
		Player:  player,
		Surface: surface,
		Active:  func() timeframe.Set { return holder.get().ActiveTimeframes() },
		Toggles: func() clock.Toggles {
			sounds := holder.get().Sounds
			return clock.Toggles{
				Voice:      sounds.Voice,
				Tick:       sounds.Tick,
				Transition: sounds.Transition,
			}
		},
		OverlayPolicy: func() overlay.Policy { return holder.get().OverlayPolicy() },
		Foreground:    func() string { return "" },
		Overrides:     func() overlay.Overrides { return overlay.Overrides{} },
	}, a.Logger)

	monitor := funding.NewMonitor(funding.MonitorOptions{
		Fetchers: a.newFetchers(),
		Cache:    cache,
		Snapshot: func() funding.Settings { return fundingSettings(holder.get()) },
		Recorder: svc.RecordCycle,
		Intervals: funding.Intervals{
			Near:     cfg.Funding.NearInterval,
			Far:      cfg.Funding.FarInterval,
			Fallback: cfg.Funding.FallbackInterval,
		},
	}, a.Logger)

	// Snapshot-read settings (timeframes, toggles, funding selection) take
	// effect on the next tick/cycle; construction-time settings (sounds
	// dir, database, intervals) need a restart.
	config.Watch(a.ConfigPath, func(next *config.Config) {
		holder.set(next)
		monitor.Refresh()
		a.Logger.Info().Msg("configuration reloaded")
	}, func(err error) {
		a.Logger.Warn().Err(err).Msg("configuration reload failed, keeping previous settings")
	})

	errs := make(chan error, 2)
	go func() {
		errs <- sequencer.Run(ctx)
	}()
	go func() {
		errs <- monitor.Run(ctx)
	}()

	a.Logger.Info().Msg("starting clock and funding engines")
	err = svc.Run(ctx, monitor.Events(), monitor.StatusUpdates(), sequencer.Notifications())
	cancel()
	<-errs
	<-errs

	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("service terminated with error")
		return err
	}

	a.Logger.Info().Msg("engines stopped")
	return nil
}

// ExportOptions hold parameters for exporting funding-sample history.
type ExportOptions struct {
	From      *time.Time
	To        *time.Time
	PNGPath   string
	CSVPath   string
	MaxPoints int
}

// ShowOptions configure the show command.
type ShowOptions struct {
	Limit int
}
