package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"StockDog/internal/api"
	"StockDog/internal/company"
	"StockDog/internal/config"
	"StockDog/internal/dashboard"
	"StockDog/internal/logging"
	"StockDog/internal/metrics"
	"StockDog/internal/notifier"
	"StockDog/internal/portfolio"
	"StockDog/internal/quote"
	"StockDog/internal/quotesync"
	"StockDog/internal/recorder"
	"StockDog/internal/registry"
	"StockDog/internal/scheduler"
	"StockDog/internal/storage"

	"github.com/rs/zerolog/log"
)

func main() {
	// Load config
	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Pretty)
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("config validation")
	}
	log.Info().Str("config", cfgPath).Msg("StockDog starting")

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := metrics.New("stockdog")

	catalog, err := company.Load(cfg.Companies.Path)
	if err != nil {
		log.Fatal().Err(err).Msg("load company catalog")
	}

	kv, err := storage.Open(ctx, storage.Options{
		Driver:   cfg.Storage.Driver,
		Path:     cfg.Storage.Path,
		RedisURL: cfg.Storage.RedisURL,
		Prefix:   cfg.Storage.Prefix,
	})
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.Storage.Driver).Msg("open storage")
	}
	defer kv.Close()

	reg := registry.New()
	store, err := portfolio.NewStore(ctx, kv,
		portfolio.WithTracker(reg),
		portfolio.WithCompanies(catalog),
		portfolio.WithMetrics(m),
	)
	if err != nil {
		log.Fatal().Err(err).Msg("load portfolio")
	}

	// Init recorder
	var rec recorder.Recorder
	if cfg.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath)
		if err != nil {
			log.Warn().Err(err).Msg("init sqlite recorder failed, using noop")
			rec = recorder.NewNoopRecorder()
		} else {
			rec = sr
		}
	} else {
		rec = recorder.NewNoopRecorder()
	}
	defer rec.Close()

	provider, err := quote.NewProvider(cfg.Quotes.Provider, cfg.Quotes.BaseURL, cfg.Quotes.APIKey, cfg.Proxy)
	if err != nil {
		log.Fatal().Err(err).Msg("init quote provider")
	}
	log.Info().Str("provider", provider.Name()).Dur("interval", cfg.Sync.Interval).Msg("quote source ready")

	engineOpts := []quotesync.Option{
		quotesync.WithRecorder(rec),
		quotesync.WithMetrics(m),
	}
	var (
		tn       *notifier.TelegramNotifier
		reporter *notifier.SyncReporter
	)
	if cfg.TelegramEnabled() {
		tn = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy)
		reporter = tn.Reporter(ctx)
		engineOpts = append(engineOpts, quotesync.WithReporter(reporter))
	}
	engine := quotesync.New(provider, reg, store, engineOpts...)

	dash := dashboard.New(store, m)
	defer dash.Close()
	views := api.NewViews(store, reg, engine.FetchNow, cfg.Sync.Timeout)

	// Init scheduler
	var sender scheduler.Sender
	if tn != nil {
		sender = tn
	}
	sched := scheduler.NewScheduler(ctx, engine, dash, reg, sender)
	sched.Timeout = cfg.Sync.Timeout
	if err := sched.RegisterAll(cfg.Sync.Interval, cfg.Schedule.DigestCron); err != nil {
		log.Fatal().Err(err).Msg("register cron tasks")
	}
	sched.Start()

	if tn != nil {
		go tn.StartPolling(ctx, sched.HandleCommand)
		log.Info().Msg("telegram polling started")
	}

	app := api.NewApp(&api.Handlers{
		Store:     store,
		Views:     views,
		Dashboard: dash,
		Engine:    engine,
		Registry:  reg,
		Catalog:   catalog,
		Recorder:  rec,
		Timeout:   cfg.Sync.Timeout,
	}, m.Handler())
	go func() {
		if err := app.Listen(cfg.Server.Addr); err != nil {
			log.Error().Err(err).Msg("http server stopped")
			cancel()
		}
	}()
	log.Info().Str("addr", cfg.Server.Addr).Msg("StockDog is running. Press Ctrl+C to stop.")

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigCh:
		log.Info().Msg("shutdown signal received, stopping...")
	case <-ctx.Done():
	}

	sched.Stop()
	if reporter != nil {
		reporter.Wait()
	}
	if err := app.ShutdownWithTimeout(5 * time.Second); err != nil {
		log.Warn().Err(err).Msg("http shutdown")
	}
	cancel()
	views.Close()

	closeCtx, closeCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer closeCancel()
	if err := store.Close(closeCtx); err != nil {
		log.Error().Err(err).Msg("final portfolio save failed")
	}
	log.Info().Msg("StockDog stopped")
}
