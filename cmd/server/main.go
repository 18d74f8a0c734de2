package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"HoldCrypt/internal/api"
	"HoldCrypt/internal/collector"
	"HoldCrypt/internal/config"
	"HoldCrypt/internal/ledger"
	"HoldCrypt/internal/logger"
	"HoldCrypt/internal/notifier"
	"HoldCrypt/internal/portfolio"
	"HoldCrypt/internal/pricing"
	"HoldCrypt/internal/recorder"
	"HoldCrypt/internal/scheduler"
	"HoldCrypt/internal/store"
)

func main() {
	log := logger.New(logger.OptionsFromEnv())
	log.Info().Msg("HoldCrypt starting...")

	// Load config
	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("config validation")
	}

	// Init store
	st, err := store.NewSQLiteStore(cfg.Database.SQLitePath, log)
	if err != nil {
		log.Fatal().Err(err).Msg("open store")
	}
	defer st.Close()

	// Init recorder
	var rec recorder.Recorder
	sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath, log)
	if err != nil {
		log.Warn().Err(err).Msg("init sqlite recorder failed, using noop")
		rec = recorder.NewNoopRecorder()
	} else {
		rec = sr
		defer sr.Close()
	}

	// Init collector
	fetcher := collector.NewBinanceFetcher(cfg.Market.BaseURL, cfg.Proxy)
	col := collector.NewCollector(fetcher, cfg.Market.Depth, cfg.Market.Retries, log)
	log.Info().Str("source", fetcher.Name()).Int("depth", cfg.Market.Depth).Msg("market data source")

	// Core services
	snap := pricing.NewSnapshot(st)
	svc := pricing.NewService(col, snap, rec, log)
	l := ledger.New(st, log)
	agg := portfolio.NewAggregator(l, snap, log)

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Init Telegram notifier
	var tn *notifier.TelegramNotifier
	var sender scheduler.Sender
	if cfg.TelegramEnabled() {
		tn = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy, log)
		sender = tn
	} else {
		log.Warn().Msg("telegram not configured, refresh alerts disabled")
	}

	// Init scheduler
	sched := scheduler.NewScheduler(ctx, svc, snap, agg, sender, cfg.Refresh.Coins, log)
	if err := sched.Register(cfg.Refresh.Cron); err != nil {
		log.Fatal().Err(err).Msg("register cron tasks")
	}
	sched.Start()
	defer sched.Stop()

	// Start Telegram polling
	if tn != nil {
		go tn.StartPolling(ctx, sched.HandleCommand)
		log.Info().Msg("telegram polling started")
	}

	// Optional: run immediately on start
	if os.Getenv("RUN_ON_START") == "true" {
		log.Info().Msg("RUN_ON_START enabled, refreshing prices now")
		go sched.RunRefreshNow()
	}

	// HTTP server
	handlers := api.NewHandlers(l, agg, svc, snap)
	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      api.NewRouter(handlers, cfg.CORS.AllowOrigin, log),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		log.Info().Str("addr", cfg.Server.Addr).Msg("starting API server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("API server failed")
		}
	}()

	log.Info().Msg("HoldCrypt is running. Press Ctrl+C to stop.")

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info().Msg("shutdown signal received, stopping...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}
	cancel()
	log.Info().Msg("HoldCrypt stopped")
}
