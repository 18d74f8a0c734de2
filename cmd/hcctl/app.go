package main

import (
	"fmt"

	"HoldCrypt/internal/collector"
	"HoldCrypt/internal/config"
	"HoldCrypt/internal/ledger"
	"HoldCrypt/internal/logger"
	"HoldCrypt/internal/portfolio"
	"HoldCrypt/internal/pricing"
	"HoldCrypt/internal/recorder"
	"HoldCrypt/internal/store"

	"github.com/rs/zerolog"
)

// app holds the components a command needs, opened against the configured database.
type app struct {
	cfg      *config.Config
	store    *store.SQLiteStore
	recorder *recorder.SQLiteRecorder
	ledger   *ledger.Ledger
	snapshot *pricing.Snapshot
	pricing  *pricing.Service
	agg      *portfolio.Aggregator
	log      zerolog.Logger
}

func openApp() (*app, error) {
	cfg, err := config.Load(*configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	opts := logger.OptionsFromEnv()
	if opts.Level == "" {
		opts.Level = "warn"
	}
	log := logger.New(opts)

	st, err := store.NewSQLiteStore(cfg.Database.SQLitePath, log)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	rec, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath, log)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("open recorder: %w", err)
	}

	fetcher := collector.NewBinanceFetcher(cfg.Market.BaseURL, cfg.Proxy)
	col := collector.NewCollector(fetcher, cfg.Market.Depth, cfg.Market.Retries, log)
	snap := pricing.NewSnapshot(st)
	l := ledger.New(st, log)

	return &app{
		cfg:      cfg,
		store:    st,
		recorder: rec,
		ledger:   l,
		snapshot: snap,
		pricing:  pricing.NewService(col, snap, rec, log),
		agg:      portfolio.NewAggregator(l, snap, log),
		log:      log,
	}, nil
}

func (a *app) Close() {
	a.recorder.Close()
	a.store.Close()
}
