package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"HoldCrypt/internal/model"
	"HoldCrypt/internal/notifier"
	"HoldCrypt/internal/portfolio"
	"HoldCrypt/internal/pricing"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Sender delivers alert messages.
type Sender interface {
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
}

// Scheduler runs the periodic price refresh and answers chat commands.
type Scheduler struct {
	Cron       *cron.Cron
	Pricing    *pricing.Service
	Snapshot   *pricing.Snapshot
	Aggregator *portfolio.Aggregator
	Notifier   Sender // nil disables alerts
	Coins      []model.CoinRef
	Ctx        context.Context

	log     zerolog.Logger
	running sync.Mutex
}

// NewScheduler creates a new Scheduler.
func NewScheduler(ctx context.Context, svc *pricing.Service, snap *pricing.Snapshot, agg *portfolio.Aggregator,
	sender Sender, coins []model.CoinRef, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		Cron:       cron.New(cron.WithSeconds()),
		Pricing:    svc,
		Snapshot:   snap,
		Aggregator: agg,
		Notifier:   sender,
		Coins:      coins,
		Ctx:        ctx,
		log:        log,
	}
}

// Register adds the refresh task.
func (s *Scheduler) Register(refreshCron string) error {
	if _, err := s.Cron.AddFunc(refreshCron, s.refreshTask); err != nil {
		return fmt.Errorf("register refresh task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.log.Info().Int("coins", len(s.Coins)).Msg("scheduler started")
}

// Stop stops the cron scheduler and waits for a running refresh to finish.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.log.Info().Msg("scheduler stopped")
}

// RunRefreshNow refreshes all configured coins immediately (for manual
// trigger / RUN_ON_START). Runs never overlap; a call made while another run
// is in progress waits for it.
func (s *Scheduler) RunRefreshNow() []pricing.RefreshResult {
	s.running.Lock()
	defer s.running.Unlock()

	if len(s.Coins) == 0 {
		s.log.Warn().Msg("no coins configured, skipping refresh")
		return nil
	}

	start := time.Now()
	results := s.Pricing.RefreshBatch(s.Ctx, s.Coins)
	failed := pricing.Failed(results)
	s.log.Info().
		Int("coins", len(results)).
		Int("failed", len(failed)).
		Dur("duration", time.Since(start)).
		Msg("refresh finished")

	if msg := notifier.FormatRefreshFailures(results, time.Now()); msg != "" {
		s.trySend(msg)
	}
	return results
}

func (s *Scheduler) refreshTask() {
	s.log.Info().Msg("running scheduled refresh")
	s.RunRefreshNow()
}

// HandleCommand processes a chat command and returns a reply.
func (s *Scheduler) HandleCommand(command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return helpText
	}
	switch fields[0] {
	case "/prices":
		snap, broken, err := s.Snapshot.All(s.Ctx)
		if err != nil {
			s.log.Error().Err(err).Msg("read prices")
			return "❌ could not read prices"
		}
		for symbol, cause := range broken {
			s.log.Warn().Str("symbol", symbol).Err(cause).Msg("malformed price entry")
		}
		return notifier.FormatPrices(snap, broken)
	case "/refresh":
		results := s.RunRefreshNow()
		return fmt.Sprintf("refreshed %d of %d coins", len(results)-len(pricing.Failed(results)), len(results))
	case "/holdings":
		if len(fields) != 2 {
			return "usage: /holdings &lt;username&gt;"
		}
		uh, err := s.Aggregator.ComputeUser(s.Ctx, fields[1])
		if errors.Is(err, portfolio.ErrUserNotFound) {
			return "unknown user"
		}
		if err != nil {
			s.log.Error().Err(err).Str("username", fields[1]).Msg("compute holdings")
			return "❌ could not compute holdings"
		}
		return notifier.FormatHoldings(uh)
	default:
		return helpText
	}
}

const helpText = "Available commands:\n• /prices\n• /refresh\n• /holdings &lt;username&gt;"

func (s *Scheduler) trySend(text string) {
	if s.Notifier == nil {
		return
	}
	if err := s.Notifier.SendWithRetry(s.Ctx, text, 3); err != nil {
		s.log.Error().Err(err).Msg("send notification")
	}
}
