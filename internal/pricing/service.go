// Package pricing turns order books into snapshot prices.
package pricing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"HoldCrypt/internal/model"
	"HoldCrypt/internal/recorder"

	"github.com/rs/zerolog"
)

// OrderBookSource supplies the current order book for a symbol.
type OrderBookSource interface {
	OrderBook(ctx context.Context, symbol string) (*model.OrderBook, error)
}

// Service refreshes snapshot entries from live order books.
type Service struct {
	source   OrderBookSource
	snapshot *Snapshot
	recorder recorder.Recorder
	log      zerolog.Logger
	now      func() time.Time
}

// NewService creates a new pricing service.
func NewService(source OrderBookSource, snapshot *Snapshot, rec recorder.Recorder, log zerolog.Logger) *Service {
	return &Service{
		source:   source,
		snapshot: snapshot,
		recorder: rec,
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// RefreshResult is the outcome of refreshing one coin in a batch.
type RefreshResult struct {
	Coin  model.CoinRef
	Entry model.PriceSnapshotEntry
	Err   error
}

// RefreshSymbol fetches the order book for coin, averages its asks and writes
// the snapshot entry. Errors are *RefreshError.
func (s *Service) RefreshSymbol(ctx context.Context, coin model.CoinRef) (model.PriceSnapshotEntry, error) {
	entry, asks, err := s.refresh(ctx, coin)
	s.record(coin, entry, asks, err)
	if err != nil {
		return model.PriceSnapshotEntry{}, &RefreshError{Symbol: coin.Symbol, Err: err}
	}
	return entry, nil
}

func (s *Service) refresh(ctx context.Context, coin model.CoinRef) (model.PriceSnapshotEntry, int, error) {
	if strings.TrimSpace(coin.Symbol) == "" || strings.TrimSpace(coin.Name) == "" {
		return model.PriceSnapshotEntry{}, 0, fmt.Errorf("%w: name and symbol are required", ErrInvalidCoin)
	}

	book, err := s.source.OrderBook(ctx, coin.Symbol)
	if err != nil {
		return model.PriceSnapshotEntry{}, 0, fmt.Errorf("%w: %w", ErrMarketUnavailable, err)
	}

	price, err := AverageAskPrice(*book)
	if err != nil {
		return model.PriceSnapshotEntry{}, len(book.Asks), err
	}
	if price <= 0 {
		return model.PriceSnapshotEntry{}, len(book.Asks), ErrNonPositivePrice
	}

	entry := model.PriceSnapshotEntry{
		Symbol:    coin.Symbol,
		Name:      coin.Name,
		Price:     price,
		Version:   book.LastUpdateID,
		UpdatedAt: s.now(),
	}
	if err := s.snapshot.Put(ctx, entry); err != nil {
		return model.PriceSnapshotEntry{}, len(book.Asks), err
	}
	return entry, len(book.Asks), nil
}

func (s *Service) record(coin model.CoinRef, entry model.PriceSnapshotEntry, asks int, err error) {
	evt := &recorder.RefreshEvent{
		Time:    s.now(),
		Symbol:  coin.Symbol,
		Name:    coin.Name,
		Asks:    asks,
		Outcome: recorder.OutcomeOK,
	}
	switch {
	case err == nil:
		evt.Price = entry.Price
		evt.Version = entry.Version
		s.log.Info().Str("symbol", coin.Symbol).Float64("price", entry.Price).Int64("version", entry.Version).Msg("price refreshed")
	case errors.Is(err, ErrStaleSnapshot):
		evt.Outcome = recorder.OutcomeStale
		evt.Error = err.Error()
		s.log.Warn().Str("symbol", coin.Symbol).Err(err).Msg("stale price refresh discarded")
	default:
		evt.Outcome = recorder.OutcomeFailed
		evt.Error = err.Error()
		s.log.Error().Str("symbol", coin.Symbol).Err(err).Msg("price refresh failed")
	}
	if s.recorder == nil {
		return
	}
	if rerr := s.recorder.RecordRefresh(evt); rerr != nil {
		s.log.Warn().Err(rerr).Str("symbol", coin.Symbol).Msg("record refresh")
	}
}

// RefreshBatch refreshes each coin independently, in order. One coin's
// failure never affects the others. Once ctx is done the remaining coins are
// reported with the context error and not fetched.
func (s *Service) RefreshBatch(ctx context.Context, coins []model.CoinRef) []RefreshResult {
	results := make([]RefreshResult, 0, len(coins))
	for _, coin := range coins {
		if err := ctx.Err(); err != nil {
			results = append(results, RefreshResult{Coin: coin, Err: &RefreshError{Symbol: coin.Symbol, Err: err}})
			continue
		}
		entry, err := s.RefreshSymbol(ctx, coin)
		results = append(results, RefreshResult{Coin: coin, Entry: entry, Err: err})
	}
	return results
}

// Failed returns the results whose error is not a stale-snapshot rejection.
func Failed(results []RefreshResult) []RefreshResult {
	var out []RefreshResult
	for _, r := range results {
		if r.Err != nil && !errors.Is(r.Err, ErrStaleSnapshot) {
			out = append(out, r)
		}
	}
	return out
}
