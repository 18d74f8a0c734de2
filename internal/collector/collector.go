package collector

import (
	"context"
	"errors"
	"fmt"
	"time"

	"HoldCrypt/internal/model"

	"github.com/rs/zerolog"
)

// MockFetcher returns controllable fixed data for development and testing.
// Books maps symbol to the book to return; Errs maps symbol to a failure.
type MockFetcher struct {
	Books map[string]*model.OrderBook
	Errs  map[string]error
	Calls int
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchOrderBook(_ context.Context, symbol string, _ int) (*model.OrderBook, error) {
	m.Calls++
	if err, ok := m.Errs[symbol]; ok {
		return nil, err
	}
	book, ok := m.Books[symbol]
	if !ok {
		return nil, &StatusError{Code: 400, Body: `{"code":-1121,"msg":"Invalid symbol."}`}
	}
	cp := *book
	cp.Symbol = symbol
	return &cp, nil
}

// Collector fetches order books with a fixed depth and retries transient
// failures with exponential backoff.
type Collector struct {
	Fetcher Fetcher
	Depth   int
	Retries int
	Backoff time.Duration
	log     zerolog.Logger
}

// NewCollector creates a new Collector.
func NewCollector(fetcher Fetcher, depth, retries int, log zerolog.Logger) *Collector {
	return &Collector{
		Fetcher: fetcher,
		Depth:   depth,
		Retries: retries,
		Backoff: time.Second,
		log:     log,
	}
}

// OrderBook fetches the book for symbol.
func (c *Collector) OrderBook(ctx context.Context, symbol string) (*model.OrderBook, error) {
	var lastErr error
	for i := 0; i <= c.Retries; i++ {
		book, err := c.Fetcher.FetchOrderBook(ctx, symbol, c.Depth)
		if err == nil {
			return book, nil
		}
		lastErr = err
		if !retryable(err) || i == c.Retries {
			break
		}
		backoff := time.Duration(1<<uint(i)) * c.Backoff
		c.log.Warn().
			Err(err).
			Str("symbol", symbol).
			Str("source", c.Fetcher.Name()).
			Int("attempt", i+1).
			Dur("backoff", backoff).
			Msg("order book fetch failed, retrying")
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}
	return nil, fmt.Errorf("%s order book for %s: %w", c.Fetcher.Name(), symbol, lastErr)
}

func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, ErrDecode) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Temporary()
	}
	return true
}
