package collector

import (
	"context"

	"HoldCrypt/internal/model"
)

// Fetcher defines the interface for fetching order books from a market.
type Fetcher interface {
	FetchOrderBook(ctx context.Context, symbol string, limit int) (*model.OrderBook, error)
	Name() string
}
