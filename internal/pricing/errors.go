package pricing

import (
	"errors"
	"fmt"
)

// Price errors describe an order book that cannot be averaged.
var (
	ErrEmptyBook        = errors.New("empty order book")
	ErrMalformedEntry   = errors.New("malformed order book entry")
	ErrNonPositivePrice = errors.New("average price is not positive")
)

// Refresh errors.
var (
	ErrInvalidCoin       = errors.New("invalid coin")
	ErrMarketUnavailable = errors.New("market data unavailable")
	ErrStoreWrite        = errors.New("price store write failed")
	// ErrStaleSnapshot is returned when the stored entry was produced from a
	// newer order book than the one being written.
	ErrStaleSnapshot = errors.New("stale price snapshot")
)

// RefreshError is returned by every failed refresh and names the symbol.
type RefreshError struct {
	Symbol string
	Err    error
}

func (e *RefreshError) Error() string {
	return fmt.Sprintf("refresh %s: %v", e.Symbol, e.Err)
}

func (e *RefreshError) Unwrap() error { return e.Err }
