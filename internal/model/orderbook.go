package model

import "time"

// OrderBook is a depth snapshot for one symbol. Each side holds
// [price, volume] pairs as decimal strings, best level first.
type OrderBook struct {
	Symbol       string
	LastUpdateID int64
	Bids         [][]string
	Asks         [][]string
	FetchedAt    time.Time
}
