package model

import "time"

// CoinRef names a coin: Symbol is used to query the market (e.g. ETHAUD),
// Name is the display name (e.g. Ethereum).
type CoinRef struct {
	Name   string `json:"name" yaml:"name"`
	Symbol string `json:"symbol" yaml:"symbol"`
}

// PriceSnapshotEntry is the latest known average price of one coin.
// Version is the order book's last update id and orders competing refreshes.
type PriceSnapshotEntry struct {
	Symbol    string    `json:"symbol"`
	Name      string    `json:"name"`
	Price     float64   `json:"price"`
	Version   int64     `json:"version"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PriceSnapshot maps coin symbol to its latest entry.
type PriceSnapshot map[string]PriceSnapshotEntry
