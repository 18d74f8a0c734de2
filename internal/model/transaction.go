package model

import "time"

// TransactionRecord is one immutable ledger entry. A positive Amount is an
// acquisition, a negative one a disposal. Price is the per-unit price at the
// time of the transaction and is informational only.
type TransactionRecord struct {
	ID        string    `json:"id"`
	Username  string    `json:"-"`
	Coin      string    `json:"coin"`
	Amount    float64   `json:"amount"`
	Price     float64   `json:"price"`
	CreatedAt time.Time `json:"created_at"`
}
