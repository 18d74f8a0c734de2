package model

// Holding is a user's net non-zero balance in one coin, valued at the latest
// snapshot price.
type Holding struct {
	Symbol string  `json:"symbol"`
	Name   string  `json:"name"`
	Price  float64 `json:"price"`
	Amount float64 `json:"amount"`
}

// Value returns Amount × Price.
func (h Holding) Value() float64 { return h.Amount * h.Price }

// HoldingsView is the derived holdings of one user, ordered by the first
// appearance of each coin in the ledger. It is never persisted.
type HoldingsView []Holding

// Total returns the summed value of all holdings.
func (v HoldingsView) Total() float64 {
	total := 0.0
	for _, h := range v {
		total += h.Value()
	}
	return total
}
