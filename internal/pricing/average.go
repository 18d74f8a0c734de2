package pricing

import (
	"fmt"
	"math"

	"HoldCrypt/internal/model"

	"github.com/shopspring/decimal"
)

// Bounds on a single ask price string. Decimal arithmetic cost grows with the
// exponent spread, so larger inputs are rejected before summing.
const (
	maxPriceLen      = 64
	maxPriceExponent = 400
)

// AverageAskPrice returns the unweighted arithmetic mean of the ask prices in
// book. Volumes are ignored. Prices are summed as exact decimals and the mean
// is converted to float64 once.
func AverageAskPrice(book model.OrderBook) (float64, error) {
	if len(book.Asks) == 0 {
		return 0, ErrEmptyBook
	}

	sum := decimal.Zero
	for i, level := range book.Asks {
		if len(level) == 0 || level[0] == "" {
			return 0, fmt.Errorf("%w: ask %d: missing price", ErrMalformedEntry, i)
		}
		if len(level[0]) > maxPriceLen {
			return 0, fmt.Errorf("%w: ask %d: price longer than %d bytes", ErrMalformedEntry, i, maxPriceLen)
		}
		p, err := decimal.NewFromString(level[0])
		if err != nil {
			return 0, fmt.Errorf("%w: ask %d: %q is not a number", ErrMalformedEntry, i, level[0])
		}
		if exp := p.Exponent(); exp > maxPriceExponent || exp < -maxPriceExponent {
			return 0, fmt.Errorf("%w: ask %d: exponent %d out of range", ErrMalformedEntry, i, exp)
		}
		if p.IsNegative() {
			return 0, fmt.Errorf("%w: ask %d: negative price %s", ErrMalformedEntry, i, level[0])
		}
		sum = sum.Add(p)
	}

	mean, _ := sum.Div(decimal.NewFromInt(int64(len(book.Asks)))).Float64()
	if math.IsInf(mean, 0) || math.IsNaN(mean) {
		return 0, fmt.Errorf("%w: mean %s out of range", ErrMalformedEntry, sum.String())
	}
	return mean, nil
}
