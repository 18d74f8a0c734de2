// Package portfolio values users' ledgers against the price snapshot.
package portfolio

import (
	"context"
	"fmt"

	"HoldCrypt/internal/ledger"
	"HoldCrypt/internal/model"

	"github.com/rs/zerolog"
)

// ErrUserNotFound is returned when the requested user has no profile.
var ErrUserNotFound = ledger.ErrUserNotFound

// PartialFailure marks one user in a batch whose holdings could not be
// computed. Other users in the batch are unaffected.
type PartialFailure struct {
	Username string
	Cause    error
}

func (e *PartialFailure) Error() string {
	return fmt.Sprintf("holdings for %s: %v", e.Username, e.Cause)
}

func (e *PartialFailure) Unwrap() error { return e.Cause }

// AccountReader reads ledgers.
type AccountReader interface {
	Account(ctx context.Context, username string) (model.Account, error)
	Scan(ctx context.Context) ([]ledger.ScannedAccount, error)
}

// PriceReader reads the whole price snapshot. Entries that could not be
// decoded are returned in broken, keyed by coin symbol.
type PriceReader interface {
	All(ctx context.Context) (model.PriceSnapshot, map[string]error, error)
}

// UserHoldings is one user's valued holdings. Err is a *PartialFailure in
// batch results when the user's ledger could not be read, or when the user
// holds a coin whose price entry is malformed.
type UserHoldings struct {
	Profile  model.UserProfile
	Holdings model.HoldingsView
	Err      error
}

// Aggregator computes holdings views on demand. Nothing is cached.
type Aggregator struct {
	accounts AccountReader
	prices   PriceReader
	log      zerolog.Logger
}

// NewAggregator creates a new Aggregator.
func NewAggregator(accounts AccountReader, prices PriceReader, log zerolog.Logger) *Aggregator {
	return &Aggregator{accounts: accounts, prices: prices, log: log}
}

// ComputeHoldings returns the holdings of one user.
func (a *Aggregator) ComputeHoldings(ctx context.Context, username string) (model.HoldingsView, error) {
	uh, err := a.ComputeUser(ctx, username)
	if err != nil {
		return nil, err
	}
	return uh.Holdings, nil
}

// ComputeUser returns the profile and holdings of one user. It fails with a
// *PartialFailure when the user holds a coin whose price entry is malformed.
func (a *Aggregator) ComputeUser(ctx context.Context, username string) (UserHoldings, error) {
	acc, err := a.accounts.Account(ctx, username)
	if err != nil {
		return UserHoldings{}, fmt.Errorf("read ledger: %w", err)
	}
	prices, broken, err := a.readPrices(ctx)
	if err != nil {
		return UserHoldings{}, err
	}
	if cause := heldBroken(acc.Ledger, broken); cause != nil {
		return UserHoldings{}, &PartialFailure{Username: username, Cause: cause}
	}
	return UserHoldings{
		Profile:  acc.UserProfile,
		Holdings: Aggregate(acc.Ledger, prices),
	}, nil
}

// ComputeAllHoldings reads every user and the price snapshot once each and
// values every ledger in memory. A user whose document cannot be decoded, or
// who holds a coin with a malformed price entry, is returned with a
// *PartialFailure; a failed scan fails the whole call.
func (a *Aggregator) ComputeAllHoldings(ctx context.Context) ([]UserHoldings, error) {
	accounts, err := a.accounts.Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("scan ledgers: %w", err)
	}
	prices, broken, err := a.readPrices(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]UserHoldings, 0, len(accounts))
	for _, sa := range accounts {
		if sa.Err != nil {
			a.log.Warn().Str("username", sa.Key).Err(sa.Err).Msg("skipping malformed account")
			out = append(out, UserHoldings{
				Profile: model.UserProfile{Username: sa.Key},
				Err:     &PartialFailure{Username: sa.Key, Cause: sa.Err},
			})
			continue
		}
		if cause := heldBroken(sa.Account.Ledger, broken); cause != nil {
			out = append(out, UserHoldings{
				Profile: sa.Account.UserProfile,
				Err:     &PartialFailure{Username: sa.Key, Cause: cause},
			})
			continue
		}
		out = append(out, UserHoldings{
			Profile:  sa.Account.UserProfile,
			Holdings: Aggregate(sa.Account.Ledger, prices),
		})
	}
	return out, nil
}

func (a *Aggregator) readPrices(ctx context.Context) (model.PriceSnapshot, map[string]error, error) {
	prices, broken, err := a.prices.All(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("read prices: %w", err)
	}
	for symbol, cause := range broken {
		a.log.Warn().Str("symbol", symbol).Err(cause).Msg("malformed price entry")
	}
	return prices, broken, nil
}

// heldBroken returns the decode error of the first coin, in ledger order,
// that txs hold a non-zero balance of and whose price entry is broken.
func heldBroken(txs []model.TransactionRecord, broken map[string]error) error {
	if len(broken) == 0 {
		return nil
	}
	order, sums := balances(txs)
	for _, coin := range order {
		if sums[coin] == 0 {
			continue
		}
		if cause, ok := broken[coin]; ok {
			return cause
		}
	}
	return nil
}

// balances sums amounts per coin in ledger order. order lists each coin once,
// by first appearance.
func balances(txs []model.TransactionRecord) (order []string, sums map[string]float64) {
	sums = make(map[string]float64)
	for _, tx := range txs {
		if _, seen := sums[tx.Coin]; !seen {
			order = append(order, tx.Coin)
		}
		sums[tx.Coin] += tx.Amount
	}
	return order, sums
}

// Aggregate groups txs by coin, sums amounts in ledger order and joins the
// non-zero balances against prices. Coins whose sum is exactly zero, and
// coins with no snapshot entry, are left out. The result is ordered by each
// coin's first appearance in txs.
func Aggregate(txs []model.TransactionRecord, prices model.PriceSnapshot) model.HoldingsView {
	order, sums := balances(txs)

	view := model.HoldingsView{}
	for _, coin := range order {
		amount := sums[coin]
		if amount == 0 {
			continue
		}
		entry, ok := prices[coin]
		if !ok {
			continue
		}
		view = append(view, model.Holding{
			Symbol: coin,
			Name:   entry.Name,
			Price:  entry.Price,
			Amount: amount,
		})
	}
	return view
}
