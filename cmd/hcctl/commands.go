package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"HoldCrypt/internal/ledger"
	"HoldCrypt/internal/model"
	"HoldCrypt/internal/portfolio"
	"HoldCrypt/internal/pricing"
	"HoldCrypt/internal/renderer"

	"github.com/google/subcommands"
)

// withApp opens the app, runs fn and maps its error to an exit status.
func withApp(fn func(a *app) error) subcommands.ExitStatus {
	a, err := openApp()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	if err := fn(a); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

type userCmd struct {
	first string
	last  string
}

func (*userCmd) Name() string     { return "user" }
func (*userCmd) Synopsis() string { return "create a user, or rename an existing one" }
func (*userCmd) Usage() string {
	return `hcctl user [-first <name>] [-last <name>] <username>

  Creates the user with an empty ledger. If the user exists only the names
  are updated; the ledger is kept.
`
}

func (c *userCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.first, "first", "", "First name.")
	f.StringVar(&c.last, "last", "", "Last name.")
}

func (c *userCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "expected exactly one username")
		return subcommands.ExitUsageError
	}
	return withApp(func(a *app) error {
		created, err := a.ledger.PutUser(ctx, model.UserProfile{Username: f.Arg(0), FirstName: c.first, LastName: c.last})
		if err != nil {
			return err
		}
		if created {
			fmt.Printf("created user %s\n", f.Arg(0))
		} else {
			fmt.Printf("updated user %s\n", f.Arg(0))
		}
		return nil
	})
}

type txCmd struct{}

func (*txCmd) Name() string     { return "tx" }
func (*txCmd) Synopsis() string { return "append a transaction to a user's ledger" }
func (*txCmd) Usage() string {
	return `hcctl tx <username> <coin> <amount> <price>

  Appends one record. A negative amount is a disposal. The user must exist.
`
}

func (*txCmd) SetFlags(*flag.FlagSet) {}

func (*txCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	rec, err := parseTx(f.Args())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitUsageError
	}

	return withApp(func(a *app) error {
		stored, err := a.ledger.Append(ctx, rec)
		if errors.Is(err, ledger.ErrOwnerNotFound) {
			return fmt.Errorf("user %s does not exist, create it with `hcctl user`", rec.Username)
		}
		if err != nil {
			return err
		}
		fmt.Printf("appended %s\n", stored.ID)
		return nil
	})
}

// parseTx parses <username> <coin> <amount> <price>.
func parseTx(args []string) (model.TransactionRecord, error) {
	if len(args) != 4 {
		return model.TransactionRecord{}, errors.New("expected <username> <coin> <amount> <price>")
	}
	amount, err := strconv.ParseFloat(args[2], 64)
	if err != nil {
		return model.TransactionRecord{}, fmt.Errorf("invalid amount %q: %w", args[2], err)
	}
	price, err := strconv.ParseFloat(args[3], 64)
	if err != nil {
		return model.TransactionRecord{}, fmt.Errorf("invalid price %q: %w", args[3], err)
	}
	return model.TransactionRecord{Username: args[0], Coin: args[1], Amount: amount, Price: price}, nil
}

type refreshCmd struct{}

func (*refreshCmd) Name() string     { return "refresh" }
func (*refreshCmd) Synopsis() string { return "refresh snapshot prices from the market" }
func (*refreshCmd) Usage() string {
	return `hcctl refresh [<SYMBOL>=<Name> ...]

  Refreshes the given coins, or every coin in refresh.coins when none are
  given. Each coin is refreshed independently.
`
}

func (*refreshCmd) SetFlags(*flag.FlagSet) {}

func (*refreshCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	coins, err := parseCoins(f.Args())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitUsageError
	}

	return withApp(func(a *app) error {
		if len(coins) == 0 {
			coins = a.cfg.Refresh.Coins
		}
		if len(coins) == 0 {
			return errors.New("no coins given and refresh.coins is empty")
		}
		results := a.pricing.RefreshBatch(ctx, coins)
		for _, r := range results {
			switch {
			case r.Err == nil:
				fmt.Printf("%s\t%s\n", r.Coin.Symbol, renderer.Money(r.Entry.Price, a.cfg.Display.Currency))
			default:
				fmt.Printf("%s\t%v\n", r.Coin.Symbol, r.Err)
			}
		}
		if failed := pricing.Failed(results); len(failed) > 0 {
			return fmt.Errorf("%d of %d coins failed", len(failed), len(results))
		}
		return nil
	})
}

// parseCoins parses SYMBOL=Name arguments.
func parseCoins(args []string) ([]model.CoinRef, error) {
	coins := make([]model.CoinRef, 0, len(args))
	for _, arg := range args {
		symbol, name, ok := strings.Cut(arg, "=")
		if !ok || symbol == "" || name == "" {
			return nil, fmt.Errorf("invalid coin %q, expected SYMBOL=Name", arg)
		}
		coins = append(coins, model.CoinRef{Symbol: symbol, Name: name})
	}
	return coins, nil
}

type pricesCmd struct{}

func (*pricesCmd) Name() string     { return "prices" }
func (*pricesCmd) Synopsis() string { return "display the price snapshot" }
func (*pricesCmd) Usage() string {
	return `hcctl prices

  Prints the latest price of every coin.
`
}

func (*pricesCmd) SetFlags(*flag.FlagSet) {}

func (*pricesCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return withApp(func(a *app) error {
		snap, broken, err := a.snapshot.All(ctx)
		if err != nil {
			return err
		}
		fmt.Print(renderer.PricesMarkdown(snap, a.cfg.Display.Currency))
		for symbol, cause := range broken {
			fmt.Fprintf(os.Stderr, "%s: %v\n", symbol, cause)
		}
		if len(broken) > 0 {
			return fmt.Errorf("%d price entries could not be read", len(broken))
		}
		return nil
	})
}

type holdingsCmd struct{}

func (*holdingsCmd) Name() string     { return "holdings" }
func (*holdingsCmd) Synopsis() string { return "display valued holdings" }
func (*holdingsCmd) Usage() string {
	return `hcctl holdings [<username>]

  Values one user's ledger, or every user's, against the latest prices.
  Coins without a price are not shown.
`
}

func (*holdingsCmd) SetFlags(*flag.FlagSet) {}

func (*holdingsCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() > 1 {
		fmt.Fprintln(os.Stderr, "expected at most one username")
		return subcommands.ExitUsageError
	}
	return withApp(func(a *app) error {
		var users []portfolio.UserHoldings
		if f.NArg() == 1 {
			uh, err := a.agg.ComputeUser(ctx, f.Arg(0))
			if err != nil {
				return err
			}
			users = append(users, uh)
		} else {
			all, err := a.agg.ComputeAllHoldings(ctx)
			if err != nil {
				return err
			}
			users = all
		}
		fmt.Print(renderer.HoldingsMarkdown(users, a.cfg.Display.Currency))
		return nil
	})
}

type historyCmd struct {
	symbol string
	limit  int
}

func (*historyCmd) Name() string     { return "history" }
func (*historyCmd) Synopsis() string { return "display recent price refreshes" }
func (*historyCmd) Usage() string {
	return `hcctl history [-symbol <SYMBOL>] [-n <count>]

  Prints the most recent refresh attempts, newest first.
`
}

func (c *historyCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.symbol, "symbol", "", "Only show this symbol.")
	f.IntVar(&c.limit, "n", 20, "Number of events to show.")
}

func (c *historyCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return withApp(func(a *app) error {
		events, err := a.recorder.Recent(c.symbol, c.limit)
		if err != nil {
			return err
		}
		fmt.Print(renderer.HistoryMarkdown(events, a.cfg.Display.Currency))
		return nil
	})
}
