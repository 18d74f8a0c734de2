package main

import (
	"context"
	"flag"
	"testing"

	"HoldCrypt/internal/model"

	"github.com/google/subcommands"
)

func TestParseCoins(t *testing.T) {
	coins, err := parseCoins([]string{"ETHAUD=Ethereum", "ADAAUD=Cardano"})
	if err != nil {
		t.Fatal(err)
	}
	want := []model.CoinRef{{Symbol: "ETHAUD", Name: "Ethereum"}, {Symbol: "ADAAUD", Name: "Cardano"}}
	if len(coins) != len(want) || coins[0] != want[0] || coins[1] != want[1] {
		t.Errorf("coins = %+v", coins)
	}

	for _, bad := range []string{"ETHAUD", "=Ethereum", "ETHAUD="} {
		if _, err := parseCoins([]string{bad}); err == nil {
			t.Errorf("expected error for %q", bad)
		}
	}
}

// flagsFor parses args the way the commander does for cmd.
func flagsFor(t *testing.T, cmd subcommands.Command, args ...string) *flag.FlagSet {
	t.Helper()
	f := flag.NewFlagSet(cmd.Name(), flag.ContinueOnError)
	cmd.SetFlags(f)
	if err := f.Parse(args); err != nil {
		t.Fatalf("parse %v: %v", args, err)
	}
	return f
}

func TestParseTx(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    model.TransactionRecord
		wantErr bool
	}{
		{"buy", []string{"alice", "ETHAUD", "1.5", "4000"}, model.TransactionRecord{Username: "alice", Coin: "ETHAUD", Amount: 1.5, Price: 4000}, false},
		{"negative amount", []string{"alice", "ETHAUD", "-2", "4100"}, model.TransactionRecord{Username: "alice", Coin: "ETHAUD", Amount: -2, Price: 4100}, false},
		{"too few", []string{"alice", "ETHAUD", "1"}, model.TransactionRecord{}, true},
		{"too many", []string{"alice", "ETHAUD", "1", "2", "3"}, model.TransactionRecord{}, true},
		{"bad amount", []string{"alice", "ETHAUD", "lots", "2"}, model.TransactionRecord{}, true},
		{"bad price", []string{"alice", "ETHAUD", "1", "cheap"}, model.TransactionRecord{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := flagsFor(t, &txCmd{}, tt.args...)
			got, err := parseTx(f.Args())
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %+v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestExecute_UsageErrors(t *testing.T) {
	tests := []struct {
		name string
		cmd  subcommands.Command
		args []string
	}{
		{"user without username", &userCmd{}, []string{"-first", "Alice"}},
		{"user with two usernames", &userCmd{}, []string{"alice", "bob"}},
		{"tx without args", &txCmd{}, nil},
		{"tx with bad amount", &txCmd{}, []string{"alice", "ETHAUD", "x", "1"}},
		{"holdings with two usernames", &holdingsCmd{}, []string{"alice", "bob"}},
		{"refresh with bad coin", &refreshCmd{}, []string{"ETHAUD"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := flagsFor(t, tt.cmd, tt.args...)
			if got := tt.cmd.Execute(context.Background(), f); got != subcommands.ExitUsageError {
				t.Errorf("status = %v, want ExitUsageError", got)
			}
		})
	}
}
