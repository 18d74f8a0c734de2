package notifier

import (
	"errors"
	"strings"
	"testing"
	"time"

	"HoldCrypt/internal/model"
	"HoldCrypt/internal/portfolio"
	"HoldCrypt/internal/pricing"
)

func TestFormatRefreshFailures(t *testing.T) {
	at := time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)
	results := []pricing.RefreshResult{
		{Coin: model.CoinRef{Name: "Ethereum", Symbol: "ETHAUD"}},
		{Coin: model.CoinRef{Name: "Cardano", Symbol: "ADAAUD"}, Err: &pricing.RefreshError{Symbol: "ADAAUD", Err: pricing.ErrEmptyBook}},
		{Coin: model.CoinRef{Name: "Bitcoin", Symbol: "BTCAUD"}, Err: &pricing.RefreshError{Symbol: "BTCAUD", Err: pricing.ErrStaleSnapshot}},
	}

	msg := FormatRefreshFailures(results, at)
	for _, want := range []string{"2024-05-01 09:30", "ADAAUD (Cardano)", "empty order book", "2 of 3 coins refreshed"} {
		if !strings.Contains(msg, want) {
			t.Errorf("message missing %q:\n%s", want, msg)
		}
	}
	if strings.Contains(msg, "BTCAUD") {
		t.Errorf("stale refreshes should not be reported:\n%s", msg)
	}

	if got := FormatRefreshFailures(results[:1], at); got != "" {
		t.Errorf("expected no alert, got %q", got)
	}
}

func TestFormatRefreshFailures_EscapesHTML(t *testing.T) {
	results := []pricing.RefreshResult{
		{Coin: model.CoinRef{Name: "<Bad>", Symbol: "X"}, Err: errors.New("status 500, body: <html>")},
	}
	msg := FormatRefreshFailures(results, time.Now())
	if strings.Contains(msg, "<html>") || !strings.Contains(msg, "&lt;Bad&gt;") {
		t.Errorf("unescaped message:\n%s", msg)
	}
}

func TestFormatPrices(t *testing.T) {
	if got := FormatPrices(nil, nil); got != "No prices yet." {
		t.Errorf("empty = %q", got)
	}
	msg := FormatPrices(model.PriceSnapshot{
		"ETHAUD": {Symbol: "ETHAUD", Name: "Ethereum", Price: 4500.129},
		"ADAAUD": {Symbol: "ADAAUD", Name: "Cardano", Price: 0.7},
	}, nil)
	ada, eth := strings.Index(msg, "ADAAUD"), strings.Index(msg, "ETHAUD")
	if ada < 0 || eth < 0 || ada > eth {
		t.Errorf("expected sorted symbols:\n%s", msg)
	}
	if !strings.Contains(msg, "4500.13") {
		t.Errorf("price not rounded:\n%s", msg)
	}
	if strings.Contains(msg, "unreadable") {
		t.Errorf("unexpected unreadable line:\n%s", msg)
	}

	msg = FormatPrices(model.PriceSnapshot{
		"ETHAUD": {Symbol: "ETHAUD", Name: "Ethereum", Price: 1},
	}, map[string]error{"XYZ": errors.New("bad price")})
	if !strings.Contains(msg, "ETHAUD") || !strings.Contains(msg, "unreadable: XYZ") {
		t.Errorf("broken entry not reported:\n%s", msg)
	}
}

func TestFormatHoldings(t *testing.T) {
	uh := portfolio.UserHoldings{
		Profile: model.UserProfile{Username: "aria"},
		Holdings: model.HoldingsView{
			{Symbol: "ETHAUD", Name: "Ethereum", Price: 4000, Amount: 0.5},
			{Symbol: "ADAAUD", Name: "Cardano", Price: 0.5, Amount: 100},
		},
	}
	msg := FormatHoldings(uh)
	for _, want := range []string{"aria", "Ethereum: 0.5 × 4000.00 = 2000.00", "Total: 2050.00"} {
		if !strings.Contains(msg, want) {
			t.Errorf("message missing %q:\n%s", want, msg)
		}
	}

	empty := FormatHoldings(portfolio.UserHoldings{Profile: model.UserProfile{Username: "newbie"}})
	if !strings.Contains(empty, "No holdings.") {
		t.Errorf("empty = %q", empty)
	}
}
