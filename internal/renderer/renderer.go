// Package renderer renders holdings, prices and refresh history as markdown
// for the terminal.
package renderer

import (
	"fmt"
	"sort"
	"strings"

	"HoldCrypt/internal/model"
	"HoldCrypt/internal/portfolio"
	"HoldCrypt/internal/recorder"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// Money formats amount in the given ISO 4217 currency, rounded to the
// currency's minor unit.
func Money(amount float64, currency string) string {
	return formatMoney(decimal.NewFromFloat(amount), currency)
}

func formatMoney(d decimal.Decimal, currency string) string {
	// money.New never returns a nil currency, unknown codes get a default one.
	cur := *money.New(0, currency).Currency()
	minor := d.Shift(int32(cur.Fraction)).Round(0)
	return cur.Formatter().Format(minor.IntPart())
}

// Quantity formats a coin amount without trailing zeros.
func Quantity(amount float64) string {
	return decimal.NewFromFloat(amount).String()
}

// HoldingsMarkdown renders one section per user with a total row.
func HoldingsMarkdown(users []portfolio.UserHoldings, currency string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Holdings\n\n")
	if len(users) == 0 {
		fmt.Fprintln(&b, "No users.")
		return b.String()
	}

	for _, uh := range users {
		p := uh.Profile
		name := strings.TrimSpace(p.FirstName + " " + p.LastName)
		if name != "" {
			fmt.Fprintf(&b, "## %s (%s)\n\n", p.Username, name)
		} else {
			fmt.Fprintf(&b, "## %s\n\n", p.Username)
		}

		if uh.Err != nil {
			fmt.Fprintf(&b, "> could not read account: %v\n\n", uh.Err)
			continue
		}
		if len(uh.Holdings) == 0 {
			fmt.Fprintf(&b, "No holdings.\n\n")
			continue
		}

		fmt.Fprintln(&b, "| Coin | Symbol | Amount | Price | Value |")
		fmt.Fprintln(&b, "|:---|:---|---:|---:|---:|")
		total := decimal.Zero
		for _, h := range uh.Holdings {
			value := decimal.NewFromFloat(h.Amount).Mul(decimal.NewFromFloat(h.Price))
			total = total.Add(value)
			fmt.Fprintf(&b, "| %s | %s | %s | %s | %s |\n",
				h.Name, h.Symbol, Quantity(h.Amount), Money(h.Price, currency), formatMoney(value, currency))
		}
		fmt.Fprintf(&b, "| **Total** | | | | **%s** |\n\n", formatMoney(total, currency))
	}
	return b.String()
}

// PricesMarkdown renders the snapshot sorted by symbol.
func PricesMarkdown(snap model.PriceSnapshot, currency string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Prices\n\n")
	if len(snap) == 0 {
		fmt.Fprintln(&b, "No prices yet.")
		return b.String()
	}

	symbols := make([]string, 0, len(snap))
	for s := range snap {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)

	fmt.Fprintln(&b, "| Symbol | Name | Price | Updated |")
	fmt.Fprintln(&b, "|:---|:---|---:|:---|")
	for _, s := range symbols {
		e := snap[s]
		updated := "-"
		if !e.UpdatedAt.IsZero() {
			updated = e.UpdatedAt.Format("2006-01-02 15:04:05")
		}
		fmt.Fprintf(&b, "| %s | %s | %s | %s |\n", s, e.Name, Money(e.Price, currency), updated)
	}
	return b.String()
}

// HistoryMarkdown renders refresh events in the given order.
func HistoryMarkdown(events []recorder.RefreshEvent, currency string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Refresh History\n\n")
	if len(events) == 0 {
		fmt.Fprintln(&b, "No refreshes recorded.")
		return b.String()
	}

	fmt.Fprintln(&b, "| Time | Symbol | Outcome | Price | Asks | Error |")
	fmt.Fprintln(&b, "|:---|:---|:---:|---:|---:|:---|")
	for _, e := range events {
		price := "-"
		if e.Outcome == recorder.OutcomeOK {
			price = Money(e.Price, currency)
		}
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %d | %s |\n",
			e.Time.Format("2006-01-02 15:04:05"), e.Symbol, e.Outcome, price, e.Asks,
			strings.ReplaceAll(e.Error, "|", `\|`))
	}
	return b.String()
}
