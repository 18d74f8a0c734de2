package notifier

import (
	"fmt"
	"html"
	"sort"
	"strings"
	"time"

	"HoldCrypt/internal/model"
	"HoldCrypt/internal/portfolio"
	"HoldCrypt/internal/pricing"
)

// FormatRefreshFailures formats the failed coins of a refresh run into an
// alert. It returns "" when nothing failed.
func FormatRefreshFailures(results []pricing.RefreshResult, at time.Time) string {
	failed := pricing.Failed(results)
	if len(failed) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("❌ <b>Price refresh failed</b> | %s\n\n", at.Format("2006-01-02 15:04")))
	for _, r := range failed {
		b.WriteString(fmt.Sprintf("• %s (%s): %s\n",
			html.EscapeString(r.Coin.Symbol), html.EscapeString(r.Coin.Name), html.EscapeString(r.Err.Error())))
	}
	b.WriteString(fmt.Sprintf("\n%d of %d coins refreshed", len(results)-len(failed), len(results)))
	return b.String()
}

// FormatPrices formats the snapshot sorted by symbol.
func FormatPrices(snap model.PriceSnapshot, broken map[string]error) string {
	if len(snap) == 0 && len(broken) == 0 {
		return "No prices yet."
	}
	symbols := make([]string, 0, len(snap))
	for s := range snap {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)

	var b strings.Builder
	b.WriteString("💱 <b>Prices</b>\n\n")
	for _, s := range symbols {
		e := snap[s]
		b.WriteString(fmt.Sprintf("%s (%s): %.2f\n", html.EscapeString(s), html.EscapeString(e.Name), e.Price))
	}
	if len(broken) > 0 {
		bad := make([]string, 0, len(broken))
		for s := range broken {
			bad = append(bad, html.EscapeString(s))
		}
		sort.Strings(bad)
		b.WriteString(fmt.Sprintf("\n⚠️ unreadable: %s\n", strings.Join(bad, ", ")))
	}
	return b.String()
}

// FormatHoldings formats one user's holdings with their total value.
func FormatHoldings(uh portfolio.UserHoldings) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📦 <b>%s</b>\n\n", html.EscapeString(uh.Profile.Username)))
	if len(uh.Holdings) == 0 {
		b.WriteString("No holdings.")
		return b.String()
	}
	for _, h := range uh.Holdings {
		b.WriteString(fmt.Sprintf("%s: %g × %.2f = %.2f\n",
			html.EscapeString(h.Name), h.Amount, h.Price, h.Value()))
	}
	b.WriteString(fmt.Sprintf("\nTotal: %.2f", uh.Holdings.Total()))
	return b.String()
}
