package notifier

import (
	"fmt"
	"html"
	"math"
	"strings"
	"time"

	"StockDog/internal/dashboard"
	"StockDog/internal/quotesync"

	"github.com/dustin/go-humanize"
)

// Money renders v as a dollar amount with thousands separators.
func Money(v float64) string {
	sign := ""
	if v < 0 {
		sign = "-"
	}
	return sign + "$" + humanize.FormatFloat("#,###.##", math.Abs(v))
}

// SignedMoney is Money with an explicit leading sign.
func SignedMoney(v float64) string {
	if v >= 0 {
		return "+" + Money(v)
	}
	return Money(v)
}

func arrow(v float64) string {
	if v < 0 {
		return "🔻"
	}
	return "🔺"
}

// FormatSyncFailure is sent when quote updates start failing.
func FormatSyncFailure(err error, at time.Time) string {
	var b strings.Builder
	b.WriteString("⚠️ <b>StockDog</b> | quote updates failing\n\n")
	b.WriteString(fmt.Sprintf("Since: %s\n", at.Format("2006-01-02 15:04:05")))
	b.WriteString(fmt.Sprintf("Error: %s\n", html.EscapeString(err.Error())))
	b.WriteString("Prices are frozen at their last known values.\n")
	return b.String()
}

// FormatRecovery is sent on the first successful update after failures.
func FormatRecovery(at time.Time) string {
	return fmt.Sprintf("✅ <b>StockDog</b> | quote updates recovered at %s\n", at.Format("15:04:05"))
}

// FormatOverview formats the portfolio digest.
func FormatOverview(o dashboard.Overview, at time.Time) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📊 <b>StockDog portfolio</b> | %s\n\n", at.Format("2006-01-02")))
	if len(o.Watchlists) == 0 {
		b.WriteString("No watchlists yet.\n")
		return b.String()
	}
	b.WriteString(fmt.Sprintf("Market value: %s\n", Money(o.MarketValue)))
	b.WriteString(fmt.Sprintf("Day change: %s %s\n", SignedMoney(o.DayChange), arrow(o.DayChange)))
	b.WriteString(fmt.Sprintf("Holdings: %d | Shares: %s\n\n", o.Holdings, humanize.FormatFloat("#,###.##", o.Shares)))
	for _, w := range o.Watchlists {
		b.WriteString(fmt.Sprintf("%s <b>%s</b>: %s (%s)\n",
			arrow(w.DayChange), html.EscapeString(w.Name), Money(w.MarketValue), SignedMoney(w.DayChange)))
	}
	return b.String()
}

// FormatStatus describes the sync engine for the /status command.
func FormatStatus(state quotesync.State, provider string, symbols int, last quotesync.Result) string {
	var b strings.Builder
	b.WriteString("🛰 <b>StockDog status</b>\n\n")
	b.WriteString(fmt.Sprintf("Provider: %s\n", provider))
	b.WriteString(fmt.Sprintf("Engine: %s\n", state))
	b.WriteString(fmt.Sprintf("Tracked symbols: %d\n", symbols))
	if last.At.IsZero() {
		b.WriteString("Last cycle: never\n")
		return b.String()
	}
	b.WriteString(fmt.Sprintf("Last cycle: %s (%s, %s)\n", last.Status, last.Trigger, humanize.Time(last.At)))
	if last.Status == quotesync.StatusApplied {
		b.WriteString(fmt.Sprintf("Applied: %d of %d quotes\n", last.Applied, last.Received))
	}
	if last.Err != nil {
		b.WriteString(fmt.Sprintf("Error: %s\n", html.EscapeString(last.Err.Error())))
	}
	return b.String()
}

// FormatRefresh is the reply to /refresh.
func FormatRefresh(res quotesync.Result) string {
	switch res.Status {
	case quotesync.StatusApplied:
		return fmt.Sprintf("🔄 Refreshed %d holdings from %d quotes.", res.Applied, res.Received)
	case quotesync.StatusEmpty:
		return "Nothing to refresh: no symbols are being tracked."
	case quotesync.StatusBusy:
		return "A refresh is already running."
	case quotesync.StatusNoData:
		return "The quote provider returned no data."
	default:
		msg := "unknown error"
		if res.Err != nil {
			msg = res.Err.Error()
		}
		return "❌ Refresh failed: " + html.EscapeString(msg)
	}
}
