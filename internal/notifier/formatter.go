package notifier

import (
	"fmt"
	"html"
	"strings"
	"time"

	"PriceLens/internal/config"
	"PriceLens/internal/dashboard"
	"PriceLens/internal/model"
)

// FormatScanHeader opens a watchlist report.
func FormatScanHeader(now time.Time, rng model.DateRange) string {
	start, end := rng.Key()
	return fmt.Sprintf("📊 <b>PriceLens watchlist</b> | %s\nWindow: %s → %s\n",
		now.Format("2006-01-02 15:04"), start, end)
}

// FormatArbitrageReport renders one pair's spread summary as Telegram HTML.
func FormatArbitrageReport(arb *dashboard.Arbitrage) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("\n<b>%s / %s</b>", html.EscapeString(arb.Ticker1), html.EscapeString(arb.Ticker2)))
	if arb.Currency1 != "" || arb.Currency2 != "" {
		b.WriteString(fmt.Sprintf(" (%s / %s)", arb.Currency1, arb.Currency2))
	}
	b.WriteString("\n")

	if arb.Error != "" {
		b.WriteString(fmt.Sprintf("❌ %s\n", html.EscapeString(arb.Error)))
		return b.String()
	}

	s := arb.Summary
	if s == nil {
		b.WriteString("No spread data.\n")
		return b.String()
	}
	b.WriteString(fmt.Sprintf("Opportunities: %d of %d days (≥ %s%%)\n",
		s.OpportunityCount, s.TotalDays, arb.Threshold.String()))
	b.WriteString(fmt.Sprintf("Latest spread: %+.4f%%\n", s.LatestSpreadPct))
	b.WriteString(fmt.Sprintf("Avg: %+.4f%% | Max: %+.4f%% | Min: %+.4f%%\n",
		s.MeanSpreadPct, s.MaxSpreadPct, s.MinSpreadPct))

	if n := len(arb.Opportunities); n > 0 {
		last := arb.Opportunities[n-1]
		b.WriteString(fmt.Sprintf("Last opportunity: %s at %s%%\n",
			last.Date.Format(model.DateLayout), last.SpreadPct.Round(4).String()))
	}
	for _, w := range arb.Warnings {
		b.WriteString(fmt.Sprintf("⚠️ %s\n", html.EscapeString(w)))
	}
	return b.String()
}

// FormatPairs lists the watched pairs.
func FormatPairs(pairs []config.Pair) string {
	if len(pairs) == 0 {
		return "No watchlist pairs configured."
	}
	var b strings.Builder
	b.WriteString("👀 <b>Watchlist</b>\n")
	for _, p := range pairs {
		b.WriteString(fmt.Sprintf("• %s / %s\n", html.EscapeString(p.Ticker1), html.EscapeString(p.Ticker2)))
	}
	return b.String()
}

// HelpText lists the chat commands.
const HelpText = "Available commands:\n• /scan run the watchlist now\n• /pairs list watched pairs"
