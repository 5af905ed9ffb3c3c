package dashboard

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"PriceLens/internal/calculator"
	"PriceLens/internal/model"
)

// ErrInvalidRequest marks input validation failures.
var ErrInvalidRequest = errors.New("invalid request")

// Threshold bounds offered by the dashboard, in percent.
var (
	MinThreshold     = decimal.RequireFromString("0.01")
	MaxThreshold     = decimal.RequireFromString("10")
	DefaultThreshold = decimal.RequireFromString("0.1")
)

// Request is one "Fetch Data" action.
type Request struct {
	Ticker     string          `json:"ticker"`
	Start      time.Time       `json:"start"`
	End        time.Time       `json:"end"`
	SMAWindows []int           `json:"sma_windows,omitempty"`
	Compare    []string        `json:"compare,omitempty"`
	Ticker1    string          `json:"ticker1,omitempty"`
	Ticker2    string          `json:"ticker2,omitempty"`
	Threshold  decimal.Decimal `json:"threshold"`
}

// NormalizeTicker upper-cases and trims a ticker symbol.
func NormalizeTicker(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// ParseTickers splits a comma-separated list, dropping blanks and duplicates.
func ParseTickers(s string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, part := range strings.Split(s, ",") {
		t := NormalizeTicker(part)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

// DefaultRange is the last 365 days ending today (exclusive of tomorrow).
func DefaultRange(now time.Time) model.DateRange {
	end := model.TradingDate(now).AddDate(0, 0, 1)
	return model.DateRange{Start: end.AddDate(0, 0, -366), End: end}
}

// ResolveRange fills zero dates from DefaultRange and checks ordering.
func ResolveRange(start, end, now time.Time) (model.DateRange, error) {
	def := DefaultRange(now)
	r := model.DateRange{Start: model.TradingDate(start), End: model.TradingDate(end)}
	if start.IsZero() {
		r.Start = def.Start
	}
	if end.IsZero() {
		r.End = def.End
	}
	if !r.Start.Before(r.End) {
		return r, fmt.Errorf("%w: start %s must be before end %s", ErrInvalidRequest,
			r.Start.Format(model.DateLayout), r.End.Format(model.DateLayout))
	}
	return r, nil
}

// ResolveThreshold applies the default and dashboard bounds.
func ResolveThreshold(t decimal.Decimal) (decimal.Decimal, error) {
	if t.IsZero() {
		return DefaultThreshold, nil
	}
	if t.LessThan(MinThreshold) || t.GreaterThan(MaxThreshold) {
		return t, fmt.Errorf("%w: threshold %s outside [%s, %s]", ErrInvalidRequest, t, MinThreshold, MaxThreshold)
	}
	return t, nil
}

// Normalize cleans tickers and fills defaults. The receiver is not modified.
func (r Request) Normalize(now time.Time) (Request, model.DateRange, error) {
	out := r
	out.Ticker = NormalizeTicker(r.Ticker)
	out.Ticker1 = NormalizeTicker(r.Ticker1)
	out.Ticker2 = NormalizeTicker(r.Ticker2)
	out.Compare = ParseTickers(strings.Join(r.Compare, ","))
	if len(out.SMAWindows) == 0 {
		out.SMAWindows = calculator.DefaultSMAWindows
	}
	for _, w := range out.SMAWindows {
		if w <= 0 {
			return out, model.DateRange{}, fmt.Errorf("%w: sma window %d", ErrInvalidRequest, w)
		}
	}

	rng, err := ResolveRange(r.Start, r.End, now)
	if err != nil {
		return out, rng, err
	}
	out.Start, out.End = rng.Start, rng.End

	if out.Ticker == "" && out.Ticker1 == "" && out.Ticker2 == "" {
		return out, rng, fmt.Errorf("%w: a ticker is required", ErrInvalidRequest)
	}
	if out.Ticker1 != "" || out.Ticker2 != "" {
		th, err := ResolveThreshold(r.Threshold)
		if err != nil {
			return out, rng, err
		}
		out.Threshold = th
	}
	return out, rng, nil
}
