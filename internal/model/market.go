package model

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the wire and map-key format for trading dates.
const DateLayout = "2006-01-02"

// OHLCV represents a single daily bar. Time is the trading date at 00:00 UTC.
type OHLCV struct {
	Time   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// PricePoint is one dated value of a series.
type PricePoint struct {
	Date  time.Time       `json:"date"`
	Value decimal.Decimal `json:"value"`
}

// PriceSeries is a date-ordered close series quoted in Currency.
type PriceSeries struct {
	Symbol   string       `json:"symbol"`
	Currency string       `json:"currency"`
	Points   []PricePoint `json:"points"`
}

// TradingDate truncates t to its calendar date in UTC.
func TradingDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Closes builds a close-price series from daily bars.
func Closes(symbol, currency string, bars []OHLCV) PriceSeries {
	s := PriceSeries{Symbol: symbol, Currency: currency, Points: make([]PricePoint, 0, len(bars))}
	for _, b := range bars {
		s.Points = append(s.Points, PricePoint{Date: TradingDate(b.Time), Value: decimal.NewFromFloat(b.Close)})
	}
	s.Sort()
	return s
}

// Len returns the number of points.
func (s PriceSeries) Len() int { return len(s.Points) }

// Empty reports whether the series has no points.
func (s PriceSeries) Empty() bool { return len(s.Points) == 0 }

// Sort orders points ascending by date.
func (s PriceSeries) Sort() {
	sort.SliceStable(s.Points, func(i, j int) bool { return s.Points[i].Date.Before(s.Points[j].Date) })
}

// Index maps DateLayout-formatted dates to values.
func (s PriceSeries) Index() map[string]decimal.Decimal {
	idx := make(map[string]decimal.Decimal, len(s.Points))
	for _, p := range s.Points {
		idx[p.Date.Format(DateLayout)] = p.Value
	}
	return idx
}

// Latest returns the most recent point.
func (s PriceSeries) Latest() (PricePoint, bool) {
	if len(s.Points) == 0 {
		return PricePoint{}, false
	}
	return s.Points[len(s.Points)-1], true
}

// DateRange is a half-open [Start, End) window of trading dates.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Key returns a stable string form usable in cache keys and filenames.
func (r DateRange) Key() (start, end string) {
	return r.Start.Format(DateLayout), r.End.Format(DateLayout)
}
