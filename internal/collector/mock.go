package collector

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"
	"sync"
	"time"

	"PriceLens/internal/model"
)

// MockFetcher returns controllable fixed data for development and testing.
// Symbols present in Bars return exactly those bars (filtered to the range).
// Other symbols get a generated walk around Price, or ErrNoData when Price is 0.
type MockFetcher struct {
	Price      float64
	Bars       map[string][]model.OHLCV
	Currencies map[string]string
	Errors     map[string]error

	mu    sync.Mutex
	calls map[string]int
}

func (m *MockFetcher) Name() string { return "mock" }

// Calls returns how many fetches were made for symbol.
func (m *MockFetcher) Calls(symbol string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[symbol]
}

func (m *MockFetcher) record(symbol string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.calls == nil {
		m.calls = make(map[string]int)
	}
	m.calls[symbol]++
}

func (m *MockFetcher) FetchDailyBars(_ context.Context, symbol string, start, end time.Time) ([]model.OHLCV, error) {
	m.record(symbol)
	if err, ok := m.Errors[symbol]; ok {
		return nil, err
	}
	if bars, ok := m.Bars[symbol]; ok {
		out := make([]model.OHLCV, 0, len(bars))
		for _, b := range bars {
			if !b.Time.Before(model.TradingDate(start)) && b.Time.Before(model.TradingDate(end)) {
				out = append(out, b)
			}
		}
		if len(out) == 0 {
			return nil, fmt.Errorf("mock %s: %w", symbol, ErrNoData)
		}
		return out, nil
	}
	if m.Price == 0 {
		return nil, fmt.Errorf("mock %s: %w", symbol, ErrNoData)
	}
	base := m.Price
	if strings.HasSuffix(symbol, "USD=X") {
		base = 1
	}
	bars := generateMockBars(symbol, base, start, end)
	if len(bars) == 0 {
		return nil, fmt.Errorf("mock %s: %w", symbol, ErrNoData)
	}
	return bars, nil
}

func (m *MockFetcher) FetchCurrency(_ context.Context, symbol string) (string, error) {
	m.record("currency:" + symbol)
	if err, ok := m.Errors["currency:"+symbol]; ok {
		return "", err
	}
	if cur, ok := m.Currencies[symbol]; ok {
		return cur, nil
	}
	return model.USD, nil
}

// generateMockBars produces one bar per weekday in [start, end), seeded by
// symbol so two listings of the same base price drift apart slightly.
func generateMockBars(symbol string, basePrice float64, start, end time.Time) []model.OHLCV {
	h := fnv.New32a()
	h.Write([]byte(symbol))
	seed := float64(h.Sum32()%1000) / 1000

	var bars []model.OHLCV
	i := 0
	for d := model.TradingDate(start); d.Before(model.TradingDate(end)); d = d.AddDate(0, 0, 1) {
		if wd := d.Weekday(); wd == time.Saturday || wd == time.Sunday {
			continue
		}
		p := basePrice * (1 + float64(i%20-10)*0.001 + seed*0.002)
		bars = append(bars, model.OHLCV{
			Time:   d,
			Open:   p * 0.999,
			High:   p * 1.005,
			Low:    p * 0.995,
			Close:  p,
			Volume: 1000000,
		})
		i++
	}
	return bars
}
