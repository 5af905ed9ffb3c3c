package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PriceLens/internal/cache"
	"PriceLens/internal/collector"
	"PriceLens/internal/config"
	"PriceLens/internal/currency"
	"PriceLens/internal/dashboard"
	"PriceLens/internal/logger"
	"PriceLens/internal/model"
	"PriceLens/internal/notifier"
)

type recordingSender struct {
	mu   sync.Mutex
	sent []string
	err  error
}

func (r *recordingSender) SendWithRetry(_ context.Context, text string, _ int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, text)
	return r.err
}

func bar(d int, close float64) model.OHLCV {
	return model.OHLCV{Time: time.Date(2024, 3, d, 0, 0, 0, 0, time.UTC), Close: close, High: close, Low: close, Open: close}
}

func newTestScheduler(t *testing.T, pairs []config.Pair, sender Sender) (*Scheduler, *cache.Cache) {
	t.Helper()
	mf := &collector.MockFetcher{
		Bars: map[string][]model.OHLCV{
			"RIO":      {bar(4, 100), bar(5, 101)},
			"RIO.L":    {bar(4, 7800), bar(5, 7900)},
			"GBPUSD=X": {bar(4, 1.27), bar(5, 1.28)},
		},
		Currencies: map[string]string{"RIO.L": "GBp"},
	}
	log := logger.Discard()
	c := cache.New(time.Minute)
	col := collector.NewCollector(mf, collector.Options{Cache: c, Logger: log})
	svc := dashboard.NewService(col, currency.NewNormalizer(col, nil, log), nil, log).
		WithClock(func() time.Time { return time.Date(2024, 3, 6, 22, 30, 0, 0, time.UTC) })

	wl := Watchlist{Pairs: pairs, LookbackDays: 30, Threshold: decimal.RequireFromString("0.5")}
	return NewScheduler(context.Background(), svc, c, sender, wl, log), c
}

func TestScan(t *testing.T) {
	s, _ := newTestScheduler(t, []config.Pair{
		{Ticker1: "rio", Ticker2: "rio.l"},
		{Ticker1: "NOPE", Ticker2: "RIO.L"},
	}, &recordingSender{})

	out := s.Scan(context.Background())
	assert.Contains(t, out, "Window: 2024-02-06 → 2024-03-07")
	assert.Contains(t, out, "<b>RIO / RIO.L</b> (USD / GBp)")
	assert.Contains(t, out, "Opportunities: 1 of 2 days")
	assert.Contains(t, out, "<b>NOPE / RIO.L</b>")
	assert.Contains(t, out, "❌ No data found")
}

func TestScanTaskSends(t *testing.T) {
	sender := &recordingSender{err: errors.New("down")}
	s, _ := newTestScheduler(t, []config.Pair{{Ticker1: "RIO", Ticker2: "RIO.L"}}, sender)

	s.scanTask()
	require.Len(t, sender.sent, 1)
	assert.Contains(t, sender.sent[0], "RIO / RIO.L")
}

func TestHandleCommand(t *testing.T) {
	pairs := []config.Pair{{Ticker1: "RIO", Ticker2: "RIO.L"}}
	s, _ := newTestScheduler(t, pairs, &recordingSender{})
	ctx := context.Background()

	assert.Contains(t, s.HandleCommand(ctx, "/pairs"), "• RIO / RIO.L")
	assert.Contains(t, s.HandleCommand(ctx, "/SCAN now"), "Opportunities: 1 of 2 days")
	assert.Equal(t, notifier.HelpText, s.HandleCommand(ctx, "hello"))
	assert.Equal(t, notifier.HelpText, s.HandleCommand(ctx, "   "))

	empty, _ := newTestScheduler(t, nil, &recordingSender{})
	assert.Equal(t, "No watchlist pairs configured.", empty.HandleCommand(ctx, "/scan"))
}

func TestRegisterAll(t *testing.T) {
	s, _ := newTestScheduler(t, []config.Pair{{Ticker1: "RIO", Ticker2: "RIO.L"}}, &recordingSender{})
	require.NoError(t, s.RegisterAll("0 30 22 * * 1-5", "@every 1m"))
	assert.Len(t, s.Cron.Entries(), 2)

	noPairs, _ := newTestScheduler(t, nil, &recordingSender{})
	require.NoError(t, noPairs.RegisterAll("0 30 22 * * 1-5", "@every 1m"))
	assert.Len(t, noPairs.Cron.Entries(), 1)

	bad, _ := newTestScheduler(t, []config.Pair{{Ticker1: "RIO", Ticker2: "RIO.L"}}, &recordingSender{})
	assert.Error(t, bad.RegisterAll("not a cron", "@every 1m"))
}

func TestSweepTask(t *testing.T) {
	s, c := newTestScheduler(t, nil, nil)
	c.Set("k", 1)
	s.sweepTask()
	assert.Equal(t, 1, c.Len())
}
