package collector

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PriceLens/internal/cache"
	"PriceLens/internal/logger"
	"PriceLens/internal/model"
)

func bar(d time.Time, close float64) model.OHLCV {
	return model.OHLCV{Time: d, Open: close, High: close, Low: close, Close: close, Volume: 100}
}

func newTestCollector(f Fetcher, retries int) *Collector {
	return NewCollector(f, Options{
		Cache:         cache.New(time.Minute),
		MaxRetries:    retries,
		RetryInterval: time.Millisecond,
		Logger:        logger.Discard(),
	})
}

// flakyFetcher fails the first n calls with err.
type flakyFetcher struct {
	MockFetcher
	failures int
	err      error
}

func (f *flakyFetcher) FetchDailyBars(ctx context.Context, symbol string, start, end time.Time) ([]model.OHLCV, error) {
	if f.failures > 0 {
		f.failures--
		f.record(symbol)
		return nil, f.err
	}
	return f.MockFetcher.FetchDailyBars(ctx, symbol, start, end)
}

func TestCollector_PricesCachedPerParameters(t *testing.T) {
	mf := &MockFetcher{Bars: map[string][]model.OHLCV{
		"AAPL": {bar(day(2024, 3, 4), 170), bar(day(2024, 3, 5), 171)},
	}}
	c := newTestCollector(mf, 0)
	ctx := context.Background()

	bars, err := c.Prices(ctx, "AAPL", day(2024, 3, 1), day(2024, 3, 8))
	require.NoError(t, err)
	assert.Len(t, bars, 2)

	_, err = c.Prices(ctx, "AAPL", day(2024, 3, 1), day(2024, 3, 8))
	require.NoError(t, err)
	assert.Equal(t, 1, mf.Calls("AAPL"))

	// different end date is a different key
	bars, err = c.Prices(ctx, "AAPL", day(2024, 3, 1), day(2024, 3, 5))
	require.NoError(t, err)
	assert.Len(t, bars, 1)
	assert.Equal(t, 2, mf.Calls("AAPL"))
}

func TestCollector_PricesNoDataFound(t *testing.T) {
	mf := &MockFetcher{}
	c := newTestCollector(mf, 3)

	_, err := c.Prices(context.Background(), "NOPE", day(2024, 3, 1), day(2024, 3, 8))
	require.ErrorIs(t, err, ErrNoDataFound)
	// ErrNoData is permanent, so no retries
	assert.Equal(t, 1, mf.Calls("NOPE"))

	// the empty result is memoized
	_, err = c.Prices(context.Background(), "NOPE", day(2024, 3, 1), day(2024, 3, 8))
	require.ErrorIs(t, err, ErrNoDataFound)
	assert.Equal(t, 1, mf.Calls("NOPE"))
}

func TestCollector_RetryIsBounded(t *testing.T) {
	transient := &StatusError{Code: 503}

	ff := &flakyFetcher{
		MockFetcher: MockFetcher{Bars: map[string][]model.OHLCV{"SHOP": {bar(day(2024, 3, 4), 70)}}},
		failures:    2,
		err:         transient,
	}
	c := newTestCollector(ff, 2)
	bars, err := c.Prices(context.Background(), "SHOP", day(2024, 3, 1), day(2024, 3, 8))
	require.NoError(t, err)
	assert.Len(t, bars, 1)
	assert.Equal(t, 3, ff.Calls("SHOP"))

	ff2 := &flakyFetcher{failures: 10, err: transient}
	c2 := newTestCollector(ff2, 2)
	_, err = c2.Prices(context.Background(), "SHOP", day(2024, 3, 1), day(2024, 3, 8))
	require.Error(t, err)
	var se *StatusError
	assert.True(t, errors.As(err, &se))
	assert.Equal(t, 3, ff2.Calls("SHOP"))
}

func TestCollector_CurrencyDefaultsToUSD(t *testing.T) {
	mf := &MockFetcher{
		Currencies: map[string]string{"RIO.L": "GBp"},
		Errors:     map[string]error{"currency:BROKEN": errors.New("timeout")},
	}
	c := newTestCollector(mf, 0)
	ctx := context.Background()

	assert.Equal(t, "GBp", c.Currency(ctx, "RIO.L"))
	assert.Equal(t, "USD", c.Currency(ctx, "BROKEN"))
	assert.Equal(t, "USD", c.Currency(ctx, "AAPL"))
}

func TestCollector_Fx(t *testing.T) {
	mf := &MockFetcher{Bars: map[string][]model.OHLCV{
		"GBPUSD=X": {bar(day(2024, 3, 4), 1.27), bar(day(2024, 3, 5), 1.28)},
	}}
	c := newTestCollector(mf, 0)
	ctx := context.Background()

	fx, err := c.Fx(ctx, "GBPUSD=X", day(2024, 3, 1), day(2024, 3, 8))
	require.NoError(t, err)
	assert.Equal(t, 2, fx.Len())
	assert.Equal(t, "GBPUSD=X", fx.Symbol)
	assert.Equal(t, "1.27", fx.Points[0].Value.String())

	_, err = c.Fx(ctx, "XXXUSD=X", day(2024, 3, 1), day(2024, 3, 8))
	assert.ErrorIs(t, err, ErrFxUnavailable)
}

func TestCollector_WithoutCache(t *testing.T) {
	mf := &MockFetcher{Price: 100}
	c := NewCollector(mf, Options{Logger: logger.Discard()})

	_, err := c.Prices(context.Background(), "AAPL", day(2024, 3, 4), day(2024, 3, 6))
	require.NoError(t, err)
	_, err = c.Prices(context.Background(), "AAPL", day(2024, 3, 4), day(2024, 3, 6))
	require.NoError(t, err)
	assert.Equal(t, 2, mf.Calls("AAPL"))
	assert.Nil(t, c.Cache())
}
