package collector

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"PriceLens/internal/cache"
	"PriceLens/internal/metrics"
	"PriceLens/internal/model"
)

// Options configures a Collector. Zero values disable the matching feature.
type Options struct {
	Cache         *cache.Cache
	Limiter       *rate.Limiter
	MaxRetries    int
	RetryInterval time.Duration
	Metrics       *metrics.Metrics
	Logger        logrus.FieldLogger
}

// Collector wraps a Fetcher with memoization, rate limiting and bounded retry.
type Collector struct {
	Fetcher Fetcher

	cache         *cache.Cache
	limiter       *rate.Limiter
	maxRetries    int
	retryInterval time.Duration
	metrics       *metrics.Metrics
	log           logrus.FieldLogger
}

// NewCollector creates a new Collector.
func NewCollector(fetcher Fetcher, opts Options) *Collector {
	c := &Collector{
		Fetcher:       fetcher,
		cache:         opts.Cache,
		limiter:       opts.Limiter,
		maxRetries:    opts.MaxRetries,
		retryInterval: opts.RetryInterval,
		metrics:       opts.Metrics,
		log:           opts.Logger,
	}
	if c.metrics == nil {
		c.metrics = metrics.New()
	}
	if c.log == nil {
		c.log = logrus.StandardLogger()
	}
	if c.retryInterval <= 0 {
		c.retryInterval = 500 * time.Millisecond
	}
	return c
}

// Cache returns the memo cache, or nil when caching is disabled.
func (c *Collector) Cache() *cache.Cache { return c.cache }

// Prices returns daily bars for ticker in [start, end).
// An empty table yields ErrNoDataFound.
func (c *Collector) Prices(ctx context.Context, ticker string, start, end time.Time) ([]model.OHLCV, error) {
	key := cache.Key("prices", ticker, start, end)
	bars, err := load(c, key, func() ([]model.OHLCV, error) {
		var out []model.OHLCV
		err := c.retry(ctx, "prices", ticker, func() error {
			var err error
			out, err = c.Fetcher.FetchDailyBars(ctx, ticker, start, end)
			return err
		})
		if errors.Is(err, ErrNoData) {
			return []model.OHLCV{}, nil
		}
		return out, err
	})
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", ticker, err)
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("%s: %w", ticker, ErrNoDataFound)
	}
	return bars, nil
}

// Currency returns the quote currency of ticker, or "USD" on any failure.
// Failures are not cached so a transient error does not pin the default.
func (c *Collector) Currency(ctx context.Context, ticker string) string {
	key := cache.Key("currency", ticker)
	cur, err := load(c, key, func() (string, error) {
		var out string
		err := c.retry(ctx, "currency", ticker, func() error {
			var err error
			out, err = c.Fetcher.FetchCurrency(ctx, ticker)
			return err
		})
		return out, err
	})
	if err != nil || cur == "" {
		c.log.WithField("ticker", ticker).WithError(err).Debug("currency lookup failed, defaulting to USD")
		return model.USD
	}
	return cur
}

// Fx returns the daily close of an FX pair such as "GBPUSD=X" in [start, end).
// An empty or failed fetch yields ErrFxUnavailable.
func (c *Collector) Fx(ctx context.Context, pair string, start, end time.Time) (model.PriceSeries, error) {
	key := cache.Key("fx", pair, start, end)
	bars, err := load(c, key, func() ([]model.OHLCV, error) {
		var out []model.OHLCV
		err := c.retry(ctx, "fx", pair, func() error {
			var err error
			out, err = c.Fetcher.FetchDailyBars(ctx, pair, start, end)
			return err
		})
		if errors.Is(err, ErrNoData) {
			return []model.OHLCV{}, nil
		}
		return out, err
	})
	if err != nil {
		return model.PriceSeries{}, fmt.Errorf("fx %s: %w: %w", pair, ErrFxUnavailable, err)
	}
	if len(bars) == 0 {
		return model.PriceSeries{}, fmt.Errorf("fx %s: %w", pair, ErrFxUnavailable)
	}
	return model.Closes(pair, model.USD, bars), nil
}

func load[T any](c *Collector, key string, loader func() (T, error)) (T, error) {
	if c.cache == nil {
		return loader()
	}
	v, hit, err := cache.Load(c.cache, key, loader)
	if hit {
		c.metrics.CacheTotal.WithLabelValues("hit").Inc()
		c.log.WithField("key", key).Debug("cache hit")
	} else {
		c.metrics.CacheTotal.WithLabelValues("miss").Inc()
	}
	return v, err
}

// retry runs op with rate limiting and exponential backoff, giving up after
// maxRetries retries or on a non-retryable error.
func (c *Collector) retry(ctx context.Context, kind, symbol string, op func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.retryInterval
	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(c.maxRetries)), ctx)

	attempt := 0
	err := backoff.RetryNotify(func() error {
		attempt++
		if err := ctx.Err(); err != nil {
			return backoff.Permanent(err)
		}
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return backoff.Permanent(err)
			}
		}
		err := op()
		if err == nil {
			return nil
		}
		if !retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}, policy, func(err error, wait time.Duration) {
		c.log.WithFields(logrus.Fields{
			"kind":    kind,
			"symbol":  symbol,
			"attempt": attempt,
			"wait":    wait,
		}).WithError(err).Warn("fetch failed, retrying")
	})

	switch {
	case err == nil:
		c.metrics.FetchTotal.WithLabelValues(kind, "ok").Inc()
	case errors.Is(err, ErrNoData):
		c.metrics.FetchTotal.WithLabelValues(kind, "empty").Inc()
	default:
		c.metrics.FetchTotal.WithLabelValues(kind, "error").Inc()
	}
	return err
}

func retryable(err error) bool {
	if errors.Is(err, ErrNoData) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Temporary()
	}
	return true
}
