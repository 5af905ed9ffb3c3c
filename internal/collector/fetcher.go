package collector

import (
	"context"
	"errors"
	"fmt"
	"time"

	"PriceLens/internal/model"
)

var (
	// ErrNoData is returned by a Fetcher when the symbol/range has no bars.
	ErrNoData = errors.New("no data returned")
	// ErrNoDataFound is returned by the Collector when a price table is empty.
	ErrNoDataFound = errors.New("no data found")
	// ErrFxUnavailable is returned by the Collector when an FX series is empty.
	ErrFxUnavailable = errors.New("fx series unavailable")
)

// Fetcher defines the interface for fetching market data.
type Fetcher interface {
	// FetchDailyBars returns daily bars for [start, end), oldest first.
	FetchDailyBars(ctx context.Context, symbol string, start, end time.Time) ([]model.OHLCV, error)
	// FetchCurrency returns the quote currency code of symbol.
	FetchCurrency(ctx context.Context, symbol string) (string, error)
	Name() string
}

// StatusError is an unexpected HTTP status from the provider.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("status %d, body: %s", e.Code, e.Body)
}

// Temporary reports whether retrying the request may succeed.
func (e *StatusError) Temporary() bool {
	return e.Code == 429 || e.Code >= 500
}
