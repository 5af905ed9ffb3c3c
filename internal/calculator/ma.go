package calculator

import (
	"errors"

	"github.com/shopspring/decimal"

	"PriceLens/internal/model"
)

// DefaultSMAWindows are the overlays offered by the price chart.
var DefaultSMAWindows = []int{20, 50, 200}

// CalculateSMA computes the simple moving average of the given prices over the specified period.
func CalculateSMA(prices []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, errors.New("period must be positive")
	}
	if len(prices) < period {
		return 0, errors.New("not enough data for SMA calculation")
	}
	sum := 0.0
	for i := len(prices) - period; i < len(prices); i++ {
		sum += prices[i]
	}
	return sum / float64(period), nil
}

// SMASeries returns the rolling close SMA for each bar from index window-1 on.
// Fewer than window bars is an error so the chart can omit the overlay.
func SMASeries(bars []model.OHLCV, window int) ([]model.PricePoint, error) {
	closes := extractCloses(bars)
	if _, err := CalculateSMA(closes, window); err != nil {
		return nil, err
	}
	out := make([]model.PricePoint, 0, len(closes)-window+1)
	sum := 0.0
	for i, c := range closes {
		sum += c
		if i >= window {
			sum -= closes[i-window]
		}
		if i >= window-1 {
			out = append(out, model.PricePoint{
				Date:  bars[i].Time,
				Value: decimal.NewFromFloat(sum / float64(window)).Round(4),
			})
		}
	}
	return out, nil
}

func extractCloses(bars []model.OHLCV) []float64 {
	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}
	return closes
}
