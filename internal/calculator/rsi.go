package calculator

import (
	"errors"

	"github.com/shopspring/decimal"

	"PriceLens/internal/model"
)

// DefaultRSIPeriod is the lookback of the headline RSI.
const DefaultRSIPeriod = 14

// RSISeries returns the Wilder-smoothed RSI for every bar from index period
// onward, rounded to 2 decimals. It needs at least period+1 bars.
func RSISeries(bars []model.OHLCV, period int) ([]model.PricePoint, error) {
	if period <= 0 {
		return nil, errors.New("period must be positive")
	}
	if len(bars) < period+1 {
		return nil, errors.New("insufficient data for RSI")
	}
	closes := extractCloses(bars)

	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		gain, loss := split(closes[i] - closes[i-1])
		avgGain += gain
		avgLoss += loss
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)

	out := make([]model.PricePoint, 0, len(closes)-period)
	out = append(out, rsiPoint(bars[period], avgGain, avgLoss))
	for i := period + 1; i < len(closes); i++ {
		gain, loss := split(closes[i] - closes[i-1])
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
		out = append(out, rsiPoint(bars[i], avgGain, avgLoss))
	}
	return out, nil
}

// CalculateRSI returns the latest RSI, or 50 when there are too few bars.
func CalculateRSI(bars []model.OHLCV, period int) (float64, error) {
	if period <= 0 {
		return 0, errors.New("period must be positive")
	}
	if len(bars) < period+1 {
		return 50.0, nil
	}
	pts, err := RSISeries(bars, period)
	if err != nil {
		return 0, err
	}
	return pts[len(pts)-1].Value.InexactFloat64(), nil
}

func split(change float64) (gain, loss float64) {
	if change > 0 {
		return change, 0
	}
	return 0, -change
}

func rsiPoint(b model.OHLCV, avgGain, avgLoss float64) model.PricePoint {
	rsi := 100.0
	if avgLoss != 0 {
		rsi = 100.0 - 100.0/(1.0+avgGain/avgLoss)
	}
	return model.PricePoint{Date: b.Time, Value: decimal.NewFromFloat(rsi).Round(2)}
}
