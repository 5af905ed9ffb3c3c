package calculator

import (
	"errors"
	"math"

	"PriceLens/internal/model"
)

// PeriodSummary describes the whole fetched window.
type PeriodSummary struct {
	High        float64 `json:"high"`
	Low         float64 `json:"low"`
	AvgClose    float64 `json:"avg_close"`
	TradingDays int     `json:"trading_days"`
}

// PeriodRange returns the window's highest high, lowest low and average close.
func PeriodRange(bars []model.OHLCV) (PeriodSummary, error) {
	if len(bars) == 0 {
		return PeriodSummary{}, errors.New("no daily bars provided")
	}
	high, low := scanRange(bars, 0)
	sum := 0.0
	for _, b := range bars {
		sum += b.Close
	}
	return PeriodSummary{
		High:        high,
		Low:         low,
		AvgClose:    sum / float64(len(bars)),
		TradingDays: len(bars),
	}, nil
}

// Calculate52WeekRange scans the most recent 252 trading days and returns the high and low.
func Calculate52WeekRange(dailyBars []model.OHLCV) (high, low float64, err error) {
	if len(dailyBars) == 0 {
		return 0, 0, errors.New("no daily bars provided")
	}
	high, low = scanRange(dailyBars, len(dailyBars)-252)
	return high, low, nil
}

// Calculate30DayRange scans the most recent 22 trading days and returns the high and low.
func Calculate30DayRange(dailyBars []model.OHLCV) (high, low float64, err error) {
	if len(dailyBars) == 0 {
		return 0, 0, errors.New("no daily bars provided")
	}
	high, low = scanRange(dailyBars, len(dailyBars)-22)
	return high, low, nil
}

func scanRange(bars []model.OHLCV, start int) (high, low float64) {
	if start < 0 {
		start = 0
	}
	high = math.Inf(-1)
	low = math.Inf(1)
	for i := start; i < len(bars); i++ {
		if bars[i].High > high {
			high = bars[i].High
		}
		if bars[i].Low < low {
			low = bars[i].Low
		}
	}
	return high, low
}

// Calculate52WeekPosition returns where the current price sits within the 52-week range (0.0~1.0).
func Calculate52WeekPosition(current, high, low float64) (float64, error) {
	if high == low {
		return 0.5, nil
	}
	if high < low {
		return 0, errors.New("high must be >= low")
	}
	pos := (current - low) / (high - low)
	if pos < 0 {
		pos = 0
	}
	if pos > 1 {
		pos = 1
	}
	return pos, nil
}
