package calculator

import (
	"errors"

	"github.com/shopspring/decimal"

	"PriceLens/internal/model"
)

// KeyMetrics is the headline block shown above the price chart.
type KeyMetrics struct {
	Latest      model.OHLCV `json:"latest"`
	Change      float64     `json:"change"`
	ChangePct   float64     `json:"change_pct"`
	High52w     float64     `json:"high_52w"`
	Low52w      float64     `json:"low_52w"`
	Position52w float64     `json:"position_52w"` // 0.0 ~ 1.0
	High30d     float64     `json:"high_30d"`
	Low30d      float64     `json:"low_30d"`
	RSI14       float64     `json:"rsi_14"`
}

// CalculateKeyMetrics compares the latest bar with the previous close.
// A single bar is compared with itself.
func CalculateKeyMetrics(bars []model.OHLCV) (KeyMetrics, error) {
	if len(bars) == 0 {
		return KeyMetrics{}, errors.New("no daily bars provided")
	}
	latest := bars[len(bars)-1]
	prev := latest
	if len(bars) > 1 {
		prev = bars[len(bars)-2]
	}

	km := KeyMetrics{Latest: latest, Change: latest.Close - prev.Close}
	if prev.Close != 0 {
		km.ChangePct = km.Change / prev.Close * 100
	}

	km.High52w, km.Low52w, _ = Calculate52WeekRange(bars)
	km.High30d, km.Low30d, _ = Calculate30DayRange(bars)
	if pos, err := Calculate52WeekPosition(latest.Close, km.High52w, km.Low52w); err == nil {
		km.Position52w = pos
	}
	km.RSI14, _ = CalculateRSI(bars, DefaultRSIPeriod)
	return km, nil
}

// PercentChangeFromFirst rebases closes to the first bar: (close/first - 1) * 100.
func PercentChangeFromFirst(bars []model.OHLCV) ([]model.PricePoint, error) {
	if len(bars) == 0 {
		return nil, errors.New("no daily bars provided")
	}
	first := bars[0].Close
	if first == 0 {
		return nil, errors.New("first close is zero")
	}
	base := decimal.NewFromFloat(first)
	one := decimal.NewFromInt(1)
	out := make([]model.PricePoint, len(bars))
	for i, b := range bars {
		out[i] = model.PricePoint{
			Date:  b.Time,
			Value: decimal.NewFromFloat(b.Close).Div(base).Sub(one).Mul(hundred).Round(4),
		}
	}
	return out, nil
}

var hundred = decimal.NewFromInt(100)
