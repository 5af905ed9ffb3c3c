// Package currency converts listing prices into USD.
package currency

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"PriceLens/internal/metrics"
	"PriceLens/internal/model"
)

// FxSource returns the daily close of an FX pair over [start, end).
type FxSource interface {
	Fx(ctx context.Context, pair string, start, end time.Time) (model.PriceSeries, error)
}

// Conversion is the outcome of normalizing one listing.
type Conversion struct {
	Series  model.PriceSeries `json:"series"`
	From    string            `json:"from"`
	Major   string            `json:"major"`
	Divisor int64             `json:"divisor"`
	Pair    string            `json:"pair,omitempty"`
	// FxFallback is set when no FX series was available and Series
	// still holds unconverted prices in From.
	FxFallback bool `json:"fx_fallback"`
}

// Normalizer converts price series into USD using an FX source.
type Normalizer struct {
	fx      FxSource
	metrics *metrics.Metrics
	log     logrus.FieldLogger
}

// NewNormalizer creates a Normalizer. m may be nil.
func NewNormalizer(fx FxSource, m *metrics.Metrics, log logrus.FieldLogger) *Normalizer {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Normalizer{fx: fx, metrics: m, log: log}
}

// Normalize converts series quoted in quote into USD over r.
//
// USD input is returned unchanged without an FX fetch. Otherwise the minor
// unit table gives the major currency and divisor, the {MAJOR}USD=X series is
// fetched, and each date present in both series becomes (price/divisor)*rate.
// When the FX series is empty or unavailable the unconverted input is returned
// with FxFallback set; values are then still in the quote currency.
// The only error is context cancellation.
func (n *Normalizer) Normalize(ctx context.Context, series model.PriceSeries, quote string, r model.DateRange) (*Conversion, error) {
	if quote == model.USD {
		return &Conversion{Series: series, From: quote, Major: quote, Divisor: 1}, nil
	}

	major, divisor := model.ResolveMinorUnit(quote)
	pair := model.FxPair(major)
	conv := &Conversion{From: quote, Major: major, Divisor: divisor, Pair: pair}

	fx, err := n.fx.Fx(ctx, pair, r.Start, r.End)
	if err != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
		return nil, err
	}
	if err != nil || fx.Empty() {
		n.log.WithFields(logrus.Fields{
			"symbol":   series.Symbol,
			"currency": quote,
			"pair":     pair,
		}).WithError(err).Warn("fx series unavailable, using unconverted prices")
		if n.metrics != nil {
			n.metrics.FxFallback.WithLabelValues(pair).Inc()
		}
		conv.Series = series
		conv.FxFallback = true
		return conv, nil
	}

	conv.Series = Convert(series, fx, divisor)
	return conv, nil
}

// Convert joins series with fx on date and returns (price/divisor)*rate for
// every shared date, ascending. Dates present in only one input are dropped.
func Convert(series, fx model.PriceSeries, divisor int64) model.PriceSeries {
	rates := fx.Index()
	div := decimal.NewFromInt(divisor)

	out := model.PriceSeries{
		Symbol:   series.Symbol,
		Currency: model.USD,
		Points:   make([]model.PricePoint, 0, len(series.Points)),
	}
	for _, p := range series.Points {
		rate, ok := rates[p.Date.Format(model.DateLayout)]
		if !ok {
			continue
		}
		out.Points = append(out.Points, model.PricePoint{
			Date:  p.Date,
			Value: p.Value.Div(div).Mul(rate),
		})
	}
	out.Sort()
	return out
}
