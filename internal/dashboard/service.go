// Package dashboard runs one fetch-and-analyze action and returns the
// complete view state for the presentation layer.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"PriceLens/internal/calculator"
	"PriceLens/internal/collector"
	"PriceLens/internal/currency"
	"PriceLens/internal/metrics"
	"PriceLens/internal/model"
	"PriceLens/internal/spread"
)

// PriceView is the single-ticker chart and table state.
type PriceView struct {
	Ticker  string                     `json:"ticker"`
	Range   model.DateRange            `json:"range"`
	Bars    []model.OHLCV              `json:"bars,omitempty"`
	Metrics calculator.KeyMetrics      `json:"metrics"`
	Period  calculator.PeriodSummary   `json:"period"`
	SMA     map[int][]model.PricePoint `json:"sma,omitempty"`
	RSI     []model.PricePoint         `json:"rsi,omitempty"`
	Error   string                     `json:"error,omitempty"`
}

// ComparisonLine is one ticker rebased to percent change from its first close.
type ComparisonLine struct {
	Ticker string             `json:"ticker"`
	Points []model.PricePoint `json:"points"`
}

// Comparison is the normalized multi-ticker chart state.
type Comparison struct {
	Lines   []ComparisonLine `json:"lines"`
	Missing []string         `json:"missing,omitempty"`
	Error   string           `json:"error,omitempty"`
}

// Arbitrage is the cross-exchange spread state for two listings.
type Arbitrage struct {
	Ticker1       string               `json:"ticker1"`
	Ticker2       string               `json:"ticker2"`
	Threshold     decimal.Decimal      `json:"threshold"`
	Currency1     string               `json:"currency1,omitempty"`
	Currency2     string               `json:"currency2,omitempty"`
	Conversion1   *currency.Conversion `json:"conversion1,omitempty"`
	Conversion2   *currency.Conversion `json:"conversion2,omitempty"`
	Records       []model.SpreadRecord `json:"records,omitempty"`
	Summary       *model.SpreadSummary `json:"summary,omitempty"`
	Opportunities []model.SpreadRecord `json:"opportunities,omitempty"`
	Warnings      []string             `json:"warnings,omitempty"`
	Error         string               `json:"error,omitempty"`
}

// Result is everything one fetch action produced. Sections that were not
// requested are nil; sections that failed carry an Error message.
type Result struct {
	Request    Request     `json:"request"`
	Prices     *PriceView  `json:"prices,omitempty"`
	Comparison *Comparison `json:"comparison,omitempty"`
	Arbitrage  *Arbitrage  `json:"arbitrage,omitempty"`
	FetchedAt  time.Time   `json:"fetched_at"`
}

// Service wires the collector, normalizer and analyzer together.
type Service struct {
	collector  *collector.Collector
	normalizer *currency.Normalizer
	metrics    *metrics.Metrics
	log        logrus.FieldLogger
	now        func() time.Time
}

// NewService creates a Service. m may be nil.
func NewService(col *collector.Collector, norm *currency.Normalizer, m *metrics.Metrics, log logrus.FieldLogger) *Service {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Service{collector: col, normalizer: norm, metrics: m, log: log, now: time.Now}
}

// Now returns the service clock.
func (s *Service) Now() time.Time { return s.now() }

// WithClock replaces the clock used for default ranges.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Fetch runs one complete fetch action. A failing section does not abort the
// others; only validation errors and context cancellation are returned.
func (s *Service) Fetch(ctx context.Context, req Request) (*Result, error) {
	req, rng, err := req.Normalize(s.now())
	if err != nil {
		return nil, err
	}
	res := &Result{Request: req}

	if req.Ticker != "" {
		pv, err := s.PriceView(ctx, req.Ticker, rng, req.SMAWindows)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			pv = &PriceView{Ticker: req.Ticker, Range: rng, Error: UserMessage(err)}
		}
		res.Prices = pv

		if len(req.Compare) > 0 {
			tickers := append([]string{req.Ticker}, req.Compare...)
			cmp, err := s.Compare(ctx, ParseTickers(strings.Join(tickers, ",")), rng)
			if err != nil {
				if ctx.Err() != nil {
					return nil, ctx.Err()
				}
				cmp = &Comparison{Error: UserMessage(err)}
			}
			res.Comparison = cmp
		}
	}

	if req.Ticker1 != "" || req.Ticker2 != "" {
		arb, err := s.Arbitrage(ctx, req.Ticker1, req.Ticker2, rng, req.Threshold)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			arb = &Arbitrage{Ticker1: req.Ticker1, Ticker2: req.Ticker2, Threshold: req.Threshold, Error: UserMessage(err)}
		}
		res.Arbitrage = arb
	}

	res.FetchedAt = s.now()
	return res, nil
}

// PriceView fetches one ticker and derives metrics, period summary and the
// SMA overlays that have enough bars.
func (s *Service) PriceView(ctx context.Context, ticker string, rng model.DateRange, windows []int) (*PriceView, error) {
	bars, err := s.collector.Prices(ctx, ticker, rng.Start, rng.End)
	if err != nil {
		return nil, err
	}
	pv := &PriceView{Ticker: ticker, Range: rng, Bars: bars, SMA: make(map[int][]model.PricePoint)}

	if pv.Metrics, err = calculator.CalculateKeyMetrics(bars); err != nil {
		return nil, err
	}
	if pv.Period, err = calculator.PeriodRange(bars); err != nil {
		return nil, err
	}
	for _, w := range windows {
		pts, err := calculator.SMASeries(bars, w)
		if err != nil {
			s.log.WithFields(logrus.Fields{"ticker": ticker, "window": w}).Debug("not enough bars for SMA overlay")
			continue
		}
		pv.SMA[w] = pts
	}
	pv.RSI, _ = calculator.RSISeries(bars, calculator.DefaultRSIPeriod)
	return pv, nil
}

// Compare rebases each ticker's closes to its first bar. Tickers without data
// are listed in Missing; if none has data the result is ErrNoDataFound.
func (s *Service) Compare(ctx context.Context, tickers []string, rng model.DateRange) (*Comparison, error) {
	cmp := &Comparison{}
	for _, t := range tickers {
		bars, err := s.collector.Prices(ctx, t, rng.Start, rng.End)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			s.log.WithField("ticker", t).WithError(err).Warn("comparison ticker skipped")
			cmp.Missing = append(cmp.Missing, t)
			continue
		}
		pts, err := calculator.PercentChangeFromFirst(bars)
		if err != nil {
			cmp.Missing = append(cmp.Missing, t)
			continue
		}
		cmp.Lines = append(cmp.Lines, ComparisonLine{Ticker: t, Points: pts})
	}
	if len(cmp.Lines) == 0 {
		return nil, fmt.Errorf("comparison tickers: %w", collector.ErrNoDataFound)
	}
	return cmp, nil
}

type leg struct {
	bars     []model.OHLCV
	currency string
}

func (s *Service) fetchLeg(ctx context.Context, ticker string, rng model.DateRange) (leg, error) {
	bars, err := s.collector.Prices(ctx, ticker, rng.Start, rng.End)
	if err != nil {
		return leg{}, err
	}
	return leg{bars: bars, currency: s.collector.Currency(ctx, ticker)}, nil
}

// Arbitrage fetches both listings and their currencies, normalizes both into
// USD and analyzes the spread.
func (s *Service) Arbitrage(ctx context.Context, ticker1, ticker2 string, rng model.DateRange, threshold decimal.Decimal) (*Arbitrage, error) {
	if ticker1 == "" || ticker2 == "" {
		return nil, fmt.Errorf("%w: both arbitrage tickers are required", ErrInvalidRequest)
	}
	if err := spread.ValidateThreshold(threshold); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	var l1, l2 leg
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) { l1, err = s.fetchLeg(gctx, ticker1, rng); return err })
	g.Go(func() (err error) { l2, err = s.fetchLeg(gctx, ticker2, rng); return err })
	if err := g.Wait(); err != nil {
		return nil, err
	}

	arb := &Arbitrage{
		Ticker1:   ticker1,
		Ticker2:   ticker2,
		Threshold: threshold,
		Currency1: l1.currency,
		Currency2: l2.currency,
	}

	var err error
	if arb.Conversion1, err = s.normalizer.Normalize(ctx, model.Closes(ticker1, l1.currency, l1.bars), l1.currency, rng); err != nil {
		return nil, err
	}
	if arb.Conversion2, err = s.normalizer.Normalize(ctx, model.Closes(ticker2, l2.currency, l2.bars), l2.currency, rng); err != nil {
		return nil, err
	}
	for _, c := range []*currency.Conversion{arb.Conversion1, arb.Conversion2} {
		if c.FxFallback {
			arb.Warnings = append(arb.Warnings, fmt.Sprintf(
				"FX rate %s unavailable: %s prices are shown unconverted in %s, spreads involving them are not in USD",
				c.Pair, c.Series.Symbol, c.From))
		}
		if c.Series.Empty() {
			return nil, fmt.Errorf("%s and %s share no dates: %w", c.Series.Symbol, c.Pair, spread.ErrEmptyOverlap)
		}
	}

	analysis, err := spread.Analyze(arb.Conversion1.Series, arb.Conversion2.Series, threshold)
	if err != nil {
		return nil, err
	}
	arb.Records = analysis.Records
	arb.Summary = &analysis.Summary
	arb.Opportunities = analysis.Opportunities()
	if n := analysis.Summary.SkippedDays; n > 0 {
		arb.Warnings = append(arb.Warnings, fmt.Sprintf("%d day(s) skipped because %s had a zero price", n, ticker2))
		s.log.WithFields(logrus.Fields{"ticker": ticker2, "skipped": n}).Warn("zero denominator dates skipped")
	}
	if s.metrics != nil {
		s.metrics.Opportunities.Observe(float64(analysis.Summary.OpportunityCount))
	}

	s.log.WithFields(logrus.Fields{
		"ticker1":       ticker1,
		"ticker2":       ticker2,
		"days":          analysis.Summary.TotalDays,
		"opportunities": analysis.Summary.OpportunityCount,
	}).Info("spread analyzed")
	return arb, nil
}

// UserMessage maps pipeline errors to the text shown in the dashboard.
func UserMessage(err error) string {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		return err.Error()
	case errors.Is(err, spread.ErrEmptyOverlap):
		return "No overlapping trading dates found between the two tickers."
	case errors.Is(err, collector.ErrNoDataFound):
		return fmt.Sprintf("No data found (%v). Check the ticker symbol and date range.", err)
	default:
		return fmt.Sprintf("Fetch failed: %v", err)
	}
}
