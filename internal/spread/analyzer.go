// Package spread compares two USD-normalized listings of one instrument.
package spread

import (
	"errors"
	"fmt"
	"math"

	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/stat"

	"PriceLens/internal/model"
)

var (
	// ErrEmptyOverlap means the two series share no usable trading date.
	ErrEmptyOverlap = errors.New("no overlapping trading dates")
	// ErrInvalidThreshold is returned for non-positive thresholds.
	ErrInvalidThreshold = errors.New("threshold must be positive")
)

var hundred = decimal.NewFromInt(100)

// Analysis is the aligned spread table and its summary.
type Analysis struct {
	Records []model.SpreadRecord `json:"records"`
	Summary model.SpreadSummary  `json:"summary"`
}

// Opportunities returns only the flagged records.
func (a *Analysis) Opportunities() []model.SpreadRecord {
	out := make([]model.SpreadRecord, 0, a.Summary.OpportunityCount)
	for _, r := range a.Records {
		if r.Opportunity {
			out = append(out, r)
		}
	}
	return out
}

// ValidateThreshold checks a percentage threshold such as 0.1 (0.1%).
func ValidateThreshold(threshold decimal.Decimal) error {
	if !threshold.IsPositive() {
		return fmt.Errorf("%w: %s", ErrInvalidThreshold, threshold)
	}
	return nil
}

// Analyze inner-joins usd1 and usd2 on date and computes, per shared date in
// ascending order, spreadUsd = p1-p2, spreadPct = spreadUsd/p2*100 and
// opportunity = |spreadPct| >= threshold.
//
// Dates where p2 is zero are skipped and counted in Summary.SkippedDays.
// An empty join, or a join where every date was skipped, yields ErrEmptyOverlap.
func Analyze(usd1, usd2 model.PriceSeries, threshold decimal.Decimal) (*Analysis, error) {
	if err := ValidateThreshold(threshold); err != nil {
		return nil, err
	}

	p2 := usd2.Index()
	a := &Analysis{Records: make([]model.SpreadRecord, 0, len(usd1.Points))}

	sorted := model.PriceSeries{Points: append([]model.PricePoint(nil), usd1.Points...)}
	sorted.Sort()

	for _, p := range sorted.Points {
		price2, ok := p2[p.Date.Format(model.DateLayout)]
		if !ok {
			continue
		}
		if price2.IsZero() {
			a.Summary.SkippedDays++
			continue
		}
		diff := p.Value.Sub(price2)
		pct := diff.Div(price2).Mul(hundred)
		a.Records = append(a.Records, model.SpreadRecord{
			Date:        p.Date,
			Price1:      p.Value,
			Price2:      price2,
			SpreadUSD:   diff,
			SpreadPct:   pct,
			Opportunity: pct.Abs().GreaterThanOrEqual(threshold),
		})
	}

	if len(a.Records) == 0 {
		if a.Summary.SkippedDays > 0 {
			return nil, fmt.Errorf("%w: all %d shared dates have a zero price", ErrEmptyOverlap, a.Summary.SkippedDays)
		}
		return nil, ErrEmptyOverlap
	}

	a.summarize()
	return a, nil
}

func (a *Analysis) summarize() {
	pcts := make([]float64, len(a.Records))
	s := &a.Summary
	s.MaxSpreadPct = math.Inf(-1)
	s.MinSpreadPct = math.Inf(1)
	for i, r := range a.Records {
		v := r.SpreadPct.InexactFloat64()
		pcts[i] = v
		if r.Opportunity {
			s.OpportunityCount++
		}
		if v > s.MaxSpreadPct {
			s.MaxSpreadPct = v
		}
		if v < s.MinSpreadPct {
			s.MinSpreadPct = v
		}
	}
	s.TotalDays = len(a.Records)
	s.MeanSpreadPct = stat.Mean(pcts, nil)
	// sample std is undefined for one observation; report 0
	if len(pcts) > 1 {
		s.StdSpreadPct = stat.StdDev(pcts, nil)
	}
	s.LatestSpreadPct = pcts[len(pcts)-1]
}
