package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// SpreadRecord is the comparison of two USD-normalized listings on one date.
type SpreadRecord struct {
	Date        time.Time       `json:"date"`
	Price1      decimal.Decimal `json:"price1"`
	Price2      decimal.Decimal `json:"price2"`
	SpreadUSD   decimal.Decimal `json:"spread_usd"`
	SpreadPct   decimal.Decimal `json:"spread_pct"`
	Opportunity bool            `json:"opportunity"`
}

// SpreadSummary aggregates spread percentages over all aligned dates.
type SpreadSummary struct {
	OpportunityCount int     `json:"opportunity_count"`
	TotalDays        int     `json:"total_days"`
	SkippedDays      int     `json:"skipped_days"` // zero price2
	MeanSpreadPct    float64 `json:"mean_spread_pct"`
	MaxSpreadPct     float64 `json:"max_spread_pct"`
	MinSpreadPct     float64 `json:"min_spread_pct"`
	StdSpreadPct     float64 `json:"std_spread_pct"`
	LatestSpreadPct  float64 `json:"latest_spread_pct"`
}
