// Package export renders dashboard tables as CSV downloads.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/shopspring/decimal"

	"PriceLens/internal/model"
)

// OHLCVFilename is the download name of a daily price table.
func OHLCVFilename(ticker string, r model.DateRange) string {
	start, end := r.Key()
	return fmt.Sprintf("%s_%s_%s.csv", ticker, start, end)
}

// OpportunitiesFilename is the download name of an opportunity table.
func OpportunitiesFilename(ticker1, ticker2 string) string {
	return fmt.Sprintf("arbitrage_%s_%s.csv", ticker1, ticker2)
}

// WriteOHLCV writes daily bars rounded to 2 decimals.
func WriteOHLCV(w io.Writer, bars []model.OHLCV) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Date", "Open", "High", "Low", "Close", "Volume"}); err != nil {
		return err
	}
	for _, b := range bars {
		row := []string{
			b.Time.Format(model.DateLayout),
			round(b.Open, 2),
			round(b.High, 2),
			round(b.Low, 2),
			round(b.Close, 2),
			strconv.FormatFloat(b.Volume, 'f', 0, 64),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteOpportunities writes only the flagged records, rounded to 4 decimals.
// Price columns are named after the tickers.
func WriteOpportunities(w io.Writer, ticker1, ticker2 string, records []model.SpreadRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Date", ticker1, ticker2, "Spread (USD)", "Spread (%)"}); err != nil {
		return err
	}
	for _, r := range records {
		if !r.Opportunity {
			continue
		}
		row := []string{
			r.Date.Format(model.DateLayout),
			r.Price1.Round(4).String(),
			r.Price2.Round(4).String(),
			r.SpreadUSD.Round(4).String(),
			r.SpreadPct.Round(4).String(),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func round(v float64, places int32) string {
	return decimal.NewFromFloat(v).Round(places).String()
}
