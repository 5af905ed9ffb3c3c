package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"PriceLens/internal/calculator"
	"PriceLens/internal/collector"
	"PriceLens/internal/dashboard"
	"PriceLens/internal/export"
	"PriceLens/internal/model"
	"PriceLens/internal/spread"
)

// fetchBody is the JSON form of dashboard.Request with plain dates.
type fetchBody struct {
	Ticker     string   `json:"ticker"`
	Start      string   `json:"start"`
	End        string   `json:"end"`
	SMAWindows []int    `json:"sma_windows"`
	Compare    []string `json:"compare"`
	Ticker1    string   `json:"ticker1"`
	Ticker2    string   `json:"ticker2"`
	Threshold  string   `json:"threshold"`
}

func (b fetchBody) request() (dashboard.Request, error) {
	req := dashboard.Request{
		Ticker:     b.Ticker,
		SMAWindows: b.SMAWindows,
		Compare:    b.Compare,
		Ticker1:    b.Ticker1,
		Ticker2:    b.Ticker2,
	}
	var err error
	if req.Start, err = parseDate("start", b.Start); err != nil {
		return req, err
	}
	if req.End, err = parseDate("end", b.End); err != nil {
		return req, err
	}
	req.Threshold, err = parseThreshold(b.Threshold)
	return req, err
}

func (s *Server) handleFetch(c *gin.Context) {
	var body fetchBody
	if err := c.ShouldBindJSON(&body); err != nil {
		s.fail(c, fmt.Errorf("%w: %v", dashboard.ErrInvalidRequest, err))
		return
	}
	req, err := body.request()
	if err != nil {
		s.fail(c, err)
		return
	}
	res, err := s.svc.Fetch(c.Request.Context(), req)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) handlePrices(c *gin.Context) {
	ticker := dashboard.NormalizeTicker(c.Param("ticker"))
	rng, err := s.queryRange(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	windows, err := parseWindows(c.Query("sma"))
	if err != nil {
		s.fail(c, err)
		return
	}
	pv, err := s.svc.PriceView(c.Request.Context(), ticker, rng, windows)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, pv)
}

func (s *Server) handlePricesCSV(c *gin.Context) {
	ticker := dashboard.NormalizeTicker(c.Param("ticker"))
	rng, err := s.queryRange(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	pv, err := s.svc.PriceView(c.Request.Context(), ticker, rng, nil)
	if err != nil {
		s.fail(c, err)
		return
	}
	attachment(c, export.OHLCVFilename(ticker, rng))
	if err := export.WriteOHLCV(c.Writer, pv.Bars); err != nil {
		_ = c.Error(err)
	}
}

func (s *Server) handleCompare(c *gin.Context) {
	tickers := dashboard.ParseTickers(c.Query("tickers"))
	if len(tickers) == 0 {
		s.fail(c, fmt.Errorf("%w: tickers is required", dashboard.ErrInvalidRequest))
		return
	}
	rng, err := s.queryRange(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	cmp, err := s.svc.Compare(c.Request.Context(), tickers, rng)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, cmp)
}

func (s *Server) arbitrage(c *gin.Context) (*dashboard.Arbitrage, bool) {
	rng, err := s.queryRange(c)
	if err != nil {
		s.fail(c, err)
		return nil, false
	}
	threshold, err := parseThreshold(c.Query("threshold"))
	if err == nil {
		threshold, err = dashboard.ResolveThreshold(threshold)
	}
	if err != nil {
		s.fail(c, err)
		return nil, false
	}
	arb, err := s.svc.Arbitrage(c.Request.Context(),
		dashboard.NormalizeTicker(c.Query("ticker1")),
		dashboard.NormalizeTicker(c.Query("ticker2")),
		rng, threshold)
	if err != nil {
		s.fail(c, err)
		return nil, false
	}
	return arb, true
}

func (s *Server) handleArbitrage(c *gin.Context) {
	if arb, ok := s.arbitrage(c); ok {
		c.JSON(http.StatusOK, arb)
	}
}

func (s *Server) handleArbitrageCSV(c *gin.Context) {
	arb, ok := s.arbitrage(c)
	if !ok {
		return
	}
	attachment(c, export.OpportunitiesFilename(arb.Ticker1, arb.Ticker2))
	if err := export.WriteOpportunities(c.Writer, arb.Ticker1, arb.Ticker2, arb.Records); err != nil {
		_ = c.Error(err)
	}
}

func (s *Server) queryRange(c *gin.Context) (model.DateRange, error) {
	start, err := parseDate("start", c.Query("start"))
	if err != nil {
		return model.DateRange{}, err
	}
	end, err := parseDate("end", c.Query("end"))
	if err != nil {
		return model.DateRange{}, err
	}
	return dashboard.ResolveRange(start, end, s.svc.Now())
}

// fail writes {"error": ...} with a status derived from err.
func (s *Server) fail(c *gin.Context, err error) {
	_ = c.Error(err)
	c.AbortWithStatusJSON(statusFor(err), gin.H{"error": dashboard.UserMessage(err)})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, dashboard.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, collector.ErrNoDataFound):
		return http.StatusNotFound
	case errors.Is(err, spread.ErrEmptyOverlap):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusBadGateway
	}
}

func attachment(c *gin.Context, filename string) {
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Status(http.StatusOK)
}

func parseDate(name, v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(model.DateLayout, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s must be YYYY-MM-DD", dashboard.ErrInvalidRequest, name)
	}
	return t, nil
}

func parseThreshold(v string) (decimal.Decimal, error) {
	if v == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: threshold %q is not a number", dashboard.ErrInvalidRequest, v)
	}
	return d, nil
}

func parseWindows(v string) ([]int, error) {
	if v == "" {
		return calculator.DefaultSMAWindows, nil
	}
	var out []int
	for _, part := range strings.Split(v, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		w, err := strconv.Atoi(part)
		if err != nil || w <= 0 {
			return nil, fmt.Errorf("%w: sma window %q", dashboard.ErrInvalidRequest, part)
		}
		out = append(out, w)
	}
	return out, nil
}
