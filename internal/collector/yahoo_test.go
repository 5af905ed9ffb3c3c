package collector

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

const tokyoChart = `{"chart":{"result":[{
  "meta":{"currency":"JPY","symbol":"7203.T","gmtoffset":32400},
  "timestamp":[%d,%d,%d,%d],
  "indicators":{"quote":[{
    "open":[3500,null,3520,3530],
    "high":[3550,null,3560,3570],
    "low":[3490,null,3500,3510],
    "close":[3540,null,3555,3565],
    "volume":[1000,null,1100,1200]}]}}],"error":null}}`

func TestYahooFetcher_FetchDailyBars(t *testing.T) {
	// 00:00 UTC is 09:00 JST on the same day
	ts := func(d time.Time) int64 { return d.Unix() }
	body := fmt.Sprintf(tokyoChart,
		ts(day(2024, 3, 4)), ts(day(2024, 3, 5)), ts(day(2024, 3, 6)), ts(day(2024, 3, 6)))

	var gotPath, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		fmt.Fprint(w, body)
	}))
	defer srv.Close()

	f := NewYahooFetcher(srv.URL, "", time.Second)
	bars, err := f.FetchDailyBars(context.Background(), "7203.T", day(2024, 3, 1), day(2024, 3, 8))
	require.NoError(t, err)

	assert.Equal(t, "/v8/finance/chart/7203.T", gotPath)
	assert.Contains(t, gotQuery, fmt.Sprintf("period1=%d", day(2024, 3, 1).Unix()))
	assert.Contains(t, gotQuery, "interval=1d")

	// null bar skipped, duplicate session bar collapsed into the last one
	require.Len(t, bars, 2)
	assert.Equal(t, day(2024, 3, 4), bars[0].Time)
	assert.Equal(t, 3540.0, bars[0].Close)
	assert.Equal(t, day(2024, 3, 6), bars[1].Time)
	assert.Equal(t, 3565.0, bars[1].Close)
}

func TestYahooFetcher_TradingDateUsesExchangeOffset(t *testing.T) {
	// 23:00 UTC on Mar 3 is 00:00 CET on Mar 4
	ts := time.Date(2024, 3, 3, 23, 0, 0, 0, time.UTC).Unix()
	body := fmt.Sprintf(`{"chart":{"result":[{"meta":{"currency":"EUR","gmtoffset":3600},
	  "timestamp":[%d],"indicators":{"quote":[{"open":[1.1],"high":[1.2],"low":[1.0],"close":[1.15],"volume":[0]}]}}]}}`, ts)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, body)
	}))
	defer srv.Close()

	f := NewYahooFetcher(srv.URL, "", time.Second)
	bars, err := f.FetchDailyBars(context.Background(), "EURUSD=X", day(2024, 3, 1), day(2024, 3, 8))
	require.NoError(t, err)
	require.Len(t, bars, 1)
	assert.Equal(t, day(2024, 3, 4), bars[0].Time)
}

func TestYahooFetcher_SkipsBarWithoutClose(t *testing.T) {
	body := fmt.Sprintf(`{"chart":{"result":[{"meta":{"currency":"USD","gmtoffset":0},
	  "timestamp":[%d,%d],"indicators":{"quote":[{
	    "open":[100,100],"high":[101,101],"low":[99,99],"close":[100,null],"volume":[10,10]}]}}]}}`,
		day(2024, 3, 4).Unix(), day(2024, 3, 5).Unix())
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, body)
	}))
	defer srv.Close()

	f := NewYahooFetcher(srv.URL, "", time.Second)
	bars, err := f.FetchDailyBars(context.Background(), "AAA", day(2024, 3, 1), day(2024, 3, 8))
	require.NoError(t, err)
	require.Len(t, bars, 1)
	assert.Equal(t, day(2024, 3, 4), bars[0].Time)
	assert.Equal(t, 100.0, bars[0].Close)

	// only partial bars left means no data at all
	onlyPartial := strings.Replace(body, `"close":[100,null]`, `"close":[null,null]`, 1)
	srv2 := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, onlyPartial)
	}))
	defer srv2.Close()

	_, err = NewYahooFetcher(srv2.URL, "", time.Second).FetchDailyBars(context.Background(), "AAA", day(2024, 3, 1), day(2024, 3, 8))
	assert.True(t, errors.Is(err, ErrNoData))
}

func TestYahooFetcher_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		noData  bool
		retries bool
	}{
		{"unknown symbol", http.StatusNotFound, `{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found"}}}`, true, false},
		{"api error payload", http.StatusOK, `{"chart":{"result":null,"error":{"code":"Bad","description":"Invalid"}}}`, true, false},
		{"empty result", http.StatusOK, `{"chart":{"result":[{"meta":{},"timestamp":[],"indicators":{"quote":[]}}]}}`, true, false},
		{"rate limited", http.StatusTooManyRequests, `slow down`, false, true},
		{"bad request", http.StatusBadRequest, `nope`, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			}))
			defer srv.Close()

			f := NewYahooFetcher(srv.URL, "", time.Second)
			_, err := f.FetchDailyBars(context.Background(), "ZZZZ", day(2024, 1, 1), day(2024, 2, 1))
			require.Error(t, err)
			assert.Equal(t, tt.noData, errors.Is(err, ErrNoData))
			if !tt.noData {
				assert.Equal(t, tt.retries, retryable(err))
			}
		})
	}
}

func TestYahooFetcher_FetchCurrency(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "RIO.L") {
			fmt.Fprint(w, `{"chart":{"result":[{"meta":{"currency":"GBp","symbol":"RIO.L"}}]}}`)
			return
		}
		fmt.Fprint(w, `{"chart":{"result":[{"meta":{"symbol":"X"}}]}}`)
	}))
	defer srv.Close()

	f := NewYahooFetcher(srv.URL, "", time.Second)
	cur, err := f.FetchCurrency(context.Background(), "RIO.L")
	require.NoError(t, err)
	assert.Equal(t, "GBp", cur)

	_, err = f.FetchCurrency(context.Background(), "X")
	assert.Error(t, err)
}

func TestYahooFetcher_SymbolMap(t *testing.T) {
	f := NewYahooFetcher("", "", 0)
	assert.Equal(t, "^GSPC", f.yahooSymbol("SPX"))
	assert.Equal(t, "AAPL", f.yahooSymbol("AAPL"))
	assert.Equal(t, DefaultYahooBaseURL, f.BaseURL)
}
