package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics holds the service's Prometheus instruments.
type Metrics struct {
	Registry *prometheus.Registry

	FetchTotal    *prometheus.CounterVec
	CacheTotal    *prometheus.CounterVec
	FxFallback    *prometheus.CounterVec
	Opportunities prometheus.Histogram
	HTTPRequests  *prometheus.CounterVec
}

// New creates and registers all instruments on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		Registry: reg,
		FetchTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pricelens_fetch_total",
			Help: "Upstream market-data calls by kind and result.",
		}, []string{"kind", "result"}),
		CacheTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pricelens_cache_total",
			Help: "Memo cache lookups by result.",
		}, []string{"result"}),
		FxFallback: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pricelens_fx_fallback_total",
			Help: "Conversions that fell back to unconverted prices.",
		}, []string{"pair"}),
		Opportunities: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "pricelens_spread_opportunities",
			Help:    "Opportunity days per spread analysis.",
			Buckets: []float64{0, 1, 2, 5, 10, 20, 50, 100, 250},
		}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pricelens_http_requests_total",
			Help: "HTTP requests by route and status.",
		}, []string{"route", "status"}),
	}
	reg.MustRegister(
		m.FetchTotal,
		m.CacheTotal,
		m.FxFallback,
		m.Opportunities,
		m.HTTPRequests,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}
