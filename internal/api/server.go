// Package api exposes the dashboard over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"PriceLens/internal/dashboard"
	"PriceLens/internal/metrics"
)

// Server is the HTTP front end of the dashboard service.
type Server struct {
	router     *gin.Engine
	httpServer *http.Server
	svc        *dashboard.Service
	metrics    *metrics.Metrics
	log        logrus.FieldLogger
}

// NewServer builds the router. mode is a gin mode; empty means release.
func NewServer(addr, mode string, svc *dashboard.Service, m *metrics.Metrics, log logrus.FieldLogger) *Server {
	if mode == "" {
		mode = gin.ReleaseMode
	}
	gin.SetMode(mode)
	if m == nil {
		m = metrics.New()
	}
	if log == nil {
		log = logrus.StandardLogger()
	}

	s := &Server{
		router:  gin.New(),
		svc:     svc,
		metrics: m,
		log:     log,
	}
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.setupRoutes()
	return s
}

// Handler returns the router for tests and embedding.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) setupRoutes() {
	s.router.Use(gin.Recovery())
	s.router.Use(requestLogger(s.log))
	s.router.Use(metricsMiddleware(s.metrics))

	s.router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "time": time.Now().UTC()})
	})
	s.router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.metrics.Registry, promhttp.HandlerOpts{})))

	api := s.router.Group("/api")
	{
		api.GET("/prices/:ticker", s.handlePrices)
		api.GET("/prices/:ticker/csv", s.handlePricesCSV)
		api.GET("/compare", s.handleCompare)
		api.GET("/arbitrage", s.handleArbitrage)
		api.GET("/arbitrage/csv", s.handleArbitrageCSV)
		api.POST("/fetch", s.handleFetch)
	}
}

// Start listens until Shutdown is called.
func (s *Server) Start() error {
	s.log.WithField("addr", s.httpServer.Addr).Info("starting http server")
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	s.log.Info("http server stopped")
	return nil
}
