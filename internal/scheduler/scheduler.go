package scheduler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"PriceLens/internal/cache"
	"PriceLens/internal/config"
	"PriceLens/internal/dashboard"
	"PriceLens/internal/model"
	"PriceLens/internal/notifier"
)

// Sender delivers a report with bounded retry.
type Sender interface {
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
}

// Watchlist is the scheduled scan configuration.
type Watchlist struct {
	Pairs        []config.Pair
	LookbackDays int
	Threshold    decimal.Decimal
}

// Scheduler manages all cron tasks.
type Scheduler struct {
	Cron      *cron.Cron
	Service   *dashboard.Service
	Cache     *cache.Cache
	Notifier  Sender
	Watchlist Watchlist
	Ctx       context.Context

	log logrus.FieldLogger
}

// NewScheduler creates a new Scheduler. notifier and c may be nil.
func NewScheduler(ctx context.Context, svc *dashboard.Service, c *cache.Cache, n Sender, wl Watchlist, log logrus.FieldLogger) *Scheduler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Scheduler{
		Cron:      cron.New(cron.WithSeconds()),
		Service:   svc,
		Cache:     c,
		Notifier:  n,
		Watchlist: wl,
		Ctx:       ctx,
		log:       log,
	}
}

// RegisterAll registers the cache sweep and, when a notifier and pairs are
// configured, the watchlist scan.
func (s *Scheduler) RegisterAll(scanCron, sweepCron string) error {
	if s.Cache != nil && sweepCron != "" {
		if _, err := s.Cron.AddFunc(sweepCron, s.sweepTask); err != nil {
			return fmt.Errorf("register cache sweep: %w", err)
		}
	}
	if s.Notifier != nil && len(s.Watchlist.Pairs) > 0 {
		if _, err := s.Cron.AddFunc(scanCron, s.scanTask); err != nil {
			return fmt.Errorf("register watchlist scan: %w", err)
		}
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.log.WithField("jobs", len(s.Cron.Entries())).Info("scheduler started")
}

// Stop stops the cron scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.log.Info("scheduler stopped")
}

func (s *Scheduler) sweepTask() {
	if n := s.Cache.Purge(); n > 0 {
		s.log.WithField("evicted", n).Debug("cache sweep")
	}
}

func (s *Scheduler) scanTask() {
	s.trySend(s.Scan(s.Ctx))
}

// lookback is the scan window ending today inclusive.
func (s *Scheduler) lookback() model.DateRange {
	days := s.Watchlist.LookbackDays
	if days <= 0 {
		days = 30
	}
	end := model.TradingDate(s.Service.Now()).AddDate(0, 0, 1)
	return model.DateRange{Start: end.AddDate(0, 0, -days), End: end}
}

// Scan analyzes every watched pair and returns the report text.
// A failing pair is reported inline; the others still run.
func (s *Scheduler) Scan(ctx context.Context) string {
	rng := s.lookback()
	s.log.WithField("pairs", len(s.Watchlist.Pairs)).Info("running watchlist scan")

	var b strings.Builder
	b.WriteString(notifier.FormatScanHeader(s.Service.Now(), rng))
	for _, p := range s.Watchlist.Pairs {
		t1, t2 := dashboard.NormalizeTicker(p.Ticker1), dashboard.NormalizeTicker(p.Ticker2)
		arb, err := s.Service.Arbitrage(ctx, t1, t2, rng, s.Watchlist.Threshold)
		if err != nil {
			s.log.WithFields(logrus.Fields{"ticker1": t1, "ticker2": t2}).WithError(err).Error("watchlist pair failed")
			arb = &dashboard.Arbitrage{Ticker1: t1, Ticker2: t2, Threshold: s.Watchlist.Threshold, Error: dashboard.UserMessage(err)}
		}
		b.WriteString(notifier.FormatArbitrageReport(arb))
	}
	return b.String()
}

// HandleCommand processes a chat command and returns a reply.
func (s *Scheduler) HandleCommand(ctx context.Context, command string) string {
	var verb string
	if f := strings.Fields(command); len(f) > 0 {
		verb = strings.ToLower(f[0])
	}
	switch verb {
	case "/scan":
		if len(s.Watchlist.Pairs) == 0 {
			return notifier.FormatPairs(nil)
		}
		return s.Scan(ctx)
	case "/pairs":
		return notifier.FormatPairs(s.Watchlist.Pairs)
	default:
		return notifier.HelpText
	}
}

func (s *Scheduler) trySend(text string) {
	ctx, cancel := context.WithTimeout(s.Ctx, 2*time.Minute)
	defer cancel()
	if err := s.Notifier.SendWithRetry(ctx, text, 3); err != nil {
		s.log.WithError(err).Error("send notification")
	}
}
