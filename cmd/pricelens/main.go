package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"PriceLens/internal/api"
	"PriceLens/internal/cache"
	"PriceLens/internal/collector"
	"PriceLens/internal/config"
	"PriceLens/internal/currency"
	"PriceLens/internal/dashboard"
	"PriceLens/internal/logger"
	"PriceLens/internal/metrics"
	"PriceLens/internal/notifier"
	"PriceLens/internal/scheduler"
)

func main() {
	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		logrus.Fatalf("load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		logrus.Fatalf("config validation: %v", err)
	}

	log, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		logrus.Fatalf("init logger: %v", err)
	}
	log.Info("PriceLens starting")

	m := metrics.New()

	// Init fetcher
	var fetcher collector.Fetcher
	switch cfg.DataSource.Provider {
	case "mock":
		fetcher = &collector.MockFetcher{Price: 100}
	default:
		fetcher = collector.NewYahooFetcher(cfg.DataSource.BaseURL, cfg.Proxy, cfg.DataSource.Timeout)
	}
	log.WithField("provider", fetcher.Name()).Info("data source ready")

	var limiter *rate.Limiter
	if cfg.DataSource.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.DataSource.RequestsPerSecond), cfg.DataSource.Burst)
	}
	memo := cache.New(cfg.Cache.TTL)
	col := collector.NewCollector(fetcher, collector.Options{
		Cache:      memo,
		Limiter:    limiter,
		MaxRetries: cfg.DataSource.MaxRetries,
		Metrics:    m,
		Logger:     log,
	})
	svc := dashboard.NewService(col, currency.NewNormalizer(col, m, log), m, log)

	// Context for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Init Telegram notifier
	var (
		tn     *notifier.TelegramNotifier
		sender scheduler.Sender
	)
	if cfg.WatchlistEnabled() {
		tn = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy, log)
		sender = tn
	} else if len(cfg.Watchlist.Pairs) > 0 {
		log.Warn("watchlist pairs configured without telegram credentials, scheduled scan disabled")
	}

	sched := scheduler.NewScheduler(ctx, svc, memo, sender, scheduler.Watchlist{
		Pairs:        cfg.Watchlist.Pairs,
		LookbackDays: cfg.Watchlist.LookbackDays,
		Threshold:    decimal.NewFromFloat(cfg.Watchlist.Threshold),
	}, log)
	if err := sched.RegisterAll(cfg.Watchlist.Cron, cfg.Cache.SweepCron); err != nil {
		log.Fatalf("register cron tasks: %v", err)
	}
	sched.Start()
	defer sched.Stop()

	if tn != nil {
		go tn.StartPolling(ctx, sched.HandleCommand)
		log.Info("telegram polling started")
	}

	srv := api.NewServer(cfg.Server.Addr, cfg.Server.Mode, svc, m, log)
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	log.Info("PriceLens is running. Press Ctrl+C to stop.")

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, stopping")
	case err := <-errCh:
		if err != nil {
			log.WithError(err).Error("http server exited")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("shutdown")
	}
	log.Info("PriceLens stopped")
}
