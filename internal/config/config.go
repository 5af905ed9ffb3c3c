package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"PriceLens/internal/dashboard"
)

// DefaultMaxRetries applies when data_source.max_retries is absent.
const DefaultMaxRetries = 2

// Pair is one dual listing watched by the scheduled scan.
type Pair struct {
	Ticker1 string `yaml:"ticker1"`
	Ticker2 string `yaml:"ticker2"`
}

// Config holds all application configuration.
type Config struct {
	Server struct {
		Addr string `yaml:"addr"`
		Mode string `yaml:"mode"` // gin mode: debug, release, test
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
	DataSource struct {
		Provider          string        `yaml:"provider"` // yahoo or mock
		BaseURL           string        `yaml:"base_url"`
		Timeout           time.Duration `yaml:"timeout"`
		MaxRetries        int           `yaml:"max_retries"`
		RequestsPerSecond float64       `yaml:"requests_per_second"`
		Burst             int           `yaml:"burst"`
	} `yaml:"data_source"`
	Cache struct {
		TTL       time.Duration `yaml:"ttl"`
		SweepCron string        `yaml:"sweep_cron"`
	} `yaml:"cache"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	Watchlist struct {
		Cron         string  `yaml:"cron"`
		LookbackDays int     `yaml:"lookback_days"`
		Threshold    float64 `yaml:"threshold"`
		Pairs        []Pair  `yaml:"pairs"`
	} `yaml:"watchlist"`
	Proxy string `yaml:"proxy"`
}

// Load reads an optional .env file and a YAML config, then applies
// environment variable overrides and defaults.
func Load(path string) (*Config, error) {
	// .env is optional; real environment variables win over it.
	_ = godotenv.Load()

	cfg := &Config{}
	// zero is a valid retry count, so the default is set before decoding
	cfg.DataSource.MaxRetries = DefaultMaxRetries

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnv(cfg)
	applyDefaults(cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("HTTP_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Proxy = v
	}
	if v := os.Getenv("DATA_PROVIDER"); v != "" {
		cfg.DataSource.Provider = v
	}
	if v := os.Getenv("YAHOO_BASE_URL"); v != "" {
		cfg.DataSource.BaseURL = v
	}
	if v := os.Getenv("CACHE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Cache.TTL = d
		}
	}
	if v := os.Getenv("MAX_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.DataSource.MaxRetries = n
		}
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		cfg.Telegram.ChatID = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Server.Mode == "" {
		cfg.Server.Mode = "release"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
	if cfg.DataSource.Provider == "" {
		cfg.DataSource.Provider = "yahoo"
	}
	if cfg.DataSource.BaseURL == "" {
		cfg.DataSource.BaseURL = "https://query1.finance.yahoo.com"
	}
	if cfg.DataSource.Timeout == 0 {
		cfg.DataSource.Timeout = 30 * time.Second
	}
	if cfg.DataSource.RequestsPerSecond == 0 {
		cfg.DataSource.RequestsPerSecond = 2
	}
	if cfg.DataSource.Burst == 0 {
		cfg.DataSource.Burst = 4
	}
	if cfg.Cache.TTL == 0 {
		cfg.Cache.TTL = 5 * time.Minute
	}
	if cfg.Cache.SweepCron == "" {
		cfg.Cache.SweepCron = "@every 1m"
	}
	if cfg.Watchlist.Cron == "" {
		cfg.Watchlist.Cron = "0 30 22 * * 1-5"
	}
	if cfg.Watchlist.LookbackDays == 0 {
		cfg.Watchlist.LookbackDays = 30
	}
	if cfg.Watchlist.Threshold == 0 {
		cfg.Watchlist.Threshold = 0.1
	}
}

// WatchlistEnabled reports whether the scheduled scan has somewhere to report to.
func (c *Config) WatchlistEnabled() bool {
	return len(c.Watchlist.Pairs) > 0 && c.Telegram.BotToken != "" && c.Telegram.ChatID != ""
}

// Validate checks that all fields are usable.
func (c *Config) Validate() error {
	switch c.DataSource.Provider {
	case "yahoo", "mock":
	default:
		return fmt.Errorf("data_source.provider must be yahoo or mock, got %q", c.DataSource.Provider)
	}
	if c.DataSource.MaxRetries < 0 {
		return fmt.Errorf("data_source.max_retries must not be negative")
	}
	if c.DataSource.RequestsPerSecond < 0 {
		return fmt.Errorf("data_source.requests_per_second must not be negative")
	}
	if c.Cache.TTL <= 0 {
		return fmt.Errorf("cache.ttl must be positive")
	}
	if th := decimal.NewFromFloat(c.Watchlist.Threshold); th.LessThan(dashboard.MinThreshold) || th.GreaterThan(dashboard.MaxThreshold) {
		return fmt.Errorf("watchlist.threshold must be within [%s, %s], got %s",
			dashboard.MinThreshold, dashboard.MaxThreshold, th)
	}
	if c.Watchlist.LookbackDays < 1 {
		return fmt.Errorf("watchlist.lookback_days must be at least 1")
	}
	for i, p := range c.Watchlist.Pairs {
		if p.Ticker1 == "" || p.Ticker2 == "" {
			return fmt.Errorf("watchlist.pairs[%d]: both tickers are required", i)
		}
	}
	return nil
}
