package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "yahoo", cfg.DataSource.Provider)
	assert.Equal(t, 5*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, 2, cfg.DataSource.MaxRetries)
	assert.Equal(t, 0.1, cfg.Watchlist.Threshold)
	assert.False(t, cfg.WatchlistEnabled())
	assert.NoError(t, cfg.Validate())
}

func TestLoad_FileAndEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yml := `
server:
  addr: ":9090"
data_source:
  provider: mock
cache:
  ttl: 90s
telegram:
  bot_token: file-token
  chat_id: "42"
watchlist:
  threshold: 0.5
  pairs:
    - ticker1: SHOP
      ticker2: SHOP.TO
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o644))
	t.Setenv("TELEGRAM_BOT_TOKEN", "env-token")
	t.Setenv("CACHE_TTL", "2m")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, "mock", cfg.DataSource.Provider)
	assert.Equal(t, 2*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, "env-token", cfg.Telegram.BotToken)
	assert.Equal(t, 0.5, cfg.Watchlist.Threshold)
	require.Len(t, cfg.Watchlist.Pairs, 1)
	assert.Equal(t, "SHOP.TO", cfg.Watchlist.Pairs[0].Ticker2)
	assert.True(t, cfg.WatchlistEnabled())
}

func TestLoad_ExplicitZeroRetriesKept(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("data_source:\n  max_retries: 0\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.DataSource.MaxRetries)
	assert.NoError(t, cfg.Validate())

	t.Setenv("MAX_RETRIES", "0")
	cfg, err = Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.DataSource.MaxRetries)
}

func TestValidate_ThresholdBoundsInclusive(t *testing.T) {
	for _, th := range []float64{0.01, 10} {
		cfg := &Config{}
		applyDefaults(cfg)
		cfg.Watchlist.Threshold = th
		assert.NoError(t, cfg.Validate(), "threshold %v", th)
	}
}

func TestLoad_BadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [oops"), 0o644))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown provider", func(c *Config) { c.DataSource.Provider = "bloomberg" }},
		{"zero ttl", func(c *Config) { c.Cache.TTL = 0 }},
		{"negative threshold", func(c *Config) { c.Watchlist.Threshold = -1 }},
		{"threshold below range", func(c *Config) { c.Watchlist.Threshold = 0.005 }},
		{"threshold above range", func(c *Config) { c.Watchlist.Threshold = 10.5 }},
		{"half pair", func(c *Config) { c.Watchlist.Pairs = []Pair{{Ticker1: "RIO"}} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{}
			applyDefaults(cfg)
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
