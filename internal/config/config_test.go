package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	for _, k := range []string{
		"STOCKDOG_ADDR", "SYNC_INTERVAL", "QUOTE_PROVIDER", "QUOTE_BASE_URL", "QUOTE_API_KEY",
		"STORAGE_DRIVER", "STORAGE_PATH", "REDIS_URL", "SQLITE_PATH",
		"TELEGRAM_BOT_TOKEN", "TELEGRAM_CHAT_ID", "HTTPS_PROXY", "LOG_LEVEL",
	} {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 5*time.Second, cfg.Sync.Interval)
	assert.Equal(t, "yahoo", cfg.Quotes.Provider)
	assert.Equal(t, "file", cfg.Storage.Driver)
	assert.Equal(t, "data/stockdog.json", cfg.Storage.Path)
	assert.Equal(t, "data/stockdog.db", cfg.Database.SQLitePath)
	assert.Equal(t, "0 0 18 * * 1-5", cfg.Schedule.DigestCron)
	assert.False(t, cfg.TelegramEnabled())
	assert.NoError(t, cfg.Validate())
}

func TestLoad_YAMLAndEnvOverride(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  addr: ":9000"
sync:
  interval: 30s
quotes:
  provider: rest
  base_url: http://quotes.local
storage:
  driver: sqlite
telegram:
  bot_token: abc
`), 0o644))

	t.Setenv("TELEGRAM_CHAT_ID", "42")
	t.Setenv("SYNC_INTERVAL", "2")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.Equal(t, 2*time.Second, cfg.Sync.Interval)
	assert.Equal(t, "rest", cfg.Quotes.Provider)
	assert.Equal(t, "sqlite", cfg.Storage.Driver)
	assert.Equal(t, "data/stockdog_kv.db", cfg.Storage.Path)
	assert.Equal(t, "redis://localhost:6379/0", cfg.Storage.RedisURL)
	assert.True(t, cfg.TelegramEnabled())
	assert.NoError(t, cfg.Validate())
}

func TestLoad_Errors(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [unclosed"), 0o644))
	_, err := Load(path)
	assert.ErrorContains(t, err, "parse config")

	t.Setenv("SYNC_INTERVAL", "soon")
	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "SYNC_INTERVAL")
}

func TestValidate(t *testing.T) {
	clearEnv(t)
	base := func() *Config {
		cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
		require.NoError(t, err)
		return cfg
	}

	cfg := base()
	cfg.Sync.Interval = -time.Second
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Quotes.Provider = "rest"
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Quotes.Provider = "carrier-pigeon"
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Storage.Driver = "redis"
	assert.Error(t, cfg.Validate())
	cfg.Storage.RedisURL = "redis://localhost:6379"
	assert.NoError(t, cfg.Validate())

	cfg = base()
	cfg.Storage.Driver = "s3"
	assert.Error(t, cfg.Validate())
}
