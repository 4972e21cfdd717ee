package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`
	Sync struct {
		Interval time.Duration `yaml:"interval"`
		Timeout  time.Duration `yaml:"timeout"`
	} `yaml:"sync"`
	Quotes struct {
		Provider string `yaml:"provider"`
		BaseURL  string `yaml:"base_url"`
		APIKey   string `yaml:"api_key"`
	} `yaml:"quotes"`
	Storage struct {
		Driver   string `yaml:"driver"`
		Path     string `yaml:"path"`
		RedisURL string `yaml:"redis_url"`
		Prefix   string `yaml:"prefix"`
	} `yaml:"storage"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Companies struct {
		Path string `yaml:"path"`
	} `yaml:"companies"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	Schedule struct {
		DigestCron string `yaml:"digest_cron"`
	} `yaml:"schedule"`
	Log struct {
		Level  string `yaml:"level"`
		Pretty bool   `yaml:"pretty"`
	} `yaml:"log"`
	Proxy string `yaml:"proxy"`
}

// Load reads config from a YAML file, then applies environment variable
// overrides and defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() error {
	strs := map[string]*string{
		"STOCKDOG_ADDR":      &c.Server.Addr,
		"QUOTE_PROVIDER":     &c.Quotes.Provider,
		"QUOTE_BASE_URL":     &c.Quotes.BaseURL,
		"QUOTE_API_KEY":      &c.Quotes.APIKey,
		"STORAGE_DRIVER":     &c.Storage.Driver,
		"STORAGE_PATH":       &c.Storage.Path,
		"REDIS_URL":          &c.Storage.RedisURL,
		"SQLITE_PATH":        &c.Database.SQLitePath,
		"TELEGRAM_BOT_TOKEN": &c.Telegram.BotToken,
		"TELEGRAM_CHAT_ID":   &c.Telegram.ChatID,
		"HTTPS_PROXY":        &c.Proxy,
		"LOG_LEVEL":          &c.Log.Level,
	}
	for key, dst := range strs {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	if v := os.Getenv("SYNC_INTERVAL"); v != "" {
		d, err := parseInterval(v)
		if err != nil {
			return fmt.Errorf("SYNC_INTERVAL: %w", err)
		}
		c.Sync.Interval = d
	}
	return nil
}

// parseInterval accepts a Go duration ("5s") or a bare number of seconds.
func parseInterval(v string) (time.Duration, error) {
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	return time.ParseDuration(v)
}

func (c *Config) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Sync.Interval == 0 {
		c.Sync.Interval = 5 * time.Second
	}
	if c.Sync.Timeout == 0 {
		c.Sync.Timeout = 10 * time.Second
	}
	if c.Quotes.Provider == "" {
		c.Quotes.Provider = "yahoo"
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "file"
	}
	if c.Storage.Path == "" {
		switch c.Storage.Driver {
		case "sqlite":
			c.Storage.Path = "data/stockdog_kv.db"
		default:
			c.Storage.Path = "data/stockdog.json"
		}
	}
	if c.Storage.Prefix == "" {
		c.Storage.Prefix = "stockdog:"
	}
	if c.Database.SQLitePath == "" {
		c.Database.SQLitePath = "data/stockdog.db"
	}
	if c.Schedule.DigestCron == "" {
		c.Schedule.DigestCron = "0 0 18 * * 1-5"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// TelegramEnabled reports whether both bot token and chat id are set.
func (c *Config) TelegramEnabled() bool {
	return c.Telegram.BotToken != "" && c.Telegram.ChatID != ""
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Sync.Interval <= 0 {
		return fmt.Errorf("sync.interval must be positive")
	}
	switch c.Quotes.Provider {
	case "yahoo":
	case "rest":
		if c.Quotes.BaseURL == "" {
			return fmt.Errorf("quotes.base_url is required for the rest provider")
		}
	default:
		return fmt.Errorf("unknown quotes.provider %q", c.Quotes.Provider)
	}
	switch c.Storage.Driver {
	case "file", "sqlite", "memory":
	case "redis":
		if c.Storage.RedisURL == "" {
			return fmt.Errorf("storage.redis_url is required for the redis driver")
		}
	default:
		return fmt.Errorf("unknown storage.driver %q", c.Storage.Driver)
	}
	return nil
}
