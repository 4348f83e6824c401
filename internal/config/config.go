package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	API     APIConfig     `mapstructure:"api"`
	UI      UIConfig      `mapstructure:"ui"`
	Cache   CacheConfig   `mapstructure:"cache"`
	Session SessionConfig `mapstructure:"session"`
	Log     LogConfig     `mapstructure:"log"`
}

// APIConfig holds backend connection settings.
type APIConfig struct {
	BaseURL       string        `mapstructure:"base_url"`
	Token         string        `mapstructure:"token"`
	TokenEnv      string        `mapstructure:"token_env"`
	Timeout       time.Duration `mapstructure:"timeout"`
	RatePerSecond float64       `mapstructure:"rate_per_second"`
	Burst         int           `mapstructure:"burst"`
}

// UIConfig holds presentation settings.
type UIConfig struct {
	PageSize    int    `mapstructure:"page_size"`
	DateFormat  string `mapstructure:"date_format"`
	Timezone    string `mapstructure:"timezone"`
	ScreensFile string `mapstructure:"screens_file"`
	Screen      string `mapstructure:"screen"`
}

// CacheConfig controls the on-disk page cache.
type CacheConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	Path    string        `mapstructure:"path"`
	TTL     time.Duration `mapstructure:"ttl"`
}

// SessionConfig pins the acting user and college. Empty values fall back
// to the claims carried by the API token.
type SessionConfig struct {
	UserID    string `mapstructure:"user_id"`
	CollegeID string `mapstructure:"college_id"`
}

// LogConfig holds log sink settings.
type LogConfig struct {
	File  string `mapstructure:"file"`
	Level string `mapstructure:"level"`
}

// flagKeys maps command-line flag names to config keys.
var flagKeys = map[string]string{
	"base-url": "api.base_url",
	"token":    "api.token",
	"screen":   "ui.screen",
	"log-file": "log.file",
	"no-cache": "cache.disabled",
}

// Load reads configuration from .env, file, env and flags, in increasing
// order of precedence. Env var overrides use prefix KUMSS_.
func Load(flags *pflag.FlagSet) (Config, error) {
	// .env is optional
	_ = godotenv.Load()

	v := viper.New()

	home := os.Getenv("HOME")
	v.SetDefault("api.base_url", "http://localhost:8000/api/v1")
	v.SetDefault("api.token", "")
	v.SetDefault("api.token_env", "KUMSS_API_TOKEN")
	v.SetDefault("api.timeout", "15s")
	v.SetDefault("api.rate_per_second", 10.0)
	v.SetDefault("api.burst", 5)
	v.SetDefault("ui.page_size", 20)
	v.SetDefault("ui.date_format", "02 Jan 2006")
	v.SetDefault("ui.timezone", "Asia/Kolkata")
	v.SetDefault("ui.screens_file", filepath.Join(home, ".config", "kumss", "screens.yaml"))
	v.SetDefault("ui.screen", "")
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.path", filepath.Join(home, ".local", "share", "kumss", "cache.db"))
	v.SetDefault("cache.ttl", "10m")
	v.SetDefault("session.user_id", "")
	v.SetDefault("session.college_id", "")
	v.SetDefault("log.file", "")
	v.SetDefault("log.level", "info")

	v.SetConfigType("toml")

	cfgPath := os.Getenv("KUMSS_CONFIG")
	if flags != nil {
		if f := flags.Lookup("config"); f != nil && f.Changed {
			cfgPath = f.Value.String()
		}
	}
	if cfgPath != "" {
		v.SetConfigFile(cfgPath)
	} else {
		v.AddConfigPath(filepath.Join(home, ".config", "kumss"))
		v.SetConfigName("config")
	}

	v.SetEnvPrefix("KUMSS")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgPath != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	if flags != nil {
		for name, key := range flagKeys {
			f := flags.Lookup(name)
			if f == nil || !f.Changed {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return Config{}, fmt.Errorf("bind flag %s: %w", name, err)
			}
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if v.GetBool("cache.disabled") {
		c.Cache.Enabled = false
	}
	return normalize(c), nil
}

func normalize(c Config) Config {
	c.API.BaseURL = strings.TrimRight(strings.TrimSpace(c.API.BaseURL), "/")
	if c.API.Timeout <= 0 {
		c.API.Timeout = 15 * time.Second
	}
	if c.API.Burst <= 0 {
		c.API.Burst = 1
	}
	switch c.UI.PageSize {
	case 10, 20, 50, 100:
	default:
		c.UI.PageSize = 20
	}
	if c.UI.DateFormat == "" {
		c.UI.DateFormat = "02 Jan 2006"
	}
	return c
}

// Location resolves the configured timezone, falling back to local time.
func (c Config) Location() *time.Location {
	if c.UI.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.UI.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// Save writes the non-sensitive parts of cfg to disk, creating the config
// directory if needed. The API token is never written; use the secrets
// store or the token env var instead.
func Save(cfg Config) error {
	path := os.Getenv("KUMSS_CONFIG")
	if path == "" {
		path = filepath.Join(os.Getenv("HOME"), ".config", "kumss", "config.toml")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}

	v := viper.New()
	v.SetConfigType("toml")
	v.Set("api.base_url", cfg.API.BaseURL)
	v.Set("api.token_env", cfg.API.TokenEnv)
	v.Set("api.timeout", cfg.API.Timeout.String())
	v.Set("api.rate_per_second", cfg.API.RatePerSecond)
	v.Set("api.burst", cfg.API.Burst)
	v.Set("ui.page_size", cfg.UI.PageSize)
	v.Set("ui.date_format", cfg.UI.DateFormat)
	v.Set("ui.timezone", cfg.UI.Timezone)
	v.Set("ui.screens_file", cfg.UI.ScreensFile)
	v.Set("cache.enabled", cfg.Cache.Enabled)
	v.Set("cache.path", cfg.Cache.Path)
	v.Set("cache.ttl", cfg.Cache.TTL.String())
	v.Set("session.user_id", cfg.Session.UserID)
	v.Set("session.college_id", cfg.Session.CollegeID)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
