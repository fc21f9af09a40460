// Package config loads runtime settings: JSON config file with env
// overrides for secrets, plus the YAML ticker-list files that name a
// market or portfolio scope.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

type Cache struct {
	Path        string `json:"path"`
	ShortTTLSec int    `json:"short_ttl_sec"`
	LongTTLSec  int    `json:"long_ttl_sec"`
}

type Yahoo struct {
	BaseURL       string `json:"base_url"`
	Range         string `json:"range"`
	Interval      string `json:"interval"`
	NewsCount     int    `json:"news_count"`
	MinIntervalMS int    `json:"min_interval_ms"`
}

type Finnhub struct {
	Enabled              bool   `json:"enabled"`
	APIKey               string `json:"api_key"`
	BaseURL              string `json:"base_url"`
	NewsDays             int    `json:"news_days"`
	MaxRequestsPerMinute int    `json:"max_requests_per_minute"`
	Burst                int    `json:"burst"`
}

type Fetch struct {
	MaxWorkers  int `json:"max_workers"`
	TimeoutSec  int `json:"timeout_sec"`
	MaxAttempts int `json:"max_attempts"`
}

type Export struct {
	OutDir string `json:"out_dir"`
}

type Config struct {
	Cache   Cache   `json:"cache"`
	Yahoo   Yahoo   `json:"yahoo"`
	Finnhub Finnhub `json:"finnhub"`
	Fetch   Fetch   `json:"fetch"`
	Export  Export  `json:"export"`
}

func Default() Config {
	return Config{
		Cache: Cache{
			Path:        "finfetch_cache.db",
			ShortTTLSec: 900,
			LongTTLSec:  86400,
		},
		Yahoo: Yahoo{
			BaseURL:       "https://query1.finance.yahoo.com",
			Range:         "5d",
			Interval:      "1d",
			NewsCount:     10,
			MinIntervalMS: 250,
		},
		Finnhub: Finnhub{
			Enabled:              true,
			BaseURL:              "https://finnhub.io/api/v1",
			NewsDays:             7,
			MaxRequestsPerMinute: 30,
			Burst:                5,
		},
		Fetch: Fetch{
			MaxWorkers:  4,
			TimeoutSec:  10,
			MaxAttempts: 3,
		},
		Export: Export{OutDir: "exports/digests"},
	}
}

func (c Cache) ShortTTL() time.Duration { return time.Duration(c.ShortTTLSec) * time.Second }
func (c Cache) LongTTL() time.Duration  { return time.Duration(c.LongTTLSec) * time.Second }
func (f Fetch) Timeout() time.Duration  { return time.Duration(f.TimeoutSec) * time.Second }

// Load reads JSON config from path. If path is empty or the file does
// not exist, it returns defaults. Environment variables override the
// secret-bearing fields.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		if _, err := os.Stat("config.json"); err == nil {
			path = "config.json"
		}
	}
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err == nil {
			if err := json.Unmarshal(b, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config: %w", err)
			}
		}
	}
	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("FINNHUB_API_KEY"); v != "" && v != "your_key_here" {
		cfg.Finnhub.APIKey = v
	}
	if v := os.Getenv("FINFETCH_CACHE_PATH"); v != "" {
		cfg.Cache.Path = v
	}
	if v := os.Getenv("FINFETCH_OUT_DIR"); v != "" {
		cfg.Export.OutDir = v
	}
	if v := os.Getenv("FINFETCH_MAX_WORKERS"); v != "" {
		var x int
		fmt.Sscanf(v, "%d", &x)
		if x > 0 {
			cfg.Fetch.MaxWorkers = x
		}
	}
	if v := os.Getenv("FINFETCH_TIMEOUT_SEC"); v != "" {
		var x int
		fmt.Sscanf(v, "%d", &x)
		if x > 0 {
			cfg.Fetch.TimeoutSec = x
		}
	}
	if v := os.Getenv("FINFETCH_MAX_ATTEMPTS"); v != "" {
		var x int
		fmt.Sscanf(v, "%d", &x)
		if x > 0 {
			cfg.Fetch.MaxAttempts = x
		}
	}
	if v := os.Getenv("FINFETCH_SHORT_TTL_SEC"); v != "" {
		var x int
		fmt.Sscanf(v, "%d", &x)
		if x > 0 {
			cfg.Cache.ShortTTLSec = x
		}
	}
	if v := os.Getenv("FINFETCH_LONG_TTL_SEC"); v != "" {
		var x int
		fmt.Sscanf(v, "%d", &x)
		if x > 0 {
			cfg.Cache.LongTTLSec = x
		}
	}
	if v := os.Getenv("FINNHUB_ENABLED"); v != "" {
		switch strings.ToLower(v) {
		case "1", "true", "yes", "y":
			cfg.Finnhub.Enabled = true
		case "0", "false", "no", "n":
			cfg.Finnhub.Enabled = false
		}
	}
}
