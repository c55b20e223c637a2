package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

type Server struct {
	Port              string `toml:"port"`
	RequestTimeoutSec int    `toml:"request_timeout_sec"`
	LogLevel          string `toml:"log_level"`
}

type Cache struct {
	QuoteTTLSec        int `toml:"quote_ttl_sec"`
	RateTTLSec         int `toml:"rate_ttl_sec"`
	FallbackRateTTLSec int `toml:"fallback_rate_ttl_sec"`
	MaxItems           int `toml:"max_items"`
	SweepIntervalSec   int `toml:"sweep_interval_sec"`
}

type Quotes struct {
	// OnAllProvidersFail is "omit" or "fallback" for stock chains.
	OnAllProvidersFail string `toml:"on_all_providers_fail"`
	BatchDelayMs       int    `toml:"batch_delay_ms"`
	Concurrency        int    `toml:"concurrency"`
	SimulationSeed     int64  `toml:"simulation_seed"`
}

// Refresh bounds manual portfolio refreshes per user.
type Refresh struct {
	Limit     int `toml:"limit"`
	WindowSec int `toml:"window_sec"`
}

type Storage struct {
	SQLitePath string `toml:"sqlite_path"`
}

type Provider struct {
	Enabled       bool   `toml:"enabled"`
	BaseURL       string `toml:"base_url"`
	APIKey        string `toml:"api_key"`
	ClientID      string `toml:"client_id"`
	Limit         int    `toml:"limit"`
	WindowSec     int    `toml:"window_sec"`
	MinIntervalMs int    `toml:"min_interval_ms"`
}

func (p Provider) Window() time.Duration { return seconds(p.WindowSec) }

func (p Provider) MinInterval() time.Duration {
	return time.Duration(p.MinIntervalMs) * time.Millisecond
}

type Providers struct {
	CoinGecko       Provider `toml:"coingecko"`
	Yahoo           Provider `toml:"yahoo"`
	AlphaVantage    Provider `toml:"alphavantage"`
	ExchangeRateAPI Provider `toml:"exchangerate_api"`
	BOT             Provider `toml:"bot"`
	Fixer           Provider `toml:"fixer"`
}

type Config struct {
	DisplayCurrency string    `toml:"display_currency"`
	Server          Server    `toml:"server"`
	Cache           Cache     `toml:"cache"`
	Quotes          Quotes    `toml:"quotes"`
	Refresh         Refresh   `toml:"refresh"`
	Storage         Storage   `toml:"storage"`
	Providers       Providers `toml:"providers"`
}

func Default() Config {
	return Config{
		DisplayCurrency: "USD",
		Server:          Server{Port: "8080", RequestTimeoutSec: 10, LogLevel: "info"},
		Cache: Cache{
			QuoteTTLSec:        600,
			RateTTLSec:         1800,
			FallbackRateTTLSec: 300,
			MaxItems:           10000,
			SweepIntervalSec:   600,
		},
		Quotes:  Quotes{OnAllProvidersFail: "omit", BatchDelayMs: 1000, Concurrency: 1},
		Refresh: Refresh{Limit: 3, WindowSec: 3600},
		Storage: Storage{SQLitePath: "portfolio.db"},
		Providers: Providers{
			CoinGecko:       Provider{Enabled: true, Limit: 30, WindowSec: 60, MinIntervalMs: 500},
			Yahoo:           Provider{Enabled: true, Limit: 100, WindowSec: 60},
			AlphaVantage:    Provider{Enabled: true, Limit: 5, WindowSec: 60},
			ExchangeRateAPI: Provider{Enabled: true, Limit: 1500, WindowSec: 3600},
			BOT:             Provider{Enabled: true, Limit: 60, WindowSec: 60},
			Fixer:           Provider{Enabled: true, Limit: 100, WindowSec: 3600},
		},
	}
}

// Load reads TOML config from path. If path is empty or file does not exist,
// it returns defaults. Environment variables override select fields for secrecy.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		if _, err := os.Stat("config.toml"); err == nil {
			path = "config.toml"
		}
	}
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err == nil {
			if err := toml.Unmarshal(b, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config: %w", err)
			}
		}
	}
	applyEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch c.Quotes.OnAllProvidersFail {
	case "", "omit", "fallback":
	default:
		return fmt.Errorf("config: quotes.on_all_providers_fail must be omit or fallback, got %q", c.Quotes.OnAllProvidersFail)
	}
	if len(c.DisplayCurrency) != 3 {
		return fmt.Errorf("config: display_currency %q is not a currency code", c.DisplayCurrency)
	}
	if c.Server.Port == "" {
		return errors.New("config: server.port is empty")
	}
	return nil
}

func (c Config) RequestTimeout() time.Duration { return seconds(c.Server.RequestTimeoutSec) }

func (c Config) BatchDelay() time.Duration {
	return time.Duration(c.Quotes.BatchDelayMs) * time.Millisecond
}

func (c Cache) QuoteTTL() time.Duration        { return seconds(c.QuoteTTLSec) }
func (c Cache) RateTTL() time.Duration         { return seconds(c.RateTTLSec) }
func (c Cache) FallbackRateTTL() time.Duration { return seconds(c.FallbackRateTTLSec) }
func (c Cache) SweepInterval() time.Duration   { return seconds(c.SweepIntervalSec) }
func (r Refresh) Window() time.Duration        { return seconds(r.WindowSec) }

func seconds(n int) time.Duration { return time.Duration(n) * time.Second }

func applyEnv(cfg *Config) {
	if v := os.Getenv("PORT"); v != "" {
		cfg.Server.Port = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Server.LogLevel = strings.ToLower(v)
	}
	envInt("REQUEST_TIMEOUT_SEC", &cfg.Server.RequestTimeoutSec, 1)
	if v := os.Getenv("DISPLAY_CURRENCY"); v != "" {
		cfg.DisplayCurrency = strings.ToUpper(v)
	}
	if v := os.Getenv("QUOTE_FAILURE_POLICY"); v != "" {
		cfg.Quotes.OnAllProvidersFail = strings.ToLower(v)
	}
	envInt("QUOTE_BATCH_DELAY_MS", &cfg.Quotes.BatchDelayMs, 0)
	envInt("QUOTE_CONCURRENCY", &cfg.Quotes.Concurrency, 1)
	if v, ok := os.LookupEnv("SQLITE_PATH"); ok {
		cfg.Storage.SQLitePath = v
	}

	if v := os.Getenv("COINGECKO_API_KEY"); v != "" {
		cfg.Providers.CoinGecko.APIKey = v
	}
	if v := os.Getenv("ALPHA_VANTAGE_API_KEY"); v != "" {
		cfg.Providers.AlphaVantage.APIKey = v
	}
	if v := os.Getenv("FIXER_API_KEY"); v != "" {
		cfg.Providers.Fixer.APIKey = v
	}
	if v := os.Getenv("BOT_CLIENT_ID"); v != "" {
		cfg.Providers.BOT.ClientID = v
	}

	envBool("COINGECKO_ENABLED", &cfg.Providers.CoinGecko.Enabled)
	envBool("YAHOO_ENABLED", &cfg.Providers.Yahoo.Enabled)
	envBool("ALPHAVANTAGE_ENABLED", &cfg.Providers.AlphaVantage.Enabled)
	envBool("EXCHANGERATE_API_ENABLED", &cfg.Providers.ExchangeRateAPI.Enabled)
	envBool("BOT_ENABLED", &cfg.Providers.BOT.Enabled)
	envBool("FIXER_ENABLED", &cfg.Providers.Fixer.Enabled)
}

func envInt(key string, dst *int, min int) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	if x, err := strconv.Atoi(v); err == nil && x >= min {
		*dst = x
	}
}

func envBool(key string, dst *bool) {
	switch strings.ToLower(os.Getenv(key)) {
	case "1", "true", "yes", "y":
		*dst = true
	case "0", "false", "no", "n":
		*dst = false
	}
}
