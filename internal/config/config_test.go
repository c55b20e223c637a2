package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsWhenMissing(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
	require.Equal(t, 10*time.Minute, cfg.Cache.QuoteTTL())
	require.Equal(t, time.Second, cfg.BatchDelay())
	require.Equal(t, time.Hour, cfg.Refresh.Window())
}

func TestLoad_FileMergesOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	body := `
display_currency = "THB"

[server]
port = "9090"

[quotes]
on_all_providers_fail = "fallback"
concurrency = 3

[providers.alphavantage]
api_key = "file-key"
limit = 25
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "THB", cfg.DisplayCurrency)
	require.Equal(t, "9090", cfg.Server.Port)
	require.Equal(t, 10, cfg.Server.RequestTimeoutSec)
	require.Equal(t, "fallback", cfg.Quotes.OnAllProvidersFail)
	require.Equal(t, 3, cfg.Quotes.Concurrency)
	require.Equal(t, 1000, cfg.Quotes.BatchDelayMs)
	require.Equal(t, "file-key", cfg.Providers.AlphaVantage.APIKey)
	require.Equal(t, 25, cfg.Providers.AlphaVantage.Limit)
	require.Equal(t, 60, cfg.Providers.AlphaVantage.WindowSec)
	require.True(t, cfg.Providers.AlphaVantage.Enabled)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PORT", "7000")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("ALPHA_VANTAGE_API_KEY", "env-key")
	t.Setenv("FIXER_API_KEY", "fixer")
	t.Setenv("BOT_CLIENT_ID", "client")
	t.Setenv("YAHOO_ENABLED", "false")
	t.Setenv("QUOTE_FAILURE_POLICY", "FALLBACK")
	t.Setenv("REQUEST_TIMEOUT_SEC", "not-a-number")
	t.Setenv("SQLITE_PATH", "")

	cfg, err := Load(filepath.Join(t.TempDir(), "none.toml"))
	require.NoError(t, err)
	require.Equal(t, "7000", cfg.Server.Port)
	require.Equal(t, "debug", cfg.Server.LogLevel)
	require.Equal(t, 10, cfg.Server.RequestTimeoutSec)
	require.Equal(t, "env-key", cfg.Providers.AlphaVantage.APIKey)
	require.Equal(t, "fixer", cfg.Providers.Fixer.APIKey)
	require.Equal(t, "client", cfg.Providers.BOT.ClientID)
	require.False(t, cfg.Providers.Yahoo.Enabled)
	require.Equal(t, "fallback", cfg.Quotes.OnAllProvidersFail)
	require.Empty(t, cfg.Storage.SQLitePath)
}

func TestLoad_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[quotes]\non_all_providers_fail = \"retry\"\n"), 0o600))
	_, err := Load(path)
	require.Error(t, err)

	require.NoError(t, os.WriteFile(path, []byte("[server\n"), 0o600))
	_, err = Load(path)
	require.ErrorContains(t, err, "parse config")
}
