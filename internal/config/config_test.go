package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("COINPROXY_UPSTREAM_API_KEY", "test-key")

	c, err := Load()
	require.NoError(t, err)

	require.Equal(t, ":8080", c.HTTP.Addr)
	require.Equal(t, "https://api.livecoinwatch.com", c.Upstream.BaseURL)
	require.Equal(t, "test-key", c.Upstream.APIKey)
	require.Equal(t, 10*time.Second, c.Upstream.Timeout)
	require.Zero(t, c.Upstream.MaxRPM)
	require.Equal(t, 5*time.Minute, c.Cache.TTL)
	require.Equal(t, 10000, c.Cache.MaxItems)
	require.Equal(t, "USD", c.API.DefaultCurrency)
	require.Contains(t, c.API.Currencies, "EUR")
	require.Equal(t, 50, c.API.MaxBatchSymbols)
	require.False(t, c.Debug)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("COINPROXY_UPSTREAM_API_KEY", "k")
	t.Setenv("COINPROXY_HTTP_ADDR", ":9090")
	t.Setenv("COINPROXY_CACHE_TTL", "30s")
	t.Setenv("COINPROXY_UPSTREAM_MAX_RPM", "120")
	t.Setenv("COINPROXY_API_CURRENCIES", "USD,EUR")

	c, err := Load()
	require.NoError(t, err)

	require.Equal(t, ":9090", c.HTTP.Addr)
	require.Equal(t, 30*time.Second, c.Cache.TTL)
	require.Equal(t, 120, c.Upstream.MaxRPM)
	require.Equal(t, []string{"USD", "EUR"}, c.API.Currencies)
}

func TestLoadRequiresAPIKey(t *testing.T) {
	t.Setenv("COINPROXY_UPSTREAM_API_KEY", "")

	_, err := Load()
	require.Error(t, err)
	require.Contains(t, err.Error(), "COINPROXY_UPSTREAM_API_KEY")
}
