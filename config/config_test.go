package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weatherhub.app/pkg/errors"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 180, cfg.Cache.TTLSeconds)
	assert.Equal(t, 3*time.Minute, cfg.Cache.TTL())
	assert.Equal(t, 100, cfg.Cache.Capacity)
	assert.Equal(t, "memory", cfg.Cache.Backend)
	assert.Equal(t, []string{"pirateweather", "openmeteo"}, cfg.Providers.Order)
	assert.Equal(t, 10*time.Second, cfg.Providers.Timeout())
	assert.Equal(t, 10*time.Minute, cfg.Refresh.Interval())
	assert.Equal(t, 3, cfg.Session.MaxPushRetries)
	assert.Equal(t, time.Second, cfg.Session.BackoffBase())
	assert.Equal(t, 10*time.Minute, cfg.Session.PollInterval())
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("CACHE_TTL_SECONDS", "60")
	t.Setenv("PROVIDER_ORDER", "openmeteo")
	t.Setenv("PIRATE_WEATHER_API_KEY", "secret")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, time.Minute, cfg.Cache.TTL())
	assert.Equal(t, []string{"openmeteo"}, cfg.Providers.Order)
	assert.Equal(t, "secret", cfg.Providers.PirateWeatherKey)
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name  string
		env   map[string]string
		wants string
	}{
		{
			name:  "port out of range",
			env:   map[string]string{"SERVER_PORT": "70000"},
			wants: "SERVER_PORT",
		},
		{
			name:  "zero TTL",
			env:   map[string]string{"CACHE_TTL_SECONDS": "0"},
			wants: "CACHE_TTL_SECONDS",
		},
		{
			name:  "unknown cache backend",
			env:   map[string]string{"CACHE_BACKEND": "memcached"},
			wants: "CACHE_BACKEND",
		},
		{
			name:  "empty redis addr with redis backend",
			env:   map[string]string{"CACHE_BACKEND": "redis", "CACHE_REDIS_ADDR": ""},
			wants: "CACHE_REDIS_ADDR",
		},
		{
			name:  "unknown provider in order",
			env:   map[string]string{"PROVIDER_ORDER": "darksky"},
			wants: "PROVIDER_ORDER",
		},
		{
			name:  "provider timeout too large",
			env:   map[string]string{"PROVIDER_TIMEOUT_SECONDS": "120"},
			wants: "PROVIDER_TIMEOUT_SECONDS",
		},
		{
			name:  "bad provider base URL",
			env:   map[string]string{"OPEN_METEO_BASE_URL": "ftp://example.com"},
			wants: "OPEN_METEO_BASE_URL",
		},
		{
			name:  "refresh interval too large",
			env:   map[string]string{"REFRESH_INTERVAL_MINUTES": "2000"},
			wants: "REFRESH_INTERVAL_MINUTES",
		},
		{
			name:  "negative push retries",
			env:   map[string]string{"SESSION_MAX_PUSH_RETRIES": "-1"},
			wants: "SESSION_MAX_PUSH_RETRIES",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for key, value := range tt.env {
				t.Setenv(key, value)
			}

			_, err := LoadConfig()
			require.Error(t, err)
			assert.True(t, errors.IsConfigurationError(err))
			assert.Contains(t, err.Error(), tt.wants)
		})
	}
}
