package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewApplication(t *testing.T) {
	t.Run("wires all services with default configuration", func(t *testing.T) {
		t.Setenv("PIRATE_WEATHER_API_KEY", "")

		application, err := NewApplication()
		require.NoError(t, err)

		cfg := application.Config()
		assert.Equal(t, 8080, cfg.Server.Port)
		assert.Equal(t, "memory", cfg.Cache.Backend)

		// Without a PirateWeather key only Open-Meteo is configured.
		assert.Equal(t, []string{"OpenMeteo"}, application.failover.Names())
	})

	t.Run("includes PirateWeather when a key is present", func(t *testing.T) {
		t.Setenv("PIRATE_WEATHER_API_KEY", "test-key")

		application, err := NewApplication()
		require.NoError(t, err)
		assert.Equal(t, []string{"PirateWeather", "OpenMeteo"}, application.failover.Names())
	})

	t.Run("rejects invalid configuration", func(t *testing.T) {
		t.Setenv("CACHE_BACKEND", "bogus")
		_, err := NewApplication()
		assert.Error(t, err)
	})
}
