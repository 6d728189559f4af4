package providers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weatherhub.app/models"
	apperrors "weatherhub.app/pkg/errors"
)

const pirateWeatherFixture = `{
	"timezone": "America/Chicago",
	"currently": {
		"time": 1750000000,
		"summary": "Partly Cloudy",
		"icon": "partly-cloudy-day",
		"temperature": 77.1,
		"apparentTemperature": 79.8,
		"humidity": 0.64,
		"windSpeed": 8.2,
		"windBearing": 180,
		"uvIndex": 5,
		"precipIntensity": 0.01,
		"precipProbability": 0.35,
		"precipType": "rain"
	},
	"hourly": {
		"data": [
			{"time": 1750003600, "icon": "rain", "temperature": 75.0, "precipProbability": 0.6}
		]
	},
	"daily": {
		"data": [
			{"time": 1750000000, "icon": "rain", "temperatureHigh": 80.0, "temperatureLow": 64.0, "sunriseTime": 1749985200, "sunsetTime": 1750039800}
		]
	}
}`

func TestPirateWeatherFetch(t *testing.T) {
	t.Run("normalizes a successful response", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.True(t, strings.Contains(r.URL.Path, "/test-key/"))
			assert.Equal(t, "us", r.URL.Query().Get("units"))
			_, _ = w.Write([]byte(pirateWeatherFixture))
		}))
		defer server.Close()

		provider := NewPirateWeatherProvider("test-key", server.URL, 5*time.Second)
		obs, err := provider.Fetch(context.Background(), 41.8781, -87.6298, "")
		require.NoError(t, err)

		assert.Equal(t, "PirateWeather", obs.ProviderName)
		assert.Equal(t, 77.1, obs.Current.Temperature)
		assert.Equal(t, 64.0, obs.Current.Humidity, "0-1 humidity scales to percent")
		assert.Equal(t, 35.0, obs.Current.PrecipProbability, "0-1 probability scales to percent")
		assert.Equal(t, models.PrecipRain, obs.Current.PrecipType)
		assert.Equal(t, models.ConditionPartlyCloudyDay, obs.Current.Condition)
		assert.Equal(t, "Partly Cloudy", obs.Current.Summary)
		require.NotNil(t, obs.Current.WindDirection)
		assert.Equal(t, 180.0, *obs.Current.WindDirection)

		require.Len(t, obs.Hourly, 1)
		assert.Equal(t, 60.0, obs.Hourly[0].PrecipProbability)

		require.Len(t, obs.Daily, 1)
		assert.Equal(t, 80.0, obs.Daily[0].High)
		require.Len(t, obs.Sun, 1)
	})

	t.Run("fails fast without an API key", func(t *testing.T) {
		provider := NewPirateWeatherProvider("", "http://unused", 5*time.Second)
		_, err := provider.Fetch(context.Background(), 41.8781, -87.6298, "")
		require.Error(t, err)

		kind, ok := apperrors.ProviderErrorKindOf(err)
		require.True(t, ok)
		assert.Equal(t, apperrors.ProviderErrorAuth, kind)
	})

	t.Run("classifies 401 as auth failure", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}))
		defer server.Close()

		provider := NewPirateWeatherProvider("bad-key", server.URL, 5*time.Second)
		_, err := provider.Fetch(context.Background(), 41.8781, -87.6298, "")
		require.Error(t, err)

		kind, ok := apperrors.ProviderErrorKindOf(err)
		require.True(t, ok)
		assert.Equal(t, apperrors.ProviderErrorAuth, kind)
	})

	t.Run("rejects payload without current conditions", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"timezone": "UTC"}`))
		}))
		defer server.Close()

		provider := NewPirateWeatherProvider("test-key", server.URL, 5*time.Second)
		_, err := provider.Fetch(context.Background(), 41.8781, -87.6298, "")
		require.Error(t, err)

		kind, ok := apperrors.ProviderErrorKindOf(err)
		require.True(t, ok)
		assert.Equal(t, apperrors.ProviderErrorInvalidResponse, kind)
	})

	t.Run("degrades unknown icon to clear-day", func(t *testing.T) {
		assert.Equal(t, models.ConditionClearDay, iconCondition("tornado"))
		assert.Equal(t, models.ConditionSnow, iconCondition("snow"))
	})
}
