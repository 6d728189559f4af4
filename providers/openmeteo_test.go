package providers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weatherhub.app/models"
	apperrors "weatherhub.app/pkg/errors"
)

const openMeteoFixture = `{
	"timezone": "America/Chicago",
	"current": {
		"time": "2025-06-15T14:00",
		"temperature_2m": 78.5,
		"relative_humidity_2m": 62,
		"apparent_temperature": 81.2,
		"is_day": 1,
		"precipitation": 0,
		"rain": 0,
		"showers": 0,
		"snowfall": 0,
		"weather_code": 2,
		"wind_speed_10m": 9.4,
		"wind_direction_10m": 220,
		"uv_index": 6.5
	},
	"hourly": {
		"time": ["2025-06-15T14:00", "2025-06-15T15:00"],
		"temperature_2m": [78.5, 79.1],
		"precipitation_probability": [5, 20],
		"weather_code": [2, 61]
	},
	"daily": {
		"time": ["2025-06-15", "2025-06-16"],
		"weather_code": [2, 95],
		"temperature_2m_max": [82.0, 75.3],
		"temperature_2m_min": [65.1, 60.0],
		"sunrise": ["2025-06-15T05:15", "2025-06-16T05:15"],
		"sunset": ["2025-06-15T20:29", "2025-06-16T20:30"]
	}
}`

func TestOpenMeteoFetch(t *testing.T) {
	t.Run("normalizes a successful response", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "41.8781", r.URL.Query().Get("latitude"))
			assert.Equal(t, "fahrenheit", r.URL.Query().Get("temperature_unit"))
			assert.Equal(t, "auto", r.URL.Query().Get("timezone"))
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(openMeteoFixture))
		}))
		defer server.Close()

		provider := NewOpenMeteoProvider(server.URL, 5*time.Second)
		obs, err := provider.Fetch(context.Background(), 41.8781, -87.6298, "")
		require.NoError(t, err)

		assert.Equal(t, "41.8781,-87.6298", obs.LocationKey)
		assert.Equal(t, "OpenMeteo", obs.ProviderName)
		assert.Equal(t, 78.5, obs.Current.Temperature)
		assert.Equal(t, 81.2, obs.Current.FeelsLike)
		assert.Equal(t, 62.0, obs.Current.Humidity)
		require.NotNil(t, obs.Current.WindDirection)
		assert.Equal(t, 220.0, *obs.Current.WindDirection)
		assert.Equal(t, models.ConditionPartlyCloudyDay, obs.Current.Condition)
		assert.Equal(t, "Partly cloudy", obs.Current.Summary)
		assert.Equal(t, models.PrecipNone, obs.Current.PrecipType)

		require.Len(t, obs.Hourly, 2)
		assert.Equal(t, models.ConditionLightRain, obs.Hourly[1].Condition)
		assert.Equal(t, 20.0, obs.Hourly[1].PrecipProbability)

		require.Len(t, obs.Daily, 2)
		assert.Equal(t, "2025-06-15", obs.Daily[0].Date)
		assert.Equal(t, 82.0, obs.Daily[0].High)
		assert.Equal(t, models.ConditionThunderstorm, obs.Daily[1].Condition)

		require.Contains(t, obs.Sun, "2025-06-15")
		assert.Equal(t, "2025-06-15T05:15", obs.Sun["2025-06-15"].Sunrise)
	})

	t.Run("passes timezone override through", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "Europe/Kyiv", r.URL.Query().Get("timezone"))
			_, _ = w.Write([]byte(openMeteoFixture))
		}))
		defer server.Close()

		provider := NewOpenMeteoProvider(server.URL, 5*time.Second)
		_, err := provider.Fetch(context.Background(), 50.45, 30.52, "Europe/Kyiv")
		require.NoError(t, err)
	})

	t.Run("classifies timeout", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(200 * time.Millisecond)
		}))
		defer server.Close()

		provider := NewOpenMeteoProvider(server.URL, 50*time.Millisecond)
		_, err := provider.Fetch(context.Background(), 41.8781, -87.6298, "")
		require.Error(t, err)

		kind, ok := apperrors.ProviderErrorKindOf(err)
		require.True(t, ok)
		assert.Equal(t, apperrors.ProviderErrorTimeout, kind)
	})

	t.Run("classifies malformed JSON as invalid response", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("not json"))
		}))
		defer server.Close()

		provider := NewOpenMeteoProvider(server.URL, 5*time.Second)
		_, err := provider.Fetch(context.Background(), 41.8781, -87.6298, "")
		require.Error(t, err)

		kind, ok := apperrors.ProviderErrorKindOf(err)
		require.True(t, ok)
		assert.Equal(t, apperrors.ProviderErrorInvalidResponse, kind)
	})

	t.Run("classifies server error as network failure", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		provider := NewOpenMeteoProvider(server.URL, 5*time.Second)
		_, err := provider.Fetch(context.Background(), 41.8781, -87.6298, "")
		require.Error(t, err)

		kind, ok := apperrors.ProviderErrorKindOf(err)
		require.True(t, ok)
		assert.Equal(t, apperrors.ProviderErrorNetwork, kind)
	})

	t.Run("rejects hourly series length mismatch", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{
				"timezone": "UTC",
				"current": {"time": "2025-06-15T14:00", "weather_code": 0, "is_day": 1},
				"hourly": {"time": ["2025-06-15T14:00"], "temperature_2m": [], "weather_code": []}
			}`))
		}))
		defer server.Close()

		provider := NewOpenMeteoProvider(server.URL, 5*time.Second)
		_, err := provider.Fetch(context.Background(), 41.8781, -87.6298, "")
		require.Error(t, err)

		kind, ok := apperrors.ProviderErrorKindOf(err)
		require.True(t, ok)
		assert.Equal(t, apperrors.ProviderErrorInvalidResponse, kind)
	})
}

func TestWMOConditionMapping(t *testing.T) {
	tests := []struct {
		code  int
		isDay bool
		want  models.ConditionCode
	}{
		{0, true, models.ConditionClearDay},
		{0, false, models.ConditionClearNight},
		{2, false, models.ConditionPartlyCloudyNight},
		{3, true, models.ConditionCloudy},
		{45, true, models.ConditionFog},
		{51, true, models.ConditionLightRain},
		{63, true, models.ConditionRain},
		{82, true, models.ConditionHeavyRain},
		{66, true, models.ConditionSleet},
		{71, true, models.ConditionLightSnow},
		{75, true, models.ConditionHeavySnow},
		{95, true, models.ConditionThunderstorm},
		{42, true, models.ConditionClearDay}, // unknown code degrades
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, wmoCondition(tt.code, tt.isDay), "code %d day=%v", tt.code, tt.isDay)
	}
}
