package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"weatherhub.app/models"
	apperrors "weatherhub.app/pkg/errors"
)

const openMeteoName = "OpenMeteo"

// OpenMeteoProvider implements Client for the Open-Meteo forecast API.
// No API key required.
type OpenMeteoProvider struct {
	baseURL string
	client  *http.Client
	timeout time.Duration
}

// NewOpenMeteoProvider creates a new Open-Meteo client
func NewOpenMeteoProvider(baseURL string, timeout time.Duration) *OpenMeteoProvider {
	return &OpenMeteoProvider{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		timeout: timeout,
	}
}

func (p *OpenMeteoProvider) Name() string { return openMeteoName }

type openMeteoCurrent struct {
	Time                string   `json:"time"`
	Temperature2m       float64  `json:"temperature_2m"`
	RelativeHumidity2m  float64  `json:"relative_humidity_2m"`
	ApparentTemperature float64  `json:"apparent_temperature"`
	IsDay               int      `json:"is_day"`
	Precipitation       float64  `json:"precipitation"`
	Rain                float64  `json:"rain"`
	Showers             float64  `json:"showers"`
	Snowfall            float64  `json:"snowfall"`
	WeatherCode         int      `json:"weather_code"`
	WindSpeed10m        float64  `json:"wind_speed_10m"`
	WindDirection10m    *float64 `json:"wind_direction_10m"`
	UVIndex             float64  `json:"uv_index"`
}

type openMeteoResponse struct {
	Timezone string           `json:"timezone"`
	Current  openMeteoCurrent `json:"current"`
	Hourly   struct {
		Time                     []string  `json:"time"`
		Temperature2m            []float64 `json:"temperature_2m"`
		PrecipitationProbability []float64 `json:"precipitation_probability"`
		WeatherCode              []int     `json:"weather_code"`
	} `json:"hourly"`
	Daily struct {
		Time           []string  `json:"time"`
		WeatherCode    []int     `json:"weather_code"`
		TemperatureMax []float64 `json:"temperature_2m_max"`
		TemperatureMin []float64 `json:"temperature_2m_min"`
		Sunrise        []string  `json:"sunrise"`
		Sunset         []string  `json:"sunset"`
	} `json:"daily"`
}

// Fetch retrieves and normalizes a forecast for the given coordinates.
// An explicit timezone override wins; otherwise the API's auto-detected
// zone is used for local times.
func (p *OpenMeteoProvider) Fetch(ctx context.Context, lat, lon float64, timezone string) (*models.NormalizedObservation, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	q := url.Values{}
	q.Set("latitude", fmt.Sprintf("%.4f", lat))
	q.Set("longitude", fmt.Sprintf("%.4f", lon))
	q.Set("current", "temperature_2m,relative_humidity_2m,apparent_temperature,is_day,precipitation,rain,showers,snowfall,weather_code,wind_speed_10m,wind_direction_10m,uv_index")
	q.Set("hourly", "temperature_2m,precipitation_probability,weather_code")
	q.Set("daily", "weather_code,temperature_2m_max,temperature_2m_min,sunrise,sunset")
	q.Set("temperature_unit", "fahrenheit")
	q.Set("wind_speed_unit", "mph")
	q.Set("precipitation_unit", "inch")
	q.Set("forecast_days", "7")
	if timezone != "" {
		q.Set("timezone", timezone)
	} else {
		q.Set("timezone", "auto")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, apperrors.NewProviderNetworkError(openMeteoName, "build request", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, classifyTransportError(openMeteoName, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, classifyStatusError(openMeteoName, resp.StatusCode)
	}

	var raw openMeteoResponse
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, apperrors.NewProviderInvalidResponseError(openMeteoName, "decode response", err)
	}

	return p.normalize(&raw, lat, lon, timezone)
}

func (p *OpenMeteoProvider) normalize(raw *openMeteoResponse, lat, lon float64, tzOverride string) (*models.NormalizedObservation, error) {
	loc := resolveLocation(tzOverride, raw.Timezone)

	observedAt := time.Now().UTC()
	if t, err := time.ParseInLocation("2006-01-02T15:04", raw.Current.Time, loc); err == nil {
		observedAt = t
	}

	cur := raw.Current
	current := models.CurrentConditions{
		Temperature:       cur.Temperature2m,
		FeelsLike:         cur.ApparentTemperature,
		Humidity:          cur.RelativeHumidity2m,
		WindSpeed:         cur.WindSpeed10m,
		WindDirection:     cur.WindDirection10m,
		UVIndex:           cur.UVIndex,
		PrecipRate:        cur.Precipitation,
		PrecipProbability: 0, // current conditions carry no probability
		PrecipType:        precipTypeFrom(cur.Rain+cur.Showers, cur.Snowfall),
		Condition:         wmoCondition(cur.WeatherCode, cur.IsDay == 1),
		Summary:           wmoDescription(cur.WeatherCode),
	}

	hourly, err := p.normalizeHourly(raw, loc)
	if err != nil {
		return nil, err
	}

	daily, sun, err := p.normalizeDaily(raw)
	if err != nil {
		return nil, err
	}

	return &models.NormalizedObservation{
		LocationKey:  models.LocationKey(lat, lon),
		ObservedAt:   observedAt,
		Current:      current,
		Hourly:       hourly,
		Daily:        daily,
		Sun:          sun,
		ProviderName: openMeteoName,
	}, nil
}

func (p *OpenMeteoProvider) normalizeHourly(raw *openMeteoResponse, loc *time.Location) ([]models.HourlyPoint, error) {
	h := raw.Hourly
	if len(h.Time) != len(h.Temperature2m) || len(h.Time) != len(h.WeatherCode) {
		return nil, apperrors.NewProviderInvalidResponseError(openMeteoName, "hourly series length mismatch", nil)
	}

	n := len(h.Time)
	if n > 48 {
		n = 48
	}
	hourly := make([]models.HourlyPoint, 0, n)
	for i := 0; i < n; i++ {
		t, err := time.ParseInLocation("2006-01-02T15:04", h.Time[i], loc)
		if err != nil {
			return nil, apperrors.NewProviderInvalidResponseError(openMeteoName, "bad hourly timestamp", err)
		}
		prob := 0.0
		if i < len(h.PrecipitationProbability) {
			prob = h.PrecipitationProbability[i]
		}
		hourly = append(hourly, models.HourlyPoint{
			Time:              t,
			Temperature:       h.Temperature2m[i],
			Condition:         wmoCondition(h.WeatherCode[i], true),
			PrecipProbability: prob,
		})
	}
	return hourly, nil
}

func (p *OpenMeteoProvider) normalizeDaily(raw *openMeteoResponse) ([]models.DailyPoint, map[string]models.SunTimes, error) {
	d := raw.Daily
	if len(d.Time) != len(d.TemperatureMax) || len(d.Time) != len(d.TemperatureMin) || len(d.Time) != len(d.WeatherCode) {
		return nil, nil, apperrors.NewProviderInvalidResponseError(openMeteoName, "daily series length mismatch", nil)
	}

	n := len(d.Time)
	if n > 7 {
		n = 7
	}
	daily := make([]models.DailyPoint, 0, n)
	sun := make(map[string]models.SunTimes, n)
	for i := 0; i < n; i++ {
		daily = append(daily, models.DailyPoint{
			Date:      d.Time[i],
			High:      d.TemperatureMax[i],
			Low:       d.TemperatureMin[i],
			Condition: wmoCondition(d.WeatherCode[i], true),
		})
		if i < len(d.Sunrise) && i < len(d.Sunset) {
			sun[d.Time[i]] = models.SunTimes{Sunrise: d.Sunrise[i], Sunset: d.Sunset[i]}
		}
	}
	return daily, sun, nil
}

// resolveLocation prefers the caller's override, then the provider's
// auto-detected zone, then UTC.
func resolveLocation(override, detected string) *time.Location {
	for _, name := range []string{override, detected} {
		if name == "" {
			continue
		}
		if loc, err := time.LoadLocation(name); err == nil {
			return loc
		}
	}
	return time.UTC
}

func precipTypeFrom(rain, snow float64) models.PrecipType {
	switch {
	case snow > 0:
		return models.PrecipSnow
	case rain > 0:
		return models.PrecipRain
	default:
		return models.PrecipNone
	}
}

// wmoCondition maps WMO weather interpretation codes to the icon
// vocabulary, with day/night variants where they exist.
func wmoCondition(code int, isDay bool) models.ConditionCode {
	switch code {
	case 0, 1:
		if isDay {
			return models.ConditionClearDay
		}
		return models.ConditionClearNight
	case 2:
		if isDay {
			return models.ConditionPartlyCloudyDay
		}
		return models.ConditionPartlyCloudyNight
	case 3:
		return models.ConditionCloudy
	case 45, 48:
		return models.ConditionFog
	case 51, 61, 80:
		return models.ConditionLightRain
	case 53, 63, 81:
		return models.ConditionRain
	case 55, 65, 82:
		return models.ConditionHeavyRain
	case 56, 57, 66, 67:
		return models.ConditionSleet
	case 71, 85:
		return models.ConditionLightSnow
	case 73:
		return models.ConditionSnow
	case 75, 86:
		return models.ConditionHeavySnow
	case 95, 96, 99:
		return models.ConditionThunderstorm
	default:
		return models.ConditionClearDay
	}
}

// wmoDescription returns the human-readable summary for a WMO code.
func wmoDescription(code int) string {
	descriptions := map[int]string{
		0:  "Clear sky",
		1:  "Mainly clear",
		2:  "Partly cloudy",
		3:  "Overcast",
		45: "Foggy",
		48: "Depositing rime fog",
		51: "Light drizzle",
		53: "Moderate drizzle",
		55: "Dense drizzle",
		56: "Light freezing drizzle",
		57: "Dense freezing drizzle",
		61: "Slight rain",
		63: "Moderate rain",
		65: "Heavy rain",
		66: "Light freezing rain",
		67: "Heavy freezing rain",
		71: "Slight snow",
		73: "Moderate snow",
		75: "Heavy snow",
		80: "Slight rain showers",
		81: "Moderate rain showers",
		82: "Violent rain showers",
		85: "Slight snow showers",
		86: "Heavy snow showers",
		95: "Thunderstorm",
		96: "Thunderstorm with slight hail",
		99: "Thunderstorm with heavy hail",
	}
	if desc, ok := descriptions[code]; ok {
		return desc
	}
	return "Unknown"
}
