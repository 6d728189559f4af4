package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"weatherhub.app/models"
	apperrors "weatherhub.app/pkg/errors"
)

const pirateWeatherName = "PirateWeather"

// PirateWeatherProvider implements Client for the PirateWeather API,
// a Dark-Sky-compatible service. Requires an API key.
type PirateWeatherProvider struct {
	apiKey  string
	baseURL string
	client  *http.Client
	timeout time.Duration
}

// NewPirateWeatherProvider creates a new PirateWeather client
func NewPirateWeatherProvider(apiKey, baseURL string, timeout time.Duration) *PirateWeatherProvider {
	return &PirateWeatherProvider{
		apiKey:  apiKey,
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		timeout: timeout,
	}
}

func (p *PirateWeatherProvider) Name() string { return pirateWeatherName }

type pirateWeatherPoint struct {
	Time                int64    `json:"time"`
	Summary             string   `json:"summary"`
	Icon                string   `json:"icon"`
	Temperature         float64  `json:"temperature"`
	ApparentTemperature float64  `json:"apparentTemperature"`
	Humidity            float64  `json:"humidity"` // 0-1
	WindSpeed           float64  `json:"windSpeed"`
	WindBearing         *float64 `json:"windBearing"`
	UVIndex             float64  `json:"uvIndex"`
	PrecipIntensity     float64  `json:"precipIntensity"`
	PrecipProbability   float64  `json:"precipProbability"` // 0-1
	PrecipType          string   `json:"precipType"`
}

type pirateWeatherDay struct {
	Time            int64   `json:"time"`
	Icon            string  `json:"icon"`
	TemperatureHigh float64 `json:"temperatureHigh"`
	TemperatureLow  float64 `json:"temperatureLow"`
	SunriseTime     int64   `json:"sunriseTime"`
	SunsetTime      int64   `json:"sunsetTime"`
}

type pirateWeatherResponse struct {
	Timezone  string             `json:"timezone"`
	Currently pirateWeatherPoint `json:"currently"`
	Hourly    struct {
		Data []pirateWeatherPoint `json:"data"`
	} `json:"hourly"`
	Daily struct {
		Data []pirateWeatherDay `json:"data"`
	} `json:"daily"`
}

// Fetch retrieves and normalizes current conditions plus forecasts.
func (p *PirateWeatherProvider) Fetch(ctx context.Context, lat, lon float64, timezone string) (*models.NormalizedObservation, error) {
	if p.apiKey == "" {
		return nil, apperrors.NewProviderAuthError(pirateWeatherName, "API key not configured")
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	url := fmt.Sprintf("%s/%s/%.4f,%.4f?units=us&exclude=minutely,alerts", p.baseURL, p.apiKey, lat, lon)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, apperrors.NewProviderNetworkError(pirateWeatherName, "build request", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, classifyTransportError(pirateWeatherName, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, classifyStatusError(pirateWeatherName, resp.StatusCode)
	}

	var raw pirateWeatherResponse
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, apperrors.NewProviderInvalidResponseError(pirateWeatherName, "decode response", err)
	}
	if raw.Currently.Time == 0 {
		return nil, apperrors.NewProviderInvalidResponseError(pirateWeatherName, "missing current conditions", nil)
	}

	return p.normalize(&raw, lat, lon, timezone), nil
}

func (p *PirateWeatherProvider) normalize(raw *pirateWeatherResponse, lat, lon float64, tzOverride string) *models.NormalizedObservation {
	loc := resolveLocation(tzOverride, raw.Timezone)

	cur := raw.Currently
	current := models.CurrentConditions{
		Temperature:       cur.Temperature,
		FeelsLike:         cur.ApparentTemperature,
		Humidity:          cur.Humidity * 100,
		WindSpeed:         cur.WindSpeed,
		WindDirection:     cur.WindBearing,
		UVIndex:           cur.UVIndex,
		PrecipRate:        cur.PrecipIntensity,
		PrecipProbability: cur.PrecipProbability * 100,
		PrecipType:        pwPrecipType(cur.PrecipType),
		Condition:         iconCondition(cur.Icon),
		Summary:           cur.Summary,
	}

	n := len(raw.Hourly.Data)
	if n > 48 {
		n = 48
	}
	hourly := make([]models.HourlyPoint, 0, n)
	for _, h := range raw.Hourly.Data[:n] {
		hourly = append(hourly, models.HourlyPoint{
			Time:              time.Unix(h.Time, 0).In(loc),
			Temperature:       h.Temperature,
			Condition:         iconCondition(h.Icon),
			PrecipProbability: h.PrecipProbability * 100,
		})
	}

	days := len(raw.Daily.Data)
	if days > 7 {
		days = 7
	}
	daily := make([]models.DailyPoint, 0, days)
	sun := make(map[string]models.SunTimes, days)
	for _, d := range raw.Daily.Data[:days] {
		date := time.Unix(d.Time, 0).In(loc).Format("2006-01-02")
		daily = append(daily, models.DailyPoint{
			Date:      date,
			High:      d.TemperatureHigh,
			Low:       d.TemperatureLow,
			Condition: iconCondition(d.Icon),
		})
		if d.SunriseTime > 0 && d.SunsetTime > 0 {
			sun[date] = models.SunTimes{
				Sunrise: time.Unix(d.SunriseTime, 0).In(loc).Format(time.RFC3339),
				Sunset:  time.Unix(d.SunsetTime, 0).In(loc).Format(time.RFC3339),
			}
		}
	}

	return &models.NormalizedObservation{
		LocationKey:  models.LocationKey(lat, lon),
		ObservedAt:   time.Unix(cur.Time, 0).In(loc),
		Current:      current,
		Hourly:       hourly,
		Daily:        daily,
		Sun:          sun,
		ProviderName: pirateWeatherName,
	}
}

// iconCondition validates a Dark-Sky-style icon string against the
// closed vocabulary. Unknown icons degrade to clear-day.
func iconCondition(icon string) models.ConditionCode {
	c := models.ConditionCode(icon)
	if c.IsValid() {
		return c
	}
	return models.ConditionClearDay
}

func pwPrecipType(t string) models.PrecipType {
	switch t {
	case "rain":
		return models.PrecipRain
	case "snow":
		return models.PrecipSnow
	default:
		return models.PrecipNone
	}
}
