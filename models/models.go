// Package models defines the canonical weather record shape all
// providers must produce, plus the closed enumerations it uses.
package models

import (
	"fmt"
	"time"
)

// ConditionCode is the closed icon vocabulary. Provider clients map raw
// provider-specific codes into this set; callers never see anything else.
type ConditionCode string

const (
	ConditionClearDay          ConditionCode = "clear-day"
	ConditionClearNight        ConditionCode = "clear-night"
	ConditionPartlyCloudyDay   ConditionCode = "partly-cloudy-day"
	ConditionPartlyCloudyNight ConditionCode = "partly-cloudy-night"
	ConditionCloudy            ConditionCode = "cloudy"
	ConditionFog               ConditionCode = "fog"
	ConditionWind              ConditionCode = "wind"
	ConditionLightRain         ConditionCode = "light-rain"
	ConditionRain              ConditionCode = "rain"
	ConditionHeavyRain         ConditionCode = "heavy-rain"
	ConditionSleet             ConditionCode = "sleet"
	ConditionHail              ConditionCode = "hail"
	ConditionLightSnow         ConditionCode = "light-snow"
	ConditionSnow              ConditionCode = "snow"
	ConditionHeavySnow         ConditionCode = "heavy-snow"
	ConditionThunderstorm      ConditionCode = "thunderstorm"
)

// IsValid reports whether c belongs to the closed vocabulary.
func (c ConditionCode) IsValid() bool {
	switch c {
	case ConditionClearDay, ConditionClearNight, ConditionPartlyCloudyDay,
		ConditionPartlyCloudyNight, ConditionCloudy, ConditionFog,
		ConditionWind, ConditionLightRain, ConditionRain, ConditionHeavyRain,
		ConditionSleet, ConditionHail, ConditionLightSnow, ConditionSnow,
		ConditionHeavySnow, ConditionThunderstorm:
		return true
	}
	return false
}

// PrecipType classifies falling precipitation.
type PrecipType string

const (
	PrecipNone PrecipType = "none"
	PrecipRain PrecipType = "rain"
	PrecipSnow PrecipType = "snow"
)

// LocationKey derives the cache identity from raw coordinates by
// rounding to 4 decimal places. The same input always yields the same
// key, which is what makes request coalescing possible.
func LocationKey(lat, lon float64) string {
	return fmt.Sprintf("%.4f,%.4f", lat, lon)
}

// CurrentConditions holds one location's conditions at observation time.
type CurrentConditions struct {
	Temperature       float64       `json:"temperature"`
	FeelsLike         float64       `json:"feels_like"`
	Humidity          float64       `json:"humidity"`
	WindSpeed         float64       `json:"wind_speed"`
	WindDirection     *float64      `json:"wind_direction,omitempty"` // 0-360, absent when unknown
	UVIndex           float64       `json:"uv_index"`
	PrecipRate        float64       `json:"precipitation_rate"`
	PrecipProbability float64       `json:"precipitation_probability"`
	PrecipType        PrecipType    `json:"precipitation_type"`
	Condition         ConditionCode `json:"condition_code"`
	Summary           string        `json:"summary"`
}

// HourlyPoint is one per-hour forecast record.
type HourlyPoint struct {
	Time              time.Time     `json:"time"`
	Temperature       float64       `json:"temperature"`
	Condition         ConditionCode `json:"condition_code"`
	PrecipProbability float64       `json:"precipitation_probability"`
}

// DailyPoint is one per-day forecast record.
type DailyPoint struct {
	Date      string        `json:"date"` // YYYY-MM-DD in location-local time
	High      float64       `json:"high"`
	Low       float64       `json:"low"`
	Condition ConditionCode `json:"condition_code"`
}

// SunTimes carries sunrise/sunset for one date. Passthrough for the
// presentation layer; the core never interprets it.
type SunTimes struct {
	Sunrise string `json:"sunrise"`
	Sunset  string `json:"sunset"`
}

// NormalizedObservation is the canonical weather record. Constructed
// fresh on every successful provider fetch and immutable afterwards;
// callers that need a different display name receive a copy.
type NormalizedObservation struct {
	LocationKey  string              `json:"location_key"`
	DisplayName  string              `json:"display_name"`
	ObservedAt   time.Time           `json:"observed_at"`
	Current      CurrentConditions   `json:"current"`
	Hourly       []HourlyPoint       `json:"hourly"`
	Daily        []DailyPoint        `json:"daily"`
	ProviderName string              `json:"provider_name"`
	Sun          map[string]SunTimes `json:"sun,omitempty"`
}

// WithDisplayName returns a copy of the observation carrying the given
// label. The receiver is never mutated; the cached instance stays
// shared between callers requesting the same coordinates under
// different names. Slices and the sun map are shared too since they
// are never written after construction.
func (o *NormalizedObservation) WithDisplayName(name string) *NormalizedObservation {
	if o == nil {
		return nil
	}
	clone := *o
	if name != "" {
		clone.DisplayName = name
	}
	return &clone
}

// ErrorResponse is the error message structure for API responses
type ErrorResponse struct {
	Error string `json:"error"`
}
