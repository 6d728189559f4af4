// Package config loads and validates service configuration from
// environment variables.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"weatherhub.app/pkg/errors"
)

// Config represents the application configuration structure
type Config struct {
	Server    ServerConfig    `split_words:"true"`
	Cache     CacheConfig     `split_words:"true"`
	Providers ProvidersConfig `split_words:"true"`
	Refresh   RefreshConfig   `split_words:"true"`
	Session   SessionConfig   `split_words:"true"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port int `envconfig:"SERVER_PORT" default:"8080"`
}

// CacheConfig contains freshness cache settings
type CacheConfig struct {
	TTLSeconds int    `envconfig:"CACHE_TTL_SECONDS" default:"180"`
	Capacity   int    `envconfig:"CACHE_CAPACITY" default:"100"`
	Backend    string `envconfig:"CACHE_BACKEND" default:"memory"`
	RedisAddr  string `envconfig:"CACHE_REDIS_ADDR" default:"localhost:6379"`
	RedisDB    int    `envconfig:"CACHE_REDIS_DB" default:"0"`
}

// TTL returns the entry freshness window as a duration.
func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLSeconds) * time.Second
}

// ProvidersConfig contains upstream weather provider settings.
// Order is the failover priority; only configured providers are built.
type ProvidersConfig struct {
	OpenMeteoBaseURL     string   `envconfig:"OPEN_METEO_BASE_URL" default:"https://api.open-meteo.com/v1/forecast"`
	PirateWeatherKey     string   `envconfig:"PIRATE_WEATHER_API_KEY"`
	PirateWeatherBaseURL string   `envconfig:"PIRATE_WEATHER_BASE_URL" default:"https://api.pirateweather.net/forecast"`
	Order                []string `envconfig:"PROVIDER_ORDER" default:"pirateweather,openmeteo"`
	TimeoutSeconds       int      `envconfig:"PROVIDER_TIMEOUT_SECONDS" default:"10"`
}

// Timeout returns the per-call provider timeout.
func (p ProvidersConfig) Timeout() time.Duration {
	return time.Duration(p.TimeoutSeconds) * time.Second
}

// RefreshConfig contains settings for the periodic refresh driver
type RefreshConfig struct {
	IntervalMinutes int `envconfig:"REFRESH_INTERVAL_MINUTES" default:"10"`
}

// Interval returns the refresh period as a duration.
func (r RefreshConfig) Interval() time.Duration {
	return time.Duration(r.IntervalMinutes) * time.Minute
}

// SessionConfig contains client reconnection and polling settings
type SessionConfig struct {
	MaxPushRetries      int `envconfig:"SESSION_MAX_PUSH_RETRIES" default:"3"`
	BackoffBaseMillis   int `envconfig:"SESSION_BACKOFF_BASE_MS" default:"1000"`
	PollIntervalMinutes int `envconfig:"SESSION_POLL_INTERVAL_MINUTES" default:"10"`
}

// BackoffBase returns the first reconnect delay; it doubles per attempt.
func (s SessionConfig) BackoffBase() time.Duration {
	return time.Duration(s.BackoffBaseMillis) * time.Millisecond
}

// PollInterval returns the fixed polling period used after push gives up.
func (s SessionConfig) PollInterval() time.Duration {
	return time.Duration(s.PollIntervalMinutes) * time.Minute
}

// LoadConfig loads and validates application configuration from environment variables
func LoadConfig() (*Config, error) {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		return nil, errors.NewConfigurationError("error processing config", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return err
	}
	if err := c.Cache.Validate(); err != nil {
		return err
	}
	if err := c.Providers.Validate(); err != nil {
		return err
	}
	if err := c.Refresh.Validate(); err != nil {
		return err
	}
	return c.Session.Validate()
}

// Validate checks server configuration
func (s *ServerConfig) Validate() error {
	if s.Port < 1 || s.Port > 65535 {
		return errors.NewConfigurationError("SERVER_PORT must be between 1 and 65535", nil)
	}
	return nil
}

// Validate checks cache configuration
func (c *CacheConfig) Validate() error {
	if c.TTLSeconds < 1 {
		return errors.NewConfigurationError("CACHE_TTL_SECONDS must be at least 1", nil)
	}
	if c.Capacity < 1 {
		return errors.NewConfigurationError("CACHE_CAPACITY must be at least 1", nil)
	}
	if c.Backend != "memory" && c.Backend != "redis" {
		return errors.NewConfigurationError("CACHE_BACKEND must be one of: memory, redis", nil)
	}
	if c.Backend == "redis" && c.RedisAddr == "" {
		return errors.NewConfigurationError("CACHE_REDIS_ADDR cannot be empty when CACHE_BACKEND is redis", nil)
	}
	return nil
}

// Validate checks provider configuration
func (p *ProvidersConfig) Validate() error {
	if len(p.Order) == 0 {
		return errors.NewConfigurationError("PROVIDER_ORDER cannot be empty", nil)
	}
	for _, name := range p.Order {
		switch name {
		case "openmeteo", "pirateweather":
		default:
			return errors.NewConfigurationError(
				fmt.Sprintf("PROVIDER_ORDER contains unknown provider %q", name), nil)
		}
	}
	if !strings.HasPrefix(p.OpenMeteoBaseURL, "http://") && !strings.HasPrefix(p.OpenMeteoBaseURL, "https://") {
		return errors.NewConfigurationError("OPEN_METEO_BASE_URL must start with http:// or https://", nil)
	}
	if !strings.HasPrefix(p.PirateWeatherBaseURL, "http://") && !strings.HasPrefix(p.PirateWeatherBaseURL, "https://") {
		return errors.NewConfigurationError("PIRATE_WEATHER_BASE_URL must start with http:// or https://", nil)
	}
	if p.TimeoutSeconds < 1 || p.TimeoutSeconds > 60 {
		return errors.NewConfigurationError("PROVIDER_TIMEOUT_SECONDS must be between 1 and 60", nil)
	}
	return nil
}

// Validate checks refresh driver configuration
func (r *RefreshConfig) Validate() error {
	if r.IntervalMinutes < 1 {
		return errors.NewConfigurationError("REFRESH_INTERVAL_MINUTES must be at least 1", nil)
	}
	if r.IntervalMinutes > 1440 {
		return errors.NewConfigurationError("REFRESH_INTERVAL_MINUTES cannot exceed 1440 (24 hours)", nil)
	}
	return nil
}

// Validate checks session configuration
func (s *SessionConfig) Validate() error {
	if s.MaxPushRetries < 0 {
		return errors.NewConfigurationError("SESSION_MAX_PUSH_RETRIES cannot be negative", nil)
	}
	if s.BackoffBaseMillis < 1 {
		return errors.NewConfigurationError("SESSION_BACKOFF_BASE_MS must be at least 1", nil)
	}
	if s.PollIntervalMinutes < 1 {
		return errors.NewConfigurationError("SESSION_POLL_INTERVAL_MINUTES must be at least 1", nil)
	}
	return nil
}
