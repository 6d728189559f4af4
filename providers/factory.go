package providers

import (
	"log/slog"

	"weatherhub.app/config"
)

// NewFromConfig builds the failover manager from configuration. Only
// providers with their prerequisites present are constructed; the
// configured order is the fallback priority.
func NewFromConfig(cfg config.ProvidersConfig) (*FailoverManager, error) {
	available := map[string]Client{
		"openmeteo": NewOpenMeteoProvider(cfg.OpenMeteoBaseURL, cfg.Timeout()),
	}

	if cfg.PirateWeatherKey != "" {
		available["pirateweather"] = NewPirateWeatherProvider(cfg.PirateWeatherKey, cfg.PirateWeatherBaseURL, cfg.Timeout())
	} else {
		slog.Info("no PirateWeather API key configured, provider disabled")
	}

	clients := make([]Client, 0, len(cfg.Order))
	for _, name := range cfg.Order {
		if client, ok := available[name]; ok {
			clients = append(clients, NewLoggingDecorator(client))
		}
	}

	return NewFailoverManager(clients...)
}
