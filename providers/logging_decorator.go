package providers

import (
	"context"
	"log/slog"
	"time"

	"weatherhub.app/models"
)

// LoggingDecorator wraps a Client with structured request/response logging.
type LoggingDecorator struct {
	inner Client
}

// NewLoggingDecorator creates a logging wrapper around a provider client
func NewLoggingDecorator(inner Client) *LoggingDecorator {
	return &LoggingDecorator{inner: inner}
}

func (d *LoggingDecorator) Name() string { return d.inner.Name() }

func (d *LoggingDecorator) Fetch(ctx context.Context, lat, lon float64, timezone string) (*models.NormalizedObservation, error) {
	slog.Debug("provider request", "provider", d.inner.Name(), "lat", lat, "lon", lon)
	start := time.Now()

	obs, err := d.inner.Fetch(ctx, lat, lon, timezone)
	duration := time.Since(start)

	if err != nil {
		slog.Warn("provider error",
			"provider", d.inner.Name(), "lat", lat, "lon", lon,
			"duration_ms", duration.Milliseconds(), "error", err)
		return nil, err
	}

	slog.Info("provider response",
		"provider", d.inner.Name(), "key", obs.LocationKey,
		"condition", obs.Current.Condition, "duration_ms", duration.Milliseconds())
	return obs, nil
}
