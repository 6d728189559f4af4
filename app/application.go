// Package app assembles the service: configuration, providers, cache,
// distributor, refresh scheduler, and the HTTP server.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"weatherhub.app/api"
	"weatherhub.app/cache"
	"weatherhub.app/config"
	"weatherhub.app/distributor"
	"weatherhub.app/models"
	"weatherhub.app/providers"
	"weatherhub.app/scheduler"
)

const shutdownTimeout = 10 * time.Second

// Application represents the service with all its dependencies wired.
type Application struct {
	config      *config.Config
	failover    *providers.FailoverManager
	cache       *cache.FreshnessCache
	distributor *distributor.Distributor
	refresher   *scheduler.Refresher
	httpServer  *http.Server
}

// NewApplication creates and initializes the application.
func NewApplication() (*Application, error) {
	app := &Application{}

	if err := app.loadConfiguration(); err != nil {
		return nil, err
	}

	if err := app.initializeServices(); err != nil {
		return nil, err
	}

	return app, nil
}

func (app *Application) loadConfiguration() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		return fmt.Errorf("load application configuration: %w", err)
	}

	app.config = cfg
	slog.Info("configuration loaded")
	return nil
}

func (app *Application) initializeServices() error {
	failover, err := providers.NewFromConfig(app.config.Providers)
	if err != nil {
		return fmt.Errorf("create provider failover manager: %w", err)
	}
	app.failover = failover

	freshnessCache, err := cache.New(app.config.Cache, failover)
	if err != nil {
		return fmt.Errorf("create freshness cache: %w", err)
	}
	app.cache = freshnessCache

	dist := distributor.New()
	dist.SetPeek(freshnessCache.Peek)
	app.distributor = dist

	// Every fresh fetch result fans out to current subscribers, so the
	// scheduler only has to drive the cache.
	freshnessCache.SetOnRefresh(func(key string, obs *models.NormalizedObservation) {
		dist.Publish(key, obs)
	})

	app.refresher = scheduler.New(dist, app.refreshLocation, app.config.Refresh.Interval())

	server := api.NewServer(freshnessCache, failover, dist)
	app.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.config.Server.Port),
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	slog.Info("services initialized", "providers", failover.Names(), "cache_backend", app.config.Cache.Backend)
	return nil
}

func (app *Application) refreshLocation(ctx context.Context, loc distributor.Location) error {
	_, err := app.cache.GetOrFetch(ctx, loc.Lat, loc.Lon, loc.DisplayName, loc.Timezone)
	return err
}

// Start runs the refresh scheduler and the HTTP server. Blocks until
// the server stops.
func (app *Application) Start() error {
	if err := app.refresher.Start(); err != nil {
		return fmt.Errorf("start refresh scheduler: %w", err)
	}

	slog.Info("starting HTTP server", "port", app.config.Server.Port)
	if err := app.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops the scheduler and drains the HTTP server.
func (app *Application) Shutdown() error {
	slog.Info("shutting down")

	app.refresher.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := app.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown HTTP server: %w", err)
	}

	slog.Info("shutdown complete")
	return nil
}

// Config returns the application configuration.
func (app *Application) Config() *config.Config {
	return app.config
}
