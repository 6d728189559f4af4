// Package scheduler drives the periodic refresh cycle: every interval
// it refetches each location with at least one subscriber, which in
// turn publishes fresh observations to the distributor.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"
	"weatherhub.app/distributor"
)

// fetchTimeout bounds a single location refresh so one stuck provider
// cannot stall the whole cycle.
const fetchTimeout = 30 * time.Second

// LocationSource lists the locations that currently have subscribers.
type LocationSource interface {
	Locations() []distributor.Location
}

// refreshFunc is the per-location refresh call. Declared as a function
// type so tests can count invocations without a full cache.
type refreshFunc func(ctx context.Context, loc distributor.Location) error

// Refresher runs the refresh loop on a gocron scheduler.
type Refresher struct {
	scheduler *gocron.Scheduler
	source    LocationSource
	refresh   refreshFunc
	interval  time.Duration
}

// New builds a refresher that refetches each subscribed location
// through the given refresh call.
func New(source LocationSource, refresh func(ctx context.Context, loc distributor.Location) error, interval time.Duration) *Refresher {
	return &Refresher{
		scheduler: gocron.NewScheduler(time.UTC),
		source:    source,
		refresh:   refresh,
		interval:  interval,
	}
}

// Start schedules the refresh cycle and runs it asynchronously.
func (r *Refresher) Start() error {
	if _, err := r.scheduler.Every(r.interval).Do(r.runCycle); err != nil {
		return err
	}
	r.scheduler.StartAsync()
	slog.Info("refresh scheduler started", "interval", r.interval)
	return nil
}

// Stop halts the scheduler and waits for a running cycle to finish.
func (r *Refresher) Stop() {
	r.scheduler.Stop()
	slog.Info("refresh scheduler stopped")
}

// runCycle refreshes every subscribed location. Failures are logged
// and skipped; a provider outage must not kill the loop, and stale
// entries remain servable until a later cycle succeeds.
func (r *Refresher) runCycle() {
	locations := r.source.Locations()
	if len(locations) == 0 {
		return
	}

	slog.Debug("refresh cycle started", "locations", len(locations))

	for _, loc := range locations {
		ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
		if err := r.refresh(ctx, loc); err != nil {
			slog.Warn("location refresh failed", "key", loc.Key, "error", err)
		}
		cancel()
	}
}
