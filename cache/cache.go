// Package cache implements the freshness cache that fronts the
// provider failover manager: a capacity- and time-bounded store keyed
// by rounded location, with per-key request coalescing and stale
// serving when every provider is down.
package cache

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"
	"weatherhub.app/config"
	"weatherhub.app/metrics"
	"weatherhub.app/models"
	"weatherhub.app/providers"
)

// Entry wraps a cached observation with its freshness window. Owned
// exclusively by the cache; never handed outside this package.
type Entry struct {
	Observation *models.NormalizedObservation `json:"observation"`
	InsertedAt  time.Time                     `json:"inserted_at"`
	ExpiresAt   time.Time                     `json:"expires_at"`
}

// Live reports whether the entry is still fresh at the given instant.
func (e *Entry) Live(now time.Time) bool {
	return now.Before(e.ExpiresAt)
}

// EntryStore is the backing storage for cache entries. Implementations
// must keep logically expired entries readable so they can be served
// stale when every provider fails.
type EntryStore interface {
	Get(ctx context.Context, key string) (*Entry, bool)
	Set(ctx context.Context, key string, entry *Entry)
	Delete(ctx context.Context, key string)
	Clear(ctx context.Context)
	Keys(ctx context.Context) []string
	Len(ctx context.Context) int
	Name() string
}

// Stats is the cache statistics snapshot exposed over the API.
type Stats struct {
	Size            int      `json:"size"`
	Capacity        int      `json:"capacity"`
	TTLSeconds      int      `json:"ttl_seconds"`
	CachedLocations []string `json:"cached_locations"`
}

// FreshnessCache bounds upstream call volume and centralizes the
// freshness policy. Concurrent lookups for the same key are coalesced
// into a single upstream call.
type FreshnessCache struct {
	store     EntryStore
	resolver  providers.Resolver
	ttl       time.Duration
	capacity  int
	group     singleflight.Group
	onRefresh func(key string, obs *models.NormalizedObservation)
}

// New builds a cache with the backend selected by configuration.
func New(cfg config.CacheConfig, resolver providers.Resolver) (*FreshnessCache, error) {
	var store EntryStore
	if cfg.Backend == "redis" {
		redisStore, err := NewRedisStore(cfg.RedisAddr, cfg.RedisDB, cfg.TTL())
		if err != nil {
			return nil, err
		}
		store = redisStore
	} else {
		store = NewMemoryStore(cfg.Capacity)
	}

	return NewWithStore(store, resolver, cfg.TTL(), cfg.Capacity), nil
}

// NewWithStore builds a cache over an explicit entry store.
func NewWithStore(store EntryStore, resolver providers.Resolver, ttl time.Duration, capacity int) *FreshnessCache {
	return &FreshnessCache{
		store:    store,
		resolver: resolver,
		ttl:      ttl,
		capacity: capacity,
	}
}

// SetOnRefresh registers the hook invoked after every fresh (non-cached)
// result is stored. Must be called during wiring, before the cache
// serves requests.
func (c *FreshnessCache) SetOnRefresh(fn func(key string, obs *models.NormalizedObservation)) {
	c.onRefresh = fn
}

// GetOrFetch returns the observation for the coordinates, fetching
// upstream at most once per key regardless of how many callers arrive
// while a fetch is in flight. The returned observation carries the
// caller's display name on a copy; the cached instance is never mutated.
func (c *FreshnessCache) GetOrFetch(ctx context.Context, lat, lon float64, displayName, timezone string) (*models.NormalizedObservation, error) {
	key := models.LocationKey(lat, lon)

	if entry, ok := c.store.Get(ctx, key); ok && entry.Live(time.Now()) {
		metrics.CacheHits.WithLabelValues(c.store.Name()).Inc()
		return entry.Observation.WithDisplayName(displayName), nil
	}
	metrics.CacheMisses.WithLabelValues(c.store.Name()).Inc()

	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		// A coalesced waiter may enter after the winning flight already
		// stored a fresh entry.
		if entry, ok := c.store.Get(ctx, key); ok && entry.Live(time.Now()) {
			return entry.Observation, nil
		}

		started := time.Now()
		obs, resolveErr := c.resolver.Resolve(ctx, lat, lon, timezone)
		if resolveErr != nil {
			// A failed refresh never poisons the cache: serve the prior
			// entry, fresh or expired, when one exists.
			if entry, ok := c.store.Get(ctx, key); ok {
				slog.Warn("stale serve", "key", key, "inserted_at", entry.InsertedAt, "error", resolveErr)
				metrics.CacheStaleServes.WithLabelValues(c.store.Name()).Inc()
				return entry.Observation, nil
			}
			return nil, resolveErr
		}

		c.apply(ctx, key, obs, started)
		return obs, nil
	})
	if err != nil {
		return nil, err
	}

	return v.(*models.NormalizedObservation).WithDisplayName(displayName), nil
}

// apply stores a fetch result unless a newer fetch already landed. The
// refresh hook fires only for results that were actually applied, so
// every subscriber observes the same winning instance.
func (c *FreshnessCache) apply(ctx context.Context, key string, obs *models.NormalizedObservation, started time.Time) {
	if entry, ok := c.store.Get(ctx, key); ok && entry.InsertedAt.After(started) {
		slog.Debug("discarding slow fetch result", "key", key)
		return
	}

	now := time.Now()
	c.store.Set(ctx, key, &Entry{
		Observation: obs,
		InsertedAt:  now,
		ExpiresAt:   now.Add(c.ttl),
	})

	if c.onRefresh != nil {
		c.onRefresh(key, obs)
	}
}

// Peek returns the live observation for a key without fetching.
func (c *FreshnessCache) Peek(ctx context.Context, key string) (*models.NormalizedObservation, bool) {
	entry, ok := c.store.Get(ctx, key)
	if !ok || !entry.Live(time.Now()) {
		return nil, false
	}
	return entry.Observation, true
}

// Clear drops every entry. Used when the active provider changes so no
// mixed-provider results linger.
func (c *FreshnessCache) Clear(ctx context.Context) {
	c.store.Clear(ctx)
}

// Stats returns the statistics snapshot for the stats endpoint.
func (c *FreshnessCache) Stats(ctx context.Context) Stats {
	return Stats{
		Size:            c.store.Len(ctx),
		Capacity:        c.capacity,
		TTLSeconds:      int(c.ttl.Seconds()),
		CachedLocations: c.store.Keys(ctx),
	}
}
