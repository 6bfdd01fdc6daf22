// Package cache fronts routing providers with a per-provider TTL cache.
package cache

import (
	"context"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/freight-mileage-service/internal/domain"
	"github.com/couchcryptid/freight-mileage-service/internal/observability"
)

// DefaultTTL is how long a computed distance stays servable.
const DefaultTTL = 30 * 24 * time.Hour

// Store persists cache entries keyed by (origin hash, destination hash, provider).
type Store interface {
	// Get returns the stored entry, or nil with no error when the slot is empty.
	// Expired entries may be returned; callers check expiry.
	Get(ctx context.Context, originHash, destinationHash string, provider domain.ProviderID) (*domain.CacheEntry, error)

	// Upsert inserts or replaces the entry for its identity.
	Upsert(ctx context.Context, entry domain.CacheEntry) error
}

// Pinger is implemented by stores backed by a remote server.
type Pinger interface {
	Ping(ctx context.Context) error
}

// DistanceCache reads and writes DistanceResults through a Store. Lookup
// failures degrade to misses so the cache never blocks a resolution.
type DistanceCache struct {
	store   Store
	ttl     time.Duration
	clock   clockwork.Clock
	logger  *slog.Logger
	metrics *observability.Metrics
}

// New creates a DistanceCache. A non-positive ttl selects DefaultTTL.
func New(store Store, ttl time.Duration, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *DistanceCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &DistanceCache{
		store:   store,
		ttl:     ttl,
		clock:   clock,
		logger:  logger,
		metrics: metrics,
	}
}

// Get returns the cached result for the lane under provider. The second
// return is false for an empty slot, an expired entry, or a store failure.
func (c *DistanceCache) Get(ctx context.Context, origin, destination string, provider domain.ProviderID) (domain.DistanceResult, bool) {
	entry, err := c.store.Get(ctx, domain.DeriveKey(origin), domain.DeriveKey(destination), provider)
	if err != nil {
		c.logger.Warn("cache lookup failed",
			"provider", provider,
			"origin", origin,
			"destination", destination,
			"error", err,
		)
		c.metrics.CacheLookups.WithLabelValues(string(provider), "error").Inc()
		return domain.DistanceResult{}, false
	}
	if entry == nil {
		c.metrics.CacheLookups.WithLabelValues(string(provider), "miss").Inc()
		return domain.DistanceResult{}, false
	}
	if entry.Expired(c.clock.Now()) {
		c.metrics.CacheLookups.WithLabelValues(string(provider), "expired").Inc()
		return domain.DistanceResult{}, false
	}

	c.metrics.CacheLookups.WithLabelValues(string(provider), "hit").Inc()
	return entry.Result(), true
}

// Put writes result through under provider with a fresh TTL. The error is
// returned for logging only; resolution proceeds regardless.
func (c *DistanceCache) Put(ctx context.Context, origin, destination string, provider domain.ProviderID, result domain.DistanceResult) error {
	entry := domain.NewCacheEntry(origin, destination, provider, result, c.clock.Now().UTC(), c.ttl)
	if err := c.store.Upsert(ctx, entry); err != nil {
		c.metrics.CacheWriteErrors.WithLabelValues(string(provider)).Inc()
		return err
	}
	return nil
}

// CheckReadiness pings the backing store when it supports it.
func (c *DistanceCache) CheckReadiness(ctx context.Context) error {
	if p, ok := c.store.(Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}
