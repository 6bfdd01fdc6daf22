// Package backend opens the distance cache store selected by CACHE_BACKEND.
package backend

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/freight-mileage-service/internal/adapter/memory"
	"github.com/couchcryptid/freight-mileage-service/internal/adapter/postgres"
	"github.com/couchcryptid/freight-mileage-service/internal/adapter/redis"
	"github.com/couchcryptid/freight-mileage-service/internal/cache"
	"github.com/couchcryptid/freight-mileage-service/internal/config"
)

// defaultMemorySizeMB sizes the memory backend when CACHE_LOCAL_SIZE_MB=0
// disables the front tier but memory is the only store.
const defaultMemorySizeMB = 64

// Open builds the cache store for the configured backend. Shared
// backends are fronted by an in-process tier when CACHE_LOCAL_SIZE_MB > 0.
// The returned func releases every connection the store holds.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (cache.Store, func(), error) {
	var closers []func()
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	var local *memory.Store
	if cfg.CacheBackend == config.CacheBackendMemory || cfg.CacheLocalSizeMB > 0 {
		size := cfg.CacheLocalSizeMB
		if size == 0 {
			size = defaultMemorySizeMB
		}
		m, err := memory.NewStore(ctx, cfg.CacheTTL, size)
		if err != nil {
			return nil, nil, fmt.Errorf("memory cache: %w", err)
		}
		local = m
		closers = append(closers, func() { _ = m.Close() })
	}

	switch cfg.CacheBackend {
	case config.CacheBackendPostgres:
		pool, err := postgres.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		closers = append(closers, pool.Close)
		pg := postgres.NewStore(pool)
		if err := pg.Migrate(ctx); err != nil {
			closeAll()
			return nil, nil, err
		}
		logger.Info("postgres distance cache connected")
		return withLocalTier(logger, local, pg), closeAll, nil

	case config.CacheBackendRedis:
		client := redis.NewClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		closers = append(closers, func() { _ = client.Close() })
		rs := redis.NewStore(client, clockwork.NewRealClock())
		if err := rs.Ping(ctx); err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("redis ping: %w", err)
		}
		logger.Info("redis distance cache connected", "addr", cfg.RedisAddr)
		return withLocalTier(logger, local, rs), closeAll, nil

	default:
		return local, closeAll, nil
	}
}

func withLocalTier(logger *slog.Logger, local *memory.Store, shared cache.Store) cache.Store {
	if local == nil {
		return shared
	}
	return cache.NewTieredStore(logger, local, shared)
}
