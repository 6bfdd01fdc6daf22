// Package memory provides an in-process distance cache store on bigcache.
package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/allegro/bigcache/v3"

	"github.com/couchcryptid/freight-mileage-service/internal/domain"
)

// Store keeps JSON-encoded cache entries in a bigcache shard set. Entries
// are evicted after the configured life window regardless of ExpiresAt.
type Store struct {
	cache *bigcache.BigCache
}

// NewStore allocates a store capped at sizeMB megabytes with entries evicted
// after ttl. sizeMB must be positive.
func NewStore(ctx context.Context, ttl time.Duration, sizeMB int) (*Store, error) {
	if sizeMB <= 0 {
		return nil, fmt.Errorf("memory cache size must be positive, got %dMB", sizeMB)
	}
	cfg := bigcache.DefaultConfig(ttl)
	cfg.HardMaxCacheSize = sizeMB
	cfg.MaxEntriesInWindow = 10000
	cfg.MaxEntrySize = 1024
	cfg.Verbose = false

	c, err := bigcache.New(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create bigcache: %w", err)
	}
	return &Store{cache: c}, nil
}

// Get returns the entry for the slot, or nil when absent.
func (s *Store) Get(_ context.Context, originHash, destinationHash string, provider domain.ProviderID) (*domain.CacheEntry, error) {
	key := domain.CacheKey(originHash, destinationHash, provider)
	data, err := s.cache.Get(key)
	if errors.Is(err, bigcache.ErrEntryNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("memory get %s: %w", key, err)
	}

	var entry domain.CacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		_ = s.cache.Delete(key)
		return nil, fmt.Errorf("decode memory entry %s: %w", key, err)
	}
	return &entry, nil
}

// Upsert replaces the slot for the entry's identity.
func (s *Store) Upsert(_ context.Context, entry domain.CacheEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode memory entry: %w", err)
	}
	key := domain.CacheKey(entry.OriginHash, entry.DestinationHash, entry.Provider)
	if err := s.cache.Set(key, data); err != nil {
		return fmt.Errorf("memory set %s: %w", key, err)
	}
	return nil
}

// Len returns the number of stored entries.
func (s *Store) Len() int {
	return s.cache.Len()
}

// Close releases the cache's background cleanup goroutine.
func (s *Store) Close() error {
	return s.cache.Close()
}
