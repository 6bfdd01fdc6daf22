// Package redis provides the shared distance cache store on Redis.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jonboulle/clockwork"
	goredis "github.com/redis/go-redis/v9"

	"github.com/couchcryptid/freight-mileage-service/internal/domain"
)

const keyPrefix = "mileage:"

// Store keeps JSON-encoded cache entries under mileage:<provider>:<origin>:<destination>
// with a key TTL that tracks the entry's ExpiresAt.
type Store struct {
	client *goredis.Client
	clock  clockwork.Clock
}

// NewClient opens a client for addr. The connection is established lazily.
func NewClient(addr, password string, db int) *goredis.Client {
	return goredis.NewClient(&goredis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

// NewStore wraps client. clock supplies "now" for key TTLs.
func NewStore(client *goredis.Client, clock clockwork.Clock) *Store {
	return &Store{client: client, clock: clock}
}

func key(originHash, destinationHash string, provider domain.ProviderID) string {
	return keyPrefix + domain.CacheKey(originHash, destinationHash, provider)
}

// Get returns the entry for the slot, or nil when absent.
func (s *Store) Get(ctx context.Context, originHash, destinationHash string, provider domain.ProviderID) (*domain.CacheEntry, error) {
	k := key(originHash, destinationHash, provider)
	data, err := s.client.Get(ctx, k).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", k, err)
	}

	var entry domain.CacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("decode redis entry %s: %w", k, err)
	}
	return &entry, nil
}

// Upsert replaces the slot. An entry already past ExpiresAt removes the key.
func (s *Store) Upsert(ctx context.Context, entry domain.CacheEntry) error {
	k := key(entry.OriginHash, entry.DestinationHash, entry.Provider)
	ttl := entry.ExpiresAt.Sub(s.clock.Now())
	if ttl <= 0 {
		if err := s.client.Del(ctx, k).Err(); err != nil {
			return fmt.Errorf("redis del %s: %w", k, err)
		}
		return nil
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode redis entry: %w", err)
	}
	if err := s.client.Set(ctx, k, data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", k, err)
	}
	return nil
}

// Ping checks server connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
