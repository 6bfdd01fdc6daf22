package cache

import (
	"context"
	"errors"
	"log/slog"

	"github.com/couchcryptid/freight-mileage-service/internal/domain"
)

// TieredStore layers stores fastest first, typically an in-process memory
// tier over a shared remote one.
type TieredStore struct {
	tiers  []Store
	logger *slog.Logger
}

// NewTieredStore returns a Store that reads through tiers in order.
func NewTieredStore(logger *slog.Logger, tiers ...Store) *TieredStore {
	return &TieredStore{tiers: tiers, logger: logger}
}

// Get returns the first entry found. Earlier tiers that missed are
// back-filled. A tier error is skipped unless every tier fails.
func (t *TieredStore) Get(ctx context.Context, originHash, destinationHash string, provider domain.ProviderID) (*domain.CacheEntry, error) {
	var errs []error
	for i, tier := range t.tiers {
		entry, err := tier.Get(ctx, originHash, destinationHash, provider)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if entry == nil {
			continue
		}
		for _, upper := range t.tiers[:i] {
			if err := upper.Upsert(ctx, *entry); err != nil {
				t.logger.Debug("cache back-fill failed", "provider", provider, "error", err)
			}
		}
		return entry, nil
	}
	if len(errs) == len(t.tiers) && len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return nil, nil
}

// Upsert writes every tier and joins their errors.
func (t *TieredStore) Upsert(ctx context.Context, entry domain.CacheEntry) error {
	var errs []error
	for _, tier := range t.tiers {
		if err := tier.Upsert(ctx, entry); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Ping checks every tier that supports it.
func (t *TieredStore) Ping(ctx context.Context) error {
	var errs []error
	for _, tier := range t.tiers {
		if p, ok := tier.(Pinger); ok {
			if err := p.Ping(ctx); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
