package cache_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/freight-mileage-service/internal/cache"
	"github.com/couchcryptid/freight-mileage-service/internal/domain"
)

func testEntry(provider domain.ProviderID) domain.CacheEntry {
	return domain.NewCacheEntry("Chicago, IL", "Dallas, TX", provider, practical(967), fixedNow, time.Hour)
}

func TestTieredStore_BackFillsUpperTier(t *testing.T) {
	front, back := newMapStore(), newMapStore()
	e := testEntry(domain.ProviderPCMiler)
	require.NoError(t, back.Upsert(context.Background(), e))

	ts := cache.NewTieredStore(slog.Default(), front, back)
	got, err := ts.Get(context.Background(), e.OriginHash, e.DestinationHash, e.Provider)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 967, got.PracticalMiles)

	assert.Len(t, front.entries, 1, "front tier should be back-filled")

	back.getErr = errors.New("unreachable")
	got, err = ts.Get(context.Background(), e.OriginHash, e.DestinationHash, e.Provider)
	require.NoError(t, err)
	require.NotNil(t, got)
}

func TestTieredStore_MissEverywhere(t *testing.T) {
	ts := cache.NewTieredStore(slog.Default(), newMapStore(), newMapStore())
	got, err := ts.Get(context.Background(), "o", "d", domain.ProviderGoogle)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestTieredStore_SingleTierErrorIsMiss(t *testing.T) {
	front, back := newMapStore(), newMapStore()
	back.getErr = errors.New("unreachable")

	ts := cache.NewTieredStore(slog.Default(), front, back)
	got, err := ts.Get(context.Background(), "o", "d", domain.ProviderGoogle)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestTieredStore_AllTiersFail(t *testing.T) {
	front, back := newMapStore(), newMapStore()
	front.getErr = errors.New("front down")
	back.getErr = errors.New("back down")

	ts := cache.NewTieredStore(slog.Default(), front, back)
	_, err := ts.Get(context.Background(), "o", "d", domain.ProviderGoogle)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "front down")
	assert.Contains(t, err.Error(), "back down")
}

func TestTieredStore_UpsertWritesAllAndJoinsErrors(t *testing.T) {
	front, back := newMapStore(), newMapStore()
	ts := cache.NewTieredStore(slog.Default(), front, back)

	require.NoError(t, ts.Upsert(context.Background(), testEntry(domain.ProviderGoogle)))
	assert.Len(t, front.entries, 1)
	assert.Len(t, back.entries, 1)

	back.putErr = errors.New("read-only replica")
	err := ts.Upsert(context.Background(), testEntry(domain.ProviderMileMaker))
	require.Error(t, err)
	assert.Len(t, front.entries, 2, "front tier still written when back fails")
}

func TestTieredStore_Ping(t *testing.T) {
	front, back := newMapStore(), newMapStore()
	ts := cache.NewTieredStore(slog.Default(), plainStore{front}, back)
	require.NoError(t, ts.Ping(context.Background()))

	back.pingErr = errors.New("down")
	require.Error(t, ts.Ping(context.Background()))
}
