package mileage_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/freight-mileage-service/internal/adapter/memory"
	"github.com/couchcryptid/freight-mileage-service/internal/cache"
	"github.com/couchcryptid/freight-mileage-service/internal/domain"
	"github.com/couchcryptid/freight-mileage-service/internal/mileage"
	"github.com/couchcryptid/freight-mileage-service/internal/observability"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func intPtr(v int) *int { return &v }

func floatPtr(v float64) *float64 { return &v }

func lane(o, d string) domain.Lane { return domain.Lane{Origin: o, Destination: d} }

type providers struct {
	pcmiler, milemaker, google *fakeProvider
}

func newProviders() providers {
	return providers{
		pcmiler: &fakeProvider{id: domain.ProviderPCMiler, configured: true, result: domain.DistanceResult{
			PracticalMiles: 967, ShortestMiles: intPtr(921), DriveTimeHours: 14.2, TollCost: floatPtr(42.5), RouteType: domain.RoutePractical,
		}},
		milemaker: &fakeProvider{id: domain.ProviderMileMaker, configured: true, result: domain.DistanceResult{
			PracticalMiles: 971, DriveTimeHours: 14.6, TollCost: floatPtr(38), RouteType: domain.RoutePractical,
		}},
		google: &fakeProvider{id: domain.ProviderGoogle, configured: true, result: domain.DistanceResult{
			PracticalMiles: 925, DriveTimeHours: 13.4, RouteType: domain.RouteEstimated,
		}},
	}
}

func (p providers) list() []domain.DistanceProvider {
	return []domain.DistanceProvider{p.pcmiler, p.milemaker, p.google}
}

func newResolver(t *testing.T, primary domain.ProviderID, p providers, c mileage.DistanceCache) (*mileage.Resolver, *observability.Metrics) {
	t.Helper()
	m := observability.NewMetricsForTesting()
	r, err := mileage.NewResolver(primary, p.list(), c, discardLogger(), m)
	require.NoError(t, err)
	return r, m
}

func TestNewResolver_UnknownPrimary(t *testing.T) {
	_, err := mileage.NewResolver("mapquest", nil, newFakeCache(), discardLogger(), observability.NewMetricsForTesting())
	require.Error(t, err)
}

func TestResolver_Chain(t *testing.T) {
	tests := []struct {
		primary domain.ProviderID
		want    []domain.ProviderID
	}{
		{domain.ProviderPCMiler, []domain.ProviderID{"pcmiler", "milemaker", "google"}},
		{domain.ProviderMileMaker, []domain.ProviderID{"milemaker", "pcmiler", "google"}},
		{domain.ProviderGoogle, []domain.ProviderID{"google", "pcmiler", "milemaker"}},
	}
	for _, tt := range tests {
		r, _ := newResolver(t, tt.primary, newProviders(), newFakeCache())
		assert.Equal(t, tt.want, r.Chain())
	}
}

func TestResolver_PrimaryLiveResult(t *testing.T) {
	p := newProviders()
	c := newFakeCache()
	r, m := newResolver(t, domain.ProviderPCMiler, p, c)

	got, err := r.Resolve(context.Background(), lane("Chicago, IL", "Dallas, TX"))
	require.NoError(t, err)

	assert.Equal(t, 967, got.PracticalMiles)
	assert.Equal(t, domain.ProviderPCMiler, got.Source)
	assert.Equal(t, domain.RoutePractical, got.RouteType)
	assert.False(t, got.Cached)
	assert.Equal(t, 1, c.puts, "result written through")
	assert.Zero(t, p.milemaker.calls.Load())
	assert.InDelta(t, 1, testutil.ToFloat64(m.ProviderRequests.WithLabelValues("pcmiler", "success")), 0)
}

func TestResolver_CacheHitSkipsProvider(t *testing.T) {
	p := newProviders()
	c := newFakeCache()
	c.seed("Chicago, IL", "Dallas, TX", domain.DistanceResult{PracticalMiles: 960, Source: domain.ProviderPCMiler, RouteType: domain.RoutePractical})
	r, _ := newResolver(t, domain.ProviderPCMiler, p, c)

	got, err := r.Resolve(context.Background(), lane("Chicago, IL", "Dallas, TX"))
	require.NoError(t, err)
	assert.True(t, got.Cached)
	assert.Equal(t, 960, got.PracticalMiles)
	assert.Zero(t, p.pcmiler.calls.Load())
}

func TestResolver_PerProviderCacheIsolation(t *testing.T) {
	p := newProviders()
	c := newFakeCache()
	c.seed("Chicago, IL", "Dallas, TX", domain.DistanceResult{PracticalMiles: 925, Source: domain.ProviderGoogle, RouteType: domain.RouteEstimated})
	r, _ := newResolver(t, domain.ProviderPCMiler, p, c)

	got, err := r.Resolve(context.Background(), lane("Chicago, IL", "Dallas, TX"))
	require.NoError(t, err)
	assert.Equal(t, domain.ProviderPCMiler, got.Source, "google entry must not shadow pcmiler")
	assert.False(t, got.Cached)
	assert.Equal(t, int32(1), p.pcmiler.calls.Load())
}

func TestResolver_FallbackHitsFallbackCacheAfterPrimaryFails(t *testing.T) {
	p := newProviders()
	p.pcmiler.err = domain.NewUpstreamError(domain.ProviderPCMiler, errors.New("503"))
	c := newFakeCache()
	c.seed("A", "B", domain.DistanceResult{PracticalMiles: 500, Source: domain.ProviderMileMaker, RouteType: domain.RoutePractical})
	r, _ := newResolver(t, domain.ProviderPCMiler, p, c)

	got, err := r.Resolve(context.Background(), lane("A", "B"))
	require.NoError(t, err)
	assert.True(t, got.Cached)
	assert.Equal(t, domain.ProviderMileMaker, got.Source)
	assert.Zero(t, p.milemaker.calls.Load())
}

func TestResolver_FallbackCorrectness(t *testing.T) {
	p := newProviders()
	p.pcmiler.err = domain.NewUpstreamError(domain.ProviderPCMiler, errors.New("status 500"))
	c := newFakeCache()
	r, m := newResolver(t, domain.ProviderPCMiler, p, c)

	got, err := r.Resolve(context.Background(), lane("Chicago, IL", "Dallas, TX"))
	require.NoError(t, err)

	assert.Equal(t, domain.ProviderMileMaker, got.Source)
	assert.Equal(t, 971, got.PracticalMiles)
	assert.Equal(t, int32(1), p.pcmiler.calls.Load(), "primary never retried")
	assert.Zero(t, p.google.calls.Load())

	_, cachedUnderPrimary := c.Get(context.Background(), "Chicago, IL", "Dallas, TX", domain.ProviderPCMiler)
	assert.False(t, cachedUnderPrimary, "fallback result cached under its own identity only")
	_, cachedUnderFallback := c.Get(context.Background(), "Chicago, IL", "Dallas, TX", domain.ProviderMileMaker)
	assert.True(t, cachedUnderFallback)
	assert.InDelta(t, 1, testutil.ToFloat64(m.Fallbacks.WithLabelValues("pcmiler")), 0)
}

func TestResolver_PrimaryNotConfigured(t *testing.T) {
	p := newProviders()
	p.pcmiler.configured = false
	r, m := newResolver(t, domain.ProviderPCMiler, p, newFakeCache())

	got, err := r.Resolve(context.Background(), lane("Chicago, IL", "Dallas, TX"))
	require.NoError(t, err)
	assert.Equal(t, domain.ProviderMileMaker, got.Source)
	assert.InDelta(t, 1, testutil.ToFloat64(m.ProviderRequests.WithLabelValues("pcmiler", "not_configured")), 0)
}

func TestResolver_NotFoundEscalates(t *testing.T) {
	p := newProviders()
	p.pcmiler.err = domain.NewNotFoundError(domain.ProviderPCMiler, "")
	p.milemaker.err = domain.NewNotFoundError(domain.ProviderMileMaker, "")
	r, _ := newResolver(t, domain.ProviderPCMiler, p, newFakeCache())

	got, err := r.Resolve(context.Background(), lane("A", "B"))
	require.NoError(t, err)
	assert.Equal(t, domain.ProviderGoogle, got.Source)
	assert.Equal(t, domain.RouteEstimated, got.RouteType)
	assert.Nil(t, got.TollCost)
}

func TestResolver_AllProvidersFailed(t *testing.T) {
	p := newProviders()
	p.pcmiler.err = domain.NewUpstreamError(domain.ProviderPCMiler, errors.New("dial tcp: network unreachable"))
	p.milemaker.configured = false
	p.google.err = domain.NewNotFoundError(domain.ProviderGoogle, "ZERO_RESULTS")
	c := newFakeCache()
	r, m := newResolver(t, domain.ProviderPCMiler, p, c)

	_, err := r.Resolve(context.Background(), lane("A", "B"))
	require.Error(t, err)

	var all *domain.AllProvidersFailedError
	require.ErrorAs(t, err, &all)
	require.Len(t, all.Attempts, 3)
	assert.Equal(t, domain.ProviderPCMiler, all.Attempts[0].Provider)
	assert.ErrorIs(t, all.Attempts[0].Err, domain.ErrUpstream)
	assert.Equal(t, domain.ProviderMileMaker, all.Attempts[1].Provider)
	assert.ErrorIs(t, all.Attempts[1].Err, domain.ErrNotConfigured)
	assert.Equal(t, domain.ProviderGoogle, all.Attempts[2].Provider)
	assert.ErrorIs(t, all.Attempts[2].Err, domain.ErrNoRoute)

	assert.Zero(t, c.puts)
	assert.InDelta(t, 1, testutil.ToFloat64(m.Resolutions.WithLabelValues("failed")), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(m.Fallbacks.WithLabelValues("pcmiler"))+testutil.ToFloat64(m.Fallbacks.WithLabelValues("milemaker")), 0)
}

func TestResolver_UnregisteredProviderCountsAsUnconfigured(t *testing.T) {
	p := newProviders()
	p.pcmiler.err = domain.NewUpstreamError(domain.ProviderPCMiler, errors.New("boom"))
	m := observability.NewMetricsForTesting()
	r, err := mileage.NewResolver(domain.ProviderPCMiler, []domain.DistanceProvider{p.pcmiler, p.google}, newFakeCache(), discardLogger(), m)
	require.NoError(t, err)

	got, err := r.Resolve(context.Background(), lane("A", "B"))
	require.NoError(t, err)
	assert.Equal(t, domain.ProviderGoogle, got.Source)
}

func TestResolver_CacheWriteFailureSwallowed(t *testing.T) {
	c := newFakeCache()
	c.putErr = errors.New("database is down")
	r, _ := newResolver(t, domain.ProviderPCMiler, newProviders(), c)

	got, err := r.Resolve(context.Background(), lane("A", "B"))
	require.NoError(t, err)
	assert.Equal(t, 967, got.PracticalMiles)
	assert.Equal(t, 1, c.puts)
}

func TestResolver_CanceledContextStopsWalk(t *testing.T) {
	p := newProviders()
	r, _ := newResolver(t, domain.ProviderPCMiler, p, newFakeCache())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Resolve(ctx, lane("A", "B"))
	var all *domain.AllProvidersFailedError
	require.ErrorAs(t, err, &all)
	assert.Empty(t, all.Attempts, "no provider was called")
	assert.ErrorIs(t, all.Interrupted, context.Canceled)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, p.pcmiler.calls.Load())
}

func TestResolver_ContextEndsMidChain(t *testing.T) {
	p := newProviders()
	ctx, cancel := context.WithCancel(context.Background())
	p.pcmiler.err = domain.NewUpstreamError(domain.ProviderPCMiler, errors.New("gateway timeout"))
	p.pcmiler.onCall = cancel
	r, _ := newResolver(t, domain.ProviderPCMiler, p, newFakeCache())

	_, err := r.Resolve(ctx, lane("A", "B"))
	var all *domain.AllProvidersFailedError
	require.ErrorAs(t, err, &all)
	require.Len(t, all.Attempts, 1)
	assert.Equal(t, domain.ProviderPCMiler, all.Attempts[0].Provider)
	assert.ErrorIs(t, all.Interrupted, context.Canceled)
	assert.Zero(t, p.milemaker.calls.Load())
}

// Chicago to Dallas twice through the real cache service and memory store.
func TestResolver_SecondCallServedFromCache(t *testing.T) {
	store, err := memory.NewStore(context.Background(), cache.DefaultTTL, 8)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	clock := clockwork.NewFakeClockAt(time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC))
	m := observability.NewMetricsForTesting()
	dc := cache.New(store, cache.DefaultTTL, clock, discardLogger(), m)

	p := newProviders()
	r, err := mileage.NewResolver(domain.ProviderPCMiler, p.list(), dc, discardLogger(), m)
	require.NoError(t, err)

	first, err := r.Resolve(context.Background(), lane("Chicago, IL", "Dallas, TX"))
	require.NoError(t, err)
	assert.False(t, first.Cached)
	assert.Equal(t, domain.RoutePractical, first.RouteType)

	clock.Advance(29 * 24 * time.Hour)
	second, err := r.Resolve(context.Background(), lane("  chicago, il ", "DALLAS,  TX"))
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, int32(1), p.pcmiler.calls.Load())

	first.Cached = true
	assert.Equal(t, first, second, "numeric fields identical to what was written")

	clock.Advance(2 * 24 * time.Hour)
	third, err := r.Resolve(context.Background(), lane("Chicago, IL", "Dallas, TX"))
	require.NoError(t, err)
	assert.False(t, third.Cached, "expired entry is a miss")
	assert.Equal(t, int32(2), p.pcmiler.calls.Load())
}
