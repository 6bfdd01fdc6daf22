package mileage_test

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/freight-mileage-service/internal/domain"
)

// --- mocks ---

type fakeProvider struct {
	id         domain.ProviderID
	configured bool
	result     domain.DistanceResult
	err        error
	// failFor makes Calculate fail with ErrNoRoute for the given destination.
	failFor string
	delay   time.Duration
	// onCall runs at the start of every Calculate.
	onCall func()

	calls    atomic.Int32
	inFlight atomic.Int32
	maxSeen  atomic.Int32
}

func (f *fakeProvider) ID() domain.ProviderID { return f.id }

func (f *fakeProvider) Configured() bool { return f.configured }

func (f *fakeProvider) Calculate(ctx context.Context, _, destination string, _ domain.ResolutionOptions) (domain.DistanceResult, error) {
	f.calls.Add(1)
	if f.onCall != nil {
		f.onCall()
	}
	if !f.configured {
		return domain.DistanceResult{}, domain.NewConfigurationError(f.id, "missing credentials")
	}

	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		seen := f.maxSeen.Load()
		if n <= seen || f.maxSeen.CompareAndSwap(seen, n) {
			break
		}
	}

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return domain.DistanceResult{}, domain.NewUpstreamError(f.id, ctx.Err())
		}
	}
	if f.err != nil {
		return domain.DistanceResult{}, f.err
	}
	if f.failFor != "" && destination == f.failFor {
		return domain.DistanceResult{}, domain.NewNotFoundError(f.id, "unroutable")
	}

	r := f.result
	r.Source = f.id
	return r, nil
}

type cacheKey struct {
	origin, destination string
	provider            domain.ProviderID
}

type fakeCache struct {
	mu      sync.Mutex
	entries map[cacheKey]domain.DistanceResult
	putErr  error
	puts    int
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[cacheKey]domain.DistanceResult)}
}

func (c *fakeCache) Get(_ context.Context, origin, destination string, p domain.ProviderID) (domain.DistanceResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.entries[cacheKey{origin, destination, p}]
	if ok {
		r.Cached = true
	}
	return r, ok
}

func (c *fakeCache) Put(_ context.Context, origin, destination string, p domain.ProviderID, r domain.DistanceResult) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.puts++
	if c.putErr != nil {
		return c.putErr
	}
	c.entries[cacheKey{origin, destination, p}] = r
	return nil
}

func (c *fakeCache) seed(origin, destination string, r domain.DistanceResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[cacheKey{origin, destination, r.Source}] = r
}
