// Package mileage resolves lanes to distances through a cache-fronted,
// ordered chain of routing providers.
package mileage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/freight-mileage-service/internal/domain"
	"github.com/couchcryptid/freight-mileage-service/internal/observability"
)

// DistanceCache is the per-provider result cache consulted before each
// provider call.
type DistanceCache interface {
	Get(ctx context.Context, origin, destination string, provider domain.ProviderID) (domain.DistanceResult, bool)
	Put(ctx context.Context, origin, destination string, provider domain.ProviderID, result domain.DistanceResult) error
}

// Resolver walks the provider chain for a lane: the configured primary
// first, then the fixed fallback order without it.
type Resolver struct {
	primary   domain.ProviderID
	chain     []domain.ProviderID
	providers map[domain.ProviderID]domain.DistanceProvider
	cache     DistanceCache
	logger    *slog.Logger
	metrics   *observability.Metrics
}

// NewResolver builds the provider lookup table once. primary must be one of
// the known provider IDs. A provider missing from providers is treated as
// unconfigured.
func NewResolver(primary domain.ProviderID, providers []domain.DistanceProvider, cache DistanceCache, logger *slog.Logger, metrics *observability.Metrics) (*Resolver, error) {
	if _, ok := domain.ParseProviderID(string(primary)); !ok {
		return nil, fmt.Errorf("unknown primary provider %q", primary)
	}

	table := make(map[domain.ProviderID]domain.DistanceProvider, len(providers))
	for _, p := range providers {
		table[p.ID()] = p
	}

	return &Resolver{
		primary:   primary,
		chain:     buildChain(primary),
		providers: table,
		cache:     cache,
		logger:    logger,
		metrics:   metrics,
	}, nil
}

func buildChain(primary domain.ProviderID) []domain.ProviderID {
	chain := make([]domain.ProviderID, 0, len(domain.FallbackOrder))
	chain = append(chain, primary)
	for _, id := range domain.FallbackOrder {
		if id != primary {
			chain = append(chain, id)
		}
	}
	return chain
}

// Chain returns the resolution order, primary first.
func (r *Resolver) Chain() []domain.ProviderID {
	return append([]domain.ProviderID(nil), r.chain...)
}

// Resolve returns the first cached or live result along the chain. The only
// error is *domain.AllProvidersFailedError, listing every attempt in order.
func (r *Resolver) Resolve(ctx context.Context, lane domain.Lane) (domain.DistanceResult, error) {
	attempts := make([]domain.ProviderFailure, 0, len(r.chain))
	var interrupted error

	for i, id := range r.chain {
		if err := ctx.Err(); err != nil {
			interrupted = err
			break
		}

		if cached, ok := r.cache.Get(ctx, lane.Origin, lane.Destination, id); ok {
			r.metrics.Resolutions.WithLabelValues("resolved").Inc()
			return cached, nil
		}

		result, err := r.calculate(ctx, id, lane)
		if err == nil {
			r.store(ctx, id, lane, result)
			r.metrics.Resolutions.WithLabelValues("resolved").Inc()
			return result, nil
		}

		attempts = append(attempts, domain.ProviderFailure{Provider: id, Err: err})
		r.logFailure(id, lane, err)
		if i < len(r.chain)-1 {
			r.metrics.Fallbacks.WithLabelValues(string(id)).Inc()
		}
	}

	r.metrics.Resolutions.WithLabelValues("failed").Inc()
	return domain.DistanceResult{}, &domain.AllProvidersFailedError{Attempts: attempts, Interrupted: interrupted}
}

func (r *Resolver) calculate(ctx context.Context, id domain.ProviderID, lane domain.Lane) (domain.DistanceResult, error) {
	p, ok := r.providers[id]
	if !ok {
		r.metrics.ProviderRequests.WithLabelValues(string(id), "not_configured").Inc()
		return domain.DistanceResult{}, domain.NewConfigurationError(id, "provider not registered")
	}

	start := time.Now()
	result, err := p.Calculate(ctx, lane.Origin, lane.Destination, lane.Options)
	r.metrics.ProviderDuration.WithLabelValues(string(id)).Observe(time.Since(start).Seconds())
	if err != nil {
		r.metrics.ProviderRequests.WithLabelValues(string(id), failureOutcome(err)).Inc()
		return domain.DistanceResult{}, err
	}
	r.metrics.ProviderRequests.WithLabelValues(string(id), "success").Inc()

	result.Source = id
	result.Cached = false
	return result, nil
}

// store writes a live result through. Failures are logged and dropped; the
// write outlives caller cancellation so a completed lookup is not wasted.
func (r *Resolver) store(ctx context.Context, id domain.ProviderID, lane domain.Lane, result domain.DistanceResult) {
	if err := r.cache.Put(context.WithoutCancel(ctx), lane.Origin, lane.Destination, id, result); err != nil {
		r.logger.Warn("cache write failed",
			"provider", id,
			"origin", lane.Origin,
			"destination", lane.Destination,
			"error", err,
		)
	}
}

func (r *Resolver) logFailure(id domain.ProviderID, lane domain.Lane, err error) {
	if errors.Is(err, domain.ErrNotConfigured) {
		r.logger.Warn("provider skipped",
			"provider", id,
			"reason", "not_configured",
			"error", err,
		)
		return
	}
	r.logger.Warn("provider failed",
		"provider", id,
		"reason", failureOutcome(err),
		"origin", lane.Origin,
		"destination", lane.Destination,
		"error", err,
	)
}

func failureOutcome(err error) string {
	switch {
	case errors.Is(err, domain.ErrNotConfigured):
		return "not_configured"
	case errors.Is(err, domain.ErrNoRoute):
		return "not_found"
	default:
		return "upstream"
	}
}
