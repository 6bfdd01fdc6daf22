package mileage

import (
	"context"
	"log/slog"
	"sync"

	"github.com/couchcryptid/freight-mileage-service/internal/domain"
	"github.com/couchcryptid/freight-mileage-service/internal/observability"
)

// DefaultConcurrency is the number of lanes resolved at once per batch.
const DefaultConcurrency = 5

// LaneResolver resolves a single lane.
type LaneResolver interface {
	Resolve(ctx context.Context, lane domain.Lane) (domain.DistanceResult, error)
}

// BatchResolver resolves lanes in fixed-size windows, waiting for each
// window to finish before starting the next.
type BatchResolver struct {
	resolver    LaneResolver
	concurrency int
	logger      *slog.Logger
	metrics     *observability.Metrics
}

// NewBatchResolver creates a BatchResolver. A non-positive concurrency
// selects DefaultConcurrency.
func NewBatchResolver(resolver LaneResolver, concurrency int, logger *slog.Logger, metrics *observability.Metrics) *BatchResolver {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &BatchResolver{
		resolver:    resolver,
		concurrency: concurrency,
		logger:      logger,
		metrics:     metrics,
	}
}

// ResolveBatch returns one result per lane in input order. A lane that no
// provider could resolve gets domain.FailedResult; the batch itself never
// fails.
func (b *BatchResolver) ResolveBatch(ctx context.Context, lanes []domain.Lane) []domain.DistanceResult {
	results := make([]domain.DistanceResult, len(lanes))
	b.metrics.BatchSize.Observe(float64(len(lanes)))

	for start := 0; start < len(lanes); start += b.concurrency {
		end := min(start+b.concurrency, len(lanes))

		var wg sync.WaitGroup
		for i := start; i < end; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				b.metrics.BatchInFlight.Inc()
				defer b.metrics.BatchInFlight.Dec()

				result, err := b.resolver.Resolve(ctx, lanes[i])
				if err != nil {
					b.logger.Warn("batch lane unresolved",
						"index", i,
						"origin", lanes[i].Origin,
						"destination", lanes[i].Destination,
						"error", err,
					)
					b.metrics.BatchLaneFailures.Inc()
					results[i] = domain.FailedResult()
					return
				}
				results[i] = result
			}(i)
		}
		wg.Wait()
	}

	return results
}
