package pipeline

import (
	"context"
	"log/slog"

	"github.com/couchcryptid/freight-mileage-service/internal/domain"
)

// BatchResolver resolves lanes in order, substituting a placeholder for
// lanes no provider could route.
type BatchResolver interface {
	ResolveBatch(ctx context.Context, lanes []domain.Lane) []domain.DistanceResult
}

// Skipped is a message that could not be turned into a lane request.
type Skipped struct {
	Raw domain.RawMessage
	Err error
}

// Transformed is the outcome of one batch. Outputs[i] was produced from
// Sources[i].
type Transformed struct {
	Outputs []domain.OutputMessage
	Sources []domain.RawMessage
	Skipped []Skipped
}

// LaneTransformer parses lane requests and resolves them as one batch.
type LaneTransformer struct {
	resolver BatchResolver
	logger   *slog.Logger
}

// NewTransformer creates a LaneTransformer backed by resolver.
func NewTransformer(resolver BatchResolver, logger *slog.Logger) *LaneTransformer {
	return &LaneTransformer{resolver: resolver, logger: logger}
}

// TransformBatch parses every message, resolves the valid ones together, and
// serializes the results. Unresolvable lanes are still published with the
// error placeholder so downstream consumers see every request answered.
func (t *LaneTransformer) TransformBatch(ctx context.Context, raws []domain.RawMessage) Transformed {
	var out Transformed

	reqs := make([]domain.LaneRequest, 0, len(raws))
	sources := make([]domain.RawMessage, 0, len(raws))
	for _, raw := range raws {
		req, err := domain.ParseLaneRequest(raw)
		if err != nil {
			out.Skipped = append(out.Skipped, Skipped{Raw: raw, Err: err})
			continue
		}
		reqs = append(reqs, req)
		sources = append(sources, raw)
	}
	if len(reqs) == 0 {
		return out
	}

	lanes := make([]domain.Lane, len(reqs))
	for i, req := range reqs {
		lanes[i] = req.Lane()
	}
	results := t.resolver.ResolveBatch(ctx, lanes)

	out.Outputs = make([]domain.OutputMessage, 0, len(reqs))
	out.Sources = make([]domain.RawMessage, 0, len(reqs))
	for i, req := range reqs {
		msg, err := domain.SerializeLaneDistance(domain.NewLaneDistance(req, results[i]))
		if err != nil {
			out.Skipped = append(out.Skipped, Skipped{Raw: sources[i], Err: err})
			continue
		}
		if results[i].Failed() {
			t.logger.Debug("publishing unresolved lane", "id", req.ID)
		}
		out.Outputs = append(out.Outputs, msg)
		out.Sources = append(out.Sources, sources[i])
	}
	return out
}
