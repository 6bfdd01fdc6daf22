package domain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// RawMessage is an unprocessed message from the lane request topic.
type RawMessage struct {
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}

// OutputMessage is the serialized form destined for the lane distance topic.
type OutputMessage struct {
	Key     []byte
	Value   []byte
	Headers map[string]string
}

// LaneRequest is the payload published by upstream load systems asking for
// a lane's mileage. ID is the caller's correlation key (usually a load ID).
type LaneRequest struct {
	ID          string   `json:"id"`
	Origin      string   `json:"origin"`
	Destination string   `json:"destination"`
	Equipment   string   `json:"equipment,omitempty"`
	Hazmat      bool     `json:"hazmat,omitempty"`
	Stops       []string `json:"stops,omitempty"`
}

// Lane converts the request into a resolvable lane.
func (r LaneRequest) Lane() Lane {
	return Lane{
		Origin:      r.Origin,
		Destination: r.Destination,
		Options: ResolutionOptions{
			Equipment: r.Equipment,
			Hazmat:    r.Hazmat,
			Stops:     r.Stops,
		},
	}
}

// LaneDistance is the enriched record produced for each lane request.
type LaneDistance struct {
	ID          string         `json:"id"`
	Origin      string         `json:"origin"`
	Destination string         `json:"destination"`
	Distance    DistanceResult `json:"distance"`
	ResolvedAt  time.Time      `json:"resolved_at"`
}

var errMissingLocation = errors.New("origin and destination are required")

// ParseLaneRequest decodes a raw message. The message key is used as the
// request ID when the payload has none.
func ParseLaneRequest(raw RawMessage) (LaneRequest, error) {
	var req LaneRequest
	if err := json.Unmarshal(raw.Value, &req); err != nil {
		return LaneRequest{}, fmt.Errorf("unmarshal lane request: %w", err)
	}
	if req.ID == "" {
		req.ID = string(raw.Key)
	}
	if NormalizeLocation(req.Origin) == "" || NormalizeLocation(req.Destination) == "" {
		return LaneRequest{}, fmt.Errorf("lane request %q: %w", req.ID, errMissingLocation)
	}
	return req, nil
}

// NewLaneDistance stamps a resolved result with the current time.
func NewLaneDistance(req LaneRequest, result DistanceResult) LaneDistance {
	return LaneDistance{
		ID:          req.ID,
		Origin:      req.Origin,
		Destination: req.Destination,
		Distance:    result,
		ResolvedAt:  clock.Now().UTC(),
	}
}

// SerializeLaneDistance encodes a LaneDistance for the sink topic.
func SerializeLaneDistance(ld LaneDistance) (OutputMessage, error) {
	data, err := json.Marshal(ld)
	if err != nil {
		return OutputMessage{}, fmt.Errorf("marshal lane distance: %w", err)
	}
	return OutputMessage{
		Key:   []byte(ld.ID),
		Value: data,
		Headers: map[string]string{
			"source":      string(ld.Distance.Source),
			"route_type":  string(ld.Distance.RouteType),
			"resolved_at": ld.ResolvedAt.Format(time.RFC3339),
		},
	}, nil
}
