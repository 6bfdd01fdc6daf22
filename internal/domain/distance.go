package domain

import (
	"context"
	"math"
	"time"
)

// ProviderID identifies a routing backend. It doubles as the Source label of
// a DistanceResult and as the provider component of a cache key.
type ProviderID string

const (
	ProviderPCMiler   ProviderID = "pcmiler"
	ProviderMileMaker ProviderID = "milemaker"
	ProviderGoogle    ProviderID = "google"

	// SourceError labels the degraded placeholder returned by batch
	// resolution for a lane no provider could route.
	SourceError ProviderID = "error"
)

// FallbackOrder is the fixed provider chain, independent of configuration.
var FallbackOrder = []ProviderID{ProviderPCMiler, ProviderMileMaker, ProviderGoogle}

// ParseProviderID validates a configured provider name.
func ParseProviderID(s string) (ProviderID, bool) {
	for _, id := range FallbackOrder {
		if string(id) == s {
			return id, true
		}
	}
	return "", false
}

// RouteType describes how a distance was computed.
type RouteType string

const (
	RouteEstimated RouteType = "estimated"
	RoutePractical RouteType = "practical"
	RouteError     RouteType = "error"
)

// ResolutionOptions shapes a route on providers that support it. Providers
// that ignore a field still return a result.
type ResolutionOptions struct {
	Equipment string   `json:"equipment,omitempty"`
	Hazmat    bool     `json:"hazmat,omitempty"`
	Stops     []string `json:"stops,omitempty"`
}

// Lane is a single origin/destination request.
type Lane struct {
	Origin      string            `json:"origin"`
	Destination string            `json:"destination"`
	Options     ResolutionOptions `json:"options"`
}

// DistanceResult is the resolved mileage for a lane.
type DistanceResult struct {
	PracticalMiles int        `json:"practical_miles"`
	ShortestMiles  *int       `json:"shortest_miles"`
	DriveTimeHours float64    `json:"drive_time_hours"`
	TollCost       *float64   `json:"toll_cost"`
	Source         ProviderID `json:"source"`
	RouteType      RouteType  `json:"route_type"`
	Cached         bool       `json:"cached"`
}

// FailedResult is the sentinel placed in a batch for a lane that could not
// be resolved by any provider.
func FailedResult() DistanceResult {
	return DistanceResult{
		PracticalMiles: 0,
		Source:         SourceError,
		RouteType:      RouteError,
		Cached:         false,
	}
}

// Failed reports whether r is the batch failure sentinel.
func (r DistanceResult) Failed() bool {
	return r.Source == SourceError
}

// CacheEntry is the persisted form of a DistanceResult. Identity is
// (OriginHash, DestinationHash, Provider); Provider is always the backend
// that computed the value.
type CacheEntry struct {
	OriginHash      string     `json:"origin_hash"`
	DestinationHash string     `json:"destination_hash"`
	Provider        ProviderID `json:"provider"`
	OriginText      string     `json:"origin_text"`
	DestinationText string     `json:"destination_text"`
	PracticalMiles  int        `json:"practical_miles"`
	ShortestMiles   *int       `json:"shortest_miles"`
	DriveTimeHours  float64    `json:"drive_time_hours"`
	TollCost        *float64   `json:"toll_cost"`
	RouteType       RouteType  `json:"route_type"`
	CachedAt        time.Time  `json:"cached_at"`
	ExpiresAt       time.Time  `json:"expires_at"`
}

// NewCacheEntry builds the entry written through after a live resolution.
func NewCacheEntry(origin, destination string, provider ProviderID, r DistanceResult, now time.Time, ttl time.Duration) CacheEntry {
	return CacheEntry{
		OriginHash:      DeriveKey(origin),
		DestinationHash: DeriveKey(destination),
		Provider:        provider,
		OriginText:      origin,
		DestinationText: destination,
		PracticalMiles:  r.PracticalMiles,
		ShortestMiles:   r.ShortestMiles,
		DriveTimeHours:  r.DriveTimeHours,
		TollCost:        r.TollCost,
		RouteType:       r.RouteType,
		CachedAt:        now,
		ExpiresAt:       now.Add(ttl),
	}
}

// Expired reports whether the entry is logically absent at now.
func (e CacheEntry) Expired(now time.Time) bool {
	return !e.ExpiresAt.After(now)
}

// Result converts the entry into a cache-served DistanceResult.
func (e CacheEntry) Result() DistanceResult {
	return DistanceResult{
		PracticalMiles: e.PracticalMiles,
		ShortestMiles:  e.ShortestMiles,
		DriveTimeHours: e.DriveTimeHours,
		TollCost:       e.TollCost,
		Source:         e.Provider,
		RouteType:      e.RouteType,
		Cached:         true,
	}
}

// ProviderStatus reports which provider is active and what backs it up.
type ProviderStatus struct {
	ActiveProvider ProviderID   `json:"active_provider"`
	Configured     bool         `json:"configured"`
	FallbackOrder  []ProviderID `json:"fallback_order"`
}

// DistanceProvider computes a DistanceResult for a lane against one routing
// backend.
type DistanceProvider interface {
	// ID returns the provider's identity, used as Source and cache partition.
	ID() ProviderID

	// Configured reports whether the required credentials are present.
	Configured() bool

	// Calculate routes origin to destination. Errors are *ProviderError.
	Calculate(ctx context.Context, origin, destination string, opts ResolutionOptions) (DistanceResult, error)
}

const metersPerMile = 1609.344

// MetersToMiles converts metres to whole miles, rounding to nearest.
func MetersToMiles(meters float64) int {
	return int(math.Round(meters / metersPerMile))
}

// RoundMiles rounds fractional miles to the nearest whole mile.
func RoundMiles(miles float64) int {
	return int(math.Round(miles))
}

// RoundHours rounds to one decimal hour.
func RoundHours(hours float64) float64 {
	return math.Round(hours*10) / 10
}

// SecondsToHours converts seconds to hours rounded to one decimal.
func SecondsToHours(seconds float64) float64 {
	return RoundHours(seconds / 3600)
}
