// Package google implements the estimated-distance provider on the Google
// Directions API.
package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/couchcryptid/freight-mileage-service/internal/domain"
)

const defaultBaseURL = "https://maps.googleapis.com/maps/api/directions/json"

// Client implements domain.DistanceProvider. Distances are general driving
// estimates; hazmat and equipment options are ignored.
type Client struct {
	apiKey     string
	httpClient *http.Client
	baseURL    string
	logger     *slog.Logger
}

// NewClient creates a Directions API client with a hard per-call timeout.
func NewClient(apiKey string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		apiKey: apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: defaultBaseURL,
		logger:  logger,
	}
}

func (c *Client) ID() domain.ProviderID { return domain.ProviderGoogle }

func (c *Client) Configured() bool { return c.apiKey != "" }

// Calculate requests a driving route through any stops and sums its legs.
func (c *Client) Calculate(ctx context.Context, origin, destination string, opts domain.ResolutionOptions) (domain.DistanceResult, error) {
	if !c.Configured() {
		return domain.DistanceResult{}, domain.NewConfigurationError(domain.ProviderGoogle, "GOOGLE_MAPS_API_KEY is not set")
	}

	params := url.Values{
		"origin":      {origin},
		"destination": {destination},
		"mode":        {"driving"},
		"units":       {"imperial"},
		"key":         {c.apiKey},
	}
	if len(opts.Stops) > 0 {
		params.Set("waypoints", strings.Join(opts.Stops, "|"))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return domain.DistanceResult{}, domain.NewUpstreamError(domain.ProviderGoogle, fmt.Errorf("create request: %w", err))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.DistanceResult{}, domain.NewUpstreamError(domain.ProviderGoogle, fmt.Errorf("directions request: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return domain.DistanceResult{}, domain.NewUpstreamError(domain.ProviderGoogle, fmt.Errorf("status %d: %s", resp.StatusCode, body))
	}

	var dr directionsResponse
	if err := json.NewDecoder(resp.Body).Decode(&dr); err != nil {
		return domain.DistanceResult{}, domain.NewUpstreamError(domain.ProviderGoogle, fmt.Errorf("decode response: %w", err))
	}

	switch dr.Status {
	case "OK":
	case "ZERO_RESULTS", "NOT_FOUND":
		return domain.DistanceResult{}, domain.NewNotFoundError(domain.ProviderGoogle, dr.Status)
	default:
		return domain.DistanceResult{}, domain.NewUpstreamError(domain.ProviderGoogle, fmt.Errorf("status %s: %s", dr.Status, dr.ErrorMessage))
	}
	if len(dr.Routes) == 0 || len(dr.Routes[0].Legs) == 0 {
		return domain.DistanceResult{}, domain.NewUpstreamError(domain.ProviderGoogle, errors.New("OK response without route legs"))
	}

	var meters, seconds float64
	for _, leg := range dr.Routes[0].Legs {
		meters += leg.Distance.Value
		seconds += leg.Duration.Value
	}

	c.logger.Debug("google route calculated",
		"origin", origin,
		"destination", destination,
		"legs", len(dr.Routes[0].Legs),
		"meters", meters,
	)

	return domain.DistanceResult{
		PracticalMiles: domain.MetersToMiles(meters),
		DriveTimeHours: domain.SecondsToHours(seconds),
		Source:         domain.ProviderGoogle,
		RouteType:      domain.RouteEstimated,
	}, nil
}

// Directions API response types.

type directionsResponse struct {
	Status       string  `json:"status"`
	ErrorMessage string  `json:"error_message"`
	Routes       []route `json:"routes"`
}

type route struct {
	Legs []leg `json:"legs"`
}

type leg struct {
	Distance textValue `json:"distance"` // metres
	Duration textValue `json:"duration"` // seconds
}

type textValue struct {
	Text  string  `json:"text"`
	Value float64 `json:"value"`
}
