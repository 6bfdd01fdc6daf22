// Package milemaker implements the secondary practical-mileage provider. A
// single request returns a per-leg report that is summed into one result.
package milemaker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/freight-mileage-service/internal/domain"
)

const (
	defaultBaseURL = "https://api.milemaker.com"
	codeNoRoute    = "NO_ROUTE"
)

// Client implements domain.DistanceProvider.
type Client struct {
	apiKey     string
	httpClient *http.Client
	baseURL    string
	logger     *slog.Logger
}

// NewClient creates a client authenticated by API key.
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

func (c *Client) ID() domain.ProviderID { return domain.ProviderMileMaker }

func (c *Client) Configured() bool { return c.apiKey != "" }

// Calculate requests a multi-stop route and aggregates its legs.
func (c *Client) Calculate(ctx context.Context, origin, destination string, opts domain.ResolutionOptions) (domain.DistanceResult, error) {
	if !c.Configured() {
		return domain.DistanceResult{}, domain.NewConfigurationError(domain.ProviderMileMaker, "MILEMAKER_API_KEY is not set")
	}

	stops := make([]string, 0, len(opts.Stops)+2)
	stops = append(stops, origin)
	stops = append(stops, opts.Stops...)
	stops = append(stops, destination)

	body, err := json.Marshal(routeRequest{
		Stops:     stops,
		Hazmat:    opts.Hazmat,
		Equipment: opts.Equipment,
	})
	if err != nil {
		return domain.DistanceResult{}, domain.NewUpstreamError(domain.ProviderMileMaker, fmt.Errorf("marshal request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/routes", bytes.NewReader(body))
	if err != nil {
		return domain.DistanceResult{}, domain.NewUpstreamError(domain.ProviderMileMaker, fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Api-Key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.DistanceResult{}, domain.NewUpstreamError(domain.ProviderMileMaker, fmt.Errorf("route request: %w", err))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.DistanceResult{}, domain.NewUpstreamError(domain.ProviderMileMaker, fmt.Errorf("read response: %w", err))
	}

	var rr routeResponse
	decodeErr := json.Unmarshal(raw, &rr)

	// The error envelope is honoured on any status so a NO_ROUTE answer
	// carried on a 4xx still maps to not-found.
	if decodeErr == nil && rr.Error != nil {
		if rr.Error.Code == codeNoRoute {
			return domain.DistanceResult{}, domain.NewNotFoundError(domain.ProviderMileMaker, rr.Error.Message)
		}
		return domain.DistanceResult{}, domain.NewUpstreamError(domain.ProviderMileMaker, fmt.Errorf("%s: %s", rr.Error.Code, rr.Error.Message))
	}
	if resp.StatusCode != http.StatusOK {
		return domain.DistanceResult{}, domain.NewUpstreamError(domain.ProviderMileMaker, fmt.Errorf("status %d: %.200s", resp.StatusCode, raw))
	}
	if decodeErr != nil {
		return domain.DistanceResult{}, domain.NewUpstreamError(domain.ProviderMileMaker, fmt.Errorf("decode response: %w", decodeErr))
	}
	if len(rr.Legs) == 0 {
		return domain.DistanceResult{}, domain.NewNotFoundError(domain.ProviderMileMaker, "no legs returned")
	}

	result := aggregate(rr.Legs)
	c.logger.Debug("milemaker route calculated",
		"origin", origin,
		"destination", destination,
		"legs", len(rr.Legs),
		"practical_miles", result.PracticalMiles,
	)
	return result, nil
}

// aggregate sums per-leg values. Tolls stay nil unless some leg reports one.
func aggregate(legs []routeLeg) domain.DistanceResult {
	var miles, hours float64
	var tolls *float64
	for _, l := range legs {
		miles += l.Miles
		hours += l.Hours
		if l.Tolls != nil {
			if tolls == nil {
				tolls = new(float64)
			}
			*tolls += *l.Tolls
		}
	}
	return domain.DistanceResult{
		PracticalMiles: domain.RoundMiles(miles),
		DriveTimeHours: domain.RoundHours(hours),
		TollCost:       tolls,
		Source:         domain.ProviderMileMaker,
		RouteType:      domain.RoutePractical,
	}
}

// API request and response types.

type routeRequest struct {
	Stops     []string `json:"stops"`
	Hazmat    bool     `json:"hazmat"`
	Equipment string   `json:"equipment,omitempty"`
}

type routeResponse struct {
	Legs  []routeLeg `json:"legs"`
	Error *apiError  `json:"error,omitempty"`
}

type routeLeg struct {
	Miles float64  `json:"miles"`
	Hours float64  `json:"hours"`
	Tolls *float64 `json:"tolls"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
