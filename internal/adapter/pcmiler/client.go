// Package pcmiler implements the primary practical-mileage provider. Every
// calculation performs an OAuth client-credentials exchange followed by a
// route mileage request.
package pcmiler

import (
	"bytes"
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

const (
	defaultAuthURL = "https://auth.pcmiler.com"
	defaultBaseURL = "https://api.pcmiler.com"
)

// Client implements domain.DistanceProvider.
type Client struct {
	clientID     string
	clientSecret string
	httpClient   *http.Client
	timeout      time.Duration
	authURL      string
	baseURL      string
	logger       *slog.Logger
}

// NewClient creates a client. Both credentials are required for Configured.
func NewClient(clientID, clientSecret string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		clientID:     clientID,
		clientSecret: clientSecret,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		timeout: timeout,
		authURL: defaultAuthURL,
		baseURL: defaultBaseURL,
		logger:  logger,
	}
}

func (c *Client) ID() domain.ProviderID { return domain.ProviderPCMiler }

func (c *Client) Configured() bool { return c.clientID != "" && c.clientSecret != "" }

// Calculate fetches a token and requests practical mileage for the lane.
// The token exchange and the route request share one timeout.
func (c *Client) Calculate(ctx context.Context, origin, destination string, opts domain.ResolutionOptions) (domain.DistanceResult, error) {
	if !c.Configured() {
		return domain.DistanceResult{}, domain.NewConfigurationError(domain.ProviderPCMiler, "PCMILER_CLIENT_ID and PCMILER_CLIENT_SECRET are required")
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	token, err := c.fetchToken(ctx)
	if err != nil {
		return domain.DistanceResult{}, domain.NewUpstreamError(domain.ProviderPCMiler, err)
	}

	stops := make([]string, 0, len(opts.Stops)+2)
	stops = append(stops, origin)
	stops = append(stops, opts.Stops...)
	stops = append(stops, destination)

	body, err := json.Marshal(mileageRequest{
		Stops:     stops,
		Hazmat:    opts.Hazmat,
		Equipment: opts.Equipment,
	})
	if err != nil {
		return domain.DistanceResult{}, domain.NewUpstreamError(domain.ProviderPCMiler, fmt.Errorf("marshal request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/route/mileage", bytes.NewReader(body))
	if err != nil {
		return domain.DistanceResult{}, domain.NewUpstreamError(domain.ProviderPCMiler, fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.DistanceResult{}, domain.NewUpstreamError(domain.ProviderPCMiler, fmt.Errorf("mileage request: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return domain.DistanceResult{}, domain.NewNotFoundError(domain.ProviderPCMiler, "route not found")
	}
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return domain.DistanceResult{}, domain.NewUpstreamError(domain.ProviderPCMiler, fmt.Errorf("mileage status %d: %s", resp.StatusCode, b))
	}

	var mr mileageResponse
	if err := json.NewDecoder(resp.Body).Decode(&mr); err != nil {
		return domain.DistanceResult{}, domain.NewUpstreamError(domain.ProviderPCMiler, fmt.Errorf("decode response: %w", err))
	}
	if !mr.RouteFound {
		return domain.DistanceResult{}, domain.NewNotFoundError(domain.ProviderPCMiler, mr.Message)
	}

	result := domain.DistanceResult{
		PracticalMiles: domain.RoundMiles(mr.PracticalMiles),
		DriveTimeHours: domain.RoundHours(mr.DriveTimeMinutes / 60),
		TollCost:       mr.TollCost,
		Source:         domain.ProviderPCMiler,
		RouteType:      domain.RoutePractical,
	}
	if mr.ShortestMiles != nil {
		shortest := domain.RoundMiles(*mr.ShortestMiles)
		result.ShortestMiles = &shortest
	}

	c.logger.Debug("pcmiler route calculated",
		"origin", origin,
		"destination", destination,
		"practical_miles", result.PracticalMiles,
	)
	return result, nil
}

func (c *Client) fetchToken(ctx context.Context) (string, error) {
	form := url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {c.clientID},
		"client_secret": {c.clientSecret},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.authURL+"/oauth/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("token request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("token status %d: %s", resp.StatusCode, b)
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", fmt.Errorf("decode token: %w", err)
	}
	if tr.AccessToken == "" {
		return "", errors.New("token response without access_token")
	}
	return tr.AccessToken, nil
}

// API request and response types.

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

type mileageRequest struct {
	Stops     []string `json:"stops"`
	Hazmat    bool     `json:"hazmat"`
	Equipment string   `json:"equipment,omitempty"`
}

type mileageResponse struct {
	RouteFound       bool     `json:"routeFound"`
	Message          string   `json:"message,omitempty"`
	PracticalMiles   float64  `json:"practicalMiles"`
	ShortestMiles    *float64 `json:"shortestMiles"`
	DriveTimeMinutes float64  `json:"driveTimeMinutes"`
	TollCost         *float64 `json:"tollCost"`
}
