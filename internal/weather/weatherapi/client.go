// Package weatherapi implements weather.Provider against WeatherAPI.com.
package weatherapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/aliweather/aliweather/internal/provider/resilience"
	"github.com/aliweather/aliweather/internal/weather"
)

const (
	// ProviderName identifies this weather provider.
	ProviderName = "weatherapi"

	// DefaultBaseURL is the WeatherAPI.com v1 base URL.
	DefaultBaseURL = "https://api.weatherapi.com/v1"

	// DefaultForecastDays is how many forecast days are requested.
	DefaultForecastDays = 7

	// errCodeNoLocation is WeatherAPI.com's "No matching location found" code.
	errCodeNoLocation = 1006
)

// ClientConfig holds configuration for the WeatherAPI.com client.
type ClientConfig struct {
	// APIKey is the WeatherAPI.com key (required).
	APIKey string

	// BaseURL is the API base URL (optional, defaults to DefaultBaseURL).
	BaseURL string

	// ForecastDays is the number of forecast days to request (default: 7).
	ForecastDays int

	// HTTPClient is the HTTP client to use (optional).
	// If nil, uses a resilient client with defaults.
	HTTPClient *resilience.Client

	// Clock stamps FetchedAt on snapshots (default: real clock).
	Clock clockwork.Clock

	// Logger for client operations.
	Logger zerolog.Logger
}

// Client is a WeatherAPI.com client.
type Client struct {
	apiKey       string
	baseURL      string
	forecastDays int
	httpClient   *resilience.Client
	clock        clockwork.Clock
	logger       zerolog.Logger
}

var _ weather.Provider = (*Client)(nil)

// NewClient creates a new WeatherAPI.com client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	days := cfg.ForecastDays
	if days <= 0 {
		days = DefaultForecastDays
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = resilience.NewClient(resilience.DefaultClientConfig(ProviderName))
	}

	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	return &Client{
		apiKey:       cfg.APIKey,
		baseURL:      baseURL,
		forecastDays: days,
		httpClient:   httpClient,
		clock:        clock,
		logger:       cfg.Logger,
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return ProviderName
}

// GetSnapshot fetches current conditions, forecast, air quality and alerts
// for a query and normalizes the response.
func (c *Client) GetSnapshot(ctx context.Context, query string) (*weather.Snapshot, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("days", strconv.Itoa(c.forecastDays))
	params.Set("aqi", "yes")
	params.Set("alerts", "yes")

	var payload weather.Payload
	if err := c.httpClient.GetJSON(ctx, c.endpoint("/forecast.json", params), &payload); err != nil {
		return nil, c.mapError(err)
	}

	snap := weather.Normalize(&payload, c.clock.Now())

	c.logger.Debug().
		Str("query", query).
		Str("location", snap.Location.Name).
		Int("forecast_days", len(snap.ForecastDays)).
		Int("upstream_alerts", len(snap.UpstreamAlerts)).
		Msg("fetched snapshot")

	return &snap, nil
}

// SearchLocations queries the search endpoint.
func (c *Client) SearchLocations(ctx context.Context, query string) ([]weather.LocationMatch, error) {
	params := url.Values{}
	params.Set("q", query)

	var results []searchResult
	if err := c.httpClient.GetJSON(ctx, c.endpoint("/search.json", params), &results); err != nil {
		return nil, c.mapError(err)
	}

	matches := make([]weather.LocationMatch, 0, len(results))
	for _, r := range results {
		matches = append(matches, weather.LocationMatch{
			ID:      int64(r.ID.Float()),
			Name:    r.Name,
			Region:  r.Region,
			Country: r.Country,
			Lat:     r.Lat.Float(),
			Lon:     r.Lon.Float(),
		})
	}
	return matches, nil
}

func (c *Client) endpoint(path string, params url.Values) string {
	params.Set("key", c.apiKey)
	return c.baseURL + path + "?" + params.Encode()
}

// mapError converts a WeatherAPI.com error body into a domain error when it
// carries a known code.
func (c *Client) mapError(err error) error {
	var statusErr *resilience.StatusError
	if !errors.As(err, &statusErr) {
		return err
	}

	var body errorResponse
	if jsonErr := json.Unmarshal([]byte(statusErr.Body), &body); jsonErr != nil || body.Error.Message == "" {
		return err
	}

	if body.Error.Code == errCodeNoLocation {
		return fmt.Errorf("%s: %w", body.Error.Message, weather.ErrNoDataForLocation)
	}
	return fmt.Errorf("weatherapi error %d: %s: %w", body.Error.Code, body.Error.Message, err)
}

// WeatherAPI.com response structures not shared with weather.Payload.

type searchResult struct {
	ID      weather.Number `json:"id"`
	Name    string         `json:"name"`
	Region  string         `json:"region"`
	Country string         `json:"country"`
	Lat     weather.Number `json:"lat"`
	Lon     weather.Number `json:"lon"`
}

type errorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}
