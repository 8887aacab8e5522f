package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"ffrankings/ingestion/internal/metrics"
	"ffrankings/ingestion/internal/models"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

// Endpoint labels used for logging, metrics and errors
const (
	EndpointPlayers     = "players"
	EndpointProjections = "projections"
	EndpointStats       = "stats"
)

// UpstreamError is returned for any failure talking to the Sleeper API:
// transport errors, non-success statuses and undecodable payloads.
type UpstreamError struct {
	Endpoint   string
	StatusCode int // 0 when no response was received
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("sleeper %s failed (status %d): %v", e.Endpoint, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("sleeper %s failed: %v", e.Endpoint, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// Config holds client configuration
type Config struct {
	BaseURL       string
	Timeout       time.Duration
	MaxConcurrent int
	MaxRetries    int

	// RequestsPerSecond throttles outgoing requests; zero disables throttling
	RequestsPerSecond float64
}

// Client is the Sleeper API client
type Client struct {
	baseURL     string
	httpClient  *http.Client
	rateLimiter chan struct{} // Rate limiting semaphore
	throttle    *rate.Limiter
	maxRetries  int
	retryDelay  time.Duration
	breaker     *gobreaker.CircuitBreaker
}

// NewClient creates a new Sleeper API client
func NewClient(cfg Config) *Client {
	concurrent := cfg.MaxConcurrent
	if concurrent < 1 {
		concurrent = 1
	}
	rateLimiter := make(chan struct{}, concurrent)
	for i := 0; i < concurrent; i++ {
		rateLimiter <- struct{}{}
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "sleeper",
		Timeout: time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Circuit breaker state changed")
		},
	})

	var throttle *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		throttle = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}

	return &Client{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		rateLimiter: rateLimiter,
		throttle:    throttle,
		maxRetries:  cfg.MaxRetries,
		retryDelay:  1 * time.Second,
		breaker:     breaker,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// get performs a GET request through the circuit breaker
func (c *Client) get(ctx context.Context, endpoint, path string, params url.Values) ([]byte, error) {
	start := time.Now()

	body, err := c.breaker.Execute(func() (interface{}, error) {
		return c.doGet(ctx, endpoint, path, params)
	})

	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.RecordAPICall(endpoint, status, time.Since(start).Seconds())

	if err != nil {
		var upstreamErr *UpstreamError
		if errors.As(err, &upstreamErr) {
			return nil, err
		}
		// gobreaker.ErrOpenState / ErrTooManyRequests
		return nil, &UpstreamError{Endpoint: endpoint, Err: err}
	}

	return body.([]byte), nil
}

// doGet performs a GET request with optional retries and rate limiting
func (c *Client) doGet(ctx context.Context, endpoint, path string, params url.Values) ([]byte, error) {
	reqURL := fmt.Sprintf("%s/%s", c.baseURL, path)
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	// Rate limiting: acquire semaphore
	select {
	case <-ctx.Done():
		return nil, &UpstreamError{Endpoint: endpoint, Err: ctx.Err()}
	case <-c.rateLimiter:
	}
	defer func() { c.rateLimiter <- struct{}{} }()

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			// Exponential backoff: 1s, 2s, 4s
			backoff := c.retryDelay * time.Duration(1<<uint(attempt-1))
			log.Info().
				Str("url", reqURL).
				Int("attempt", attempt).
				Dur("backoff", backoff).
				Msg("Retrying API request after backoff")

			select {
			case <-ctx.Done():
				return nil, &UpstreamError{Endpoint: endpoint, Err: ctx.Err()}
			case <-time.After(backoff):
			}
		}

		if c.throttle != nil {
			if err := c.throttle.Wait(ctx); err != nil {
				return nil, &UpstreamError{Endpoint: endpoint, Err: err}
			}
		}

		body, retry, err := c.do(ctx, endpoint, reqURL, attempt)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if !retry {
			return nil, err
		}
	}

	return nil, lastErr
}

// do issues a single request. The bool result reports whether the failure is retryable.
func (c *Client) do(ctx context.Context, endpoint, reqURL string, attempt int) ([]byte, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, false, &UpstreamError{Endpoint: endpoint, Err: fmt.Errorf("failed to create request: %w", err)}
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "ffrankings-ingestion/1.0")

	log.Debug().
		Str("url", reqURL).
		Str("method", req.Method).
		Int("attempt", attempt+1).
		Msg("Making API request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, true, &UpstreamError{Endpoint: endpoint, Err: fmt.Errorf("API request failed: %w", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, &UpstreamError{Endpoint: endpoint, StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to read response body: %w", err)}
	}

	switch resp.StatusCode {
	case http.StatusOK:
		log.Debug().
			Str("url", reqURL).
			Int("status", resp.StatusCode).
			Int("size", len(body)).
			Msg("API request successful")
		return body, false, nil

	case http.StatusTooManyRequests, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		log.Warn().
			Str("url", reqURL).
			Int("status", resp.StatusCode).
			Int("attempt", attempt+1).
			Msg("Received retryable status")
		return nil, true, &UpstreamError{Endpoint: endpoint, StatusCode: resp.StatusCode, Err: fmt.Errorf("retryable status: %s", truncate(body))}

	default:
		return nil, false, &UpstreamError{Endpoint: endpoint, StatusCode: resp.StatusCode, Err: fmt.Errorf("unexpected status: %s", truncate(body))}
	}
}

func truncate(body []byte) string {
	const limit = 256
	if len(body) > limit {
		return string(body[:limit]) + "..."
	}
	return string(body)
}

// positionParams restricts a weekly query to regular season and tracked positions
func positionParams() url.Values {
	params := url.Values{}
	params.Set("season_type", "regular")
	for _, pos := range models.TrackedPositions {
		params.Add("position[]", string(pos))
	}
	return params
}

// FetchAllPlayers fetches the full NFL player directory keyed by player ID
func (c *Client) FetchAllPlayers(ctx context.Context) (map[string]models.PlayerInput, error) {
	body, err := c.get(ctx, EndpointPlayers, "players/nfl", nil)
	if err != nil {
		return nil, err
	}

	var players map[string]models.PlayerInput
	if err := json.Unmarshal(body, &players); err != nil {
		return nil, &UpstreamError{Endpoint: EndpointPlayers, Err: fmt.Errorf("failed to unmarshal players: %w", err)}
	}

	return players, nil
}

// FetchProjections fetches projected scoring for a season/week keyed by player ID
func (c *Client) FetchProjections(ctx context.Context, season, week int) (map[string]models.ProjectionInput, error) {
	path := fmt.Sprintf("projections/nfl/%d/%d", season, week)
	body, err := c.get(ctx, EndpointProjections, path, positionParams())
	if err != nil {
		return nil, err
	}

	var projections map[string]models.ProjectionInput
	if err := json.Unmarshal(body, &projections); err != nil {
		return nil, &UpstreamError{Endpoint: EndpointProjections, Err: fmt.Errorf("failed to unmarshal projections: %w", err)}
	}

	return projections, nil
}

// FetchStats fetches actual scoring, including upstream position ranks, for a season/week
func (c *Client) FetchStats(ctx context.Context, season, week int) (map[string]models.StatInput, error) {
	path := fmt.Sprintf("stats/nfl/%d/%d", season, week)
	body, err := c.get(ctx, EndpointStats, path, positionParams())
	if err != nil {
		return nil, err
	}

	var stats map[string]models.StatInput
	if err := json.Unmarshal(body, &stats); err != nil {
		return nil, &UpstreamError{Endpoint: EndpointStats, Err: fmt.Errorf("failed to unmarshal stats: %w", err)}
	}

	return stats, nil
}
