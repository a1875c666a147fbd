package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/jtomic/farewatch/internal/flights"
	"github.com/jtomic/farewatch/pkg/logger"
)

// SerpAPIClient fetches Google Flights results through SerpAPI.
type SerpAPIClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	maxRetries int
	backoff    time.Duration
	limiter    *rate.Limiter
	logger     *logger.Logger
}

// SerpAPIConfig configures the SerpAPI client.
type SerpAPIConfig struct {
	BaseURL           string
	APIKey            string
	Timeout           time.Duration
	MaxRetries        int
	RequestsPerSecond float64
	RequestBurst      int
}

// NewSerpAPIClient creates a new SerpAPI client
func NewSerpAPIClient(cfg SerpAPIConfig, logger *logger.Logger) *SerpAPIClient {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://serpapi.com"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 1
	}
	burst := cfg.RequestBurst
	if burst <= 0 {
		burst = 1
	}

	return &SerpAPIClient{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		apiKey:     cfg.APIKey,
		maxRetries: cfg.MaxRetries,
		backoff:    400 * time.Millisecond,
		limiter:    rate.NewLimiter(rate.Limit(rps), burst),
		logger:     logger.Named("serpapi"),
	}
}

// serpResponse is the subset of the SerpAPI payload we consume
type serpResponse struct {
	Error        string                 `json:"error"`
	BestFlights  flights.RawItineraries `json:"best_flights"`
	OtherFlights flights.RawItineraries `json:"other_flights"`
	Insight      *flights.PriceInsight  `json:"price_insights"`
	SearchMeta   struct {
		GoogleFlightsURL string `json:"google_flights_url"`
	} `json:"search_metadata"`
}

// Search queries the provider for one route/date combination. The raw
// itineraries are returned unnormalized; an error payload inside the
// response surfaces as ErrProvider, never as a crash downstream.
func (c *SerpAPIClient) Search(ctx context.Context, q flights.Query) (*flights.SearchResult, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("%w: missing API key: set SERPAPI_KEY or provider.api_key", ErrAuthRequired)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter wait: %w", err)
	}

	endpoint := c.searchURL(q, nil)
	c.logger.Debug("Fetching flight data",
		logger.String("origin", q.Origin),
		logger.String("destination", q.Destination),
		logger.String("date_from", q.DateFrom),
		logger.Bool("round_trip", q.RoundTrip),
	)

	var payload serpResponse
	if err := c.fetchWithRetry(ctx, endpoint, &payload); err != nil {
		return nil, err
	}
	if payload.Error != "" {
		return nil, fmt.Errorf("%w: %s", ErrProvider, payload.Error)
	}

	raw := make(flights.RawItineraries, 0, len(payload.BestFlights)+len(payload.OtherFlights))
	raw = append(raw, payload.BestFlights...)
	raw = append(raw, payload.OtherFlights...)

	result := &flights.SearchResult{
		Itineraries: raw,
		Insight:     payload.Insight,
		SearchLink:  buildSearchLink(q),
	}

	// Best effort: a second call with the first booking token yields a
	// bookable deep link. Failures only cost us the link.
	if link := c.bookingLink(ctx, q, raw); link != "" {
		result.BookingLink = link
	} else {
		result.BookingLink = payload.SearchMeta.GoogleFlightsURL
	}

	c.logger.Debug("Fetched flight data",
		logger.Int("itinerary_count", len(raw)),
		logger.Bool("has_insights", payload.Insight != nil),
	)

	return result, nil
}

func (c *SerpAPIClient) bookingLink(ctx context.Context, q flights.Query, raw flights.RawItineraries) string {
	if len(raw) == 0 || raw[0].BookingToken == "" {
		return ""
	}
	token := raw[0].BookingToken
	var payload serpResponse
	if err := c.fetchOnce(ctx, c.searchURL(q, &token), &payload); err != nil {
		c.logger.Warn("Failed to resolve booking link", logger.Error(err))
		return ""
	}
	return payload.SearchMeta.GoogleFlightsURL
}

func (c *SerpAPIClient) searchURL(q flights.Query, bookingToken *string) string {
	v := url.Values{}
	v.Set("engine", "google_flights")
	v.Set("api_key", c.apiKey)
	v.Set("departure_id", q.Origin)
	v.Set("arrival_id", q.Destination)
	v.Set("outbound_date", q.DateFrom)
	if q.RoundTrip {
		v.Set("type", "1")
		if q.DateTo != "" {
			v.Set("return_date", q.DateTo)
		}
	} else {
		v.Set("type", "2")
	}
	v.Set("max_stops", strconv.Itoa(q.MaxLayovers))
	if q.Currency != "" {
		v.Set("currency", q.Currency)
	}
	v.Set("no_cache", "true")
	if bookingToken != nil {
		v.Set("booking_token", *bookingToken)
	}
	return c.baseURL + "/search.json?" + v.Encode()
}

func (c *SerpAPIClient) fetchWithRetry(ctx context.Context, endpoint string, out *serpResponse) error {
	attempts := c.maxRetries + 1
	delay := c.backoff
	for attempt := 0; attempt < attempts; attempt++ {
		err := c.fetchOnce(ctx, endpoint, out)
		if err == nil {
			return nil
		}
		if !isRetryable(err) || attempt == attempts-1 {
			return err
		}
		c.logger.Warn("Retrying provider request",
			logger.Int("attempt", attempt+1),
			logger.Int("max_attempts", attempts),
			logger.Error(err),
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
			delay *= 2
		}
	}
	return fmt.Errorf("%w: exhausted retries", ErrTransient)
}

func (c *SerpAPIClient) fetchOnce(ctx context.Context, endpoint string, out *serpResponse) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isNetworkTransient(err) {
			return fmt.Errorf("%w: %v", ErrTransient, err)
		}
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		msg := strings.TrimSpace(string(body))
		switch {
		case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
			return fmt.Errorf("%w: %s: %s", ErrAuthRequired, resp.Status, msg)
		case resp.StatusCode == http.StatusTooManyRequests:
			return fmt.Errorf("%w: %s: %s", ErrRateLimited, resp.Status, msg)
		case resp.StatusCode >= 500:
			return fmt.Errorf("%w: %s: %s", ErrTransient, resp.Status, msg)
		default:
			return fmt.Errorf("unexpected status code: %s: %s", resp.Status, msg)
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to parse JSON: %w", err)
	}
	return nil
}

func isRetryable(err error) bool {
	return errors.Is(err, ErrTransient) || errors.Is(err, ErrRateLimited)
}

func isNetworkTransient(err error) bool {
	if errors.Is(err, io.EOF) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
