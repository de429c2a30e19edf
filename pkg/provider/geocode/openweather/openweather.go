// Package openweather implements the geocode.Provider interface using the
// OpenWeather Geocoding API (https://openweathermap.org/api/geocoding-api).
package openweather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/skylens/skylens/pkg/provider/geocode"
	"github.com/sony/gobreaker"
)

// Compile-time assertion that Provider satisfies the geocode interface.
var _ geocode.Provider = (*Provider)(nil)

const defaultBaseURL = "https://api.openweathermap.org/geo/1.0/direct"

// Option is a functional option for configuring a Provider.
type Option func(*Provider)

// WithBaseURL overrides the geocoding endpoint URL. Primarily used in tests
// to point at a local httptest server.
func WithBaseURL(u string) Option {
	return func(p *Provider) { p.baseURL = u }
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Provider) { p.httpClient = c }
}

// Provider implements geocode.Provider backed by the OpenWeather Geocoding
// API. Requests are guarded by a circuit breaker so that a failing upstream
// is bypassed quickly instead of stalling every voice command.
type Provider struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
}

// New creates a Provider. apiKey must be non-empty.
func New(apiKey string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, errors.New("geocode openweather: apiKey must not be empty")
	}
	p := &Provider{
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "openweather-geocode",
			MaxRequests: 3,
			Interval:    time.Minute,
			Timeout:     30 * time.Second,
		}),
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// BreakerOpen reports whether the circuit breaker is currently rejecting
// requests. Used by readiness probes.
func (p *Provider) BreakerOpen() bool {
	return p.breaker.State() == gobreaker.StateOpen
}

// result mirrors one element of the Geocoding API response array.
type result struct {
	Name    string  `json:"name"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
	Country string  `json:"country"`
	State   string  `json:"state"`
}

// Lookup geocodes query via GET /geo/1.0/direct. An empty response array is
// returned as a nil slice with a nil error.
func (p *Provider) Lookup(ctx context.Context, query string, limit int) ([]geocode.Result, error) {
	if limit <= 0 {
		limit = 1
	}

	values := url.Values{}
	values.Set("q", query)
	values.Set("limit", strconv.Itoa(limit))
	values.Set("appid", p.apiKey)

	reqURL := p.baseURL + "?" + values.Encode()

	body, err := p.breaker.Execute(func() (any, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return nil, err
		}
		resp, err := p.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
		}

		var raw []result
		if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
			return nil, fmt.Errorf("decode response: %w", err)
		}
		return raw, nil
	})
	if err != nil {
		return nil, fmt.Errorf("geocode openweather: lookup %q: %w", query, err)
	}

	raw := body.([]result)
	if len(raw) == 0 {
		return nil, nil
	}

	results := make([]geocode.Result, len(raw))
	for i, r := range raw {
		results[i] = geocode.Result{
			Name:    r.Name,
			Lat:     r.Lat,
			Lon:     r.Lon,
			Country: r.Country,
			State:   r.State,
		}
	}
	return results, nil
}
