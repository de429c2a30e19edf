// Package openweather implements the weather.Provider interface using the
// OpenWeather current weather API (https://openweathermap.org/current).
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

	"github.com/skylens/skylens/pkg/provider/weather"
	"github.com/sony/gobreaker"
)

// Compile-time assertion that Provider satisfies the weather interface.
var _ weather.Provider = (*Provider)(nil)

const defaultBaseURL = "https://api.openweathermap.org/data/2.5/weather"

// Option is a functional option for configuring a Provider.
type Option func(*Provider)

// WithBaseURL overrides the weather endpoint URL. Primarily used in tests to
// point at a local httptest server.
func WithBaseURL(u string) Option {
	return func(p *Provider) { p.baseURL = u }
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Provider) { p.httpClient = c }
}

// Provider implements weather.Provider backed by the OpenWeather current
// weather API. Requests are guarded by a circuit breaker so that a failing
// upstream is bypassed quickly instead of stalling every voice command.
type Provider struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
}

// New creates a Provider. apiKey must be non-empty.
func New(apiKey string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, errors.New("weather openweather: apiKey must not be empty")
	}
	p := &Provider{
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "openweather-current",
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

// Current fetches the observation at (lat, lon) via GET /data/2.5/weather.
func (p *Provider) Current(ctx context.Context, lat, lon float64, units weather.Units) (weather.Observation, error) {
	values := url.Values{}
	values.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	values.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	values.Set("units", string(units))
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

		var obs weather.Observation
		if err := json.NewDecoder(resp.Body).Decode(&obs); err != nil {
			return nil, fmt.Errorf("decode response: %w", err)
		}
		return obs, nil
	})
	if err != nil {
		return weather.Observation{}, fmt.Errorf("weather openweather: current (%.4f, %.4f): %w", lat, lon, err)
	}

	return body.(weather.Observation), nil
}
