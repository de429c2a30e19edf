package weather

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/skylens/skylens/pkg/provider/geocode"
	weatherapi "github.com/skylens/skylens/pkg/provider/weather"
)

// ErrCityNotFound is returned by [Resolver.FetchByCity] when geocoding
// returns no results for the requested city. It is never wrapped in a
// [FetchError] — an unknown city is a user-facing outcome, not a transport
// failure.
var ErrCityNotFound = errors.New("weather: city not found")

// FetchError reports a transport-level failure calling the geocoding or
// weather endpoint. The underlying cause is preserved for errors.Is/As.
type FetchError struct {
	// Op names the failed step: "geocode" or "conditions".
	Op string

	// Err is the underlying transport error.
	Err error
}

// Error returns the formatted failure message.
func (e *FetchError) Error() string {
	return fmt.Sprintf("weather: fetch failed (%s): %v", e.Op, e.Err)
}

// Unwrap returns the underlying cause.
func (e *FetchError) Unwrap() error { return e.Err }

// Resolver produces display-ready weather records from either a city name or
// explicit coordinates. It is stateless and safe for concurrent use.
type Resolver struct {
	geocoder geocode.Provider
	weather  weatherapi.Provider
	observe  func(op string, seconds float64)
}

// ResolverOption configures a [Resolver].
type ResolverOption func(*Resolver)

// WithObserver installs a latency callback invoked after each upstream call
// with the step name ("geocode" or "conditions") and its duration in seconds.
// Used to feed metrics without coupling the resolver to an instrument set.
func WithObserver(fn func(op string, seconds float64)) ResolverOption {
	return func(r *Resolver) { r.observe = fn }
}

// NewResolver creates a Resolver over the given providers.
func NewResolver(g geocode.Provider, w weatherapi.Provider, opts ...ResolverOption) *Resolver {
	r := &Resolver{geocoder: g, weather: w}
	for _, o := range opts {
		o(r)
	}
	return r
}

// FetchByCity geocodes city (first match wins, no disambiguation) and fetches
// the current conditions at the resulting coordinates.
//
// Fails with [ErrCityNotFound] when geocoding returns no results, and with a
// [FetchError] wrapping the cause on any transport failure.
func (r *Resolver) FetchByCity(ctx context.Context, city string) (Record, error) {
	start := time.Now()
	results, err := r.geocoder.Lookup(ctx, city, 1)
	r.observed("geocode", start)
	if err != nil {
		return Record{}, &FetchError{Op: "geocode", Err: err}
	}
	if len(results) == 0 {
		return Record{}, fmt.Errorf("%q: %w", city, ErrCityNotFound)
	}

	first := results[0]
	slog.Debug("weather: geocoded city",
		"query", city,
		"name", first.Name,
		"country", first.Country,
		"lat", first.Lat,
		"lon", first.Lon,
	)

	return r.FetchByCoordinates(ctx, first.Lat, first.Lon)
}

// FetchByCoordinates fetches and normalizes the current conditions at
// (lat, lng). Transport failures are returned as a [FetchError].
func (r *Resolver) FetchByCoordinates(ctx context.Context, lat, lng float64) (Record, error) {
	start := time.Now()
	obs, err := r.weather.Current(ctx, lat, lng, weatherapi.UnitsImperial)
	r.observed("conditions", start)
	if err != nil {
		return Record{}, &FetchError{Op: "conditions", Err: err}
	}
	return FromObservation(obs), nil
}

// observed reports the elapsed time since start to the installed observer.
func (r *Resolver) observed(op string, start time.Time) {
	if r.observe != nil {
		r.observe(op, time.Since(start).Seconds())
	}
}
