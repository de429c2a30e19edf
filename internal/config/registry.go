package config

import (
	"errors"
	"fmt"
	"sync"

	"github.com/skylens/skylens/pkg/provider/geocode"
	"github.com/skylens/skylens/pkg/provider/weather"
)

// ErrProviderNotRegistered is returned by Create* methods when no factory has
// been registered under the requested provider name.
var ErrProviderNotRegistered = errors.New("config: provider not registered")

// Registry maps provider names to their constructor functions. The same name
// selects both the geocoding and the current-weather implementation, so a
// single `weather.provider` entry switches the whole upstream. It is safe
// for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	geocode map[string]func(WeatherConfig) (geocode.Provider, error)
	weather map[string]func(WeatherConfig) (weather.Provider, error)
}

// NewRegistry returns an empty, ready-to-use [Registry].
func NewRegistry() *Registry {
	return &Registry{
		geocode: make(map[string]func(WeatherConfig) (geocode.Provider, error)),
		weather: make(map[string]func(WeatherConfig) (weather.Provider, error)),
	}
}

// RegisterGeocode registers a geocoding provider factory under name.
// Subsequent calls with the same name overwrite the previous registration.
func (r *Registry) RegisterGeocode(name string, factory func(WeatherConfig) (geocode.Provider, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.geocode[name] = factory
}

// RegisterWeather registers a current-weather provider factory under name.
func (r *Registry) RegisterWeather(name string, factory func(WeatherConfig) (weather.Provider, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.weather[name] = factory
}

// CreateGeocode instantiates the geocoding provider selected by cfg.Provider.
// Returns [ErrProviderNotRegistered] if no factory has been registered for
// that name.
func (r *Registry) CreateGeocode(cfg WeatherConfig) (geocode.Provider, error) {
	r.mu.RLock()
	factory, ok := r.geocode[cfg.Provider]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: geocode/%q", ErrProviderNotRegistered, cfg.Provider)
	}
	return factory(cfg)
}

// CreateWeather instantiates the current-weather provider selected by
// cfg.Provider.
func (r *Registry) CreateWeather(cfg WeatherConfig) (weather.Provider, error) {
	r.mu.RLock()
	factory, ok := r.weather[cfg.Provider]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: weather/%q", ErrProviderNotRegistered, cfg.Provider)
	}
	return factory(cfg)
}
