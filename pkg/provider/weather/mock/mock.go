// Package mock provides a test double for the weather.Provider interface.
//
// Use Provider to return a controlled observation and to verify the
// coordinates and unit system passed by callers.
package mock

import (
	"context"
	"sync"

	"github.com/skylens/skylens/pkg/provider/weather"
)

// CurrentCall records a single invocation of Current.
type CurrentCall struct {
	// Lat and Lon are the coordinates passed to Current.
	Lat float64
	Lon float64
	// Units is the unit system passed to Current.
	Units weather.Units
}

// Provider is a mock implementation of weather.Provider.
type Provider struct {
	mu sync.Mutex

	// CurrentResult is returned by Current.
	CurrentResult weather.Observation

	// CurrentErr, if non-nil, is returned as the error from Current.
	CurrentErr error

	// CurrentCalls records every call to Current in order.
	CurrentCalls []CurrentCall
}

// Calls returns a copy of all recorded invocations. Safe to call while the
// provider is in use from other goroutines.
func (p *Provider) Calls() []CurrentCall {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]CurrentCall, len(p.CurrentCalls))
	copy(out, p.CurrentCalls)
	return out
}

// Current records the call and returns the configured observation and error.
func (p *Provider) Current(_ context.Context, lat, lon float64, units weather.Units) (weather.Observation, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.CurrentCalls = append(p.CurrentCalls, CurrentCall{Lat: lat, Lon: lon, Units: units})
	if p.CurrentErr != nil {
		return weather.Observation{}, p.CurrentErr
	}
	return p.CurrentResult, nil
}
