// Package weather defines the Provider interface for current-conditions
// weather backends.
//
// A weather provider returns the raw upstream observation for a coordinate
// pair. The observation keeps the upstream field shapes (including which
// fields are optional) so that the transform layer — not the transport layer
// — owns all unit and formatting decisions.
//
// Implementations must be safe for concurrent use.
package weather

import "context"

// Units selects the upstream unit system for an observation request.
type Units string

const (
	// UnitsImperial requests Fahrenheit temperatures and mph wind speeds.
	UnitsImperial Units = "imperial"

	// UnitsMetric requests Celsius temperatures and m/s wind speeds.
	UnitsMetric Units = "metric"
)

// Provider fetches the current weather observation for a coordinate pair.
type Provider interface {
	// Current returns the raw observation at (lat, lon) in the given unit
	// system. Transport and upstream failures are returned as errors; there
	// is no "no data" success case.
	Current(ctx context.Context, lat, lon float64, units Units) (Observation, error)
}
