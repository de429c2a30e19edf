// Package geocode defines the Provider interface for forward-geocoding
// backends.
//
// A geocoding provider resolves a free-text place query (typically a city
// name captured from a voice transcript) into an ordered list of candidate
// coordinates. An empty result list is a valid, non-error response meaning
// "no match" — callers decide how to surface that to the user.
//
// Implementations must be safe for concurrent use.
package geocode

import "context"

// Result is a single geocoding candidate. Results are ordered by the
// provider's own relevance ranking; callers that want a simple first-match
// policy take Results[0].
type Result struct {
	// Name is the canonical place name as known to the provider.
	Name string

	// Lat and Lon are the place's coordinates in decimal degrees.
	Lat float64
	Lon float64

	// Country is the ISO 3166 country code (e.g., "JP").
	Country string

	// State is the administrative region, when the provider reports one.
	State string
}

// Provider resolves free-text place queries to coordinates.
type Provider interface {
	// Lookup geocodes query and returns at most limit candidates.
	// A nil or empty slice with a nil error means the query matched nothing.
	Lookup(ctx context.Context, query string, limit int) ([]Result, error)
}
