// Package mock provides a test double for the geocode.Provider interface.
//
// Use Provider to return controlled geocoding candidates and to verify the
// query and limit passed by callers.
package mock

import (
	"context"
	"sync"

	"github.com/skylens/skylens/pkg/provider/geocode"
)

// LookupCall records a single invocation of Lookup.
type LookupCall struct {
	// Query is the free-text query passed to Lookup.
	Query string
	// Limit is the result limit passed to Lookup.
	Limit int
}

// Provider is a mock implementation of geocode.Provider.
type Provider struct {
	mu sync.Mutex

	// LookupResult is returned by Lookup. A nil slice models "no match".
	LookupResult []geocode.Result

	// LookupErr, if non-nil, is returned as the error from Lookup.
	LookupErr error

	// LookupCalls records every call to Lookup in order.
	LookupCalls []LookupCall
}

// Calls returns a copy of all recorded invocations. Safe to call while the
// provider is in use from other goroutines.
func (p *Provider) Calls() []LookupCall {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]LookupCall, len(p.LookupCalls))
	copy(out, p.LookupCalls)
	return out
}

// Lookup records the call and returns the configured result and error.
func (p *Provider) Lookup(_ context.Context, query string, limit int) ([]geocode.Result, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.LookupCalls = append(p.LookupCalls, LookupCall{Query: query, Limit: limit})
	if p.LookupErr != nil {
		return nil, p.LookupErr
	}
	return p.LookupResult, nil
}
