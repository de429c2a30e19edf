// Package session holds the per-session weather cache.
//
// Each active glasses session owns one [State]: the last known location, the
// last fetched weather record, and when the record was fetched. Entries are
// created explicitly when a session starts and discarded when it ends —
// nothing survives a process restart.
//
// The cache itself only stores; the freshness policy (whether a cached record
// may be served without a new fetch) is applied by the orchestrating layer
// via [State.Fresh].
package session

import (
	"sync"
	"time"

	"github.com/skylens/skylens/internal/weather"
)

// Coordinates is a cached location fix.
type Coordinates struct {
	Lat      float64
	Lng      float64
	Accuracy float64
}

// State is the cached weather context for one session.
type State struct {
	// Coordinates is the last known location, nil when none was acquired.
	Coordinates *Coordinates

	// Record is the last fetched weather record, nil when none was fetched.
	Record *weather.Record

	// UpdatedAt is when Record was last refreshed. Zero when never.
	UpdatedAt time.Time
}

// Fresh reports whether the cached record may be served without a new fetch:
// both coordinates and record must be present and the record younger than
// window.
func (s State) Fresh(now time.Time, window time.Duration) bool {
	if s.Coordinates == nil || s.Record == nil || s.UpdatedAt.IsZero() {
		return false
	}
	return now.Sub(s.UpdatedAt) < window
}

// Cache is a concurrency-safe session-keyed store of [State] values.
// Entries are independent; there is no cross-session sharing.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]State
}

// NewCache creates an empty Cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[string]State)}
}

// Create registers an empty entry for sessionID. Called when a session
// starts; replaces any stale entry left by a previous session with the
// same ID.
func (c *Cache) Create(sessionID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[sessionID] = State{}
}

// Get returns the state for sessionID and whether an entry exists.
func (c *Cache) Get(sessionID string) (State, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.entries[sessionID]
	return s, ok
}

// Put updates the entry for sessionID. Nil coords or record leave the
// existing value in place, so a city lookup can refresh the record without
// discarding the last known location. A zero at leaves the timestamp
// unchanged.
func (c *Cache) Put(sessionID string, coords *Coordinates, record *weather.Record, at time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.entries[sessionID]
	if coords != nil {
		s.Coordinates = coords
	}
	if record != nil {
		s.Record = record
	}
	if !at.IsZero() {
		s.UpdatedAt = at
	}
	c.entries[sessionID] = s
}

// Clear discards the entry for sessionID. Called when a session ends.
func (c *Cache) Clear(sessionID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, sessionID)
}

// Len returns the number of tracked sessions.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
