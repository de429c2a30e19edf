package app

import (
	"math"
	"sort"
	"sync"
	"time"
)

// Stats collects command latency samples and counter values for debug
// display. It maintains a bounded ring buffer of recent latency observations
// from which percentiles are computed on demand.
//
// Thread-safe for concurrent use.
type Stats struct {
	mu sync.Mutex

	geocode      latencyBuffer
	conditions   latencyBuffer
	locationWait latencyBuffer

	commands int64
	errors   int64
}

// NewStats creates a Stats collector with the given window size (maximum
// number of latency samples retained per stage).
func NewStats(windowSize int) *Stats {
	if windowSize <= 0 {
		windowSize = 100
	}
	return &Stats{
		geocode:      newLatencyBuffer(windowSize),
		conditions:   newLatencyBuffer(windowSize),
		locationWait: newLatencyBuffer(windowSize),
	}
}

// RecordGeocode records a geocoding lookup latency sample.
func (s *Stats) RecordGeocode(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.geocode.add(d)
}

// RecordConditions records a current-conditions fetch latency sample.
func (s *Stats) RecordConditions(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conditions.add(d)
}

// RecordLocationWait records how long the first location fix took.
func (s *Stats) RecordLocationWait(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.locationWait.add(d)
}

// IncrCommands increments the handled-command counter.
func (s *Stats) IncrCommands() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commands++
}

// IncrErrors increments the failed-command counter.
func (s *Stats) IncrErrors() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errors++
}

// LatencyPercentiles holds p50 and p95 values for a latency stage.
type LatencyPercentiles struct {
	P50 time.Duration
	P95 time.Duration
}

// Snapshot captures a point-in-time view of all command statistics.
type Snapshot struct {
	Geocode      LatencyPercentiles
	Conditions   LatencyPercentiles
	LocationWait LatencyPercentiles
	Commands     int64
	Errors       int64
}

// Snapshot returns a point-in-time view of all command statistics.
func (s *Stats) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Snapshot{
		Geocode:      s.geocode.percentiles(),
		Conditions:   s.conditions.percentiles(),
		LocationWait: s.locationWait.percentiles(),
		Commands:     s.commands,
		Errors:       s.errors,
	}
}

// latencyBuffer is a bounded ring buffer of duration samples.
type latencyBuffer struct {
	data []time.Duration
	size int
	pos  int
	full bool
}

func newLatencyBuffer(size int) latencyBuffer {
	return latencyBuffer{
		data: make([]time.Duration, size),
		size: size,
	}
}

func (lb *latencyBuffer) add(d time.Duration) {
	lb.data[lb.pos] = d
	lb.pos++
	if lb.pos >= lb.size {
		lb.pos = 0
		lb.full = true
	}
}

func (lb *latencyBuffer) percentiles() LatencyPercentiles {
	n := lb.pos
	if lb.full {
		n = lb.size
	}
	if n == 0 {
		return LatencyPercentiles{}
	}

	// Copy and sort the valid samples.
	sorted := make([]time.Duration, n)
	if lb.full {
		copy(sorted, lb.data)
	} else {
		copy(sorted, lb.data[:n])
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	return LatencyPercentiles{
		P50: percentile(sorted, 0.50),
		P95: percentile(sorted, 0.95),
	}
}

// percentile returns the value at the given percentile (0.0-1.0) from a
// sorted slice of durations using nearest-rank.
func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Ceil(p*float64(len(sorted)))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
