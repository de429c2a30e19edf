package app

import (
	"testing"
	"time"
)

func TestNewStats_DefaultWindowSize(t *testing.T) {
	t.Parallel()

	s := NewStats(0)
	// Should use default window size (100), not panic.
	s.RecordGeocode(10 * time.Millisecond)

	snap := s.Snapshot()
	if snap.Geocode.P50 != 10*time.Millisecond {
		t.Errorf("Geocode P50 = %v, want 10ms", snap.Geocode.P50)
	}
}

func TestStats_RecordAndSnapshot(t *testing.T) {
	t.Parallel()

	s := NewStats(100)

	// Record samples.
	for i := 1; i <= 100; i++ {
		s.RecordGeocode(time.Duration(i) * time.Millisecond)
	}
	s.RecordConditions(500 * time.Millisecond)
	s.RecordLocationWait(2 * time.Second)

	s.IncrCommands()
	s.IncrCommands()
	s.IncrCommands()
	s.IncrErrors()

	snap := s.Snapshot()

	if snap.Commands != 3 {
		t.Errorf("Commands = %d, want 3", snap.Commands)
	}
	if snap.Errors != 1 {
		t.Errorf("Errors = %d, want 1", snap.Errors)
	}

	// Geocode: 100 samples from 1ms to 100ms.
	// P50 should be 50ms, P95 95ms.
	if snap.Geocode.P50 != 50*time.Millisecond {
		t.Errorf("Geocode P50 = %v, want 50ms", snap.Geocode.P50)
	}
	if snap.Geocode.P95 != 95*time.Millisecond {
		t.Errorf("Geocode P95 = %v, want 95ms", snap.Geocode.P95)
	}

	// Conditions: single sample of 500ms.
	if snap.Conditions.P50 != 500*time.Millisecond {
		t.Errorf("Conditions P50 = %v, want 500ms", snap.Conditions.P50)
	}
	if snap.LocationWait.P50 != 2*time.Second {
		t.Errorf("LocationWait P50 = %v, want 2s", snap.LocationWait.P50)
	}
}

func TestStats_EmptySnapshot(t *testing.T) {
	t.Parallel()

	s := NewStats(10)
	snap := s.Snapshot()

	if snap.Geocode.P50 != 0 || snap.Geocode.P95 != 0 {
		t.Errorf("empty Geocode = %+v, want zero", snap.Geocode)
	}
	if snap.Commands != 0 {
		t.Errorf("empty Commands = %d, want 0", snap.Commands)
	}
	if snap.Errors != 0 {
		t.Errorf("empty Errors = %d, want 0", snap.Errors)
	}
}

func TestStats_RingBufferWrap(t *testing.T) {
	t.Parallel()

	// Small buffer to force wrap-around.
	s := NewStats(3)

	s.RecordGeocode(10 * time.Millisecond)
	s.RecordGeocode(20 * time.Millisecond)
	s.RecordGeocode(30 * time.Millisecond)
	// Wrap around: overwrites first entry.
	s.RecordGeocode(40 * time.Millisecond)

	snap := s.Snapshot()
	// Buffer now contains [40, 20, 30] (40 overwrote 10 at pos 0).
	// Sorted: [20, 30, 40].
	// P50 of 3 elements: ceil(0.5 * 3) - 1 = 1 => index 1 => 30ms.
	if snap.Geocode.P50 != 30*time.Millisecond {
		t.Errorf("Geocode P50 after wrap = %v, want 30ms", snap.Geocode.P50)
	}
}

func TestPercentile(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		sorted []time.Duration
		p      float64
		want   time.Duration
	}{
		{"empty", nil, 0.5, 0},
		{"single element p50", []time.Duration{100 * time.Millisecond}, 0.5, 100 * time.Millisecond},
		{"single element p95", []time.Duration{100 * time.Millisecond}, 0.95, 100 * time.Millisecond},
		{"two elements p50", []time.Duration{10 * time.Millisecond, 20 * time.Millisecond}, 0.5, 10 * time.Millisecond},
		{"two elements p95", []time.Duration{10 * time.Millisecond, 20 * time.Millisecond}, 0.95, 20 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := percentile(tt.sorted, tt.p)
			if got != tt.want {
				t.Errorf("percentile(%v, %.2f) = %v, want %v", tt.sorted, tt.p, got, tt.want)
			}
		})
	}
}
