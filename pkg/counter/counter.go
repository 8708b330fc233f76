// Package counter holds the widget-side step counter state and the values
// derived from it for display.
package counter

import (
	"fmt"
	"math"
)

const (
	// StepsPerLap is the size of one progress "lap"; the bar resets every lap.
	StepsPerLap = 1000
	// MetersPerStep converts a step count into an estimated distance.
	MetersPerStep = 0.1
	// MaxSpeed caps the pet speed multiplier.
	MaxSpeed = 5.0
)

// State is the latest view of the backend counter. It is owned by a single
// goroutine (the UI update loop) and carries no locking of its own.
type State struct {
	Current           int64
	Previous          int64
	RecentlyIncreased bool
}

// Apply records a newly delivered cumulative count. It reports whether the
// value went up, in which case RecentlyIncreased is set and the caller is
// expected to schedule ClearPulse.
//
// Decreasing values are accepted as-is: the backend may be reset by another
// client, and the count is authoritative. Negative values are clamped to zero.
func (s *State) Apply(v int64) bool {
	if v < 0 {
		v = 0
	}
	increased := v > s.Current
	if increased {
		s.RecentlyIncreased = true
	}
	s.Previous = s.Current
	s.Current = v
	return increased
}

// ClearPulse drops the transient increase flag.
func (s *State) ClearPulse() {
	s.RecentlyIncreased = false
}

// Reset zeroes the state after the backend confirmed a reset.
func (s *State) Reset() {
	*s = State{}
}

// ProgressPercent is the progress within the current lap of StepsPerLap,
// in the range [0, 100].
func ProgressPercent(count int64) float64 {
	if count < 0 {
		return 0
	}
	return math.Min(float64(count%StepsPerLap)/10, 100)
}

// DistanceMeters estimates the walked distance for count steps.
func DistanceMeters(count int64) float64 {
	return float64(count) * MetersPerStep
}

// FormatDistance renders DistanceMeters with one decimal place.
func FormatDistance(count int64) string {
	return fmt.Sprintf("%.1f", DistanceMeters(count))
}

// Delta is the change between the two most recently observed counts.
func Delta(s State) int64 {
	return s.Current - s.Previous
}

// FormatDelta renders a delta with an explicit sign when it is positive.
func FormatDelta(d int64) string {
	if d > 0 {
		return fmt.Sprintf("+%d", d)
	}
	return fmt.Sprintf("%d", d)
}

// SpeedMultiplier ramps linearly from 1x at zero to MaxSpeed at 2000 steps.
func SpeedMultiplier(count int64) float64 {
	if count < 0 {
		count = 0
	}
	return math.Min(1+(float64(count)/StepsPerLap)*2, MaxSpeed)
}

// Stats bundles every derived value for one render.
type Stats struct {
	Count    int64
	Progress float64
	Distance string
	Delta    string
	Speed    float64
	Pulse    bool
}

// Derive computes Stats from s.
func Derive(s State) Stats {
	return Stats{
		Count:    s.Current,
		Progress: ProgressPercent(s.Current),
		Distance: FormatDistance(s.Current),
		Delta:    FormatDelta(Delta(s)),
		Speed:    SpeedMultiplier(s.Current),
		Pulse:    s.RecentlyIncreased,
	}
}
