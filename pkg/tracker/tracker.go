// Package tracker turns a stream of pointer positions into a cumulative step
// count.
package tracker

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"sync"
	"time"

	"tableflip.dev/stepper/pkg/logging"
)

const (
	// DefaultPixelsPerStep is the pointer travel that counts as one step.
	DefaultPixelsPerStep = 100.0
	// DefaultPollInterval is how often the pointer is sampled.
	DefaultPollInterval = 50 * time.Millisecond
	// DefaultRetryInterval is the pause after the first failed read.
	DefaultRetryInterval = 5 * time.Second
)

// Locator reports the global pointer position.
type Locator interface {
	Location() (x, y int, err error)
}

// LocatorFunc adapts a function to Locator.
type LocatorFunc func() (int, int, error)

// Location implements Locator.
func (f LocatorFunc) Location() (int, int, error) { return f() }

// Snapshot is a point-in-time copy of the tracker state.
type Snapshot struct {
	Steps           int64   `json:"steps"`
	TotalDistance   float64 `json:"total_distance"`
	PixelsPerStep   float64 `json:"pixels_per_step"`
	LastX           int     `json:"last_x"`
	LastY           int     `json:"last_y"`
	Initialized     bool    `json:"initialized"`
	PermissionError bool    `json:"permission_error"`
}

// Tracker accumulates pointer travel. It is safe for concurrent use: the
// poll loop, the emitter and command handlers all touch it.
type Tracker struct {
	mu sync.Mutex

	totalDistance float64
	// carry is travel not yet converted into a step, at the current step
	// length.
	carry           float64
	steps           int64
	lastX, lastY    int
	initialized     bool
	permissionError bool
	pixelsPerStep   float64

	log *slog.Logger
}

// Option customises a Tracker.
type Option func(*Tracker)

// WithPixelsPerStep overrides DefaultPixelsPerStep.
func WithPixelsPerStep(px float64) Option {
	return func(t *Tracker) {
		if px > 0 {
			t.pixelsPerStep = px
		}
	}
}

// WithLogger sets the logger used for state transitions.
func WithLogger(l *slog.Logger) Option {
	return func(t *Tracker) {
		if l != nil {
			t.log = l
		}
	}
}

// New returns an empty tracker.
func New(opts ...Option) *Tracker {
	t := &Tracker{
		pixelsPerStep: DefaultPixelsPerStep,
		log:           logging.Discard(),
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

// Observe feeds one pointer sample. The first sample after construction or
// Reset only seeds the position. It returns the step count and whether it
// changed.
func (t *Tracker) Observe(x, y int) (int64, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.permissionError {
		t.permissionError = false
		t.log.Info("pointer access restored")
	}

	if !t.initialized {
		t.lastX, t.lastY = x, y
		t.initialized = true
		t.log.Debug("pointer tracking initialised", "x", x, "y", y)
		return t.steps, false
	}

	dx := float64(x - t.lastX)
	dy := float64(y - t.lastY)
	d := math.Hypot(dx, dy)
	if d == 0 {
		return t.steps, false
	}

	t.totalDistance += d
	t.carry += d
	t.lastX, t.lastY = x, y

	n := int64(t.carry / t.pixelsPerStep)
	if n == 0 {
		return t.steps, false
	}
	t.carry -= float64(n) * t.pixelsPerStep
	t.steps += n
	if t.steps%10 == 0 {
		t.log.Debug("steps updated", "steps", t.steps, "distance", t.totalDistance)
	}
	return t.steps, true
}

// ObserveError records a failed pointer read. It reports true only for the
// first failure of a streak.
func (t *Tracker) ObserveError(err error) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.permissionError {
		return false
	}
	t.permissionError = true
	t.log.Warn("cannot read pointer position; grant accessibility access to this process", "err", err)
	return true
}

// Reset zeroes distance and steps. The next sample re-seeds the position.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.totalDistance = 0
	t.carry = 0
	t.steps = 0
	t.initialized = false
	t.log.Info("counter reset")
}

// Steps returns the current step count.
func (t *Tracker) Steps() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.steps
}

// SetPixelsPerStep changes the step length for travel from now on. Steps
// already counted are kept, so the count never drops.
func (t *Tracker) SetPixelsPerStep(px float64) error {
	if px <= 0 {
		return errors.New("tracker: pixels per step must be positive")
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if px != t.pixelsPerStep {
		t.log.Info("step length changed", "pixels_per_step", px, "steps", t.steps)
	}
	t.pixelsPerStep = px
	return nil
}

// Snapshot copies the current state.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Snapshot{
		Steps:           t.steps,
		TotalDistance:   t.totalDistance,
		PixelsPerStep:   t.pixelsPerStep,
		LastX:           t.lastX,
		LastY:           t.lastY,
		Initialized:     t.initialized,
		PermissionError: t.permissionError,
	}
}

// Run samples loc every poll interval until ctx is done. After the first
// failure of a streak it waits retry before sampling again.
func (t *Tracker) Run(ctx context.Context, loc Locator, poll, retry time.Duration) error {
	if loc == nil {
		return errors.New("tracker: no pointer locator")
	}
	if poll <= 0 {
		poll = DefaultPollInterval
	}
	if retry <= 0 {
		retry = DefaultRetryInterval
	}

	t.log.Info("listening for pointer movement", "poll", poll)
	timer := time.NewTimer(0)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-timer.C:
		}

		wait := poll
		x, y, err := loc.Location()
		if err != nil {
			if t.ObserveError(err) {
				wait = retry
			}
		} else {
			t.Observe(x, y)
		}
		timer.Reset(wait)
	}
}
