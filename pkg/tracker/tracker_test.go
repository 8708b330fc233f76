package tracker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveSeedsThenAccumulates(t *testing.T) {
	tr := New()

	steps, changed := tr.Observe(1000, 1000)
	assert.Equal(t, int64(0), steps)
	assert.False(t, changed)
	assert.Zero(t, tr.Snapshot().TotalDistance, "seed sample must not add distance")

	// 3-4-5 triangles: 20 moves of 50px = 1000px = 10 steps.
	x, y := 1000, 1000
	for i := 0; i < 20; i++ {
		x += 30
		y += 40
		tr.Observe(x, y)
	}
	snap := tr.Snapshot()
	assert.InDelta(t, 1000.0, snap.TotalDistance, 1e-9)
	assert.Equal(t, int64(10), snap.Steps)
	assert.Equal(t, int64(10), tr.Steps())
}

func TestObserveStepsAreFloored(t *testing.T) {
	tr := New()
	tr.Observe(0, 0)
	_, changed := tr.Observe(99, 0)
	assert.False(t, changed)
	steps, changed := tr.Observe(199, 0)
	assert.True(t, changed)
	assert.Equal(t, int64(1), steps)
}

func TestObserveStationaryIsNoop(t *testing.T) {
	tr := New()
	tr.Observe(5, 5)
	_, changed := tr.Observe(5, 5)
	assert.False(t, changed)
	assert.Zero(t, tr.Snapshot().TotalDistance)
}

func TestResetReseeds(t *testing.T) {
	tr := New(WithPixelsPerStep(10))
	tr.Observe(0, 0)
	tr.Observe(100, 0)
	require.Equal(t, int64(10), tr.Steps())

	tr.Reset()
	assert.Equal(t, int64(0), tr.Steps())
	assert.False(t, tr.Snapshot().Initialized)

	// The jump back to the origin is a seed, not travel.
	tr.Observe(0, 0)
	assert.Equal(t, int64(0), tr.Steps())
	assert.Zero(t, tr.Snapshot().TotalDistance)
}

func TestObserveErrorReportsFirstOfStreak(t *testing.T) {
	tr := New()
	boom := errors.New("no access")
	assert.True(t, tr.ObserveError(boom))
	assert.False(t, tr.ObserveError(boom))
	assert.True(t, tr.Snapshot().PermissionError)

	tr.Observe(1, 1)
	assert.False(t, tr.Snapshot().PermissionError)
	assert.True(t, tr.ObserveError(boom))
}

func TestSetPixelsPerStep(t *testing.T) {
	tr := New()
	assert.Error(t, tr.SetPixelsPerStep(0))
	require.NoError(t, tr.SetPixelsPerStep(50))
	tr.Observe(0, 0)
	tr.Observe(100, 0)
	assert.Equal(t, int64(2), tr.Steps())
}

func TestSetPixelsPerStepKeepsCountedSteps(t *testing.T) {
	tr := New()
	tr.Observe(0, 0)
	tr.Observe(50000, 0)
	require.Equal(t, int64(500), tr.Steps())

	require.NoError(t, tr.SetPixelsPerStep(200))
	assert.Equal(t, int64(500), tr.Steps(), "a longer step must not shrink the count")
	steps, changed := tr.Observe(52000, 0)
	assert.True(t, changed)
	assert.Equal(t, int64(510), steps)

	require.NoError(t, tr.SetPixelsPerStep(100))
	assert.Equal(t, int64(510), tr.Steps(), "a shorter step must not grow the count")
	steps, _ = tr.Observe(53000, 0)
	assert.Equal(t, int64(520), steps)

	snap := tr.Snapshot()
	assert.InDelta(t, 53000.0, snap.TotalDistance, 1e-9)
	assert.Equal(t, 100.0, snap.PixelsPerStep)
}

func TestSetPixelsPerStepKeepsPartialStep(t *testing.T) {
	tr := New()
	tr.Observe(0, 0)
	tr.Observe(150, 0)
	require.Equal(t, int64(1), tr.Steps())

	// 50px left over from the old length, plus 30px, makes one 80px step.
	require.NoError(t, tr.SetPixelsPerStep(80))
	steps, changed := tr.Observe(180, 0)
	assert.True(t, changed)
	assert.Equal(t, int64(2), steps)
}

func TestRunSamplesUntilCancelled(t *testing.T) {
	tr := New(WithPixelsPerStep(1))
	var n atomic.Int64
	loc := LocatorFunc(func() (int, int, error) {
		i := int(n.Add(1))
		return i * 10, 0, nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- tr.Run(ctx, loc, time.Millisecond, time.Millisecond) }()

	require.Eventually(t, func() bool { return tr.Steps() >= 50 }, 2*time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRunBacksOffAfterFailure(t *testing.T) {
	tr := New()
	var calls atomic.Int64
	loc := LocatorFunc(func() (int, int, error) {
		calls.Add(1)
		return 0, 0, errors.New("denied")
	})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	require.NoError(t, tr.Run(ctx, loc, time.Millisecond, time.Hour))

	// First read fails and schedules the long retry, so only one call lands.
	assert.Equal(t, int64(1), calls.Load())
	assert.True(t, tr.Snapshot().PermissionError)
}

func TestRunRequiresLocator(t *testing.T) {
	assert.Error(t, New().Run(context.Background(), nil, 0, 0))
}
