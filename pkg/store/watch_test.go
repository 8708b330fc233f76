package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type testConfig struct {
	path string
}

func (t testConfig) BasePath() string {
	return t.path
}

func TestPersistenceWatchEmitsDayChanges(t *testing.T) {
	base := t.TempDir()
	p, err := Load(testConfig{path: base})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := p.Watch(ctx)
	require.NoError(t, err)

	// Allow the watcher goroutine to subscribe before writing.
	time.Sleep(50 * time.Millisecond)

	day := time.Date(2025, time.October, 19, 9, 0, 0, 0, time.UTC)
	_, err = p.Add(day, 12)
	require.NoError(t, err)

	deadline := time.After(2 * time.Second)
	for {
		select {
		case evt := <-ch:
			if evt.Type == EventHistoryInvalidated {
				return
			}
			require.Equal(t, EventDayChanged, evt.Type)
			require.Equal(t, "2025-10-19", evt.Day)
			return
		case <-deadline:
			t.Fatal("timed out waiting for day change event")
		}
	}
}

func TestWatchClosesOnCancel(t *testing.T) {
	p, err := Load(testConfig{path: t.TempDir()})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	ch, err := p.Watch(ctx)
	require.NoError(t, err)
	cancel()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("watch channel not closed")
		}
	}
}

func TestDayForPath(t *testing.T) {
	p := &persistence{basePath: "/tmp/h"}
	require.Equal(t, "2025-10-19", p.dayForPath("/tmp/h/2025/10/19"))
	require.Equal(t, "", p.dayForPath("/tmp/h/2025/10"))
	require.Equal(t, "", p.dayForPath("/tmp/h/2025/10/.tmp123"))
	require.Equal(t, "", p.dayForPath("/tmp/h"))
}

func TestThrottleCoalesces(t *testing.T) {
	th := newEventThrottle(20 * time.Millisecond)
	defer th.Stop()

	got := make(chan Event, 8)
	send := func(ev Event) { got <- ev }
	for i := 0; i < 5; i++ {
		th.Enqueue(Event{Type: EventDayChanged, Day: "2025-10-19"}, send)
	}

	select {
	case ev := <-got:
		require.Equal(t, "2025-10-19", ev.Day)
	case <-time.After(time.Second):
		t.Fatal("throttle never flushed")
	}
	select {
	case ev := <-got:
		t.Fatalf("unexpected extra event %+v", ev)
	case <-time.After(60 * time.Millisecond):
	}
}
