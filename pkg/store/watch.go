package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// EventType describes a history change notification.
type EventType int

const (
	// EventDayChanged means the total for Event.Day was written.
	EventDayChanged EventType = iota
	// EventHistoryInvalidated means the change could not be attributed to a
	// single day and the full history should be reloaded.
	EventHistoryInvalidated
)

func (t EventType) String() string {
	switch t {
	case EventDayChanged:
		return "day_changed"
	case EventHistoryInvalidated:
		return "history_invalidated"
	}
	return fmt.Sprintf("EventType(%d)", int(t))
}

// Event is emitted by Persistence.Watch when the history on disk changes.
type Event struct {
	Type EventType
	Day  string
}

// Watch streams change events until ctx is cancelled. Events are coalesced
// per day and dropped when the consumer is not reading; the channel is closed
// when ctx is done.
func (p *persistence) Watch(ctx context.Context) (<-chan Event, error) {
	if p.basePath == "" {
		return nil, errors.New("store: history path unknown")
	}
	if err := os.MkdirAll(p.basePath, 0o755); err != nil {
		return nil, fmt.Errorf("store: ensure history path: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("store: create watcher: %w", err)
	}
	var closeOnce sync.Once
	closeWatcher := func() {
		closeOnce.Do(func() { _ = watcher.Close() })
	}

	dirs, err := collectDirs(p.basePath)
	if err != nil {
		closeWatcher()
		return nil, fmt.Errorf("store: enumerate directories: %w", err)
	}
	for _, dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			closeWatcher()
			return nil, fmt.Errorf("store: watch %s: %w", dir, err)
		}
	}

	events := make(chan Event, 64)
	go func() {
		defer close(events)
		defer closeWatcher()

		watched := make(map[string]struct{}, len(dirs))
		for _, dir := range dirs {
			watched[dir] = struct{}{}
		}

		var sendMu sync.Mutex
		closed := false
		send := func(ev Event) {
			sendMu.Lock()
			defer sendMu.Unlock()
			if closed {
				return
			}
			select {
			case events <- ev:
			default:
			}
		}
		// The throttle flushes from its own goroutine; stop it from writing
		// once the channel is about to close.
		defer func() {
			sendMu.Lock()
			closed = true
			sendMu.Unlock()
		}()

		throttle := newEventThrottle(100 * time.Millisecond)
		defer throttle.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-watcher.Errors:
				if !ok {
					return
				}
				throttle.Enqueue(Event{Type: EventHistoryInvalidated}, send)
			case evt, ok := <-watcher.Events:
				if !ok {
					return
				}
				if evt.Op&fsnotify.Create == fsnotify.Create {
					if info, err := os.Stat(evt.Name); err == nil && info.IsDir() {
						dir := filepath.Clean(evt.Name)
						if _, found := watched[dir]; !found {
							// diskv creates year and month directories in one
							// MkdirAll, so pick up anything nested as well.
							nested, _ := collectDirs(dir)
							for _, d := range nested {
								if _, found := watched[d]; found {
									continue
								}
								if err := watcher.Add(d); err == nil {
									watched[d] = struct{}{}
								}
							}
						}
						throttle.Enqueue(Event{Type: EventHistoryInvalidated}, send)
						continue
					}
				}

				day := p.dayForPath(evt.Name)
				if day == "" {
					throttle.Enqueue(Event{Type: EventHistoryInvalidated}, send)
					continue
				}
				throttle.Enqueue(Event{Type: EventDayChanged, Day: day}, send)
			}
		}
	}()

	return events, nil
}

// collectDirs walks base and returns every directory under it, base included.
func collectDirs(base string) ([]string, error) {
	dirs := []string{base}
	err := filepath.WalkDir(base, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if d.IsDir() && path != base {
			dirs = append(dirs, path)
		}
		return nil
	})
	return dirs, err
}

// dayForPath maps <base>/2025/10/19 back to 2025-10-19. Temporary files diskv
// writes before renaming are ignored.
func (p *persistence) dayForPath(path string) string {
	rel, err := filepath.Rel(p.basePath, path)
	if err != nil || rel == "." {
		return ""
	}
	parts := strings.Split(rel, string(os.PathSeparator))
	if len(parts) != 3 {
		return ""
	}
	key := strings.Join(parts, "-")
	if !isDayKey(key) {
		return ""
	}
	return key
}

// eventThrottle coalesces bursts of filesystem activity into one event per
// day.
type eventThrottle struct {
	mu      sync.Mutex
	timer   *time.Timer
	pending map[EventType]map[string]struct{}
	delay   time.Duration
}

func newEventThrottle(delay time.Duration) *eventThrottle {
	return &eventThrottle{
		delay:   delay,
		pending: make(map[EventType]map[string]struct{}),
	}
}

func (t *eventThrottle) Enqueue(ev Event, send func(Event)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.pending[ev.Type] == nil {
		t.pending[ev.Type] = make(map[string]struct{})
	}
	if ev.Day != "" {
		t.pending[ev.Type][ev.Day] = struct{}{}
	}
	if t.timer == nil {
		t.timer = time.AfterFunc(t.delay, func() {
			t.flush(send)
		})
	}
}

func (t *eventThrottle) flush(send func(Event)) {
	t.mu.Lock()
	pending := t.pending
	t.pending = make(map[EventType]map[string]struct{})
	t.timer = nil
	t.mu.Unlock()

	for eventType, days := range pending {
		if len(days) == 0 {
			send(Event{Type: eventType})
			continue
		}
		for day := range days {
			send(Event{Type: eventType, Day: day})
		}
	}
}

func (t *eventThrottle) Stop() {
	t.mu.Lock()
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	t.mu.Unlock()
}
