// Package shell models the host surfaces the daemon manages: the main step
// card, the pet window and the developer tools attached to them.
package shell

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"tableflip.dev/stepper/pkg/logging"
)

// Window names a host surface.
type Window string

const (
	// Main is the step card.
	Main Window = "main"
	// Pet is the compact pet companion.
	Pet Window = "pet"
)

var (
	// ErrWindowNotFound is returned when a command targets an unregistered window.
	ErrWindowNotFound = errors.New("window not found")
	// ErrNoWindow is returned when no window can host the developer tools.
	ErrNoWindow = errors.New("no window available")
)

type windowState struct {
	visible  bool
	devtools bool
}

// WindowStatus is the externally visible state of one window.
type WindowStatus struct {
	Name     Window `json:"name"`
	Visible  bool   `json:"visible"`
	Devtools bool   `json:"devtools"`
}

// Shell tracks window visibility. Observers registered with OnChange are
// called, outside the lock, with the window that became visible.
type Shell struct {
	mu       sync.Mutex
	windows  map[Window]*windowState
	visible  Window
	onChange []func(Window)
	log      *slog.Logger
}

// New creates a shell with the given windows. The first one starts visible.
func New(log *slog.Logger, windows ...Window) *Shell {
	if log == nil {
		log = logging.Discard()
	}
	s := &Shell{windows: make(map[Window]*windowState, len(windows)), log: log}
	for i, w := range windows {
		s.windows[w] = &windowState{visible: i == 0}
		if i == 0 {
			s.visible = w
		}
	}
	return s
}

// OnChange registers fn to be told about visibility switches.
func (s *Shell) OnChange(fn func(Window)) {
	s.mu.Lock()
	s.onChange = append(s.onChange, fn)
	s.mu.Unlock()
}

// Visible returns the currently shown window, or "" if none is.
func (s *Shell) Visible() Window {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.visible
}

// SwitchTo hides every other window and shows w.
func (s *Shell) SwitchTo(w Window) error {
	s.mu.Lock()
	target, ok := s.windows[w]
	if !ok {
		s.mu.Unlock()
		s.log.Warn("switch failed", "window", w)
		return fmt.Errorf("window %q: %w", w, ErrWindowNotFound)
	}
	for name, st := range s.windows {
		if name != w && st.visible {
			st.visible = false
			s.log.Debug("window hidden", "window", name)
		}
	}
	target.visible = true
	s.visible = w
	observers := append([]func(Window){}, s.onChange...)
	s.mu.Unlock()

	s.log.Info("window shown", "window", w)
	for _, fn := range observers {
		fn(w)
	}
	return nil
}

// OpenDevtools attaches developer tools to the main window, falling back to
// the pet window. It returns the window that received them.
func (s *Shell) OpenDevtools() (Window, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, w := range []Window{Main, Pet} {
		if st, ok := s.windows[w]; ok {
			st.devtools = true
			s.log.Info("developer tools opened", "window", w)
			return w, nil
		}
	}
	s.log.Warn("developer tools unavailable")
	return "", ErrNoWindow
}

// Windows lists every registered window sorted by name.
func (s *Shell) Windows() []WindowStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]WindowStatus, 0, len(s.windows))
	for name, st := range s.windows {
		out = append(out, WindowStatus{Name: name, Visible: st.visible, Devtools: st.devtools})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
