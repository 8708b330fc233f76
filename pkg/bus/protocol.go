// Package bus is the command/event bus between the stepper daemon and its
// clients. Events are pushed over a websocket; commands are JSON-over-HTTP
// calls that either return a result or an error message.
package bus

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Event names.
const (
	// EventStepUpdate carries the cumulative step count as a JSON integer.
	EventStepUpdate = "step_update"
	// EventWindowChanged carries a WindowPayload when the shell switches windows.
	EventWindowChanged = "window_changed"
)

// Command names.
const (
	CommandResetCounter       = "reset_counter"
	CommandGetCurrentSteps    = "get_current_steps"
	CommandOpenDevtools       = "open_devtools"
	CommandSwitchToPetWindow  = "switch_to_pet_window"
	CommandSwitchToMainWindow = "switch_to_main_window"
	CommandQuitApp            = "quit_app"
)

// Paths served by Server.
const (
	EventsPath = "/events"
	InvokePath = "/invoke/"
)

// RequestIDHeader carries a per-invoke identifier for log correlation.
const RequestIDHeader = "X-Request-Id"

const (
	frameEvent = "event"
)

// envelope is the websocket frame format.
type envelope struct {
	Type    string          `json:"type"`
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// response is the body of an invoke reply.
type response struct {
	Result json.RawMessage `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// Event is one delivered bus event.
type Event struct {
	Name    string
	Payload json.RawMessage
}

// WindowPayload is the body of EventWindowChanged.
type WindowPayload struct {
	Window string `json:"window"`
}

// DevtoolsResult is returned by CommandOpenDevtools.
type DevtoolsResult struct {
	Window string `json:"window"`
	URL    string `json:"url"`
}

// ErrUnknownCommand is matched by CommandErrors for unregistered commands.
var ErrUnknownCommand = errors.New("unknown command")

// ErrBadPayload is returned when an event payload cannot be decoded.
var ErrBadPayload = errors.New("bad event payload")

// CommandError is returned by Client.Invoke when the daemon rejected the
// command.
type CommandError struct {
	Command string
	Status  int
	Message string
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("%s: %s", e.Command, e.Message)
}

// Unwrap exposes ErrUnknownCommand for 404 replies.
func (e *CommandError) Unwrap() error {
	if e.Status == http.StatusNotFound {
		return ErrUnknownCommand
	}
	return nil
}

// DecodeCount parses a step_update payload. Counts are non-negative integers.
func DecodeCount(payload json.RawMessage) (int64, error) {
	var n int64
	if err := json.Unmarshal(payload, &n); err != nil {
		return 0, fmt.Errorf("%w: %q: %v", ErrBadPayload, string(payload), err)
	}
	if n < 0 {
		return 0, fmt.Errorf("%w: negative count %d", ErrBadPayload, n)
	}
	return n, nil
}

// DecodeWindow parses a window_changed payload.
func DecodeWindow(payload json.RawMessage) (string, error) {
	var w WindowPayload
	if err := json.Unmarshal(payload, &w); err != nil {
		return "", fmt.Errorf("%w: %v", ErrBadPayload, err)
	}
	if w.Window == "" {
		return "", fmt.Errorf("%w: missing window", ErrBadPayload)
	}
	return w.Window, nil
}
