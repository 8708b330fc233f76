// Package robot reads the global cursor position through robotgo. Building it
// requires cgo and, on Linux, the X11 development headers.
package robot

import (
	"errors"

	"github.com/go-vgo/robotgo"
)

// ErrNoDisplay is returned when the platform reports no usable cursor.
var ErrNoDisplay = errors.New("robot: cursor position unavailable")

// Locator implements tracker.Locator for the real desktop cursor.
type Locator struct{}

// Location returns the current cursor position in screen pixels.
func (Locator) Location() (int, int, error) {
	w, h := robotgo.GetScreenSize()
	if w <= 0 || h <= 0 {
		return 0, 0, ErrNoDisplay
	}
	x, y := robotgo.Location()
	return x, y, nil
}
