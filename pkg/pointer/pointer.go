// Package pointer provides pointer position sources for the tracker that do
// not need access to the desktop. The robotgo-backed source lives in
// pkg/pointer/robot because it requires cgo.
package pointer

import (
	"math/rand"
	"sync"
)

// Wander is a simulated pointer that drifts randomly inside a screen-sized
// box. It is used for demos and for running the daemon on headless hosts.
type Wander struct {
	mu     sync.Mutex
	rng    *rand.Rand
	x, y   int
	w, h   int
	stride int
}

// NewWander returns a pointer starting in the middle of a w x h screen that
// moves at most stride pixels per axis per sample.
func NewWander(seed int64, w, h, stride int) *Wander {
	if w <= 0 {
		w = 1920
	}
	if h <= 0 {
		h = 1080
	}
	if stride <= 0 {
		stride = 40
	}
	return &Wander{
		rng:    rand.New(rand.NewSource(seed)),
		x:      w / 2,
		y:      h / 2,
		w:      w,
		h:      h,
		stride: stride,
	}
}

// Location implements tracker.Locator.
func (p *Wander) Location() (int, int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.x = clamp(p.x+p.rng.Intn(2*p.stride+1)-p.stride, 0, p.w-1)
	p.y = clamp(p.y+p.rng.Intn(2*p.stride+1)-p.stride, 0, p.h-1)
	return p.x, p.y, nil
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
