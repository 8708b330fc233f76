// Package logging configures the structured logger shared by the daemon, the
// widget and the CLI, and keeps a bounded ring of recent records that the
// developer tools surface can display.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"
)

// Options controls logger construction.
type Options struct {
	// Level is one of debug, info, warn, error. Empty means info.
	Level string
	// Output receives formatted records. Nil means stderr.
	Output io.Writer
	// RingSize bounds the retained records. Zero disables the ring.
	RingSize int
}

// New builds a text logger and, when requested, the ring that captures its
// records. The returned ring is nil when opts.RingSize is zero.
func New(opts Options) (*slog.Logger, *Ring, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, nil, err
	}
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	var h slog.Handler = slog.NewTextHandler(out, &slog.HandlerOptions{Level: level})
	var ring *Ring
	if opts.RingSize > 0 {
		ring = NewRing(h, opts.RingSize)
		h = ring
	}
	return slog.New(h), ring, nil
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}

// ParseLevel maps a textual level to slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("logging: unknown level %q", s)
	}
}

// Record is a captured log line.
type Record struct {
	Time    time.Time         `json:"time"`
	Level   string            `json:"level"`
	Message string            `json:"message"`
	Attrs   map[string]string `json:"attrs,omitempty"`
}

// ringBuffer is shared by every handler derived from the same Ring so that
// WithAttrs/WithGroup children write into one history.
type ringBuffer struct {
	mu       sync.RWMutex
	capacity int
	records  []Record
}

// Ring is a slog.Handler that forwards to next and retains the most recent
// records for inspection.
type Ring struct {
	next  slog.Handler
	buf   *ringBuffer
	attrs []slog.Attr
	group string
}

// NewRing wraps next. A non-positive capacity falls back to 500.
func NewRing(next slog.Handler, capacity int) *Ring {
	if capacity <= 0 {
		capacity = 500
	}
	return &Ring{
		next: next,
		buf:  &ringBuffer{capacity: capacity, records: make([]Record, 0, capacity)},
	}
}

// Enabled defers to the wrapped handler.
func (r *Ring) Enabled(ctx context.Context, lvl slog.Level) bool {
	return r.next.Enabled(ctx, lvl)
}

// Handle forwards rec and stores a flattened copy.
func (r *Ring) Handle(ctx context.Context, rec slog.Record) error {
	err := r.next.Handle(ctx, rec)

	entry := Record{
		Time:    rec.Time,
		Level:   rec.Level.String(),
		Message: rec.Message,
	}
	if n := len(r.attrs) + rec.NumAttrs(); n > 0 {
		entry.Attrs = make(map[string]string, n)
		for _, a := range r.attrs {
			entry.Attrs[r.key(a.Key)] = a.Value.String()
		}
		rec.Attrs(func(a slog.Attr) bool {
			entry.Attrs[r.key(a.Key)] = a.Value.String()
			return true
		})
	}

	b := r.buf
	b.mu.Lock()
	if len(b.records) == b.capacity {
		copy(b.records, b.records[1:])
		b.records = b.records[:b.capacity-1]
	}
	b.records = append(b.records, entry)
	b.mu.Unlock()
	return err
}

func (r *Ring) key(k string) string {
	if r.group == "" {
		return k
	}
	return r.group + "." + k
}

// WithAttrs implements slog.Handler.
func (r *Ring) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(r.attrs)+len(attrs))
	merged = append(merged, r.attrs...)
	merged = append(merged, attrs...)
	return &Ring{next: r.next.WithAttrs(attrs), buf: r.buf, attrs: merged, group: r.group}
}

// WithGroup implements slog.Handler.
func (r *Ring) WithGroup(name string) slog.Handler {
	group := name
	if r.group != "" {
		group = r.group + "." + name
	}
	return &Ring{next: r.next.WithGroup(name), buf: r.buf, attrs: r.attrs, group: group}
}

// Records returns a snapshot of the retained records, oldest first.
func (r *Ring) Records() []Record {
	r.buf.mu.RLock()
	defer r.buf.mu.RUnlock()
	out := make([]Record, len(r.buf.records))
	copy(out, r.buf.records)
	return out
}
