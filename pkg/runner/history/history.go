// Package history prints recorded day totals.
package history

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/gosuri/uitable"

	"tableflip.dev/stepper/pkg/counter"
	"tableflip.dev/stepper/pkg/store"
	"tableflip.dev/stepper/pkg/timeutil"
)

const barWidth = 30

// History lists day totals, optionally re-printing whenever the store
// changes.
type History struct {
	Persistence store.Persistence
	// Days limits the listing to the most recent recorded days. Zero lists
	// all.
	Days int
	// Since limits the listing to a window of calendar days ending today.
	// Zero disables the window.
	Since int
	// Now defaults to time.Now.
	Now func() time.Time
	// Output is "" or "json".
	Output string
	Watch  bool
	Out    io.Writer
}

// Do prints the history once, or until ctx ends when Watch is set.
func (h *History) Do(ctx context.Context) error {
	if h.Persistence == nil {
		return fmt.Errorf("failed to create persistence object")
	}
	if h.Out == nil {
		h.Out = color.Output
	}
	if !h.Watch {
		return h.print(ctx)
	}

	events, err := h.Persistence.Watch(ctx)
	if err != nil {
		return err
	}
	if err := h.print(ctx); err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			_, _ = fmt.Fprintln(h.Out, color.New(color.Faint).Sprintf("-- %s %s", ev.Type, ev.Day))
			if err := h.print(ctx); err != nil {
				return err
			}
		}
	}
}

// Recent returns the entries inside Since, limited to the last Days, oldest
// first.
func (h *History) Recent(ctx context.Context) []store.DayTotal {
	days := h.Persistence.History(ctx)
	if h.Since > 0 {
		now := time.Now
		if h.Now != nil {
			now = h.Now
		}
		first := timeutil.FirstDay(now(), h.Since)
		i := sort.Search(len(days), func(i int) bool { return days[i].Day >= first })
		days = days[i:]
	}
	if h.Days > 0 && len(days) > h.Days {
		days = days[len(days)-h.Days:]
	}
	return days
}

func (h *History) print(ctx context.Context) error {
	days := h.Recent(ctx)

	if h.Output == "json" {
		b, err := json.Marshal(days)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintln(h.Out, string(b))
		return nil
	}

	if len(days) == 0 {
		f := color.New(color.Faint, color.Italic)
		_, _ = f.Fprintln(h.Out, " no steps recorded")
		return nil
	}

	var peak, total int64
	for _, d := range days {
		total += d.Steps
		if d.Steps > peak {
			peak = d.Steps
		}
	}

	bold := color.New(color.Bold)
	tbl := uitable.New()
	tbl.Separator = "  "
	tbl.AddRow(bold.Sprint("Day"), bold.Sprint("Steps"), bold.Sprint("Distance"), "")
	for _, d := range days {
		tbl.AddRow(d.Day, d.Steps, counter.FormatDistance(d.Steps)+"m", color.CyanString(bar(d.Steps, peak)))
	}
	tbl.AddRow(bold.Sprint("Total"), total, counter.FormatDistance(total)+"m", "")
	tbl.RightAlign(1)
	tbl.RightAlign(2)

	_, _ = fmt.Fprintln(h.Out, tbl)
	return nil
}

func bar(steps, peak int64) string {
	if peak <= 0 {
		return ""
	}
	n := int(steps * barWidth / peak)
	if n == 0 && steps > 0 {
		n = 1
	}
	return strings.Repeat("▇", n)
}
