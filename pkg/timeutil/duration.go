// Package timeutil parses the day windows accepted by the history commands,
// such as "3d", "1w" or "2w3d".
package timeutil

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultWindow is the fallback window used when none is provided.
	DefaultWindow = "1w"

	dayLayout = "2006-01-02"
)

var (
	windowPattern = regexp.MustCompile(`^\s*(\d+)\s*([a-z]+)`)
	unitDays      = map[string]int{
		"d":     1,
		"day":   1,
		"days":  1,
		"w":     7,
		"wk":    7,
		"wks":   7,
		"week":  7,
		"weeks": 7,
	}
)

// ParseDays parses a window such as "1w2d" into a number of days and its
// canonical form. An empty input means DefaultWindow.
func ParseDays(input string) (int, string, error) {
	remaining := strings.ToLower(strings.TrimSpace(input))
	if remaining == "" {
		remaining = DefaultWindow
	}

	total := 0
	for len(remaining) > 0 {
		matches := windowPattern.FindStringSubmatch(remaining)
		if len(matches) != 3 {
			return 0, "", fmt.Errorf("invalid window segment %q", strings.TrimSpace(remaining))
		}
		value, err := strconv.Atoi(matches[1])
		if err != nil {
			return 0, "", fmt.Errorf("invalid window value %q: %w", matches[1], err)
		}
		days, ok := unitDays[matches[2]]
		if !ok {
			return 0, "", fmt.Errorf("unsupported window unit %q (use d or w)", matches[2])
		}
		total += value * days
		remaining = remaining[len(matches[0]):]
	}

	if total <= 0 {
		return 0, "", fmt.Errorf("window must be at least one day")
	}
	return total, FormatDays(total), nil
}

// FormatDays renders days as weeks and days, for example 17 as "2w3d".
func FormatDays(days int) string {
	if days <= 0 {
		return "0d"
	}
	var b strings.Builder
	if w := days / 7; w > 0 {
		fmt.Fprintf(&b, "%dw", w)
	}
	if d := days % 7; d > 0 {
		fmt.Fprintf(&b, "%dd", d)
	}
	return b.String()
}

// FirstDay is the earliest day key inside a window of days ending on the day
// containing now. A one day window covers just today.
func FirstDay(now time.Time, days int) string {
	if days < 1 {
		days = 1
	}
	return now.AddDate(0, 0, -(days - 1)).Format(dayLayout)
}
