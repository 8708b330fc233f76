package timeutil

import (
	"testing"
	"time"
)

func TestParseDaysDefault(t *testing.T) {
	days, label, err := ParseDays("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if days != 7 {
		t.Fatalf("expected 7 days, got %d", days)
	}
	if label != "1w" {
		t.Fatalf("expected label 1w, got %s", label)
	}
}

func TestParseDaysComposite(t *testing.T) {
	days, label, err := ParseDays("1w 10days")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if days != 17 {
		t.Fatalf("expected 17, got %d", days)
	}
	if label != "2w3d" {
		t.Fatalf("unexpected label: %s", label)
	}
}

func TestParseDaysInvalid(t *testing.T) {
	for _, in := range []string{"noop", "3h", "0d", "2w-1d"} {
		if _, _, err := ParseDays(in); err == nil {
			t.Fatalf("expected error for %q", in)
		}
	}
}

func TestFirstDay(t *testing.T) {
	now := time.Date(2025, 10, 19, 23, 30, 0, 0, time.Local)
	if got := FirstDay(now, 1); got != "2025-10-19" {
		t.Fatalf("one day window: got %s", got)
	}
	if got := FirstDay(now, 7); got != "2025-10-13" {
		t.Fatalf("week window: got %s", got)
	}
	if got := FirstDay(now, 20); got != "2025-09-30" {
		t.Fatalf("month boundary: got %s", got)
	}
}
