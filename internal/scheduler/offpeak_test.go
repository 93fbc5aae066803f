package scheduler

import (
	"testing"
	"time"
)

func TestWithinOffPeakNilWindowAlwaysTrue(t *testing.T) {
	if !withinOffPeak(nil, time.Now()) {
		t.Fatalf("expected a nil window to never gate execution")
	}
}

func TestWithinOffPeakSimpleWindow(t *testing.T) {
	w := &OffPeakWindow{Start: "01:00", End: "05:00"}
	in := time.Date(2026, 1, 1, 2, 30, 0, 0, time.UTC)
	out := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	if !withinOffPeak(w, in) {
		t.Fatalf("expected 02:30 to be inside [01:00,05:00)")
	}
	if withinOffPeak(w, out) {
		t.Fatalf("expected 12:00 to be outside [01:00,05:00)")
	}
}

func TestWithinOffPeakWindowCrossingMidnight(t *testing.T) {
	w := &OffPeakWindow{Start: "22:00", End: "05:00"}
	late := time.Date(2026, 1, 1, 23, 0, 0, 0, time.UTC)
	early := time.Date(2026, 1, 2, 3, 0, 0, 0, time.UTC)
	midday := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	if !withinOffPeak(w, late) {
		t.Fatalf("expected 23:00 to be inside a window crossing midnight")
	}
	if !withinOffPeak(w, early) {
		t.Fatalf("expected 03:00 to be inside a window crossing midnight")
	}
	if withinOffPeak(w, midday) {
		t.Fatalf("expected midday to be outside a window crossing midnight")
	}
}

func TestWithinOffPeakMalformedWindowFailsOpen(t *testing.T) {
	w := &OffPeakWindow{Start: "not-a-time", End: "05:00"}
	if !withinOffPeak(w, time.Now()) {
		t.Fatalf("expected a malformed window to fail open rather than skip every tick")
	}
}

func TestComputeNextCronFireAdvancesPastNow(t *testing.T) {
	now := time.Date(2026, 1, 1, 3, 30, 0, 0, time.UTC)
	next, ok := computeNextCronFire("0 3 * * *", "", now)
	if !ok {
		t.Fatalf("expected a valid cron expression to resolve")
	}
	if !next.After(now) {
		t.Fatalf("expected next fire to be strictly after now, got %v vs %v", next, now)
	}
	if next.Day() != now.Day()+1 || next.Hour() != 3 {
		t.Fatalf("expected next fire to be 03:00 the following day, got %v", next)
	}
}

func TestComputeNextCronFireInvalidExpression(t *testing.T) {
	_, ok := computeNextCronFire("not a cron expr", "", time.Now())
	if ok {
		t.Fatalf("expected an invalid cron expression to fail")
	}
}
