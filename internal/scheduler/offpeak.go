package scheduler

import (
	"fmt"
	"strings"
	"time"

	cronlib "github.com/robfig/cron/v3"
)

// withinOffPeak reports whether now falls inside the window, handling
// windows that cross midnight (start > end) the way a "22:00-06:00" quiet
// hours window must. Malformed Start/End are treated as "always in window"
// so a bad config fails open rather than silently skipping every tick.
func withinOffPeak(w *OffPeakWindow, now time.Time) bool {
	if w == nil {
		return true
	}
	loc := time.UTC
	if tz := strings.TrimSpace(w.TZ); tz != "" && !strings.EqualFold(tz, "local") {
		if l, err := time.LoadLocation(tz); err == nil {
			loc = l
		}
	} else if strings.EqualFold(tz, "local") {
		loc = time.Local
	}
	now = now.In(loc)

	start, okStart := parseHHMM(w.Start)
	end, okEnd := parseHHMM(w.End)
	if !okStart || !okEnd {
		return true
	}
	cur := now.Hour()*60 + now.Minute()
	if start <= end {
		return cur >= start && cur < end
	}
	// Crosses midnight: e.g. 22:00-05:00 covers [22:00,24:00) U [00:00,05:00).
	return cur >= start || cur < end
}

func parseHHMM(s string) (int, bool) {
	s = strings.TrimSpace(s)
	var h, m int
	if n, err := fmt.Sscanf(s, "%d:%d", &h, &m); err != nil || n != 2 {
		return 0, false
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, false
	}
	return h*60 + m, true
}

// computeNextCronFire mirrors the teacher's ComputeNextRunAtMs "cron" case
// exactly, using robfig/cron/v3 to find the next firing time after now.
func computeNextCronFire(expr string, tz string, now time.Time) (time.Time, bool) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return time.Time{}, false
	}
	loc := time.UTC
	if tz != "" {
		if l, err := time.LoadLocation(tz); err == nil {
			loc = l
		}
	}
	parser := cronlib.NewParser(cronlib.Minute | cronlib.Hour | cronlib.Dom | cronlib.Month | cronlib.Dow | cronlib.Descriptor)
	sched, err := parser.Parse(expr)
	if err != nil {
		return time.Time{}, false
	}
	next := sched.Next(now.In(loc))
	if next.IsZero() {
		return time.Time{}, false
	}
	return next.UTC(), true
}
