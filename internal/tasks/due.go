package tasks

import (
	"strconv"
	"strings"
	"time"
)

var weekdays = map[string]time.Weekday{
	"sunday": time.Sunday, "monday": time.Monday, "tuesday": time.Tuesday,
	"wednesday": time.Wednesday, "thursday": time.Thursday, "friday": time.Friday,
	"saturday": time.Saturday,
}

// ParseDueHint turns a free-form due date into a calendar day relative to
// now. It understands "today", "tomorrow", "next week", "end of week",
// weekday names, "in N days", ISO dates and RFC 3339 timestamps. The second
// return value is false when the hint is not understood.
func ParseDueHint(hint string, now time.Time) (time.Time, bool) {
	h := strings.ToLower(strings.TrimSpace(hint))
	if h == "" {
		return time.Time{}, false
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	switch h {
	case "today", "asap", "eod", "end of day":
		return today, true
	case "tomorrow":
		return today.AddDate(0, 0, 1), true
	case "next week":
		return today.AddDate(0, 0, 7), true
	case "end of week", "this week", "eow":
		return nextWeekday(today, time.Friday, true), true
	}

	if t, err := time.Parse(time.RFC3339, hint); err == nil {
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), true
	}
	if t, err := time.Parse("2006-01-02", h); err == nil {
		return t, true
	}

	name := strings.TrimPrefix(strings.TrimPrefix(h, "next "), "on ")
	if wd, ok := weekdays[name]; ok {
		return nextWeekday(today, wd, false), true
	}

	if rest, ok := strings.CutPrefix(h, "in "); ok {
		fields := strings.Fields(rest)
		if len(fields) == 2 {
			n, err := strconv.Atoi(fields[0])
			if err == nil && n >= 0 {
				switch strings.TrimSuffix(fields[1], "s") {
				case "day":
					return today.AddDate(0, 0, n), true
				case "week":
					return today.AddDate(0, 0, 7*n), true
				}
			}
		}
	}
	return time.Time{}, false
}

// nextWeekday returns the next day falling on wd. includeToday allows the
// result to be today itself.
func nextWeekday(today time.Time, wd time.Weekday, includeToday bool) time.Time {
	days := (int(wd) - int(today.Weekday()) + 7) % 7
	if days == 0 && !includeToday {
		days = 7
	}
	return today.AddDate(0, 0, days)
}
