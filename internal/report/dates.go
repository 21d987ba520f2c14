package report

import (
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"social-report/pkg/types"
)

const dateKeyLayout = "2006-01-02"

// ParseDate parses a "Created At" cell. Text without an explicit zone is read
// in loc. The second return value is false for empty or unparseable input.
func ParseDate(text string, loc *time.Location) (time.Time, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return time.Time{}, false
	}
	t, err := dateparse.ParseIn(text, locationOrLocal(loc))
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// DateKey formats t as YYYY-MM-DD using the calendar fields of loc.
func DateKey(t time.Time, loc *time.Location) string {
	return t.In(locationOrLocal(loc)).Format(dateKeyLayout)
}

// WindowStart returns the inclusive lower bound of r relative to now, or nil
// when the range has no lower bound.
func WindowStart(r types.Range, now time.Time, loc *time.Location) *time.Time {
	switch r {
	case types.RangeSevenDays:
		start := now.Add(-7 * 24 * time.Hour)
		return &start
	case types.RangeMonth:
		local := now.In(locationOrLocal(loc))
		start := time.Date(local.Year(), local.Month(), 1, 0, 0, 0, 0, local.Location())
		return &start
	default:
		return nil
	}
}

// IsWithinWindow reports whether t is at or after start. A nil start is unbounded.
func IsWithinWindow(t time.Time, start *time.Time) bool {
	return start == nil || !t.Before(*start)
}

func locationOrLocal(loc *time.Location) *time.Location {
	if loc == nil {
		return time.Local
	}
	return loc
}

// dayAnchor returns noon of t's calendar day in loc. Midnight does not exist
// on some DST change days, noon always does.
func dayAnchor(t time.Time, loc *time.Location) time.Time {
	local := t.In(locationOrLocal(loc))
	return time.Date(local.Year(), local.Month(), local.Day(), 12, 0, 0, 0, local.Location())
}
