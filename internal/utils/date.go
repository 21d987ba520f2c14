package utils

import (
	"time"
)

const (
	TimestampLayout = "2006-01-02 15:04:05"
	DateLayout      = "2006-01-02"
	LongDateLayout  = "January 2, 2006"
)

func FormatTimestamp(t time.Time) string {
	return t.Format(TimestampLayout)
}

// FormatDate is the YYYY-MM-DD form used in file names and email subjects.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// FormatLongDate is the report header form, e.g. "March 10, 2024".
func FormatLongDate(t time.Time) string {
	return t.Format(LongDateLayout)
}

// IsOlderThan reports whether t is zero or more than d before now.
func IsOlderThan(t time.Time, d time.Duration, now time.Time) bool {
	return t.IsZero() || now.Sub(t) > d
}
