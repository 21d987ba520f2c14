package report

import (
	"strings"
	"time"

	"social-report/pkg/types"
)

// IsVideo reports whether the record is a video post. Sheets disagree on
// which column carries this, so either signal is accepted.
func IsVideo(r types.RawPostRecord) bool {
	mediaType := strings.ToUpper(r.MediaType)
	return r.IsVideo == "Yes" || mediaType == "VIDEO" || mediaType == "REEL"
}

// ApplyFilter reports whether a single record belongs in a report whose
// window starts at start (nil for all time).
func ApplyFilter(r types.RawPostRecord, start *time.Time, loc *time.Location) bool {
	if !IsVideo(r) {
		return false
	}
	if start == nil {
		return true
	}
	created, ok := ParseDate(r.CreatedAt, loc)
	return ok && IsWithinWindow(created, start)
}

// FilterRecords keeps the video records inside the window, in input order,
// and reports why the others were dropped.
func FilterRecords(records []types.RawPostRecord, start *time.Time, loc *time.Location) ([]types.RawPostRecord, types.FilterStats) {
	filtered := make([]types.RawPostRecord, 0, len(records))
	stats := types.FilterStats{
		TotalRecords: len(records),
	}

	for _, r := range records {
		if !IsVideo(r) {
			stats.NonVideo++
			continue
		}
		if !ApplyFilter(r, start, loc) {
			stats.OutsideWindow++
			continue
		}
		filtered = append(filtered, r)
	}

	stats.FilteredPosts = len(filtered)
	return filtered, stats
}
