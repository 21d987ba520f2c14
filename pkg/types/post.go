package types

import (
	"fmt"
	"time"
)

// RawPostRecord is one normalized row of an ingested dataset. Every field is
// kept as the text the source sheet carried; numeric and date parsing happens
// in the report pipeline.
type RawPostRecord struct {
	CreatedAt   string `json:"created_at"`
	MediaType   string `json:"media_type"`
	IsVideo     string `json:"is_video"`
	Impressions string `json:"impressions"`
	Likes       string `json:"likes"`
	Comments    string `json:"comments"`
	Shares      string `json:"shares"`
	Platform    string `json:"platform"`
	AgentName   string `json:"agent_name"`
	AccountName string `json:"account_name"`
	PostID      string `json:"post_id"`
	PostURL     string `json:"post_url"`
}

// PlatformData is the record list of a single platform worksheet.
type PlatformData struct {
	Key       string          `json:"key"`
	Worksheet string          `json:"worksheet"`
	SheetID   string          `json:"sheet_id,omitempty"`
	Count     int             `json:"count"`
	Records   []RawPostRecord `json:"records"`
}

// Dataset is a full ingested data file. Platforms keep the order in which
// they appeared in the source document.
type Dataset struct {
	Generated string         `json:"generated"`
	Platforms []PlatformData `json:"platforms"`
}

// RecordCount returns the number of records across all platforms.
func (d *Dataset) RecordCount() int {
	n := 0
	for _, p := range d.Platforms {
		n += len(p.Records)
	}
	return n
}

// Range selects the time window of a report.
type Range string

const (
	RangeSevenDays Range = "7days"
	RangeMonth     Range = "month"
	RangeAll       Range = "all"
)

// ParseRange maps a selector value to a Range. Unknown values behave as all time.
func ParseRange(s string) Range {
	switch Range(s) {
	case RangeSevenDays, RangeMonth:
		return Range(s)
	default:
		return RangeAll
	}
}

// Label is the human readable name of the range.
func (r Range) Label() string {
	switch r {
	case RangeSevenDays:
		return "Past 7 Days"
	case RangeMonth:
		return "This Month"
	default:
		return "All Time"
	}
}

// AggregationMode selects how the daily series is built.
type AggregationMode string

const (
	// AggregationSparse emits only days that have at least one post.
	AggregationSparse AggregationMode = "sparse"
	// AggregationGrid emits every calendar day of the window, zero-filled.
	AggregationGrid AggregationMode = "grid"
)

// ParseAggregationMode defaults to sparse for anything but "grid".
func ParseAggregationMode(s string) AggregationMode {
	if AggregationMode(s) == AggregationGrid {
		return AggregationGrid
	}
	return AggregationSparse
}

type DailyAggregate struct {
	Date          string `json:"date"`
	PostCount     int    `json:"post_count"`
	ImpressionSum int64  `json:"impression_sum"`
}

type RankedPost struct {
	Record        RawPostRecord `json:"record"`
	Rank          int           `json:"rank"`
	URL           string        `json:"url"`
	Impressions   int64         `json:"impressions"`
	DisplayName   string        `json:"display_name"`
	PlatformLabel string        `json:"platform_label"`
	LinkText      string        `json:"link_text"`
}

// HasLink reports whether the resolved URL points somewhere.
func (p RankedPost) HasLink() bool {
	return p.URL != "" && p.URL != "#"
}

type PlatformSummary struct {
	Key         string `json:"key"`
	Worksheet   string `json:"worksheet"`
	RawCount    int    `json:"raw_count"`
	Posts       int    `json:"posts"`
	Impressions int64  `json:"impressions"`
}

// ReportViewModel is everything the rendering layer needs for one report.
type ReportViewModel struct {
	Range            Range             `json:"range"`
	RangeLabel       string            `json:"range_label"`
	WindowStart      *time.Time        `json:"window_start,omitempty"`
	GeneratedAt      time.Time         `json:"generated_at"`
	DataGenerated    string            `json:"data_generated,omitempty"`
	TotalPosts       int               `json:"total_posts"`
	TotalImpressions int64             `json:"total_impressions"`
	DailySeries      []DailyAggregate  `json:"daily_series"`
	TopPosts         []RankedPost      `json:"top_posts"`
	Platforms        []PlatformSummary `json:"platforms"`
}

type FilterStats struct {
	TotalRecords  int `json:"total_records"`
	NonVideo      int `json:"non_video"`
	OutsideWindow int `json:"outside_window"`
	FilteredPosts int `json:"filtered_posts"`
}

func (fs FilterStats) String() string {
	return fmt.Sprintf("Total: %d, Filtered: %d, NonVideo: %d, OutsideWindow: %d",
		fs.TotalRecords, fs.FilteredPosts, fs.NonVideo, fs.OutsideWindow)
}
