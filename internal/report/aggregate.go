package report

import (
	"sort"
	"time"

	"social-report/pkg/types"
)

type dayBucket struct {
	posts       int
	impressions int64
}

// bucketByDay groups records with a parseable date by local day key.
// It also returns the earliest and latest day seen.
func bucketByDay(records []types.RawPostRecord, loc *time.Location) (map[string]*dayBucket, time.Time, time.Time) {
	grouped := make(map[string]*dayBucket)
	var first, last time.Time

	for _, r := range records {
		created, ok := ParseDate(r.CreatedAt, loc)
		if !ok {
			continue
		}
		key := DateKey(created, loc)
		b, exists := grouped[key]
		if !exists {
			b = &dayBucket{}
			grouped[key] = b
		}
		b.posts++
		b.impressions += ParseNumber(r.Impressions)

		day := dayAnchor(created, loc)
		if first.IsZero() || day.Before(first) {
			first = day
		}
		if last.IsZero() || day.After(last) {
			last = day
		}
	}
	return grouped, first, last
}

func sortedSeries(grouped map[string]*dayBucket) []types.DailyAggregate {
	keys := make([]string, 0, len(grouped))
	for k := range grouped {
		keys = append(keys, k)
	}
	// zero-padded YYYY-MM-DD keys sort chronologically
	sort.Strings(keys)

	series := make([]types.DailyAggregate, 0, len(keys))
	for _, k := range keys {
		series = append(series, types.DailyAggregate{
			Date:          k,
			PostCount:     grouped[k].posts,
			ImpressionSum: grouped[k].impressions,
		})
	}
	return series
}

// GroupByDate returns one entry per day that has at least one dated record,
// sorted ascending. Records without a parseable date are skipped.
func GroupByDate(records []types.RawPostRecord, loc *time.Location) []types.DailyAggregate {
	grouped, _, _ := bucketByDay(records, loc)
	return sortedSeries(grouped)
}

// GroupByDateGrid returns every calendar day from `from` through `to`,
// zero-filled, with the actual counts laid over it. A nil bound falls back to
// the earliest or latest dated record. Days observed past `to` are kept.
func GroupByDateGrid(records []types.RawPostRecord, from, to *time.Time, loc *time.Location) []types.DailyAggregate {
	grouped, first, last := bucketByDay(records, loc)

	start, end := first, last
	if from != nil {
		start = dayAnchor(*from, loc)
	}
	if to != nil {
		end = dayAnchor(*to, loc)
		if last.After(end) {
			end = last
		}
	}
	if start.IsZero() || end.IsZero() {
		return sortedSeries(grouped)
	}

	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		key := DateKey(day, loc)
		if _, ok := grouped[key]; !ok {
			grouped[key] = &dayBucket{}
		}
	}
	return sortedSeries(grouped)
}
