package report

import (
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"social-report/pkg/types"
)

func TestGroupByDateSumsAndSorts(t *testing.T) {
	records := []types.RawPostRecord{
		video("b", "2024-01-02 10:00:00", "100"),
		video("a", "2024-01-01 18:00:00", "50"),
	}

	got := GroupByDate(records, istanbul)

	assert.Equal(t, []types.DailyAggregate{
		{Date: "2024-01-01", PostCount: 1, ImpressionSum: 50},
		{Date: "2024-01-02", PostCount: 1, ImpressionSum: 100},
	}, got)
}

func TestGroupByDateSkipsUndatedRecords(t *testing.T) {
	records := []types.RawPostRecord{
		video("a", "2024-01-01 09:00:00", "1,000"),
		video("b", "2024-01-01 21:00:00", "500"),
		video("c", "", "999"),
		video("d", "whenever", "999"),
	}

	got := GroupByDate(records, istanbul)

	assert.Equal(t, []types.DailyAggregate{
		{Date: "2024-01-01", PostCount: 2, ImpressionSum: 1500},
	}, got)
}

func TestGroupByDateBucketsInConfiguredZone(t *testing.T) {
	records := []types.RawPostRecord{
		video("a", "2024-01-01T22:30:00Z", "1"),
	}

	assert.Equal(t, "2024-01-02", GroupByDate(records, istanbul)[0].Date)
	assert.Equal(t, "2024-01-01", GroupByDate(records, time.UTC)[0].Date)
}

func TestGroupByDateEmpty(t *testing.T) {
	assert.Empty(t, GroupByDate(nil, istanbul))
}

func TestGroupByDateGridFillsWindow(t *testing.T) {
	from := time.Date(2024, 3, 1, 0, 0, 0, 0, istanbul)
	to := time.Date(2024, 3, 4, 15, 0, 0, 0, istanbul)
	records := []types.RawPostRecord{
		video("a", "2024-03-02 10:00:00", "20"),
		video("b", "2024-03-02 11:00:00", "5"),
	}

	got := GroupByDateGrid(records, &from, &to, istanbul)

	assert.Equal(t, []types.DailyAggregate{
		{Date: "2024-03-01"},
		{Date: "2024-03-02", PostCount: 2, ImpressionSum: 25},
		{Date: "2024-03-03"},
		{Date: "2024-03-04"},
	}, got)
}

func TestGroupByDateGridAllTimeSpansObservedDays(t *testing.T) {
	records := []types.RawPostRecord{
		video("late", "2024-02-03 10:00:00", "3"),
		video("early", "2024-01-31 10:00:00", "1"),
	}

	got := GroupByDateGrid(records, nil, nil, istanbul)

	assert.Equal(t, []string{"2024-01-31", "2024-02-01", "2024-02-02", "2024-02-03"}, seriesDates(got))
	assert.Equal(t, 1, got[0].PostCount)
	assert.Equal(t, int64(3), got[3].ImpressionSum)
}

func TestGroupByDateGridAcrossMissingMidnight(t *testing.T) {
	// Chile moves clocks forward at midnight, 2024-09-08 starts at 01:00.
	santiago, err := time.LoadLocation("America/Santiago")
	require.NoError(t, err)

	from := time.Date(2024, 9, 8, 12, 0, 0, 0, santiago)
	to := time.Date(2024, 9, 10, 12, 0, 0, 0, santiago)
	records := []types.RawPostRecord{video("a", "2024-09-09 09:00:00", "7")}

	got := GroupByDateGrid(records, &from, &to, santiago)

	assert.Equal(t, []string{"2024-09-08", "2024-09-09", "2024-09-10"}, seriesDates(got))
	assert.Equal(t, int64(7), got[1].ImpressionSum)
}

func TestGroupByDateGridWithoutData(t *testing.T) {
	assert.Empty(t, GroupByDateGrid(nil, nil, nil, istanbul))

	from := time.Date(2024, 3, 1, 0, 0, 0, 0, istanbul)
	to := time.Date(2024, 3, 2, 8, 0, 0, 0, istanbul)
	assert.Len(t, GroupByDateGrid(nil, &from, &to, istanbul), 2)
}

func seriesDates(series []types.DailyAggregate) []string {
	dates := make([]string, 0, len(series))
	for _, d := range series {
		dates = append(dates, d.Date)
	}
	return dates
}
