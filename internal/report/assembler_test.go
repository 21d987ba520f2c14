package report

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"social-report/pkg/types"
)

func sampleDataset() *types.Dataset {
	return &types.Dataset{
		Generated: "2024-03-10 08:00:00",
		Platforms: []types.PlatformData{
			{
				Key:       "instagram",
				Worksheet: "raw_data",
				Count:     5,
				Records: []types.RawPostRecord{
					{PostID: "ig-1", MediaType: "REEL", CreatedAt: "2024-03-01 10:00:00", Impressions: "1,500", Platform: "Instagram", AgentName: "Ada"},
					{PostID: "ig-2", MediaType: "VIDEO", CreatedAt: "2024-03-02 10:00:00", Impressions: "300", Platform: "Instagram"},
					{PostID: "ig-3", MediaType: "IMAGE", CreatedAt: "2024-03-02 11:00:00", Impressions: "9,999,999"},
					{PostID: "ig-4", MediaType: "reel", CreatedAt: "2024-03-09 10:00:00", Impressions: "800", Platform: "Instagram"},
					{PostID: "ig-5", IsVideo: "Yes", CreatedAt: "2024-03-09 12:00:00", Impressions: "50"},
				},
			},
			{
				Key:       "facebook",
				Worksheet: "raw_data",
				Count:     3,
				Records: []types.RawPostRecord{
					{PostID: "fb-1", MediaType: "VIDEO", CreatedAt: "2024-03-05 10:00:00", Impressions: "2,000", Platform: "Facebook", AccountName: "Page"},
					{PostID: "fb-2", MediaType: "TEXT", CreatedAt: "2024-03-05 10:00:00", Impressions: "7,000"},
					{PostID: "fb-3", MediaType: "VIDEO", CreatedAt: "2024-03-09 23:00:00", Impressions: "10", Platform: "Facebook"},
				},
			},
		},
	}
}

func fixedAssembler(mode types.AggregationMode) *Assembler {
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, istanbul)
	return NewAssembler(Options{
		Location: istanbul,
		Mode:     mode,
		Now:      func() time.Time { return now },
	}, nil)
}

func TestAssembleAllTime(t *testing.T) {
	vm := fixedAssembler(types.AggregationSparse).Assemble(sampleDataset(), types.RangeAll)

	assert.Equal(t, types.RangeAll, vm.Range)
	assert.Equal(t, "All Time", vm.RangeLabel)
	assert.Nil(t, vm.WindowStart)
	assert.Equal(t, 6, vm.TotalPosts)
	assert.Equal(t, int64(1500+300+800+50+2000+10), vm.TotalImpressions)
	assert.Equal(t, "2024-03-10 08:00:00", vm.DataGenerated)

	assert.Equal(t, []string{"2024-03-01", "2024-03-02", "2024-03-05", "2024-03-09"}, seriesDates(vm.DailySeries))
	assert.Equal(t, 3, vm.DailySeries[3].PostCount)
	assert.Equal(t, int64(860), vm.DailySeries[3].ImpressionSum)

	require.Len(t, vm.TopPosts, 5)
	assert.Equal(t, []string{"fb-1", "ig-1", "ig-4", "ig-2", "ig-5"}, rankedIDs(vm.TopPosts))
	for i, p := range vm.TopPosts {
		assert.Equal(t, i+1, p.Rank)
	}
	assert.Equal(t, "Page", vm.TopPosts[0].DisplayName)

	require.Len(t, vm.Platforms, 2)
	assert.Equal(t, types.PlatformSummary{Key: "instagram", Worksheet: "raw_data", RawCount: 5, Posts: 4, Impressions: 2650}, vm.Platforms[0])
	assert.Equal(t, types.PlatformSummary{Key: "facebook", Worksheet: "raw_data", RawCount: 3, Posts: 2, Impressions: 2010}, vm.Platforms[1])
}

func TestAssembleSevenDays(t *testing.T) {
	vm := fixedAssembler(types.AggregationSparse).Assemble(sampleDataset(), types.RangeSevenDays)

	require.NotNil(t, vm.WindowStart)
	assert.Equal(t, 4, vm.TotalPosts)
	assert.Equal(t, []string{"2024-03-05", "2024-03-09"}, seriesDates(vm.DailySeries))
	assert.Equal(t, []string{"fb-1", "ig-4", "ig-5", "fb-3"}, rankedIDs(vm.TopPosts))
}

func TestAssembleGridMode(t *testing.T) {
	vm := fixedAssembler(types.AggregationGrid).Assemble(sampleDataset(), types.RangeSevenDays)

	assert.Equal(t, []string{
		"2024-03-03", "2024-03-04", "2024-03-05", "2024-03-06",
		"2024-03-07", "2024-03-08", "2024-03-09", "2024-03-10",
	}, seriesDates(vm.DailySeries))
	assert.Equal(t, 0, vm.DailySeries[0].PostCount)
	assert.Equal(t, 1, vm.DailySeries[2].PostCount)

	all := fixedAssembler(types.AggregationGrid).Assemble(sampleDataset(), types.RangeAll)
	assert.Len(t, all.DailySeries, 9)
	assert.Equal(t, "2024-03-01", all.DailySeries[0].Date)
	assert.Equal(t, "2024-03-09", all.DailySeries[8].Date)
}

func TestAssembleUnknownRangeBehavesAsAll(t *testing.T) {
	a := fixedAssembler(types.AggregationSparse)
	ds := sampleDataset()

	assert.Equal(t, a.Assemble(ds, types.RangeAll).TotalPosts, a.Assemble(ds, types.ParseRange("forever")).TotalPosts)
}

func TestAssembleNilDataset(t *testing.T) {
	vm := fixedAssembler(types.AggregationSparse).Assemble(nil, types.RangeAll)

	assert.Equal(t, 0, vm.TotalPosts)
	assert.Empty(t, vm.DailySeries)
	assert.Empty(t, vm.TopPosts)
	assert.Empty(t, vm.Platforms)
}

func TestRunReadsTheClockOnce(t *testing.T) {
	base := time.Date(2024, 3, 10, 12, 0, 0, 0, istanbul)
	calls := 0
	a := NewAssembler(Options{
		Location: istanbul,
		Now: func() time.Time {
			calls++
			return base.Add(time.Duration(calls-1) * time.Hour)
		},
	}, nil)
	ds := &types.Dataset{Platforms: []types.PlatformData{{
		Key: "instagram",
		Records: []types.RawPostRecord{
			{PostID: "edge", MediaType: "REEL", CreatedAt: "2024-03-03 12:30:00", Impressions: "10"},
		},
	}}}

	run := a.Run(ds, types.RangeSevenDays)

	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, run.Report.TotalPosts)
	assert.Len(t, run.Posts, run.Report.TotalPosts)
	assert.Equal(t, 1, run.Stats.FilteredPosts)
}

func TestAssembleIsSafeForConcurrentUse(t *testing.T) {
	a := fixedAssembler(types.AggregationSparse)
	ds := sampleDataset()
	want := a.Assemble(ds, types.RangeAll)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got := a.Assemble(ds, types.RangeAll)
			assert.Equal(t, want.TotalImpressions, got.TotalImpressions)
			assert.Equal(t, rankedIDs(want.TopPosts), rankedIDs(got.TopPosts))
		}()
	}
	wg.Wait()
}
