package report

import (
	"time"

	"github.com/sirupsen/logrus"

	"social-report/pkg/types"
)

// Options configures an Assembler. The zero value reports in the process
// time zone with a sparse daily series and a top-5 leaderboard.
type Options struct {
	Location *time.Location
	Mode     types.AggregationMode
	TopN     int
	// Now is the reference instant for time windows. Defaults to time.Now.
	Now func() time.Time
}

// Assembler turns a raw dataset into a ReportViewModel. It holds no state
// between calls, so one Assembler may serve concurrent requests.
type Assembler struct {
	opts   Options
	logger logrus.FieldLogger
}

func NewAssembler(opts Options, logger logrus.FieldLogger) *Assembler {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Mode == "" {
		opts.Mode = types.AggregationSparse
	}
	if opts.TopN <= 0 {
		opts.TopN = DefaultTopN
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if logger == nil {
		l := logrus.New()
		l.SetLevel(logrus.WarnLevel)
		logger = l
	}
	return &Assembler{opts: opts, logger: logger}
}

// MergeRecords concatenates the platform record lists in dataset order.
func MergeRecords(ds *types.Dataset) []types.RawPostRecord {
	if ds == nil {
		return nil
	}
	all := make([]types.RawPostRecord, 0, ds.RecordCount())
	for _, p := range ds.Platforms {
		all = append(all, p.Records...)
	}
	return all
}

// Assembly is one assembled report together with the records it counted.
type Assembly struct {
	Report *types.ReportViewModel
	Posts  []types.RawPostRecord
	Stats  types.FilterStats
}

// Assemble builds a fresh view model for ds and range r.
func (a *Assembler) Assemble(ds *types.Dataset, r types.Range) *types.ReportViewModel {
	return a.Run(ds, r).Report
}

// Run assembles ds for range r and also returns the qualifying records. The
// view model and the records come from the same filter pass.
func (a *Assembler) Run(ds *types.Dataset, r types.Range) Assembly {
	now := a.opts.Now()
	loc := a.opts.Location
	start := WindowStart(r, now, loc)

	filtered, stats := FilterRecords(MergeRecords(ds), start, loc)
	a.logger.WithField("range", string(r)).Debugf("Filtered records: %s", stats)

	vm := &types.ReportViewModel{
		Range:            r,
		RangeLabel:       r.Label(),
		WindowStart:      start,
		GeneratedAt:      now,
		TotalPosts:       len(filtered),
		TotalImpressions: SumImpressions(filtered),
		TopPosts:         TopPosts(filtered, a.opts.TopN),
		Platforms:        summarizePlatforms(ds, start, loc),
	}
	if ds != nil {
		vm.DataGenerated = ds.Generated
	}

	if a.opts.Mode == types.AggregationGrid {
		to := &now
		if start == nil {
			to = nil
		}
		vm.DailySeries = GroupByDateGrid(filtered, start, to, loc)
	} else {
		vm.DailySeries = GroupByDate(filtered, loc)
	}
	return Assembly{Report: vm, Posts: filtered, Stats: stats}
}

func summarizePlatforms(ds *types.Dataset, start *time.Time, loc *time.Location) []types.PlatformSummary {
	if ds == nil {
		return []types.PlatformSummary{}
	}
	summaries := make([]types.PlatformSummary, 0, len(ds.Platforms))
	for _, p := range ds.Platforms {
		filtered, _ := FilterRecords(p.Records, start, loc)
		summaries = append(summaries, types.PlatformSummary{
			Key:         p.Key,
			Worksheet:   p.Worksheet,
			RawCount:    p.Count,
			Posts:       len(filtered),
			Impressions: SumImpressions(filtered),
		})
	}
	return summaries
}
