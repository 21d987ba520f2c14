package report

import (
	"sort"

	"social-report/pkg/types"
)

// DefaultTopN is the size of the leaderboard shown on a report.
const DefaultTopN = 5

// TopPosts ranks records by impressions, highest first, and keeps the first n.
// Equal impressions keep their input order.
func TopPosts(records []types.RawPostRecord, n int) []types.RankedPost {
	if n <= 0 {
		n = DefaultTopN
	}

	type scored struct {
		record      types.RawPostRecord
		impressions int64
	}
	sorted := make([]scored, len(records))
	for i, r := range records {
		sorted[i] = scored{record: r, impressions: ParseNumber(r.Impressions)}
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].impressions > sorted[j].impressions
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}

	ranked := make([]types.RankedPost, 0, len(sorted))
	for i, s := range sorted {
		ranked = append(ranked, types.RankedPost{
			Record:        s.record,
			Rank:          i + 1,
			URL:           ResolveURL(s.record),
			Impressions:   s.impressions,
			DisplayName:   firstNonEmpty(s.record.AgentName, s.record.AccountName, "Unknown"),
			PlatformLabel: firstNonEmpty(s.record.Platform, "-"),
			LinkText:      firstNonEmpty(s.record.PostID, "No link"),
		})
	}
	return ranked
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
