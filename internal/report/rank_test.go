package report

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"social-report/pkg/types"
)

func TestTopPostsOrdersByImpressions(t *testing.T) {
	records := []types.RawPostRecord{
		video("low", "", "10"),
		video("high", "", "1,000"),
		video("mid", "", "500"),
	}

	top := TopPosts(records, 5)

	require.Len(t, top, 3)
	assert.Equal(t, "high", top[0].Record.PostID)
	assert.Equal(t, 1, top[0].Rank)
	assert.Equal(t, int64(1000), top[0].Impressions)
	assert.Equal(t, "mid", top[1].Record.PostID)
	assert.Equal(t, "low", top[2].Record.PostID)
	assert.Equal(t, 3, top[2].Rank)
}

func TestTopPostsIsStableOnTies(t *testing.T) {
	records := []types.RawPostRecord{
		video("first", "", "100"),
		video("bigger", "", "200"),
		video("second", "", "100"),
		video("third", "", "100"),
	}

	top := TopPosts(records, 5)

	assert.Equal(t, []string{"bigger", "first", "second", "third"}, rankedIDs(top))
}

func TestTopPostsTruncates(t *testing.T) {
	var records []types.RawPostRecord
	for _, imp := range []string{"1", "2", "3", "4", "5", "6", "7"} {
		records = append(records, video(imp, "", imp))
	}

	top := TopPosts(records, 5)

	assert.Equal(t, []string{"7", "6", "5", "4", "3"}, rankedIDs(top))
	assert.Len(t, TopPosts(records, 0), DefaultTopN)
}

func TestTopPostsDisplayDefaults(t *testing.T) {
	top := TopPosts([]types.RawPostRecord{
		{MediaType: "VIDEO", AccountName: "acct", Platform: "Instagram", PostID: "17841400000000123"},
		{MediaType: "VIDEO"},
	}, 5)

	require.Len(t, top, 2)
	assert.Equal(t, "acct", top[0].DisplayName)
	assert.Equal(t, "Instagram", top[0].PlatformLabel)
	assert.Equal(t, "https://www.instagram.com/reel/_YqilS7B7/", top[0].URL)
	assert.True(t, top[0].HasLink())

	assert.Equal(t, "Unknown", top[1].DisplayName)
	assert.Equal(t, "-", top[1].PlatformLabel)
	assert.Equal(t, "No link", top[1].LinkText)
	assert.Equal(t, NoLink, top[1].URL)
	assert.False(t, top[1].HasLink())
}

func rankedIDs(top []types.RankedPost) []string {
	ids := make([]string, 0, len(top))
	for _, p := range top {
		ids = append(ids, p.Record.PostID)
	}
	return ids
}
