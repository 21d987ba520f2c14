package models

import (
	"time"

	"social-report/pkg/types"
)

// Snapshot is one stored fetch of a client's dataset.
type Snapshot struct {
	ID        string    `json:"id" db:"id"`
	Client    string    `json:"client" db:"client"`
	Generated string    `json:"generated" db:"generated"`
	StoredAt  time.Time `json:"stored_at" db:"stored_at"`
	Posts     int       `json:"posts" db:"posts"`
}

// Platform is a platform worksheet within a snapshot.
type Platform struct {
	SnapshotID string `db:"snapshot_id"`
	Position   int    `db:"position"`
	Key        string `db:"platform_key"`
	Worksheet  string `db:"worksheet"`
	SheetID    string `db:"sheet_id"`
	RawCount   int    `db:"raw_count"`
}

// Post is one stored record. Cells are kept as text, as ingested.
type Post struct {
	SnapshotID       string `db:"snapshot_id"`
	PlatformPosition int    `db:"platform_position"`
	Position         int    `db:"position"`
	CreatedAt        string `db:"created_at"`
	MediaType        string `db:"media_type"`
	IsVideo          string `db:"is_video"`
	Impressions      string `db:"impressions"`
	Likes            string `db:"likes"`
	Comments         string `db:"comments"`
	Shares           string `db:"shares"`
	Platform         string `db:"platform"`
	AgentName        string `db:"agent_name"`
	AccountName      string `db:"account_name"`
	PostID           string `db:"post_id"`
	PostURL          string `db:"post_url"`
}

func PostFromRecord(r types.RawPostRecord) Post {
	return Post{
		CreatedAt:   r.CreatedAt,
		MediaType:   r.MediaType,
		IsVideo:     r.IsVideo,
		Impressions: r.Impressions,
		Likes:       r.Likes,
		Comments:    r.Comments,
		Shares:      r.Shares,
		Platform:    r.Platform,
		AgentName:   r.AgentName,
		AccountName: r.AccountName,
		PostID:      r.PostID,
		PostURL:     r.PostURL,
	}
}

func (p Post) Record() types.RawPostRecord {
	return types.RawPostRecord{
		CreatedAt:   p.CreatedAt,
		MediaType:   p.MediaType,
		IsVideo:     p.IsVideo,
		Impressions: p.Impressions,
		Likes:       p.Likes,
		Comments:    p.Comments,
		Shares:      p.Shares,
		Platform:    p.Platform,
		AgentName:   p.AgentName,
		AccountName: p.AccountName,
		PostID:      p.PostID,
		PostURL:     p.PostURL,
	}
}
