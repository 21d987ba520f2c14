package ingest

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"social-report/pkg/types"
)

// Column names as they appear in the source worksheets.
const (
	KeyCreatedAt   = "Created At"
	KeyMediaType   = "Media Type"
	KeyIsVideo     = "Is Video"
	KeyImpressions = "Impressions/Views"
	KeyLikes       = "Likes"
	KeyComments    = "Comments/Replies"
	KeyShares      = "Shares/Retweets"
	KeyPlatform    = "Platform"
	KeyAgentName   = "Agent Name"
	KeyAccountName = "Account Name"
	KeyPostID      = "Post ID"
	KeyPostURL     = "Post URL"
)

// aliases lists accepted header spellings per field, canonical name first.
var aliases = map[string][]string{
	KeyCreatedAt:   {KeyCreatedAt, "Created", "Date"},
	KeyMediaType:   {KeyMediaType, "Type"},
	KeyIsVideo:     {KeyIsVideo},
	KeyImpressions: {KeyImpressions, "Impressions", "Views"},
	KeyLikes:       {KeyLikes},
	KeyComments:    {KeyComments, "Comments"},
	KeyShares:      {KeyShares, "Shares"},
	KeyPlatform:    {KeyPlatform},
	KeyAgentName:   {KeyAgentName, "Agent"},
	KeyAccountName: {KeyAccountName, "Account"},
	KeyPostID:      {KeyPostID, "ID"},
	KeyPostURL:     {KeyPostURL, "URL", "Link"},
}

func lookup(row map[string]string, field string) string {
	for _, key := range aliases[field] {
		if v, ok := row[key]; ok && v != "" {
			return v
		}
	}
	return ""
}

// NormalizeRow maps a header->cell row onto a RawPostRecord.
func NormalizeRow(row map[string]string) types.RawPostRecord {
	return types.RawPostRecord{
		CreatedAt:   lookup(row, KeyCreatedAt),
		MediaType:   lookup(row, KeyMediaType),
		IsVideo:     lookup(row, KeyIsVideo),
		Impressions: lookup(row, KeyImpressions),
		Likes:       lookup(row, KeyLikes),
		Comments:    lookup(row, KeyComments),
		Shares:      lookup(row, KeyShares),
		Platform:    lookup(row, KeyPlatform),
		AgentName:   lookup(row, KeyAgentName),
		AccountName: lookup(row, KeyAccountName),
		PostID:      lookup(row, KeyPostID),
		PostURL:     lookup(row, KeyPostURL),
	}
}

// RecordRow is the inverse of NormalizeRow using canonical column names.
// Empty fields are left out.
func RecordRow(r types.RawPostRecord) map[string]string {
	row := make(map[string]string)
	set := func(k, v string) {
		if v != "" {
			row[k] = v
		}
	}
	set(KeyCreatedAt, r.CreatedAt)
	set(KeyMediaType, r.MediaType)
	set(KeyIsVideo, r.IsVideo)
	set(KeyImpressions, r.Impressions)
	set(KeyLikes, r.Likes)
	set(KeyComments, r.Comments)
	set(KeyShares, r.Shares)
	set(KeyPlatform, r.Platform)
	set(KeyAgentName, r.AgentName)
	set(KeyAccountName, r.AccountName)
	set(KeyPostID, r.PostID)
	set(KeyPostURL, r.PostURL)
	return row
}

// cellText renders a decoded JSON cell as the text a spreadsheet would show.
func cellText(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(val)
	case json.Number:
		// integer literals keep every digit, post ids outgrow int64
		if !strings.ContainsAny(val.String(), ".eE") {
			return val.String()
		}
		if f, err := val.Float64(); err == nil {
			return strconv.FormatFloat(f, 'f', -1, 64)
		}
		return val.String()
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return fmt.Sprint(val)
	}
}

func textRow(raw map[string]interface{}) map[string]string {
	row := make(map[string]string, len(raw))
	for k, v := range raw {
		row[strings.TrimSpace(k)] = cellText(v)
	}
	return row
}
