package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"social-report/internal/report"
	"social-report/pkg/types"
)

var csvHeader = []string{
	"Created At", "Platform", "Agent", "Account", "Media Type",
	"Impressions", "Likes", "Comments", "Shares", "Post ID", "URL",
}

// WriteCSV writes records with parsed counts and resolved links.
func WriteCSV(w io.Writer, records []types.RawPostRecord) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(csvHeader); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, r := range records {
		row := []string{
			r.CreatedAt,
			r.Platform,
			r.AgentName,
			r.AccountName,
			r.MediaType,
			strconv.FormatInt(report.ParseNumber(r.Impressions), 10),
			strconv.FormatInt(report.ParseNumber(r.Likes), 10),
			strconv.FormatInt(report.ParseNumber(r.Comments), 10),
			strconv.FormatInt(report.ParseNumber(r.Shares), 10),
			r.PostID,
			report.ResolveURL(r),
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write csv row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("failed to flush csv: %w", err)
	}
	return nil
}

// CSVDocument renders records as a CSV document.
func CSVDocument(records []types.RawPostRecord) (*Document, error) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, records); err != nil {
		return nil, err
	}
	return &Document{Data: buf.Bytes(), ContentType: "text/csv", Extension: "csv"}, nil
}
