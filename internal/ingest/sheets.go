package ingest

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"

	"social-report/internal/utils"
	"social-report/pkg/types"
)

const (
	DefaultSheetsURL = "https://docs.google.com/spreadsheets/d"
	DefaultWorksheet = "raw_data"

	FormatCSV  = "csv"
	FormatHTML = "html"
)

// ErrWorksheetNotFound is returned when a sheet has no worksheet of the
// configured name.
var ErrWorksheetNotFound = errors.New("worksheet not found")

// SheetRef points at the spreadsheet of one platform.
type SheetRef struct {
	Platform string
	SheetID  string
}

type SheetsOptions struct {
	BaseURL   string
	Worksheet string
	Format    string
	Attempts  int
	BaseDelay time.Duration
	Timeout   time.Duration
}

// SheetsFetcher downloads worksheets through the visualization export
// endpoint, either as CSV or as a published HTML table.
type SheetsFetcher struct {
	client    *http.Client
	baseURL   string
	worksheet string
	format    string
	retry     *utils.RetryConfig
	logger    *logrus.Logger
	now       func() time.Time
}

func NewSheetsFetcher(opts SheetsOptions, logger *logrus.Logger) *SheetsFetcher {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultSheetsURL
	}
	if opts.Worksheet == "" {
		opts.Worksheet = DefaultWorksheet
	}
	if opts.Format != FormatHTML {
		opts.Format = FormatCSV
	}
	if opts.Attempts <= 0 {
		opts.Attempts = 3
	}
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = 2 * time.Second
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}

	return &SheetsFetcher{
		client:    &http.Client{Timeout: opts.Timeout},
		baseURL:   strings.TrimRight(opts.BaseURL, "/"),
		worksheet: opts.Worksheet,
		format:    opts.Format,
		retry: &utils.RetryConfig{
			MaxAttempts: opts.Attempts,
			BaseDelay:   opts.BaseDelay,
			Logger:      logger,
		},
		logger: logger,
		now:    time.Now,
	}
}

func (sf *SheetsFetcher) exportURL(sheetID string) string {
	q := url.Values{}
	q.Set("tqx", "out:"+sf.format)
	q.Set("sheet", sf.worksheet)
	return fmt.Sprintf("%s/%s/gviz/tq?%s", sf.baseURL, url.PathEscape(sheetID), q.Encode())
}

// FetchPlatform downloads the worksheet of one platform. A missing worksheet
// yields an empty platform and a warning, not an error.
func (sf *SheetsFetcher) FetchPlatform(ctx context.Context, ref SheetRef) (types.PlatformData, error) {
	pd := types.PlatformData{
		Key:       ref.Platform,
		Worksheet: sf.worksheet,
		SheetID:   ref.SheetID,
		Records:   []types.RawPostRecord{},
	}

	var rows []map[string]string
	err := sf.retry.Do(ctx, "fetch "+ref.Platform+" sheet", func() error {
		var err error
		rows, err = sf.download(ctx, ref.SheetID)
		return err
	})
	if errors.Is(err, ErrWorksheetNotFound) {
		sf.logger.Warnf("Worksheet '%s' not found in %s sheet", sf.worksheet, ref.Platform)
		return pd, nil
	}
	if err != nil {
		return pd, fmt.Errorf("failed to fetch %s data: %w", ref.Platform, err)
	}

	for _, row := range rows {
		pd.Records = append(pd.Records, NormalizeRow(row))
	}
	pd.Count = len(pd.Records)
	sf.logger.Infof("Fetched %d records from %s", pd.Count, ref.Platform)
	return pd, nil
}

// FetchAll builds a dataset from every sheet, in the given order.
func (sf *SheetsFetcher) FetchAll(ctx context.Context, refs []SheetRef) (*types.Dataset, error) {
	ds := &types.Dataset{
		Generated: utils.FormatTimestamp(sf.now()),
		Platforms: make([]types.PlatformData, 0, len(refs)),
	}
	for _, ref := range refs {
		pd, err := sf.FetchPlatform(ctx, ref)
		if err != nil {
			return nil, err
		}
		ds.Platforms = append(ds.Platforms, pd)
	}
	return ds, nil
}

func (sf *SheetsFetcher) download(ctx context.Context, sheetID string) ([]map[string]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sf.exportURL(sheetID), nil)
	if err != nil {
		return nil, utils.Permanent(fmt.Errorf("failed to build request: %w", err))
	}

	resp, err := sf.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to request sheet: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, utils.Permanent(ErrWorksheetNotFound)
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("sheet request returned status %d", resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, utils.Permanent(fmt.Errorf("sheet request returned status %d", resp.StatusCode))
	}

	if sf.format == FormatHTML {
		return ParseHTMLTable(resp.Body)
	}
	return ParseCSV(resp.Body)
}

// ParseCSV reads a header row followed by data rows. Blank rows are skipped.
func ParseCSV(r io.Reader) ([]map[string]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	table, err := reader.ReadAll()
	if err != nil {
		return nil, utils.Permanent(fmt.Errorf("failed to parse csv: %w", err))
	}
	return tableRows(table), nil
}

// ParseHTMLTable reads the first <table> of a published sheet.
func ParseHTMLTable(r io.Reader) ([]map[string]string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, utils.Permanent(fmt.Errorf("failed to parse html: %w", err))
	}

	var table [][]string
	doc.Find("table").First().Find("tr").Each(func(_ int, tr *goquery.Selection) {
		var cells []string
		tr.Find("th, td").Each(func(_ int, cell *goquery.Selection) {
			cells = append(cells, strings.TrimSpace(cell.Text()))
		})
		table = append(table, cells)
	})
	return tableRows(table), nil
}

func tableRows(table [][]string) []map[string]string {
	if len(table) == 0 {
		return []map[string]string{}
	}
	headers := make([]string, len(table[0]))
	for i, h := range table[0] {
		headers[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}

	rows := make([]map[string]string, 0, len(table)-1)
	for _, cells := range table[1:] {
		row := make(map[string]string, len(headers))
		blank := true
		for i, h := range headers {
			if h == "" || i >= len(cells) {
				continue
			}
			v := strings.TrimSpace(cells[i])
			if v != "" {
				blank = false
			}
			row[h] = v
		}
		if !blank {
			rows = append(rows, row)
		}
	}
	return rows
}
