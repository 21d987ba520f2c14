package reporting

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"social-report/internal/config"
	"social-report/internal/export"
	"social-report/internal/ingest"
	"social-report/internal/monitoring"
	"social-report/pkg/types"
)

type staticSource struct {
	ds    *types.Dataset
	err   error
	loads int
}

func (s *staticSource) Load(ctx context.Context) (*types.Dataset, error) {
	s.loads++
	return s.ds, s.err
}

type fakeExporter struct {
	html []byte
	err  error
}

func (f *fakeExporter) Name() string { return "fake" }

func (f *fakeExporter) Export(ctx context.Context, html []byte) (*export.Document, error) {
	f.html = html
	if f.err != nil {
		return nil, f.err
	}
	return &export.Document{Data: []byte("%PDF"), ContentType: "application/pdf", Extension: "pdf"}, nil
}

var testNow = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

func testDataset() *types.Dataset {
	return &types.Dataset{
		Generated: "2024-03-10 08:00:00",
		Platforms: []types.PlatformData{
			{Key: "instagram", Worksheet: "raw_data", Count: 2, Records: []types.RawPostRecord{
				{PostID: "ig-1", MediaType: "REEL", CreatedAt: "2024-03-08 10:00:00", Impressions: "1,500", Platform: "Instagram", AgentName: "Ada"},
				{PostID: "ig-2", MediaType: "IMAGE", CreatedAt: "2024-03-08 11:00:00", Impressions: "9,999"},
			}},
			{Key: "facebook", Worksheet: "raw_data", Count: 1, Records: []types.RawPostRecord{
				{PostID: "fb-1", MediaType: "VIDEO", CreatedAt: "2024-02-01 10:00:00", Impressions: "2,000", Platform: "Facebook"},
			}},
		},
	}
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func testClients() []config.Client {
	hidden := false
	return []config.Client{
		{Name: "Superbetin", Slug: "superbetin", ReportType: "Performance Report", DataFile: "superbetin.json", DefaultRange: "7days"},
		{Name: "Superbetin V2", Slug: "superbetin-v2", ReportType: "Campaign Report", DataFile: "superbetin.json", Aggregation: "grid", ShowTopPosts: &hidden},
	}
}

func newTestService(t *testing.T, source *staticSource, exporter export.Exporter) (*Service, *monitoring.Monitor) {
	t.Helper()
	monitor := monitoring.NewMonitor(quietLogger(), filepath.Join(t.TempDir(), "metrics.json"))
	svc, err := NewService(config.ReportConfig{Timezone: "UTC", DefaultRange: "all", Aggregation: "sparse", TopN: 5}, Deps{
		Clients:  testClients(),
		Sources:  func(config.Client) ingest.Source { return source },
		Exporter: exporter,
		Monitor:  monitor,
		Logger:   quietLogger(),
		Now:      func() time.Time { return testNow },
	})
	require.NoError(t, err)
	return svc, monitor
}

func TestRangeFor(t *testing.T) {
	svc, _ := newTestService(t, &staticSource{ds: testDataset()}, nil)
	clients := svc.Clients()

	assert.Equal(t, types.RangeSevenDays, svc.RangeFor(clients[0], ""))
	assert.Equal(t, types.RangeAll, svc.RangeFor(clients[1], ""))
	assert.Equal(t, types.RangeMonth, svc.RangeFor(clients[1], "month"))
	assert.Equal(t, types.RangeAll, svc.RangeFor(clients[0], "yesterday"))
}

func TestSlugFor(t *testing.T) {
	svc, _ := newTestService(t, &staticSource{ds: testDataset()}, nil)

	assert.Equal(t, "superbetin", svc.SlugFor("Superbetin"))
	assert.Equal(t, "superbetin-v2", svc.SlugFor(" superbetin v2 "))
	assert.Equal(t, "superbetin-v2", svc.SlugFor("SUPERBETIN-V2"))
	assert.Equal(t, "acme-media", svc.SlugFor("Acme  Media"))
}

func TestBuildUsesClientDefaults(t *testing.T) {
	source := &staticSource{ds: testDataset()}
	svc, monitor := newTestService(t, source, nil)

	res, err := svc.Build(context.Background(), "superbetin", "")
	require.NoError(t, err)
	assert.Equal(t, types.RangeSevenDays, res.Report.Range)
	assert.Equal(t, 1, res.Report.TotalPosts)
	assert.Equal(t, int64(1500), res.Report.TotalImpressions)
	require.Len(t, res.Posts, 1)
	assert.Equal(t, "ig-1", res.Posts[0].PostID)

	res, err = svc.Build(context.Background(), "SUPERBETIN-V2", "")
	require.NoError(t, err)
	assert.Equal(t, types.RangeAll, res.Report.Range)
	assert.Equal(t, 2, res.Report.TotalPosts)
	// grid mode fills every day from Feb 1 through Mar 8
	assert.Len(t, res.Report.DailySeries, 37)

	assert.Equal(t, 2, monitor.GetMetrics().ReportRuns)
}

func TestBuildUnknownClient(t *testing.T) {
	svc, _ := newTestService(t, &staticSource{ds: testDataset()}, nil)

	_, err := svc.Build(context.Background(), "nobody", "")
	assert.ErrorIs(t, err, ErrClientNotFound)
}

func TestBuildServesEmptyReportWhenSourceFails(t *testing.T) {
	svc, _ := newTestService(t, &staticSource{err: ingest.ErrEmptyDataset}, nil)

	res, err := svc.Build(context.Background(), "superbetin", "all")
	require.NoError(t, err)
	assert.Zero(t, res.Report.TotalPosts)
	assert.Empty(t, res.Report.TopPosts)
	assert.Empty(t, svc.LastUpdate("superbetin"))
}

func TestClearCacheReloadsSource(t *testing.T) {
	source := &staticSource{ds: testDataset()}
	svc, _ := newTestService(t, source, nil)

	_, err := svc.Build(context.Background(), "superbetin", "")
	require.NoError(t, err)
	_, err = svc.Build(context.Background(), "superbetin", "all")
	require.NoError(t, err)
	assert.Equal(t, 1, source.loads)
	assert.Equal(t, "2024-03-10 08:00:00", svc.LastUpdate("superbetin"))

	svc.ClearCache()
	assert.Empty(t, svc.LastUpdate("superbetin"))
	_, err = svc.Build(context.Background(), "superbetin", "")
	require.NoError(t, err)
	assert.Equal(t, 2, source.loads)
}

func TestRenderHTML(t *testing.T) {
	svc, _ := newTestService(t, &staticSource{ds: testDataset()}, nil)

	html, res, err := svc.RenderHTML(context.Background(), "superbetin", "all", false)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Report.TotalPosts)
	assert.Contains(t, string(html), `id="reportPaper"`)
	assert.Contains(t, string(html), `id="timeFilter"`)

	static, _, err := svc.RenderHTML(context.Background(), "superbetin", "all", true)
	require.NoError(t, err)
	assert.NotContains(t, string(static), `id="timeFilter"`)
}

func TestExportDocument(t *testing.T) {
	exporter := &fakeExporter{}
	svc, monitor := newTestService(t, &staticSource{ds: testDataset()}, exporter)

	doc, res, err := svc.ExportDocument(context.Background(), "superbetin", "all")
	require.NoError(t, err)
	assert.Equal(t, "pdf", doc.Extension)
	assert.Equal(t, "Superbetin", res.Client.Name)
	assert.NotContains(t, string(exporter.html), `id="timeFilter"`)
	assert.Equal(t, 1, monitor.GetMetrics().Exports)
	assert.Equal(t, "Superbetin_V2_Report_2024-03-10.pdf", svc.FileName(svc.Clients()[1], doc.Extension))

	exporter.err = errors.New("browser crashed")
	_, _, err = svc.ExportDocument(context.Background(), "superbetin", "all")
	assert.Error(t, err)
}

func TestExportDocumentWithoutExporter(t *testing.T) {
	svc, _ := newTestService(t, &staticSource{ds: testDataset()}, nil)

	_, _, err := svc.ExportDocument(context.Background(), "superbetin", "all")
	assert.ErrorIs(t, err, ErrNoExporter)
}

func TestExportCSV(t *testing.T) {
	svc, _ := newTestService(t, &staticSource{ds: testDataset()}, nil)

	doc, _, err := svc.ExportCSV(context.Background(), "superbetin", "all")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(doc.Data)), "\n")
	assert.Len(t, lines, 3)
	assert.Contains(t, lines[1], "ig-1")
	assert.Contains(t, lines[2], "fb-1")
}

func TestNewEmail(t *testing.T) {
	svc, _ := newTestService(t, &staticSource{ds: testDataset()}, nil)

	res, err := svc.Build(context.Background(), "superbetin", "all")
	require.NoError(t, err)
	email := svc.NewEmail(res, "client@example.com", []byte("%PDF"), nil)

	assert.Equal(t, "Superbetin Performance Report - 2024-03-10", email.Subject())
	assert.Equal(t, "All Time", email.FilterLabel)
	require.NotNil(t, email.Summary)
	assert.Equal(t, int64(3500), email.Summary.TotalImpressions)
	require.Len(t, email.TopPosts, 2)
	assert.Equal(t, "Facebook", email.TopPosts[0].Platform)

	res, err = svc.Build(context.Background(), "superbetin-v2", "all")
	require.NoError(t, err)
	assert.Empty(t, svc.NewEmail(res, "client@example.com", nil, nil).TopPosts)
}

func TestSnapshotSourcesFallBackToFile(t *testing.T) {
	dir := t.TempDir()
	f, err := os.Create(filepath.Join(dir, "superbetin.json"))
	require.NoError(t, err)
	require.NoError(t, ingest.EncodeDataset(f, testDataset()))
	require.NoError(t, f.Close())

	source := SnapshotSources(emptyStore{}, dir)(testClients()[0])
	ds, err := source.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, ds.RecordCount())
}

type emptyStore struct{}

func (emptyStore) LoadLatestDataset(ctx context.Context, client string) (*types.Dataset, error) {
	return nil, ingest.ErrEmptyDataset
}
