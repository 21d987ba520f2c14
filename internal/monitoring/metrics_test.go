package monitoring

import (
	"io"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newTestMonitor(t *testing.T, now time.Time) (*Monitor, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "metrics", "metrics.json")
	m := NewMonitor(quietLogger(), path)
	m.now = func() time.Time { return now }
	return m, path
}

func TestMonitorRecordsAndPersists(t *testing.T) {
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	m, path := newTestMonitor(t, now)

	m.RecordReport("acme", 6, 40*time.Millisecond)
	m.RecordReport("acme", 6, 20*time.Millisecond)
	m.RecordFetch("acme", 120)
	m.RecordEmail("acme", true)
	m.RecordEmail("acme", false)
	m.RecordExport()
	m.RecordRefresh(now)

	metrics := m.GetMetrics()
	assert.Equal(t, 2, metrics.ReportRuns)
	assert.Equal(t, 30*time.Millisecond, metrics.AverageRenderTime)
	assert.Equal(t, 50.0, metrics.EmailErrorRate)
	assert.Equal(t, 1, metrics.Exports)
	assert.Equal(t, 120, metrics.ClientMetrics["acme"].RecordsLoaded)
	assert.Equal(t, 1, metrics.ClientMetrics["acme"].EmailsFailed)

	reloaded := NewMonitor(quietLogger(), path)
	assert.Equal(t, metrics.ReportRuns, reloaded.GetMetrics().ReportRuns)
	assert.True(t, now.Equal(reloaded.LastRefresh()))
}

func TestGetMetricsReturnsCopy(t *testing.T) {
	m, _ := newTestMonitor(t, time.Now())
	m.RecordFetch("acme", 1)

	snapshot := m.GetMetrics()
	snapshot.ClientMetrics["acme"] = ClientMetric{RecordsLoaded: 99}

	assert.Equal(t, 1, m.GetMetrics().ClientMetrics["acme"].RecordsLoaded)
}

func TestMonitorConcurrentUpdates(t *testing.T) {
	m, _ := newTestMonitor(t, time.Now())

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.RecordEmail("acme", true)
		}()
	}
	wg.Wait()

	assert.Equal(t, 20, m.GetMetrics().EmailsSent)
}

func TestHealthStatus(t *testing.T) {
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	m, _ := newTestMonitor(t, now)

	assert.Equal(t, "warning", m.GetHealthStatus()["status"])

	m.RecordFetch("acme", 10)
	health := m.GetHealthStatus()
	assert.Equal(t, "healthy", health["status"])
	assert.Equal(t, "2024-03-10 12:00:00", health["last_fetch"])
}

func TestCheckAlerts(t *testing.T) {
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	m, _ := newTestMonitor(t, now)
	am := NewAlertManager(m, quietLogger(), 0, 0)

	require.Equal(t, []string{"ALERT: Data has never been fetched"}, am.CheckAlerts())

	m.RecordFetch("acme", 10)
	assert.Empty(t, am.CheckAlerts())

	m.now = func() time.Time { return now.Add(26 * time.Hour) }
	alerts := am.CheckAlerts()
	require.Len(t, alerts, 1)
	assert.Contains(t, alerts[0], "Data is stale")

	m.now = func() time.Time { return now }
	for i := 0; i < 5; i++ {
		m.RecordEmail("acme", true)
	}
	m.RecordEmail("acme", false)
	alerts = am.CheckAlerts()
	require.Len(t, alerts, 1)
	assert.Contains(t, alerts[0], "High email error rate: 16.67%")
}

func TestGenerateReport(t *testing.T) {
	m, _ := newTestMonitor(t, time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC))
	m.RecordReport("beta", 1, time.Millisecond)
	m.RecordReport("acme", 1, time.Millisecond)

	report := m.GenerateReport()
	assert.Contains(t, report, "Reports Rendered: 2")
	assert.Contains(t, report, "Last Refresh: Never")
	assert.Less(t, strings.Index(report, "Client acme"), strings.Index(report, "Client beta"))
}

