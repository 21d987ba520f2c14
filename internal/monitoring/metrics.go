package monitoring

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"social-report/internal/utils"
)

type Metrics struct {
	ReportRuns        int                     `json:"report_runs"`
	EmailsSent        int                     `json:"emails_sent"`
	EmailsFailed      int                     `json:"emails_failed"`
	Exports           int                     `json:"exports"`
	LastRun           time.Time               `json:"last_run"`
	LastFetch         time.Time               `json:"last_fetch"`
	LastRefresh       time.Time               `json:"last_refresh"`
	AverageRenderTime time.Duration           `json:"average_render_time"`
	EmailErrorRate    float64                 `json:"email_error_rate"`
	ClientMetrics     map[string]ClientMetric `json:"client_metrics"`
}

type ClientMetric struct {
	Reports       int       `json:"reports"`
	LastReport    time.Time `json:"last_report"`
	LastFetch     time.Time `json:"last_fetch"`
	RecordsLoaded int       `json:"records_loaded"`
	EmailsSent    int       `json:"emails_sent"`
	EmailsFailed  int       `json:"emails_failed"`
}

// Monitor keeps run metrics and persists them to a JSON file after every
// change. It is safe for concurrent use.
type Monitor struct {
	mu          sync.Mutex
	metrics     *Metrics
	logger      *logrus.Logger
	metricsFile string
	now         func() time.Time
}

func NewMonitor(logger *logrus.Logger, metricsFile string) *Monitor {
	monitor := &Monitor{
		metrics: &Metrics{
			ClientMetrics: make(map[string]ClientMetric),
		},
		logger:      logger,
		metricsFile: metricsFile,
		now:         time.Now,
	}

	monitor.loadMetrics()
	return monitor
}

// RecordReport registers one rendered report.
func (m *Monitor) RecordReport(client string, posts int, duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	m.metrics.ReportRuns++
	m.metrics.LastRun = now
	if m.metrics.ReportRuns > 1 {
		m.metrics.AverageRenderTime = (m.metrics.AverageRenderTime + duration) / 2
	} else {
		m.metrics.AverageRenderTime = duration
	}

	cm := m.metrics.ClientMetrics[client]
	cm.Reports++
	cm.LastReport = now
	m.metrics.ClientMetrics[client] = cm

	m.saveMetrics()
	m.logger.Debugf("Recorded report for %s: %d posts in %v", client, posts, duration)
}

// RecordFetch registers a successful data fetch of client.
func (m *Monitor) RecordFetch(client string, records int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	m.metrics.LastFetch = now
	cm := m.metrics.ClientMetrics[client]
	cm.LastFetch = now
	cm.RecordsLoaded = records
	m.metrics.ClientMetrics[client] = cm

	m.saveMetrics()
	m.logger.Infof("Recorded fetch for %s: %d records", client, records)
}

// RecordEmail registers one relay attempt.
func (m *Monitor) RecordEmail(client string, sent bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cm := m.metrics.ClientMetrics[client]
	if sent {
		m.metrics.EmailsSent++
		cm.EmailsSent++
	} else {
		m.metrics.EmailsFailed++
		cm.EmailsFailed++
	}
	m.metrics.ClientMetrics[client] = cm

	total := m.metrics.EmailsSent + m.metrics.EmailsFailed
	if total > 0 {
		m.metrics.EmailErrorRate = float64(m.metrics.EmailsFailed) / float64(total) * 100
	}

	m.saveMetrics()
}

func (m *Monitor) RecordExport() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.metrics.Exports++
	m.saveMetrics()
}

// LastRefresh is when a data refresh was last triggered.
func (m *Monitor) LastRefresh() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.metrics.LastRefresh
}

func (m *Monitor) RecordRefresh(at time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.metrics.LastRefresh = at
	m.saveMetrics()
}

// GetMetrics returns a copy of the current metrics.
func (m *Monitor) GetMetrics() Metrics {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := *m.metrics
	snapshot.ClientMetrics = make(map[string]ClientMetric, len(m.metrics.ClientMetrics))
	for k, v := range m.metrics.ClientMetrics {
		snapshot.ClientMetrics[k] = v
	}
	return snapshot
}

func (m *Monitor) GetHealthStatus() map[string]interface{} {
	metrics := m.GetMetrics()
	now := m.now()

	status := map[string]interface{}{
		"status":              "healthy",
		"last_run":            formatTime(metrics.LastRun),
		"last_fetch":          formatTime(metrics.LastFetch),
		"total_runs":          metrics.ReportRuns,
		"emails_sent":         metrics.EmailsSent,
		"email_error_rate":    fmt.Sprintf("%.2f%%", metrics.EmailErrorRate),
		"average_render_time": metrics.AverageRenderTime.String(),
	}

	if utils.IsOlderThan(metrics.LastFetch, 24*time.Hour, now) {
		status["status"] = "warning"
		status["warning"] = "No data fetch in the last 24 hours"
	}

	if metrics.EmailErrorRate > 10 {
		status["status"] = "warning"
		status["warning"] = "High email error rate detected"
	}

	return status
}

func (m *Monitor) GenerateReport() string {
	metrics := m.GetMetrics()

	var b strings.Builder
	fmt.Fprintf(&b, `
Report Service Monitoring Report
================================
Generated: %s

Overall Statistics:
- Reports Rendered: %d
- Exports: %d
- Emails Sent: %d
- Emails Failed: %d
- Email Error Rate: %.2f%%
- Average Render Time: %s
- Last Report: %s
- Last Fetch: %s
- Last Refresh: %s

Client Activity:
`,
		utils.FormatTimestamp(m.now()),
		metrics.ReportRuns,
		metrics.Exports,
		metrics.EmailsSent,
		metrics.EmailsFailed,
		metrics.EmailErrorRate,
		metrics.AverageRenderTime,
		formatTime(metrics.LastRun),
		formatTime(metrics.LastFetch),
		formatTime(metrics.LastRefresh),
	)

	clients := make([]string, 0, len(metrics.ClientMetrics))
	for c := range metrics.ClientMetrics {
		clients = append(clients, c)
	}
	sort.Strings(clients)

	for _, c := range clients {
		cm := metrics.ClientMetrics[c]
		fmt.Fprintf(&b, `
- Client %s:
  Reports: %d
  Last Report: %s
  Last Fetch: %s
  Records Loaded: %d
  Emails Sent/Failed: %d/%d
`,
			c,
			cm.Reports,
			formatTime(cm.LastReport),
			formatTime(cm.LastFetch),
			cm.RecordsLoaded,
			cm.EmailsSent,
			cm.EmailsFailed,
		)
	}

	return b.String()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "Never"
	}
	return utils.FormatTimestamp(t)
}

func (m *Monitor) loadMetrics() {
	if _, err := os.Stat(m.metricsFile); os.IsNotExist(err) {
		m.logger.Info("No existing metrics file found, starting fresh")
		return
	}

	data, err := os.ReadFile(m.metricsFile)
	if err != nil {
		m.logger.Warnf("Failed to read metrics file: %v", err)
		return
	}

	if err := json.Unmarshal(data, m.metrics); err != nil {
		m.logger.Warnf("Failed to parse metrics file: %v", err)
		return
	}
	if m.metrics.ClientMetrics == nil {
		m.metrics.ClientMetrics = make(map[string]ClientMetric)
	}

	m.logger.Info("Loaded existing metrics from file")
}

// saveMetrics must be called with mu held.
func (m *Monitor) saveMetrics() {
	if m.metricsFile == "" {
		return
	}

	data, err := json.MarshalIndent(m.metrics, "", "  ")
	if err != nil {
		m.logger.Errorf("Failed to marshal metrics: %v", err)
		return
	}

	if err := os.MkdirAll(filepath.Dir(m.metricsFile), 0755); err != nil {
		m.logger.Errorf("Failed to create metrics dir: %v", err)
		return
	}
	if err := os.WriteFile(m.metricsFile, data, 0644); err != nil {
		m.logger.Errorf("Failed to save metrics: %v", err)
		return
	}
}

// AlertManager handles alerting based on metrics
type AlertManager struct {
	monitor           *Monitor
	logger            *logrus.Logger
	staleAfter        time.Duration
	maxEmailErrorRate float64
}

func NewAlertManager(monitor *Monitor, logger *logrus.Logger, staleAfter time.Duration, maxEmailErrorRate float64) *AlertManager {
	if staleAfter <= 0 {
		staleAfter = 25 * time.Hour
	}
	if maxEmailErrorRate <= 0 {
		maxEmailErrorRate = 15
	}
	return &AlertManager{
		monitor:           monitor,
		logger:            logger,
		staleAfter:        staleAfter,
		maxEmailErrorRate: maxEmailErrorRate,
	}
}

func (am *AlertManager) CheckAlerts() []string {
	var alerts []string
	metrics := am.monitor.GetMetrics()
	now := am.monitor.now()

	if metrics.LastFetch.IsZero() {
		alerts = append(alerts, "ALERT: Data has never been fetched")
	} else if utils.IsOlderThan(metrics.LastFetch, am.staleAfter, now) {
		alerts = append(alerts, fmt.Sprintf("ALERT: Data is stale, last fetch %s", formatTime(metrics.LastFetch)))
	}

	if metrics.EmailErrorRate > am.maxEmailErrorRate {
		alerts = append(alerts, fmt.Sprintf("ALERT: High email error rate: %.2f%%", metrics.EmailErrorRate))
	}

	return alerts
}

func (am *AlertManager) SendAlerts(alerts []string) {
	for _, alert := range alerts {
		am.logger.Warn(alert)
	}
}
