package monitoring

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
)

type Metrics struct {
	FetchRuns       int                     `json:"fetch_runs"`
	TotalRecords    int                     `json:"total_records"`
	TotalPages      int                     `json:"total_pages"`
	DecodeErrors    int                     `json:"decode_errors"`
	DroppedEvents   int                     `json:"dropped_events"`
	FailedRuns      int                     `json:"failed_runs"`
	LastRun         time.Time               `json:"last_run"`
	AverageRunTime  time.Duration           `json:"average_run_time"`
	ErrorRate       float64                 `json:"error_rate"`
	TargetMetrics   map[string]TargetMetric `json:"target_metrics"`
	StatusBreakdown map[string]int          `json:"status_breakdown"`
}

type TargetMetric struct {
	RecordsCaptured int           `json:"records_captured"`
	PagesCaptured   int           `json:"pages_captured"`
	LastFetched     time.Time     `json:"last_fetched"`
	AverageRunTime  time.Duration `json:"average_run_time"`
	ErrorCount      int           `json:"error_count"`
}

type Monitor struct {
	metrics     *Metrics
	logger      *logrus.Logger
	metricsFile string
}

func NewMonitor(logger *logrus.Logger, metricsFile string) *Monitor {
	monitor := &Monitor{
		metrics: &Metrics{
			TargetMetrics:   make(map[string]TargetMetric),
			StatusBreakdown: make(map[string]int),
		},
		logger:      logger,
		metricsFile: metricsFile,
	}

	// Load existing metrics
	monitor.loadMetrics()
	return monitor
}

// RecordFetchRun folds one completed fetch into the running totals.
// The status string is the terminal session status of the run.
func (m *Monitor) RecordFetchRun(targetID, status string, records, pages, decodeErrors int, duration time.Duration) {
	m.metrics.FetchRuns++
	m.metrics.TotalRecords += records
	m.metrics.TotalPages += pages
	m.metrics.DecodeErrors += decodeErrors
	m.metrics.LastRun = time.Now()
	m.metrics.StatusBreakdown[status]++

	if status == "failed" {
		m.metrics.FailedRuns++
	}

	// Update average run time
	if m.metrics.FetchRuns > 1 {
		m.metrics.AverageRunTime = (m.metrics.AverageRunTime + duration) / 2
	} else {
		m.metrics.AverageRunTime = duration
	}

	// Calculate error rate
	if m.metrics.FetchRuns > 0 {
		m.metrics.ErrorRate = float64(m.metrics.FailedRuns) / float64(m.metrics.FetchRuns) * 100
	}

	// Update per-target metrics
	targetMetric := m.metrics.TargetMetrics[targetID]
	targetMetric.RecordsCaptured += records
	targetMetric.PagesCaptured += pages
	targetMetric.LastFetched = time.Now()
	if status == "failed" {
		targetMetric.ErrorCount++
	}

	if targetMetric.AverageRunTime == 0 {
		targetMetric.AverageRunTime = duration
	} else {
		targetMetric.AverageRunTime = (targetMetric.AverageRunTime + duration) / 2
	}

	m.metrics.TargetMetrics[targetID] = targetMetric

	// Save metrics
	m.saveMetrics()

	m.logger.Infof("Recorded fetch run for %s: status=%s, %d records over %d pages, %v duration",
		targetID, status, records, pages, duration)
}

func (m *Monitor) GetMetrics() *Metrics {
	return m.metrics
}

func (m *Monitor) GetHealthStatus() map[string]interface{} {
	status := map[string]interface{}{
		"status":          "healthy",
		"last_run":        m.metrics.LastRun.Format(time.RFC3339),
		"total_runs":      m.metrics.FetchRuns,
		"error_rate":      fmt.Sprintf("%.2f%%", m.metrics.ErrorRate),
		"average_runtime": m.metrics.AverageRunTime.String(),
	}

	// Check if last run was too long ago
	if time.Since(m.metrics.LastRun) > 24*time.Hour {
		status["status"] = "warning"
		status["warning"] = "No fetch runs in the last 24 hours"
	}

	// Check error rate
	if m.metrics.ErrorRate > 10 {
		status["status"] = "warning"
		status["warning"] = "High failure rate detected"
	}

	return status
}

func (m *Monitor) GenerateReport() string {
	report := fmt.Sprintf(`
TikTok Scraper Monitoring Report
================================
Generated: %s

Overall Statistics:
- Total Fetch Runs: %d
- Total Records Captured: %d
- Total Pages Captured: %d
- Decode Errors: %d
- Failed Runs: %d
- Failure Rate: %.2f%%
- Average Run Time: %s
- Last Run: %s

Target Performance:
`,
		time.Now().Format("2006-01-02 15:04:05"),
		m.metrics.FetchRuns,
		m.metrics.TotalRecords,
		m.metrics.TotalPages,
		m.metrics.DecodeErrors,
		m.metrics.FailedRuns,
		m.metrics.ErrorRate,
		m.metrics.AverageRunTime,
		m.metrics.LastRun.Format("2006-01-02 15:04:05"),
	)

	for targetID, metric := range m.metrics.TargetMetrics {
		report += fmt.Sprintf(`
- Target %s:
  Records Captured: %d
  Pages Captured: %d
  Last Fetched: %s
  Average Runtime: %s
  Errors: %d
`,
			targetID,
			metric.RecordsCaptured,
			metric.PagesCaptured,
			metric.LastFetched.Format("2006-01-02 15:04:05"),
			metric.AverageRunTime,
			metric.ErrorCount,
		)
	}

	return report
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

	m.logger.Info("Loaded existing metrics from file")
}

func (m *Monitor) saveMetrics() {
	data, err := json.MarshalIndent(m.metrics, "", "  ")
	if err != nil {
		m.logger.Errorf("Failed to marshal metrics: %v", err)
		return
	}

	if err := os.WriteFile(m.metricsFile, data, 0644); err != nil {
		m.logger.Errorf("Failed to save metrics: %v", err)
		return
	}
}

// AlertManager handles alerting based on metrics
type AlertManager struct {
	monitor *Monitor
	logger  *logrus.Logger
}

func NewAlertManager(monitor *Monitor, logger *logrus.Logger) *AlertManager {
	return &AlertManager{
		monitor: monitor,
		logger:  logger,
	}
}

func (am *AlertManager) CheckAlerts() []string {
	var alerts []string
	metrics := am.monitor.GetMetrics()

	// Check if the scraper hasn't run recently
	if time.Since(metrics.LastRun) > 25*time.Hour {
		alerts = append(alerts, "ALERT: Scraper hasn't run in over 24 hours")
	}

	// Check failure rate
	if metrics.ErrorRate > 15 {
		alerts = append(alerts, fmt.Sprintf("ALERT: High failure rate: %.2f%%", metrics.ErrorRate))
	}

	// Check decode errors piling up
	if metrics.DecodeErrors > 100 {
		alerts = append(alerts, fmt.Sprintf("ALERT: %d decode errors recorded, payload format may have changed", metrics.DecodeErrors))
	}

	// Check if nothing was captured
	if metrics.FetchRuns > 0 && metrics.TotalRecords == 0 {
		alerts = append(alerts, "ALERT: No records have been captured")
	}

	return alerts
}

func (am *AlertManager) SendAlerts(alerts []string) {
	for _, alert := range alerts {
		am.logger.Warn(alert)
		// Here you could integrate with external alerting systems
		// like Slack, email, PagerDuty, etc.
	}
}
