package prometheus

import (
	"strconv"
	"time"

	"github.com/turtacn/ChequeGuard/internal/domain/alert"
	"github.com/turtacn/ChequeGuard/internal/domain/cheque"
	"github.com/turtacn/ChequeGuard/internal/domain/report"
)

// AppMetrics holds all application metrics.
type AppMetrics struct {
	// HTTP layer
	HTTPRequestsTotal   CounterVec
	HTTPRequestDuration HistogramVec
	HTTPActiveRequests  GaugeVec

	// Computation passes
	PassesTotal   CounterVec
	PassDuration  HistogramVec
	PortfolioSize GaugeVec

	// Deadline state of the last pass
	DeadlinesOverdue  GaugeVec
	DeadlinesUpcoming GaugeVec
	AlertsActive      GaugeVec

	// Infrastructure
	CacheRequestsTotal  CounterVec
	EventsConsumedTotal CounterVec
	ExportsTotal        CounterVec
}

var (
	DefaultHTTPDurationBuckets = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}
	DefaultPassDurationBuckets = []float64{.001, .005, .01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30}
)

// NewAppMetrics registers every metric on collector.
func NewAppMetrics(collector MetricsCollector) *AppMetrics {
	m := &AppMetrics{}

	m.HTTPRequestsTotal = collector.RegisterCounter("http_requests_total", "Total HTTP requests", "method", "path", "status_code")
	m.HTTPRequestDuration = collector.RegisterHistogram("http_request_duration_seconds", "HTTP request duration", DefaultHTTPDurationBuckets, "method", "path")
	m.HTTPActiveRequests = collector.RegisterGauge("http_active_requests", "Active HTTP requests", "method")

	m.PassesTotal = collector.RegisterCounter("passes_total", "Computation passes by trigger and outcome", "trigger", "result")
	m.PassDuration = collector.RegisterHistogram("pass_duration_seconds", "Computation pass duration", DefaultPassDurationBuckets, "trigger")
	m.PortfolioSize = collector.RegisterGauge("portfolio_cheques", "Cheques in the last computed snapshot")

	m.DeadlinesOverdue = collector.RegisterGauge("deadlines_overdue", "Overdue cheques per stage", "stage")
	m.DeadlinesUpcoming = collector.RegisterGauge("deadlines_upcoming", "Cheques within the upcoming threshold per stage", "stage")
	m.AlertsActive = collector.RegisterGauge("alerts_active", "Alerts in the last pass by severity", "severity")

	m.CacheRequestsTotal = collector.RegisterCounter("cache_requests_total", "Pass cache lookups", "result")
	m.EventsConsumedTotal = collector.RegisterCounter("events_consumed_total", "Broker events handled", "topic", "result")
	m.ExportsTotal = collector.RegisterCounter("exports_total", "Rendered exports", "kind", "format", "result")

	return m
}

// ObservePass records the outcome and duration of one computation pass.
func (m *AppMetrics) ObservePass(trigger string, d time.Duration, err error) {
	m.PassesTotal.WithLabelValues(trigger, result(err)).Inc()
	m.PassDuration.WithLabelValues(trigger).Observe(d.Seconds())
}

func (m *AppMetrics) SetPortfolioSize(n int) {
	m.PortfolioSize.WithLabelValues().Set(float64(n))
}

func (m *AppMetrics) SetDeadlineCounts(d report.DeadlineAnalysis) {
	for _, s := range cheque.Stages() {
		m.DeadlinesOverdue.WithLabelValues(s.String()).Set(float64(d.Overdue(s)))
		m.DeadlinesUpcoming.WithLabelValues(s.String()).Set(float64(d.Upcoming(s)))
	}
}

func (m *AppMetrics) SetAlertCounts(critical, warning int) {
	m.AlertsActive.WithLabelValues(string(alert.SeverityCritical)).Set(float64(critical))
	m.AlertsActive.WithLabelValues(string(alert.SeverityWarning)).Set(float64(warning))
}

func (m *AppMetrics) IncCacheResult(hit bool) {
	if hit {
		m.CacheRequestsTotal.WithLabelValues("hit").Inc()
		return
	}
	m.CacheRequestsTotal.WithLabelValues("miss").Inc()
}

// RecordEvent counts a consumed broker message.
func (m *AppMetrics) RecordEvent(topic string, err error) {
	m.EventsConsumedTotal.WithLabelValues(topic, result(err)).Inc()
}

// RecordExport counts a rendered export.
func (m *AppMetrics) RecordExport(kind, format string, err error) {
	m.ExportsTotal.WithLabelValues(kind, format, result(err)).Inc()
}

// RecordHTTPRequest records one served request.
func (m *AppMetrics) RecordHTTPRequest(method, path string, statusCode int, d time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(statusCode)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(d.Seconds())
}

// TrackInFlight counts a request as active until the returned func runs.
func (m *AppMetrics) TrackInFlight(method string) func() {
	g := m.HTTPActiveRequests.WithLabelValues(method)
	g.Inc()
	return g.Dec
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
