package http

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/ChequeGuard/internal/application/reporting"
	"github.com/turtacn/ChequeGuard/internal/application/tracking"
	"github.com/turtacn/ChequeGuard/internal/domain/cheque"
	"github.com/turtacn/ChequeGuard/internal/infrastructure/database/jsonfile"
	"github.com/turtacn/ChequeGuard/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ChequeGuard/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/ChequeGuard/internal/interfaces/http/handlers"
	"github.com/turtacn/ChequeGuard/internal/interfaces/http/middleware"
)

const portfolio = `[
  {"id": "c-1", "bank_name": "HBL", "check_date": "2024-01-10", "notice_status": "pending",
   "created_at": "2024-01-11T09:00:00Z"},
  {"id": "c-2", "bank_name": "MCB", "check_amount": "2500.75", "check_date": "2024-03-05",
   "dishonor_date": "2024-03-20", "notice_status": "pending", "created_at": "2024-03-06T09:00:00Z"}
]`

func init() {
	gin.SetMode(gin.TestMode)
}

type routerFixture struct {
	handler   http.Handler
	collector prometheus.MetricsCollector
}

func newRouterFixture(t *testing.T) routerFixture {
	t.Helper()
	log := logging.NewNopLogger()

	repo, err := jsonfile.Read(strings.NewReader(portfolio))
	require.NoError(t, err)
	clock := cheque.FixedClock{At: time.Date(2024, 9, 15, 10, 0, 0, 0, time.UTC)}
	trk := tracking.NewService(repo, cheque.NewEngine(time.UTC), clock, nil, nil, nil, log, tracking.Options{})
	rep := reporting.NewService(trk, nil, clock, log, reporting.Options{})

	collector, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{Namespace: "router_test"}, log)
	require.NoError(t, err)
	metrics := prometheus.NewAppMetrics(collector)

	return routerFixture{
		collector: collector,
		handler: NewRouter(RouterConfig{
			StageHandler:     handlers.NewStageHandler(trk, log),
			AlertHandler:     handlers.NewAlertHandler(trk, log),
			ReportHandler:    handlers.NewReportHandler(trk, rep, metrics, log),
			HealthHandler:    handlers.NewHealthHandler("test", log),
			Logging:          middleware.DefaultLoggingConfig(),
			Logger:           log,
			MetricsCollector: collector,
			Metrics:          metrics,
		}),
	}
}

func (f routerFixture) do(method, target string, body io.Reader, headers ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, body)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	f.handler.ServeHTTP(w, req)
	return w
}

func TestNewRouter_AlertsEndToEnd(t *testing.T) {
	f := newRouterFixture(t)

	w := f.do(http.MethodGet, "/api/v1/alerts?severity=critical", nil)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp struct {
		Success bool `json:"success"`
		Data    struct {
			Total  int `json:"total"`
			Alerts []struct {
				ChequeID string `json:"check_id"`
				Stage    string `json:"stage"`
			} `json:"alerts"`
		} `json:"data"`
		RequestID string `json:"request_id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, 2, resp.Data.Total)
	assert.NotEmpty(t, resp.RequestID)
	assert.Equal(t, resp.RequestID, w.Header().Get(middleware.HeaderRequestID))
}

func TestNewRouter_RoutesRegistered(t *testing.T) {
	f := newRouterFixture(t)

	tests := []struct {
		method string
		path   string
		body   string
		status int
	}{
		{http.MethodGet, "/healthz", "", http.StatusOK},
		{http.MethodGet, "/readyz", "", http.StatusOK},
		{http.MethodGet, "/api/v1/cheques/c-2/stages", "", http.StatusOK},
		{http.MethodGet, "/api/v1/cheques/c-9/stages", "", http.StatusNotFound},
		{http.MethodPost, "/api/v1/stages/evaluate", `{"id":"x","check_date":"2024-09-01"}`, http.StatusOK},
		{http.MethodGet, "/api/v1/reports/summary", "", http.StatusOK},
		{http.MethodGet, "/api/v1/exports/cheques.csv", "", http.StatusOK},
		{http.MethodGet, "/api/v1/exports/report.xlsx", "", http.StatusOK},
		{http.MethodPost, "/api/v1/exports", `{"kind":"report","format":"csv"}`, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			var body io.Reader
			if tt.body != "" {
				body = strings.NewReader(tt.body)
			}
			w := f.do(tt.method, tt.path, body, "Content-Type", "application/json")
			assert.Equal(t, tt.status, w.Code, w.Body.String())
		})
	}
}

func TestNewRouter_UnknownRouteAndMethod(t *testing.T) {
	f := newRouterFixture(t)

	w := f.do(http.MethodGet, "/api/v1/ledger", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), `"code":"COMMON_005"`)

	w = f.do(http.MethodDelete, "/api/v1/alerts", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestNewRouter_RequestIDPropagated(t *testing.T) {
	f := newRouterFixture(t)

	w := f.do(http.MethodGet, "/healthz", nil, middleware.HeaderRequestID, "req-42")

	assert.Equal(t, "req-42", w.Header().Get(middleware.HeaderRequestID))
}

func TestNewRouter_MetricsUseRouteTemplate(t *testing.T) {
	f := newRouterFixture(t)
	f.do(http.MethodGet, "/api/v1/cheques/c-1/stages", nil)
	f.do(http.MethodGet, "/api/v1/cheques/c-2/stages", nil)

	w := f.do(http.MethodGet, "/metrics", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(),
		`router_test_http_requests_total{method="GET",path="/api/v1/cheques/:id/stages",status_code="200"} 2`)
	assert.NotContains(t, w.Body.String(), `path="/api/v1/cheques/c-1/stages"`)
}

func TestNewRouter_CORSPreflight(t *testing.T) {
	f := newRouterFixture(t)

	w := f.do(http.MethodOptions, "/api/v1/alerts", nil,
		"Origin", "https://ops.example.com",
		"Access-Control-Request-Method", http.MethodGet)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestNewRouter_NilHandlersNoPanic(t *testing.T) {
	r := NewRouter(RouterConfig{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/alerts", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
