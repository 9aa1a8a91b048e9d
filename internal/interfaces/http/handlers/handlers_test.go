package handlers

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/ChequeGuard/internal/application/reporting"
	"github.com/turtacn/ChequeGuard/internal/application/tracking"
	"github.com/turtacn/ChequeGuard/internal/domain/alert"
	"github.com/turtacn/ChequeGuard/internal/domain/cheque"
	"github.com/turtacn/ChequeGuard/internal/domain/report"
	"github.com/turtacn/ChequeGuard/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ChequeGuard/pkg/errors"
	"github.com/turtacn/ChequeGuard/pkg/types/common"
)

var testNow = time.Date(2024, 9, 15, 10, 0, 0, 0, time.UTC)

func newAPI(t *testing.T, svc *mockTrackingService, rep *mockReportingService, rec ExportRecorder) *gin.Engine {
	t.Helper()
	log := logging.NewNopLogger()
	r := gin.New()
	api := r.Group("/api/v1")
	NewStageHandler(svc, log).RegisterRoutes(api)
	NewAlertHandler(svc, log).RegisterRoutes(api)
	NewReportHandler(svc, rep, rec, log).RegisterRoutes(api)
	return r
}

func sampleStages(t *testing.T) *tracking.ChequeStages {
	t.Helper()
	dishonored := cheque.MustParseDate("2024-09-01")
	c := &cheque.Cheque{
		ID:           "chq-1",
		BankName:     "First Bank",
		CheckDate:    cheque.MustParseDate("2024-08-20"),
		DishonorDate: &dishonored,
		NoticeStatus: cheque.NoticeStatusPending,
	}
	ev, err := cheque.NewEngine(time.UTC).Evaluate(c, testNow)
	require.NoError(t, err)
	return &tracking.ChequeStages{Cheque: c, Evaluation: ev, Alerts: alert.FromEvaluation(c, ev)}
}

// ─────────────────────────────────────────────────────────────────────────────
// Stages
// ─────────────────────────────────────────────────────────────────────────────

func TestGetChequeStages_Success(t *testing.T) {
	svc := new(mockTrackingService)
	svc.On("Stages", mock.Anything, "chq-1").Return(sampleStages(t), nil)

	w := serve(newAPI(t, svc, nil, nil), http.MethodGet, "/api/v1/cheques/chq-1/stages", nil)

	require.Equal(t, http.StatusOK, w.Code)
	env := decodeEnvelope(t, w)
	assert.True(t, env.Success)

	var data struct {
		Evaluation struct {
			ChequeID string `json:"check_id"`
			Stages   []struct {
				Stage string `json:"stage"`
				State string `json:"state"`
			} `json:"stages"`
		} `json:"evaluation"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, "chq-1", data.Evaluation.ChequeID)
	require.Len(t, data.Evaluation.Stages, 3)
	assert.Equal(t, "dishonor", data.Evaluation.Stages[0].Stage)
	assert.Equal(t, "completed", data.Evaluation.Stages[0].State)
	assert.Equal(t, "notice", data.Evaluation.Stages[1].Stage)
	assert.Equal(t, "pending", data.Evaluation.Stages[1].State)
	svc.AssertExpectations(t)
}

func TestGetChequeStages_NotFound(t *testing.T) {
	svc := new(mockTrackingService)
	svc.On("Stages", mock.Anything, "missing").
		Return(nil, errors.New(errors.ErrCodeChequeNotFound, "cheque not found").WithDetail("id=missing"))

	w := serve(newAPI(t, svc, nil, nil), http.MethodGet, "/api/v1/cheques/missing/stages", nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
	env := decodeEnvelope(t, w)
	assert.False(t, env.Success)
	require.NotNil(t, env.Error)
	assert.Equal(t, "CHQ_001", env.Error.Code)
	assert.Equal(t, "cheque not found", env.Error.Message)
	assert.Equal(t, "id=missing", env.Error.Detail)
}

func TestEvaluate_Success(t *testing.T) {
	svc := new(mockTrackingService)
	svc.On("EvaluateRecord", mock.Anything, mock.MatchedBy(func(r cheque.Record) bool {
		return r.ID == "chq-9" && r.CheckDate == "2024-08-20" && r.DishonorDate != nil && *r.DishonorDate == "2024-09-01" &&
			r.CheckAmount != nil && r.CheckAmount.String() == "1500.5"
	})).Return(sampleStages(t), nil)

	body := `{"id":"chq-9","bank_name":"First Bank","check_amount":"1500.50","check_date":"2024-08-20","dishonor_date":"2024-09-01","notice_status":"pending"}`
	w := serve(newAPI(t, svc, nil, nil), http.MethodPost, "/api/v1/stages/evaluate", strings.NewReader(body))

	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
	svc.AssertExpectations(t)
}

func TestEvaluate_MalformedBody(t *testing.T) {
	svc := new(mockTrackingService)

	w := serve(newAPI(t, svc, nil, nil), http.MethodPost, "/api/v1/stages/evaluate", strings.NewReader(`{"id":`))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "COMMON_002", decodeEnvelope(t, w).Error.Code)
	svc.AssertNotCalled(t, "EvaluateRecord", mock.Anything, mock.Anything)
}

func TestEvaluate_InvalidRecord(t *testing.T) {
	svc := new(mockTrackingService)
	svc.On("EvaluateRecord", mock.Anything, mock.Anything).
		Return(nil, errors.New(errors.ErrCodeChequeInvalidDate, "invalid date").WithDetail("field=check_date value=20-08-2024"))

	w := serve(newAPI(t, svc, nil, nil), http.MethodPost, "/api/v1/stages/evaluate",
		strings.NewReader(`{"id":"chq-9","check_date":"20-08-2024"}`))

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	env := decodeEnvelope(t, w)
	assert.Equal(t, "CHQ_002", env.Error.Code)
	assert.Contains(t, env.Error.Detail, "check_date")
}

// ─────────────────────────────────────────────────────────────────────────────
// Alerts
// ─────────────────────────────────────────────────────────────────────────────

func TestListAlerts_Filters(t *testing.T) {
	notice := cheque.StageNotice
	svc := new(mockTrackingService)
	svc.On("Alerts", mock.Anything, alert.Filter{
		Stage:    &notice,
		Severity: alert.SeverityCritical,
		ChequeID: "chq-1",
		Limit:    5,
	}).Return(&tracking.AlertList{PassID: "p-1", Now: testNow, Alerts: []alert.Alert{}}, nil)

	w := serve(newAPI(t, svc, nil, nil), http.MethodGet,
		"/api/v1/alerts?stage=notice&severity=critical&check_id=chq-1&limit=5", nil)

	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
	svc.AssertExpectations(t)
}

func TestListAlerts_DefaultAndClampedLimit(t *testing.T) {
	tests := []struct {
		query string
		limit int
	}{
		{"", defaultAlertLimit},
		{"?limit=5000", maxAlertLimit},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			svc := new(mockTrackingService)
			svc.On("Alerts", mock.Anything, alert.Filter{Limit: tt.limit}).
				Return(&tracking.AlertList{Alerts: []alert.Alert{}}, nil)

			w := serve(newAPI(t, svc, nil, nil), http.MethodGet, "/api/v1/alerts"+tt.query, nil)

			assert.Equal(t, http.StatusOK, w.Code)
			svc.AssertExpectations(t)
		})
	}
}

func TestListAlerts_BadQuery(t *testing.T) {
	tests := []struct {
		name  string
		query string
		code  string
	}{
		{"unknown stage", "?stage=appeal", "CHQ_006"},
		{"unknown severity", "?severity=info", "COMMON_002"},
		{"zero limit", "?limit=0", "COMMON_002"},
		{"text limit", "?limit=ten", "COMMON_002"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(mockTrackingService)

			w := serve(newAPI(t, svc, nil, nil), http.MethodGet, "/api/v1/alerts"+tt.query, nil)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, tt.code, decodeEnvelope(t, w).Error.Code)
			svc.AssertNotCalled(t, "Alerts", mock.Anything, mock.Anything)
		})
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Reports & exports
// ─────────────────────────────────────────────────────────────────────────────

func TestReportSummary_Success(t *testing.T) {
	svc := new(mockTrackingService)
	svc.On("Report", mock.Anything).Return(&report.Report{
		GeneratedAt: testNow,
		TotalCount:  2,
		Deadlines:   report.DeadlineAnalysis{NoticeOverdue: 1},
	}, nil)

	w := serve(newAPI(t, svc, nil, nil), http.MethodGet, "/api/v1/reports/summary", nil)

	require.Equal(t, http.StatusOK, w.Code)
	var rep struct {
		TotalCount int `json:"total_count"`
		Deadlines  struct {
			NoticeOverdue int `json:"noticeOverdue"`
		} `json:"deadlines"`
	}
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &rep))
	assert.Equal(t, 2, rep.TotalCount)
	assert.Equal(t, 1, rep.Deadlines.NoticeOverdue)
}

func TestReportSummary_InternalErrorIsMasked(t *testing.T) {
	svc := new(mockTrackingService)
	svc.On("Report", mock.Anything).
		Return(nil, errors.Wrap(stderrors.New("dial tcp 10.0.0.5:5432: connection refused"),
			errors.ErrCodeChequeSnapshotUnreadable, "failed to read snapshot"))

	w := serve(newAPI(t, svc, nil, nil), http.MethodGet, "/api/v1/reports/summary", nil)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	env := decodeEnvelope(t, w)
	assert.Equal(t, "CHQ_008", env.Error.Code)
	assert.Equal(t, "internal server error", env.Error.Message)
	assert.NotContains(t, w.Body.String(), "10.0.0.5")
}

func TestChequesCSV_Download(t *testing.T) {
	rep := new(mockReportingService)
	rep.On("Render", mock.Anything, reporting.KindCheques, reporting.FormatCSV, mock.Anything).
		Return(nil, "id,bank_name\nchq-1,\"Bank, Ltd\"\n")
	rec := new(mockExportRecorder)
	rec.On("RecordExport", "cheques", "csv", nil).Once()

	w := serve(newAPI(t, new(mockTrackingService), rep, rec), http.MethodGet, "/api/v1/exports/cheques.csv", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="cheques.csv"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "id,bank_name\nchq-1,\"Bank, Ltd\"\n", w.Body.String())
	rec.AssertExpectations(t)
}

func TestReportXLSX_RenderFailure(t *testing.T) {
	renderErr := errors.New(errors.ErrCodeReportRenderFailed, "failed to render workbook")
	rep := new(mockReportingService)
	rep.On("Render", mock.Anything, reporting.KindReport, reporting.FormatXLSX, mock.Anything).
		Return(renderErr, "")
	rec := new(mockExportRecorder)
	rec.On("RecordExport", "report", "xlsx", renderErr).Once()

	w := serve(newAPI(t, new(mockTrackingService), rep, rec), http.MethodGet, "/api/v1/exports/report.xlsx", nil)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "application/json; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Equal(t, "RPT_002", decodeEnvelope(t, w).Error.Code)
	rec.AssertExpectations(t)
}

func TestCreateExport_Success(t *testing.T) {
	res := &reporting.ExportResult{
		Kind:   reporting.KindAlerts,
		Format: reporting.FormatXLSX,
		Key:    "exports/alerts/2024/09/15/alerts-20240915T100000Z.xlsx",
		URL:    "https://minio.local/chequeguard/exports/alerts.xlsx?X-Amz-Signature=abc",
		Size:   2048,
	}
	rep := new(mockReportingService)
	rep.On("Export", mock.Anything, reporting.KindAlerts, reporting.FormatXLSX).Return(res, nil)

	w := serve(newAPI(t, new(mockTrackingService), rep, nil), http.MethodPost, "/api/v1/exports",
		strings.NewReader(`{"kind":"alerts","format":"XLSX"}`))

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var got reporting.ExportResult
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &got))
	assert.Equal(t, res.Key, got.Key)
	assert.Equal(t, res.URL, got.URL)
}

func TestCreateExport_Rejected(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		status int
		code   string
	}{
		{"missing format", `{"kind":"report"}`, http.StatusBadRequest, "COMMON_002"},
		{"unknown kind", `{"kind":"ledger","format":"csv"}`, http.StatusBadRequest, "COMMON_002"},
		{"unknown format", `{"kind":"report","format":"pdf"}`, http.StatusBadRequest, "RPT_003"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rep := new(mockReportingService)

			w := serve(newAPI(t, new(mockTrackingService), rep, nil), http.MethodPost, "/api/v1/exports",
				strings.NewReader(tt.body))

			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.code, decodeEnvelope(t, w).Error.Code)
			rep.AssertNotCalled(t, "Export", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestCreateExport_StorageDisabled(t *testing.T) {
	rep := new(mockReportingService)
	rep.On("Export", mock.Anything, reporting.KindReport, reporting.FormatCSV).
		Return(nil, errors.New(errors.ErrCodeFeatureDisabled, "object storage is not configured"))

	w := serve(newAPI(t, new(mockTrackingService), rep, nil), http.MethodPost, "/api/v1/exports",
		strings.NewReader(`{"kind":"report","format":"csv"}`))

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "object storage is not configured", decodeEnvelope(t, w).Error.Message)
}

// ─────────────────────────────────────────────────────────────────────────────
// Health
// ─────────────────────────────────────────────────────────────────────────────

func TestLiveness(t *testing.T) {
	h := NewHealthHandler("1.2.3", logging.NewNopLogger(), CheckFunc{
		ComponentName: "postgres",
		Fn:            func(context.Context) error { return stderrors.New("must not be called") },
	})
	r := gin.New()
	h.RegisterRoutes(r)

	w := serve(r, http.MethodGet, "/healthz", nil)

	require.Equal(t, http.StatusOK, w.Code)
	var resp LivenessResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "alive", resp.Status)
	assert.Equal(t, "1.2.3", resp.Version)
}

func TestReadiness(t *testing.T) {
	up := func(context.Context) error { return nil }
	down := func(context.Context) error { return stderrors.New("connection refused") }

	tests := []struct {
		name     string
		checkers []HealthChecker
		status   int
		body     string
	}{
		{"no dependencies", nil, http.StatusOK, "ready"},
		{"all up", []HealthChecker{CheckFunc{"redis", up}, CheckFunc{"postgres", up}}, http.StatusOK, "ready"},
		{"one down", []HealthChecker{CheckFunc{"redis", down}, CheckFunc{"postgres", up}}, http.StatusServiceUnavailable, "not_ready"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			NewHealthHandler("dev", logging.NewNopLogger(), tt.checkers...).RegisterRoutes(r)

			w := serve(r, http.MethodGet, "/readyz", nil)

			assert.Equal(t, tt.status, w.Code)
			var resp ReadinessResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.body, resp.Status)
			require.Len(t, resp.Components, len(tt.checkers))
			if len(resp.Components) == 2 {
				assert.Equal(t, "postgres", resp.Components[0].Name)
				assert.Equal(t, "redis", resp.Components[1].Name)
			}
			for _, c := range resp.Components {
				if c.Status == common.HealthDown {
					assert.Equal(t, "connection refused", c.Message)
				}
			}
		})
	}
}
