package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/ChequeGuard/internal/application/reporting"
	"github.com/turtacn/ChequeGuard/internal/application/tracking"
	"github.com/turtacn/ChequeGuard/internal/domain/alert"
	"github.com/turtacn/ChequeGuard/internal/domain/cheque"
	"github.com/turtacn/ChequeGuard/internal/domain/report"
	"github.com/turtacn/ChequeGuard/pkg/types/common"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type mockTrackingService struct{ mock.Mock }

func (m *mockTrackingService) Stages(ctx context.Context, id string) (*tracking.ChequeStages, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*tracking.ChequeStages), args.Error(1)
}

func (m *mockTrackingService) EvaluateRecord(ctx context.Context, rec cheque.Record) (*tracking.ChequeStages, error) {
	args := m.Called(ctx, rec)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*tracking.ChequeStages), args.Error(1)
}

func (m *mockTrackingService) Alerts(ctx context.Context, f alert.Filter) (*tracking.AlertList, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*tracking.AlertList), args.Error(1)
}

func (m *mockTrackingService) Report(ctx context.Context) (*report.Report, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*report.Report), args.Error(1)
}

func (m *mockTrackingService) Current(ctx context.Context) (*tracking.Pass, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*tracking.Pass), args.Error(1)
}

func (m *mockTrackingService) Refresh(ctx context.Context) (*tracking.Pass, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*tracking.Pass), args.Error(1)
}

func (m *mockTrackingService) Snapshot(ctx context.Context) (*tracking.Snapshot, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*tracking.Snapshot), args.Error(1)
}

func (m *mockTrackingService) Invalidate(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

type mockReportingService struct{ mock.Mock }

func (m *mockReportingService) Render(ctx context.Context, kind reporting.Kind, format reporting.Format, w io.Writer) error {
	args := m.Called(ctx, kind, format, w)
	if body := args.String(1); body != "" {
		_, _ = io.WriteString(w, body)
	}
	return args.Error(0)
}

func (m *mockReportingService) Export(ctx context.Context, kind reporting.Kind, format reporting.Format) (*reporting.ExportResult, error) {
	args := m.Called(ctx, kind, format)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*reporting.ExportResult), args.Error(1)
}

type mockExportRecorder struct{ mock.Mock }

func (m *mockExportRecorder) RecordExport(kind, format string, err error) {
	m.Called(kind, format, err)
}

// envelope decodes an APIResponse with a raw data field.
type envelope struct {
	Success   bool                `json:"success"`
	Data      json.RawMessage     `json:"data"`
	Error     *common.ErrorDetail `json:"error"`
	RequestID string              `json:"request_id"`
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env
}

func serve(r *gin.Engine, method, target string, body io.Reader) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, target, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	r.ServeHTTP(w, req)
	return w
}
