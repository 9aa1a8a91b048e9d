package handlers

import (
	"bytes"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/ChequeGuard/internal/application/reporting"
	"github.com/turtacn/ChequeGuard/internal/application/tracking"
	"github.com/turtacn/ChequeGuard/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ChequeGuard/pkg/errors"
)

// ExportRecorder counts rendered exports.
type ExportRecorder interface {
	RecordExport(kind, format string, err error)
}

// ReportHandler serves the portfolio report and its file exports.
type ReportHandler struct {
	tracking  tracking.Service
	reporting reporting.Service
	recorder  ExportRecorder
	logger    logging.Logger
}

// NewReportHandler wires a ReportHandler. recorder may be nil.
func NewReportHandler(t tracking.Service, r reporting.Service, recorder ExportRecorder, logger logging.Logger) *ReportHandler {
	return &ReportHandler{tracking: t, reporting: r, recorder: recorder, logger: logger}
}

func (h *ReportHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/reports/summary", h.Summary)
	rg.GET("/exports/cheques.csv", h.ChequesCSV)
	rg.GET("/exports/report.xlsx", h.ReportXLSX)
	rg.POST("/exports", h.CreateExport)
}

// ExportRequest is the body of POST /exports.
type ExportRequest struct {
	Kind   string `json:"kind" binding:"required"`
	Format string `json:"format" binding:"required"`
}

// Summary handles GET /reports/summary.
func (h *ReportHandler) Summary(c *gin.Context) {
	rep, err := h.tracking.Report(c.Request.Context())
	if err != nil {
		writeAppError(c, h.logger, err)
		return
	}
	writeJSON(c, http.StatusOK, rep)
}

// ChequesCSV handles GET /exports/cheques.csv.
func (h *ReportHandler) ChequesCSV(c *gin.Context) {
	h.download(c, reporting.KindCheques, reporting.FormatCSV, "cheques.csv")
}

// ReportXLSX handles GET /exports/report.xlsx.
func (h *ReportHandler) ReportXLSX(c *gin.Context) {
	h.download(c, reporting.KindReport, reporting.FormatXLSX, "report.xlsx")
}

// CreateExport handles POST /exports: the file is rendered, uploaded to
// object storage and a presigned link is returned.
func (h *ReportHandler) CreateExport(c *gin.Context) {
	var req ExportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeAppError(c, h.logger, errors.Wrap(err, errors.ErrCodeBadRequest, "invalid export request"))
		return
	}
	kind, err := reporting.ParseKind(req.Kind)
	if err != nil {
		writeAppError(c, h.logger, err)
		return
	}
	format, err := reporting.ParseFormat(req.Format)
	if err != nil {
		writeAppError(c, h.logger, err)
		return
	}

	res, err := h.reporting.Export(c.Request.Context(), kind, format)
	h.record(kind, format, err)
	if err != nil {
		writeAppError(c, h.logger, err)
		return
	}
	writeJSON(c, http.StatusCreated, res)
}

// download renders fully before writing so a failed render still yields a
// JSON error instead of a truncated file.
func (h *ReportHandler) download(c *gin.Context, kind reporting.Kind, format reporting.Format, filename string) {
	var buf bytes.Buffer
	err := h.reporting.Render(c.Request.Context(), kind, format, &buf)
	h.record(kind, format, err)
	if err != nil {
		writeAppError(c, h.logger, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, format.ContentType(), buf.Bytes())
}

func (h *ReportHandler) record(kind reporting.Kind, format reporting.Format, err error) {
	if h.recorder != nil {
		h.recorder.RecordExport(string(kind), string(format), err)
	}
}
