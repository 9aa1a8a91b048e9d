package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/ChequeGuard/internal/application/tracking"
	"github.com/turtacn/ChequeGuard/internal/domain/alert"
	"github.com/turtacn/ChequeGuard/internal/domain/cheque"
	"github.com/turtacn/ChequeGuard/internal/infrastructure/monitoring/logging"
)

// AlertHandler serves the alert list of the current pass.
type AlertHandler struct {
	svc    tracking.Service
	logger logging.Logger
}

func NewAlertHandler(svc tracking.Service, logger logging.Logger) *AlertHandler {
	return &AlertHandler{svc: svc, logger: logger}
}

func (h *AlertHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/alerts", h.List)
}

// List handles GET /alerts?stage=&severity=&check_id=&limit=.
func (h *AlertHandler) List(c *gin.Context) {
	filter, err := alertFilter(c)
	if err != nil {
		writeAppError(c, h.logger, err)
		return
	}
	out, err := h.svc.Alerts(c.Request.Context(), filter)
	if err != nil {
		writeAppError(c, h.logger, err)
		return
	}
	writeJSON(c, http.StatusOK, out)
}

func alertFilter(c *gin.Context) (alert.Filter, error) {
	var f alert.Filter
	if v := c.Query("stage"); v != "" {
		s, err := cheque.ParseStage(v)
		if err != nil {
			return f, err
		}
		f.Stage = &s
	}
	if v := c.Query("severity"); v != "" {
		sev, err := alert.ParseSeverity(v)
		if err != nil {
			return f, err
		}
		f.Severity = sev
	}
	f.ChequeID = c.Query("check_id")

	limit, err := parseLimit(c, "limit", defaultAlertLimit, maxAlertLimit)
	if err != nil {
		return f, err
	}
	f.Limit = limit
	return f, nil
}
