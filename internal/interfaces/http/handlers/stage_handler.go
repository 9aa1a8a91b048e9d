package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/ChequeGuard/internal/application/tracking"
	"github.com/turtacn/ChequeGuard/internal/domain/cheque"
	"github.com/turtacn/ChequeGuard/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ChequeGuard/pkg/errors"
)

// StageHandler serves the stage progress of single cheques.
type StageHandler struct {
	svc    tracking.Service
	logger logging.Logger
}

func NewStageHandler(svc tracking.Service, logger logging.Logger) *StageHandler {
	return &StageHandler{svc: svc, logger: logger}
}

// RegisterRoutes mounts the stage routes on rg.
func (h *StageHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/cheques/:id/stages", h.GetChequeStages)
	rg.POST("/stages/evaluate", h.Evaluate)
}

// GetChequeStages handles GET /cheques/:id/stages.
func (h *StageHandler) GetChequeStages(c *gin.Context) {
	out, err := h.svc.Stages(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeAppError(c, h.logger, err)
		return
	}
	writeJSON(c, http.StatusOK, out)
}

// Evaluate handles POST /stages/evaluate. The body is a single cheque record
// which is evaluated without being stored.
func (h *StageHandler) Evaluate(c *gin.Context) {
	var rec cheque.Record
	if err := c.ShouldBindJSON(&rec); err != nil {
		writeAppError(c, h.logger, errors.Wrap(err, errors.ErrCodeBadRequest, "invalid cheque record"))
		return
	}
	out, err := h.svc.EvaluateRecord(c.Request.Context(), rec)
	if err != nil {
		writeAppError(c, h.logger, err)
		return
	}
	writeJSON(c, http.StatusOK, out)
}
