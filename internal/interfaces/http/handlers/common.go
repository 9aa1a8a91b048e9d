// Package handlers holds the gin handlers of the ChequeGuard HTTP API. Every
// JSON response is wrapped in common.APIResponse.
package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/ChequeGuard/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ChequeGuard/pkg/errors"
	"github.com/turtacn/ChequeGuard/pkg/types/common"
)

const (
	defaultAlertLimit = 100
	maxAlertLimit     = 1000
)

// requestID returns the identifier set by the request-id middleware.
func requestID(c *gin.Context) string {
	if v, ok := c.Get(string(common.ContextKeyRequestID)); ok {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

// writeJSON writes data in a success envelope.
func writeJSON[T any](c *gin.Context, statusCode int, data T) {
	resp := common.NewSuccessResponse(data)
	resp.RequestID = requestID(c)
	c.JSON(statusCode, resp)
}

// writeAppError maps err to its HTTP status. Messages of server-side failures
// are masked; the full error is logged instead.
func writeAppError(c *gin.Context, logger logging.Logger, err error) {
	code := errors.GetCode(err)
	if code == errors.CodeUnknown {
		code = errors.ErrCodeInternal
	}
	status := errors.HTTPStatusForCode(code)

	message, detail := "internal server error", ""
	if status < http.StatusInternalServerError {
		var ae *errors.AppError
		if errors.As(err, &ae) {
			message, detail = ae.Message, ae.Detail
		}
	} else {
		logger.Error("request failed",
			logging.String("path", c.FullPath()),
			logging.String("request_id", requestID(c)),
			logging.Err(err))
	}

	resp := common.NewErrorResponse(code.String(), message, detail)
	resp.RequestID = requestID(c)
	c.AbortWithStatusJSON(status, resp)
}

// parseLimit reads a positive integer query parameter, clamped to max.
func parseLimit(c *gin.Context, name string, def, max int) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, errors.InvalidParam(name + " must be a positive integer").WithDetail("value=" + raw)
	}
	if n > max {
		n = max
	}
	return n, nil
}
