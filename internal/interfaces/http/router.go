package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/ChequeGuard/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ChequeGuard/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/ChequeGuard/internal/interfaces/http/handlers"
	"github.com/turtacn/ChequeGuard/internal/interfaces/http/middleware"
	"github.com/turtacn/ChequeGuard/pkg/errors"
	"github.com/turtacn/ChequeGuard/pkg/types/common"
)

const defaultMetricsPath = "/metrics"

// RouterConfig aggregates the handlers and middleware dependencies of the
// route tree. Nil handlers leave their routes unregistered.
type RouterConfig struct {
	// Handlers
	StageHandler  *handlers.StageHandler
	AlertHandler  *handlers.AlertHandler
	ReportHandler *handlers.ReportHandler
	HealthHandler *handlers.HealthHandler

	// Middleware
	Logging     middleware.LoggingConfig
	CORSOrigins []string

	// Infrastructure
	Logger           logging.Logger
	MetricsCollector prometheus.MetricsCollector
	Metrics          middleware.HTTPRecorder
	MetricsPath      string
}

// NewRouter builds the gin engine: global middleware, probes, /metrics and
// the /api/v1 group.
func NewRouter(cfg RouterConfig) *gin.Engine {
	if cfg.Logger == nil {
		cfg.Logger = logging.NewNopLogger()
	}
	if cfg.MetricsPath == "" {
		cfg.MetricsPath = defaultMetricsPath
	}

	r := gin.New()
	r.HandleMethodNotAllowed = true

	r.Use(middleware.RequestID())
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.CORS(cfg.CORSOrigins))
	r.Use(middleware.RequestLogging(cfg.Logger, cfg.Logging))
	if cfg.Metrics != nil {
		r.Use(middleware.Metrics(cfg.Metrics))
	}

	if cfg.HealthHandler != nil {
		cfg.HealthHandler.RegisterRoutes(r)
	}
	if cfg.MetricsCollector != nil {
		r.GET(cfg.MetricsPath, gin.WrapH(cfg.MetricsCollector.Handler()))
	}

	api := r.Group("/api/v1")
	if cfg.StageHandler != nil {
		cfg.StageHandler.RegisterRoutes(api)
	}
	if cfg.AlertHandler != nil {
		cfg.AlertHandler.RegisterRoutes(api)
	}
	if cfg.ReportHandler != nil {
		cfg.ReportHandler.RegisterRoutes(api)
	}

	r.NoRoute(func(c *gin.Context) {
		respondError(c, http.StatusNotFound, errors.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		respondError(c, http.StatusMethodNotAllowed, errors.ErrCodeBadRequest, "method not allowed")
	})
	return r
}

func respondError(c *gin.Context, status int, code errors.ErrorCode, message string) {
	resp := common.NewErrorResponse(code.String(), message, c.Request.Method+" "+c.Request.URL.Path)
	resp.RequestID = middleware.GetRequestID(c)
	c.JSON(status, resp)
}
