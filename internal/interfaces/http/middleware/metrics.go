package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
)

// HTTPRecorder records served requests.
type HTTPRecorder interface {
	RecordHTTPRequest(method, path string, statusCode int, d time.Duration)
	TrackInFlight(method string) func()
}

// Metrics records every routed request. The route template is used as the
// path label so cheque ids do not explode label cardinality; unrouted
// requests share one label.
func Metrics(rec HTTPRecorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		done := rec.TrackInFlight(c.Request.Method)
		defer done()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		rec.RecordHTTPRequest(c.Request.Method, path, c.Writer.Status(), time.Since(start))
	}
}
