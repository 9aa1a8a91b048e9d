package middleware

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// CORS allows browser access from origins. An empty list allows any origin,
// in which case credentials are not allowed.
func CORS(origins []string) gin.HandlerFunc {
	cfg := cors.DefaultConfig()
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
		cfg.AllowCredentials = true
	}
	cfg.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	cfg.AddAllowHeaders(HeaderRequestID)
	cfg.AddExposeHeaders(HeaderRequestID, "Content-Disposition", "Content-Length")
	cfg.MaxAge = 12 * time.Hour
	return cors.New(cfg)
}
