package web

import (
	"time"

	"github.com/crewjam/csp"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// requestLogger logs one line per request. Form contents are never logged.
func (api *API) requestLogger() gin.HandlerFunc {
	logger := api.getLogger("http")
	return func(c *gin.Context) {
		start := time.Now()
		id := uuid.NewString()
		c.Header("X-Request-ID", id)

		c.Next()

		event := logger.Info()
		if len(c.Errors) > 0 {
			event = logger.Error().Str("errors", c.Errors.String())
		}
		event.
			Str("request_id", id).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("Request handled")
	}
}

func (api *API) securityHeaders() gin.HandlerFunc {
	policy := csp.Header{
		DefaultSrc: append([]string{"'self'"}, api.CSPSources...),
	}.String()
	return func(c *gin.Context) {
		c.Header("Content-Security-Policy", policy)
		c.Header("X-Content-Type-Options", "nosniff")
		c.Next()
	}
}
