package http

import (
	"fmt"
	"net/http"
	"time"

	"coffeeshop/internal/observability/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	requestIDHeader   = "X-Request-ID"
	maxRequestIDBytes = 128
)

// requestContext tags the request with an id and a scoped logger, then records
// the access log line and request metrics once the chain has run.
func (s *Server) requestContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		requestID := c.GetHeader(requestIDHeader)
		if requestID == "" || len(requestID) > maxRequestIDBytes {
			requestID = uuid.NewString()
		}
		c.Header(requestIDHeader, requestID)

		scoped := logger.L().With(logger.RequestID(requestID))
		c.Request = c.Request.WithContext(logger.ToContext(c.Request.Context(), scoped))

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		elapsed := time.Since(start)
		s.metrics.observeRequest(c.Request.Method, route, status, elapsed)
		logger.From(c.Request.Context()).Info("http request",
			logger.Method(c.Request.Method),
			logger.Path(c.Request.URL.Path),
			logger.Status(status),
			logger.Duration(elapsed),
			logger.ClientIP(c.ClientIP()),
		)
	}
}

func (s *Server) handlePanic(c *gin.Context, recovered any) {
	logger.From(c.Request.Context()).Error("panic serving request", logger.Err(fmt.Errorf("%v", recovered)))
	writeErrorStatus(c, http.StatusInternalServerError, "internal server error")
}
