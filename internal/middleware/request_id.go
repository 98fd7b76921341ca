package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"ridedispatch/internal/logging"
)

const requestIDHeader = "X-Request-ID"

// RequestLogger assigns a request id and stores a request-scoped logger in
// the request context.
func RequestLogger(log *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Header(requestIDHeader, id)

		reqLog := log.WithRequestID(id)
		c.Request = c.Request.WithContext(reqLog.WithContext(c.Request.Context()))
		c.Next()
	}
}
