package middleware

import (
	"github.com/bomdev/auth-service/internal/requestid"
	"github.com/gin-gonic/gin"
)

// RequestID attaches a correlation id to the request context and echoes it.
// A well-formed incoming X-Request-ID is kept.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := requestid.Accept(c.GetHeader(requestid.Header))

		c.Request = c.Request.WithContext(requestid.WithRequestID(c.Request.Context(), id))
		c.Header(requestid.Header, id)
		c.Next()
	}
}
