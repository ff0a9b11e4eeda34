package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const requestIDKey = "request_id"

// RequestID ensures every request carries an id, generating one when
// the client did not send X-Request-ID.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set(requestIDKey, requestID)
		c.Writer.Header().Set("X-Request-ID", requestID)
		c.Next()
	}
}

// RequestIDFromContext returns the id attached by RequestID.
func RequestIDFromContext(c *gin.Context) string {
	if val, ok := c.Get(requestIDKey); ok {
		if id, ok := val.(string); ok {
			return id
		}
	}
	return ""
}
