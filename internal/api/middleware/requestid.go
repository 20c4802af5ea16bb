package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/GriffinCanCode/kui/internal/shared/id"
)

// RequestIDHeader carries the request id in both directions
const RequestIDHeader = "X-Request-ID"

const requestIDKey = "request_id"

// RequestID reuses a valid incoming X-Request-ID or mints one, stores it in
// the gin context and echoes it in the response
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := id.RequestID(c.GetHeader(RequestIDHeader))
		if _, err := id.Parse(string(rid)); err != nil {
			rid = id.NewRequestID()
		}
		c.Set(requestIDKey, rid.String())
		c.Header(RequestIDHeader, rid.String())
		c.Next()
	}
}

// GetRequestID returns the id assigned by RequestID, or ""
func GetRequestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}
