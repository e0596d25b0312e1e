// file: internal/server/middleware/requestid.go
// version: 1.0.0
// guid: 4e6a8c0b-2d4f-4e6a-8c0b-2d4f6e8a0c1b

package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	ulid "github.com/oklog/ulid/v2"
)

const (
	// RequestIDHeader is echoed on every response.
	RequestIDHeader    = "X-Request-ID"
	contextRequestID   = "request_id"
	maxInboundIDLength = 128
)

// RequestID tags each request with a ULID unless the caller already sent a usable id.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(RequestIDHeader))
		if id == "" || len(id) > maxInboundIDLength {
			id = ulid.Make().String()
		}
		c.Set(contextRequestID, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

// RequestIDFrom returns the id assigned by RequestID, or "" outside that middleware.
func RequestIDFrom(c *gin.Context) string {
	if c == nil {
		return ""
	}
	return c.GetString(contextRequestID)
}
