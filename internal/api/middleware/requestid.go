package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RequestIDHeader carries the per-request correlation id.
const RequestIDHeader = "X-Request-ID"

// CtxKeyRequestID is the gin context key holding the id.
const CtxKeyRequestID = "request_id"

// RequestID echoes a caller-supplied X-Request-ID or mints a new uuid, stores
// it on the context and sets it on the response.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		c.Set(CtxKeyRequestID, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}
