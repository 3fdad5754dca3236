package http

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	RequestIDHeader     = "X-Request-ID"
	contextKeyRequestID = "request_id"
)

// RequestIDMiddleware tags every request with an id, reusing a valid one
// sent by a proxy. The id is echoed in the response and in error logs.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		c.Set(contextKeyRequestID, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

// GetRequestID returns the id assigned by RequestIDMiddleware.
func GetRequestID(c *gin.Context) string {
	return c.GetString(contextKeyRequestID)
}
