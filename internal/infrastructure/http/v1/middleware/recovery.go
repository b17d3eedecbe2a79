// Package middleware provides the gin middleware chain of the HTTP API.
package middleware

import (
	"fmt"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"granja/internal/core/apperror"
	"granja/pkg/logger"
)

// Recovery turns a handler panic into an INTERNAL_ERROR for ErrorHandler.
// The stack trace is logged, never returned.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			logger.Error(c.Request.Context(), "panic recovered",
				"error", rec,
				"method", c.Request.Method,
				"path", c.Request.URL.Path,
				"stack", string(debug.Stack()),
			)
			_ = c.Error(
				apperror.NewInternal(fmt.Errorf("panic: %v", rec)).
					WithDetail("request_id", c.GetString(KeyRequestID)),
			)
			c.Abort()
		}()
		c.Next()
	}
}
