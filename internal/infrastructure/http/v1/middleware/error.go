package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"granja/internal/core/apperror"
	"granja/pkg/logger"
)

// RejectionObserver counts requests that ended with an AppError.
type RejectionObserver interface {
	ObserveRejection(code string)
}

// ErrorHandler middleware transforms errors into consistent JSON responses.
// Hides internal errors from clients while logging full details.
// observer may be nil.
func ErrorHandler(observer RejectionObserver) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last().Err

		// If response already written by handler, do not override it.
		if c.Writer.Written() {
			return
		}

		if appErr, ok := apperror.AsAppError(err); ok {
			if appErr.Err != nil {
				logger.Error(c.Request.Context(), "request error",
					"code", appErr.Code,
					"cause", appErr.Err,
				)
			}
			if observer != nil {
				observer.ObserveRejection(appErr.Code)
			}

			c.JSON(appErr.HTTPStatus, gin.H{
				"code":    appErr.Code,
				"message": appErr.Message,
				"details": appErr.Details,
			})
			return
		}

		// Unknown error - log and return generic message
		logger.Error(c.Request.Context(), "unhandled error",
			"error", err,
		)
		if observer != nil {
			observer.ObserveRejection(apperror.CodeInternal)
		}

		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    apperror.CodeInternal,
			"message": "Internal server error",
			"details": map[string]any{
				"request_id": c.GetString(KeyRequestID),
			},
		})
	}
}
