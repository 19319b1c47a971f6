package middleware

import (
	"net/http"

	"roomrelay/pkg/errors"
	"roomrelay/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ErrorHandlerMiddleware turns the last error attached with c.Error into a
// JSON response. Errors that are not AppErrors are reported as internal
// errors and their text never reaches the client.
func ErrorHandlerMiddleware(cl *logger.ContextLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		ctx := c.Request.Context()
		err := c.Errors.Last().Err
		appErr := errors.GetAppError(err)
		if appErr == nil {
			appErr = errors.WrapError(err, errors.ErrCodeInternal, "Internal server error", http.StatusInternalServerError)
		}

		fields := []zap.Field{
			zap.String("code", string(appErr.Code)),
			zap.Int("status", appErr.HTTPStatus),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
		}
		if appErr.HTTPStatus >= http.StatusInternalServerError {
			cl.LogError(ctx, err, "unhandled error", fields...)
		} else {
			cl.WithContext(ctx).Warn("application error", append(fields, zap.String("message", appErr.Message))...)
		}
		writeAppError(c, appErr)
	}
}

// RecoveryMiddleware recovers from panics and returns proper error responses
func RecoveryMiddleware(logger *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				logger.Errorw("panic recovered",
					"error", err,
					"path", c.Request.URL.Path,
					"method", c.Request.Method,
					"request_id", c.GetString(requestIDKey),
				)
				writeAppError(c, errors.NewInternalError("Internal server error"))
				c.Abort()
			}
		}()

		c.Next()
	}
}

func writeAppError(c *gin.Context, appErr *errors.AppError) {
	status := appErr.HTTPStatus
	if status == 0 {
		status = http.StatusInternalServerError
	}
	body := gin.H{
		"error":   string(appErr.Code),
		"message": appErr.Message,
	}
	if len(appErr.Context) > 0 {
		body["details"] = appErr.Context
	}
	c.AbortWithStatusJSON(status, body)
}
