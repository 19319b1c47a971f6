package middleware

import (
	"roomrelay/pkg/logger"
	"roomrelay/pkg/tracing"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// TracingMiddleware opens one span per request and exposes its trace id to
// the request logger.
func TracingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		ctx, span := tracing.TraceHTTPRequest(c.Request.Context(), c.Request.Method, route)
		defer span.End()

		span.SetAttributes(
			attribute.String("http.host", c.Request.Host),
			attribute.String("http.user_agent", c.Request.UserAgent()),
			attribute.String("http.client_ip", c.ClientIP()),
		)
		if requestID := c.GetString(requestIDKey); requestID != "" {
			span.SetAttributes(attribute.String("http.request_id", requestID))
		}
		if sc := span.SpanContext(); sc.HasTraceID() {
			ctx = logger.WithValue(ctx, logger.TraceIDKey, sc.TraceID().String())
		}

		c.Request = c.Request.WithContext(ctx)
		c.Next()

		span.SetAttributes(attribute.Int("http.status_code", c.Writer.Status()))
		if c.Writer.Status() >= 500 {
			span.SetStatus(codes.Error, c.Errors.String())
		}
	}
}
