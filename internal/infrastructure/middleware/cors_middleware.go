package middleware

import (
	"net/http"
	"time"

	"roomrelay/pkg/validation"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// NewCORSMiddleware lets browser pages served from the allowed origins read
// the HTTP API. Requests from other origins are refused with 403; requests
// without an Origin header are not affected.
//
// It must be installed on the engine, not on a group, so preflight requests
// for routes without an OPTIONS handler still reach it.
func NewCORSMiddleware(allowedOrigins []string) gin.HandlerFunc {
	allowList := validation.NewOriginAllowList(allowedOrigins)

	cfg := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", RequestIDHeader},
		ExposeHeaders: []string{RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	if allowList.AllowsAll() {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOriginFunc = allowList.Allows
		cfg.AllowCredentials = true
	}
	return cors.New(cfg)
}
