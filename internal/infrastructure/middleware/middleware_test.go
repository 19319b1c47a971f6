package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	apperrors "roomrelay/pkg/errors"
	"roomrelay/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newTestEngine(middlewares ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(middlewares...)
	return router
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestErrorHandlerMiddleware_AppError(t *testing.T) {
	router := newTestEngine(ErrorHandlerMiddleware(logger.NewContextLogger(zap.NewNop())))
	router.GET("/rooms/:id", func(c *gin.Context) {
		_ = c.Error(apperrors.NewNotFoundError("room").WithContext("room_id", c.Param("id")))
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/rooms/r1", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "NOT_FOUND", body["error"])
	assert.Equal(t, "room not found", body["message"])
	assert.Equal(t, map[string]interface{}{"room_id": "r1"}, body["details"])
}

func TestErrorHandlerMiddleware_PlainError(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	router := newTestEngine(
		RequestIDMiddleware(),
		ErrorHandlerMiddleware(logger.NewContextLogger(zap.New(core))),
	)
	router.GET("/boom", func(c *gin.Context) {
		_ = c.Error(errors.New("database exploded"))
	})

	req := httptest.NewRequest(http.MethodGet, "/boom", nil)
	req.Header.Set(RequestIDHeader, "req-42")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "INTERNAL_ERROR", body["error"])
	assert.NotContains(t, w.Body.String(), "database exploded")

	errorLogs := logs.FilterLevelExact(zapcore.ErrorLevel).All()
	require.Len(t, errorLogs, 1)
	fields := errorLogs[0].ContextMap()
	assert.Equal(t, "database exploded", fields["error"])
	assert.Equal(t, "req-42", fields["request_id"])
	assert.Equal(t, "INTERNAL_ERROR", fields["code"])
}

func TestErrorHandlerMiddleware_ClientErrorLogsWarning(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	router := newTestEngine(ErrorHandlerMiddleware(logger.NewContextLogger(zap.New(core))))
	router.GET("/bad", func(c *gin.Context) {
		_ = c.Error(apperrors.NewInvalidInputError("roomID is required"))
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/bad", nil))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 0, logs.FilterLevelExact(zapcore.ErrorLevel).Len())
	require.Equal(t, 1, logs.FilterLevelExact(zapcore.WarnLevel).Len())
}

func TestRecoveryMiddleware(t *testing.T) {
	router := newTestEngine(RecoveryMiddleware(zap.NewNop().Sugar()))
	router.GET("/panic", func(c *gin.Context) {
		panic("unexpected")
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "INTERNAL_ERROR", decodeBody(t, w)["error"])
}

func TestRequestIDMiddleware(t *testing.T) {
	router := newTestEngine(RequestIDMiddleware())
	router.GET("/id", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(requestIDKey))
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/id", nil))
	generated := w.Header().Get(RequestIDHeader)
	assert.NotEmpty(t, generated)
	assert.Equal(t, generated, w.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/id", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))
}

func TestRequestLoggingMiddleware(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	router := newTestEngine(
		RequestIDMiddleware(),
		TracingMiddleware(),
		RequestLoggingMiddleware(logger.NewContextLogger(zap.New(core))),
	)
	router.GET("/api/v1/rooms/:id", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/rooms/r1", nil)
	req.Header.Set(RequestIDHeader, "req-42")
	router.ServeHTTP(httptest.NewRecorder(), req)

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "req-42", fields["request_id"])
	assert.Equal(t, "/api/v1/rooms/:id", fields["path"])
	assert.EqualValues(t, http.StatusNoContent, fields["status_code"])
}
