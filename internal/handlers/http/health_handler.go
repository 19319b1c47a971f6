package http

import (
	"net/http"
	"time"

	"roomrelay/internal/core/ports"
	"roomrelay/internal/infrastructure/monitoring"

	"github.com/gin-gonic/gin"
)

type ConnectionCounter interface {
	ConnectionCount() int
}

type HealthHandler struct {
	checker     *monitoring.HealthChecker
	connections ConnectionCounter
	rooms       ports.RoomReader
}

func NewHealthHandler(checker *monitoring.HealthChecker, connections ConnectionCounter, rooms ports.RoomReader) *HealthHandler {
	return &HealthHandler{
		checker:     checker,
		connections: connections,
		rooms:       rooms,
	}
}

func (h *HealthHandler) SetupRoutes(router gin.IRouter) {
	router.GET("/health", h.Health)
	router.GET("/ready", h.Ready)
}

// Health answers as long as the process serves HTTP.
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":      monitoring.StatusHealthy,
		"timestamp":   time.Now().Unix(),
		"connections": h.connections.ConnectionCount(),
		"rooms":       len(h.rooms.Rooms()),
	})
}

func (h *HealthHandler) Ready(c *gin.Context) {
	status := h.checker.CheckAll(c.Request.Context())
	code := http.StatusOK
	if status.Status != monitoring.StatusHealthy {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, status)
}
