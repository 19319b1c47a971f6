package http

import (
	"net/http"

	"roomrelay/internal/core/domain"
	"roomrelay/internal/core/ports"
	"roomrelay/pkg/config"
	"roomrelay/pkg/errors"
	"roomrelay/pkg/validation"

	webrtc "github.com/pion/webrtc/v3"

	"github.com/gin-gonic/gin"
)

// RoomHandler serves read-only diagnostics over the room directory and the
// ICE configuration browsers need before they start negotiating.
type RoomHandler struct {
	rooms      ports.RoomReader
	iceServers []webrtc.ICEServer
}

type roomSummary struct {
	ID   domain.RoomID `json:"id"`
	Size int           `json:"size"`
}

type roomDetail struct {
	ID      domain.RoomID         `json:"id"`
	Size    int                   `json:"size"`
	Members []domain.ConnectionID `json:"members"`
}

func NewRoomHandler(rooms ports.RoomReader, iceServers []config.ICEServer) *RoomHandler {
	return &RoomHandler{
		rooms:      rooms,
		iceServers: toWebRTCServers(iceServers),
	}
}

func (h *RoomHandler) SetupRoutes(router gin.IRouter) {
	api := router.Group("/api/v1")
	{
		api.GET("/rooms", h.ListRooms)
		api.GET("/rooms/:id", h.GetRoom)
		api.GET("/ice-servers", h.GetICEServers)
	}
}

func (h *RoomHandler) ListRooms(c *gin.Context) {
	rooms := h.rooms.Rooms()

	summaries := make([]roomSummary, 0, len(rooms))
	for _, room := range rooms {
		summaries = append(summaries, roomSummary{ID: room.ID, Size: room.Size()})
	}

	c.JSON(http.StatusOK, gin.H{
		"rooms": summaries,
		"count": len(summaries),
	})
}

// GetRoom reports the current members of a room. Rooms exist only while
// they have members, so an empty room is reported as not found.
func (h *RoomHandler) GetRoom(c *gin.Context) {
	roomID := c.Param("id")
	if err := validation.ValidateRoomID(roomID); err != nil {
		_ = c.Error(errors.NewInvalidInputError(err.Error()))
		return
	}

	members := h.rooms.MembersOf(domain.RoomID(roomID))
	if len(members) == 0 {
		_ = c.Error(errors.NewNotFoundError("room").WithContext("room_id", roomID))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"room": roomDetail{
			ID:      domain.RoomID(roomID),
			Size:    len(members),
			Members: members,
		},
	})
}

func (h *RoomHandler) GetICEServers(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"iceServers": h.iceServers,
	})
}

func toWebRTCServers(servers []config.ICEServer) []webrtc.ICEServer {
	out := make([]webrtc.ICEServer, 0, len(servers))
	for _, s := range servers {
		server := webrtc.ICEServer{
			URLs:     append([]string(nil), s.URLs...),
			Username: s.Username,
		}
		if s.Credential != "" {
			server.Credential = s.Credential
			server.CredentialType = webrtc.ICECredentialTypePassword
		}
		out = append(out, server)
	}
	return out
}
