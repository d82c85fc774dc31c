package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/thereayou/bolcha/internal/database"
	"github.com/thereayou/bolcha/internal/handlers/dto"
	"github.com/thereayou/bolcha/internal/websocket"
)

type RoomHandler struct {
	store    Store
	presence *websocket.PresenceReporter
}

func NewRoomHandler(store Store, presence *websocket.PresenceReporter) *RoomHandler {
	return &RoomHandler{store: store, presence: presence}
}

// ListRooms список комнат с текущим онлайном
func (h *RoomHandler) ListRooms(c *gin.Context) {
	rooms, err := h.store.ListRooms()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list rooms"})
		return
	}

	out := make([]dto.RoomResponse, len(rooms))
	for i, r := range rooms {
		out[i] = dto.RoomResponse{
			ID:           r.ID,
			Name:         r.Name,
			Description:  r.Description,
			AdminOnly:    r.AdminOnly,
			OnlineCount:  h.presence.Count(r.ID).OnlineCount,
			LastActivity: r.LastActivity,
		}
	}
	c.JSON(http.StatusOK, gin.H{"rooms": out})
}

// GetOnlineCount снимок онлайна для только что открывших комнату
func (h *RoomHandler) GetOnlineCount(c *gin.Context) {
	roomID, ok := roomParam(c)
	if !ok {
		return
	}

	if _, err := h.store.GetRoom(roomID); err != nil {
		if database.IsNotFound(err) {
			c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get room"})
		return
	}

	c.JSON(http.StatusOK, h.presence.Count(roomID))
}
