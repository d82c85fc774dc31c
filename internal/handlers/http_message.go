package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/thereayou/bolcha/internal/database"
	"github.com/thereayou/bolcha/internal/handlers/dto"
	"github.com/thereayou/bolcha/pkg/logger"
)

type HTTPMessageHandler struct {
	store Store
	log   *zap.Logger
}

func NewHTTPMessageHandler(store Store, log *zap.Logger) *HTTPMessageHandler {
	return &HTTPMessageHandler{store: store, log: logger.OrNop(log).Named("history")}
}

// GetRoomMessages получает историю сообщений комнаты
func (h *HTTPMessageHandler) GetRoomMessages(c *gin.Context) {
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

	// Параметры пагинации
	limit := 50
	if l := c.Query("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= 100 {
			limit = parsed
		}
	}

	var beforeID *int64
	if before := c.Query("before"); before != "" {
		if id, err := strconv.ParseInt(before, 10, 64); err == nil {
			beforeID = &id
		}
	}

	messages, err := h.store.GetRoomMessages(roomID, limit, beforeID)
	if err != nil {
		h.log.Error("room history", zap.Int64("room", roomID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get messages"})
		return
	}

	ids := make([]int64, len(messages))
	for i := range messages {
		ids[i] = messages[i].ID
	}
	likes, err := h.store.LikeCounts(ids)
	if err != nil {
		h.log.Warn("like counts", zap.Int64("room", roomID), zap.Error(err))
	}

	page := dto.MessagesPage{
		Messages: make([]dto.MessageResponse, len(messages)),
		HasMore:  len(messages) == limit,
	}
	for i := range messages {
		page.Messages[i] = dto.FromModel(&messages[i])
		page.Messages[i].TotalLikes = likes[messages[i].ID]
	}

	c.JSON(http.StatusOK, page)
}

func roomParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid room id"})
		return 0, false
	}
	return id, true
}
