package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/thereayou/bolcha/internal/database"
	"github.com/thereayou/bolcha/internal/handlers/dto"
	"github.com/thereayou/bolcha/internal/langdetect"
	"github.com/thereayou/bolcha/internal/middleware"
)

type UserHandler struct {
	store Store
}

func NewUserHandler(store Store) *UserHandler {
	return &UserHandler{store: store}
}

func (h *UserHandler) GetMe(c *gin.Context) {
	user, err := h.store.GetUser(c.GetString(middleware.UserIDKey))
	if err != nil {
		if database.IsNotFound(err) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get user"})
		return
	}
	c.JSON(http.StatusOK, dto.UserFromModel(user))
}

// GetMyLikes нужен клиенту для initializeLikes после загрузки истории
func (h *UserHandler) GetMyLikes(c *gin.Context) {
	ids, err := h.store.LikedMessageIDs(c.GetString(middleware.UserIDKey))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get likes"})
		return
	}
	if ids == nil {
		ids = []int64{}
	}
	c.JSON(http.StatusOK, dto.LikedMessages{LikedMessageIDs: ids})
}

func (h *UserHandler) UpdateLanguage(c *gin.Context) {
	var req dto.LanguageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !supported(req.Language) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported language"})
		return
	}

	if err := h.store.UpdatePreferredLanguage(c.GetString(middleware.UserIDKey), req.Language); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update language"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"preferred_language": req.Language})
}

func supported(lang string) bool {
	for _, l := range langdetect.Languages() {
		if l == lang {
			return true
		}
	}
	return false
}
