package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/thereayou/bolcha/internal/database"
	"github.com/thereayou/bolcha/internal/middleware"
	"github.com/thereayou/bolcha/internal/models"
	ws "github.com/thereayou/bolcha/internal/websocket"
	"github.com/thereayou/bolcha/pkg/logger"
)

// WebSocketHandler управляет WebSocket соединениями
type WebSocketHandler struct {
	hub            *ws.Hub
	store          Store
	messageHandler *MessageHandler
	upgrader       websocket.Upgrader
	log            *zap.Logger
}

// NewWebSocketHandler создает новый WebSocket handler
func NewWebSocketHandler(hub *ws.Hub, store Store, messageHandler *MessageHandler, log *zap.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		hub:            hub,
		store:          store,
		messageHandler: messageHandler,
		log:            logger.OrNop(log).Named("ws"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				// TODO: Проверить origin в prod
				return true
			},
		},
	}
}

// HandleWebSocket обрабатывает WebSocket соединения
func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	userID := c.GetString(middleware.UserIDKey)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	identity, err := h.identity(userID, c.GetString(middleware.DisplayNameKey))
	if err != nil {
		h.log.Error("load user", zap.String("user", userID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load user"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Debug("upgrade failed", zap.Error(err))
		return
	}

	client := ws.NewClient(h.hub, conn, identity)

	h.hub.Register(client)

	go client.WritePump()
	go client.ReadPump(h.messageHandler)
}

// identity берёт профиль из базы; при первом входе создаёт его из токена
func (h *WebSocketHandler) identity(userID, tokenName string) (ws.Identity, error) {
	user, err := h.store.GetUser(userID)
	if err == nil {
		return ws.Identity{UserID: user.ID, DisplayName: user.DisplayName, IsAdmin: user.IsAdmin}, nil
	}
	if !database.IsNotFound(err) {
		return ws.Identity{}, err
	}

	name := tokenName
	if name == "" {
		name = userID
	}
	user = &models.User{ID: userID, DisplayName: name, PreferredLanguage: "ja"}
	if err := h.store.SaveUser(user); err != nil {
		return ws.Identity{}, err
	}
	return ws.Identity{UserID: user.ID, DisplayName: user.DisplayName}, nil
}
