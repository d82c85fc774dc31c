package handlers

import (
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/thereayou/bolcha/internal/database"
	"github.com/thereayou/bolcha/internal/handlers/dto"
	"github.com/thereayou/bolcha/internal/langdetect"
	"github.com/thereayou/bolcha/internal/models"
	"github.com/thereayou/bolcha/internal/websocket"
	"github.com/thereayou/bolcha/pkg/logger"
)

var ErrMessageNotFound = errors.New("message not found")

// MessageHandler обрабатывает действия над сообщениями, пришедшие по WebSocket
type MessageHandler struct {
	store        Store
	hub          *websocket.Hub
	log          *zap.Logger
	fallbackLang string
	now          func() time.Time
}

func NewMessageHandler(store Store, hub *websocket.Hub, log *zap.Logger) *MessageHandler {
	return &MessageHandler{
		store:        store,
		hub:          hub,
		log:          logger.OrNop(log).Named("messages"),
		fallbackLang: langdetect.DefaultLanguage,
		now:          time.Now,
	}
}

func (h *MessageHandler) HandleMessage(client *websocket.Client, msg *websocket.Envelope) error {
	switch msg.Type {
	case websocket.TypeMessageSend:
		return h.handleSend(client, msg)

	case websocket.TypeMessageDelete:
		return h.handleDelete(client, msg)

	case websocket.TypeLikeToggle:
		return h.handleLikeToggle(client, msg)

	default:
		h.log.Debug("unknown message type", zap.String("type", string(msg.Type)))
		return nil
	}
}

func (h *MessageHandler) handleSend(client *websocket.Client, msg *websocket.Envelope) error {
	roomID, ok := client.Room()
	if !ok || (msg.RoomID != nil && *msg.RoomID != roomID) {
		return websocket.ErrUserNotInRoom
	}

	room, err := h.store.GetRoom(roomID)
	if err != nil {
		if database.IsNotFound(err) {
			return websocket.ErrRoomNotFound
		}
		return err
	}
	if room.AdminOnly && !client.Identity.IsAdmin {
		return websocket.ErrAdminOnly
	}

	var payload dto.MessagePayload
	if err := msg.Decode(&payload); err != nil {
		return err
	}
	if strings.TrimSpace(payload.Text) == "" {
		return websocket.ErrInvalidMessage
	}

	lang := payload.Language
	if lang == "" {
		lang = langdetect.Detect(payload.Text, h.fallbackLang)
	}

	message := &models.Message{
		RoomID:           roomID,
		SenderID:         client.Identity.UserID,
		SenderName:       client.Identity.DisplayName,
		OriginalText:     payload.Text,
		OriginalLanguage: lang,
		Mentions:         payload.Mentions,
		Timestamp:        h.now(),
	}

	if user, err := h.store.GetUser(client.Identity.UserID); err == nil {
		message.SenderProfileImageURL = user.ProfileImageURL
	}

	if payload.ReplyToID != nil {
		parent, err := h.store.GetMessage(*payload.ReplyToID)
		if err != nil || parent.RoomID != roomID {
			return errors.Wrap(ErrMessageNotFound, "reply target")
		}
		message.ReplyToID = &parent.ID
		message.ReplyToText = &parent.OriginalText
		message.ReplyToSenderName = &parent.SenderName
	}

	if err := h.store.SaveMessage(message); err != nil {
		h.log.Error("failed to save message", zap.Int64("room", roomID), zap.Error(err))
		return err
	}
	if err := h.store.TouchRoom(roomID, message.Timestamp); err != nil {
		h.log.Warn("failed to update room activity", zap.Int64("room", roomID), zap.Error(err))
	}

	env, err := websocket.NewEnvelope(websocket.TypeMessageCreated, websocket.RoomRef(roomID), dto.FromModel(message))
	if err != nil {
		return err
	}
	env.UserID = client.Identity.UserID
	h.hub.Broadcast(roomID, env)

	go h.store.UpdateLastSeen(client.Identity.UserID)

	return nil
}

func (h *MessageHandler) handleDelete(client *websocket.Client, msg *websocket.Envelope) error {
	var payload dto.MessageRef
	if err := msg.Decode(&payload); err != nil {
		return err
	}

	message, err := h.store.GetMessage(payload.MessageID)
	if err != nil {
		if database.IsNotFound(err) {
			return ErrMessageNotFound
		}
		return err
	}

	// Удалять может автор или админ
	if message.SenderID != client.Identity.UserID && !client.Identity.IsAdmin {
		return websocket.ErrUnauthorized
	}

	if err := h.store.DeleteMessage(message.ID); err != nil {
		return err
	}

	env, err := websocket.NewEnvelope(websocket.TypeMessageDeleted, websocket.RoomRef(message.RoomID), dto.MessageDeletedPayload{
		MessageID: message.ID,
		RoomID:    message.RoomID,
	})
	if err != nil {
		return err
	}
	env.UserID = client.Identity.UserID
	h.hub.Broadcast(message.RoomID, env)

	return nil
}

func (h *MessageHandler) handleLikeToggle(client *websocket.Client, msg *websocket.Envelope) error {
	var payload dto.MessageRef
	if err := msg.Decode(&payload); err != nil {
		return err
	}

	message, err := h.store.GetMessage(payload.MessageID)
	if err != nil {
		if database.IsNotFound(err) {
			return ErrMessageNotFound
		}
		return err
	}

	liked, total, err := h.store.ToggleLike(message.ID, client.Identity.UserID)
	if err != nil {
		return err
	}

	env, err := websocket.NewEnvelope(websocket.TypeLikeUpdated, websocket.RoomRef(message.RoomID), dto.LikeUpdatedPayload{
		MessageID:  message.ID,
		RoomID:     message.RoomID,
		TotalLikes: total,
		UserID:     client.Identity.UserID,
		Liked:      liked,
	})
	if err != nil {
		return err
	}
	env.UserID = client.Identity.UserID
	h.hub.Broadcast(message.RoomID, env)

	return nil
}
