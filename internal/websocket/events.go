package websocket

import (
	"encoding/json"
	"time"

	"github.com/pkg/errors"
)

// MessageType определяет типы сообщений
type MessageType string

const (
	// Системные типы
	TypePing  MessageType = "ping"
	TypePong  MessageType = "pong"
	TypeError MessageType = "error"

	// От клиента
	TypeRoomJoin      MessageType = "room_join"
	TypeRoomLeave     MessageType = "room_leave"
	TypeMessageSend   MessageType = "message_send"
	TypeMessageDelete MessageType = "message_delete"
	TypeLikeToggle    MessageType = "like_toggle"

	// От сервера
	TypeMessageCreated     MessageType = "message_created"
	TypeMessageDeleted     MessageType = "message_deleted"
	TypeLikeUpdated        MessageType = "like_updated"
	TypeOnlineCountUpdated MessageType = "online_count_updated"
)

type RoomID = int64

// Envelope общий конверт для обоих направлений
type Envelope struct {
	Type      MessageType     `json:"type"`
	RoomID    *RoomID         `json:"room_id,omitempty"`
	UserID    string          `json:"user_id,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

func NewEnvelope(t MessageType, roomID *RoomID, data interface{}) (*Envelope, error) {
	env := &Envelope{
		Type:      t,
		RoomID:    roomID,
		Timestamp: time.Now(),
	}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return nil, errors.Wrapf(err, "encode %s payload", t)
		}
		env.Data = raw
	}
	return env, nil
}

func (e *Envelope) Encode() ([]byte, error) {
	return json.Marshal(e)
}

// Decode разбирает Data в out
func (e *Envelope) Decode(out interface{}) error {
	if len(e.Data) == 0 {
		return ErrInvalidMessage
	}
	if err := json.Unmarshal(e.Data, out); err != nil {
		return errors.Wrap(ErrInvalidMessage, err.Error())
	}
	return nil
}

// OnlineCount полезная нагрузка online_count_updated
type OnlineCount struct {
	RoomID      RoomID    `json:"room_id"`
	OnlineCount int       `json:"online_count"`
	Timestamp   time.Time `json:"timestamp"`
}

// RoomRef комната, о которой идёт речь
func RoomRef(id RoomID) *RoomID {
	return &id
}
