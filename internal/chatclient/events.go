package chatclient

import (
	"github.com/thereayou/bolcha/internal/handlers/dto"
	"github.com/thereayou/bolcha/internal/reconcile"
	"github.com/thereayou/bolcha/internal/websocket"
)

// DecodeEvent переводит серверный конверт в событие ленты.
// ok == false для типов, которые к ленте не относятся.
func DecodeEvent(env *websocket.Envelope, selfID string) (ev reconcile.Event, ok bool, err error) {
	switch env.Type {
	case websocket.TypeMessageCreated:
		var m dto.MessageResponse
		if err := env.Decode(&m); err != nil {
			return ev, false, err
		}
		return reconcile.Event{Type: reconcile.MessageCreated, RoomID: m.RoomID, Message: messageFromDTO(m)}, true, nil

	case websocket.TypeMessageDeleted:
		var p dto.MessageDeletedPayload
		if err := env.Decode(&p); err != nil {
			return ev, false, err
		}
		return reconcile.Event{Type: reconcile.MessageDeleted, RoomID: p.RoomID, MessageID: p.MessageID}, true, nil

	case websocket.TypeLikeUpdated:
		var p dto.LikeUpdatedPayload
		if err := env.Decode(&p); err != nil {
			return ev, false, err
		}
		ev = reconcile.Event{Type: reconcile.LikeUpdated, RoomID: p.RoomID, MessageID: p.MessageID, TotalLikes: int(p.TotalLikes)}
		// чужой лайк не трогает собственную отметку
		if p.UserID == selfID {
			liked := p.Liked
			ev.UserLiked = &liked
		}
		return ev, true, nil
	}
	return ev, false, nil
}

func messageFromDTO(m dto.MessageResponse) reconcile.Message {
	out := reconcile.Message{
		ID:                    m.ID,
		RoomID:                m.RoomID,
		SenderID:              m.SenderID,
		SenderName:            m.SenderName,
		SenderProfileImageURL: m.SenderProfileImageURL,
		OriginalText:          m.OriginalText,
		OriginalLanguage:      m.OriginalLanguage,
		Mentions:              m.Mentions,
		Timestamp:             m.Timestamp,
	}
	if m.ReplyTo != nil {
		out.ReplyTo = &reconcile.Reply{ID: m.ReplyTo.ID, Text: m.ReplyTo.Text, SenderName: m.ReplyTo.SenderName}
	}
	return out
}
