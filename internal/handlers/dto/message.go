package dto

import (
	"time"

	"github.com/thereayou/bolcha/internal/models"
)

// MessagePayload структура для входящих сообщений
type MessagePayload struct {
	Text      string   `json:"text"`
	Language  string   `json:"language,omitempty"`
	ReplyToID *int64   `json:"reply_to_id,omitempty"`
	Mentions  []string `json:"mentions,omitempty"`
}

// MessageRef для удаления и лайка
type MessageRef struct {
	MessageID int64 `json:"message_id"`
}

type ReplyInfo struct {
	ID         int64  `json:"id"`
	Text       string `json:"text"`
	SenderName string `json:"sender_name"`
}

// MessageResponse структура для исходящих сообщений
type MessageResponse struct {
	ID                    int64      `json:"id"`
	RoomID                int64      `json:"room_id"`
	SenderID              string     `json:"sender_id"`
	SenderName            string     `json:"sender_name"`
	SenderProfileImageURL string     `json:"sender_profile_image_url,omitempty"`
	OriginalText          string     `json:"original_text"`
	OriginalLanguage      string     `json:"original_language"`
	ReplyTo               *ReplyInfo `json:"reply_to,omitempty"`
	Mentions              []string   `json:"mentions,omitempty"`
	TotalLikes            int64      `json:"total_likes"`
	Timestamp             time.Time  `json:"timestamp"`
}

func FromModel(m *models.Message) MessageResponse {
	r := MessageResponse{
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
	if m.ReplyToID != nil {
		r.ReplyTo = &ReplyInfo{ID: *m.ReplyToID}
		if m.ReplyToText != nil {
			r.ReplyTo.Text = *m.ReplyToText
		}
		if m.ReplyToSenderName != nil {
			r.ReplyTo.SenderName = *m.ReplyToSenderName
		}
	}
	return r
}

type MessageDeletedPayload struct {
	MessageID int64 `json:"message_id"`
	RoomID    int64 `json:"room_id"`
}

// LikeUpdatedPayload Liked относится к пользователю UserID
type LikeUpdatedPayload struct {
	MessageID  int64  `json:"message_id"`
	RoomID     int64  `json:"room_id"`
	TotalLikes int64  `json:"total_likes"`
	UserID     string `json:"user_id"`
	Liked      bool   `json:"liked"`
}

type MessagesPage struct {
	Messages []MessageResponse `json:"messages"`
	HasMore  bool              `json:"has_more"`
}
