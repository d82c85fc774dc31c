package models

import "time"

type Message struct {
	ID                    int64  `gorm:"primaryKey;autoIncrement"`
	RoomID                int64  `gorm:"not null;index:idx_messages_room_time"`
	SenderID              string `gorm:"type:varchar(128);not null"`
	SenderName            string `gorm:"not null"`
	SenderProfileImageURL string
	OriginalText          string `gorm:"not null"`
	OriginalLanguage      string `gorm:"type:varchar(16);default:'auto'"`

	ReplyToID         *int64
	ReplyToText       *string
	ReplyToSenderName *string

	Mentions  []string  `gorm:"serializer:json"`
	Timestamp time.Time `gorm:"not null;index:idx_messages_room_time"`
}

// MessageLike один лайк пользователя на сообщение
type MessageLike struct {
	ID        int64  `gorm:"primaryKey;autoIncrement"`
	MessageID int64  `gorm:"not null;uniqueIndex:idx_like_message_user"`
	UserID    string `gorm:"type:varchar(128);not null;uniqueIndex:idx_like_message_user"`
	CreatedAt time.Time
}
