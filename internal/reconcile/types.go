package reconcile

import (
	"time"

	"github.com/pkg/errors"
)

// TieWindow сообщения ближе этого интервала упорядочиваются с учётом перевода
const TieWindow = time.Second

var ErrHistoryFetch = errors.New("history fetch failed")

type Reply struct {
	ID         int64
	Text       string
	SenderName string
}

type Message struct {
	ID                    int64
	RoomID                int64
	SenderID              string
	SenderName            string
	SenderProfileImageURL string
	OriginalText          string
	OriginalLanguage      string
	ReplyTo               *Reply
	Mentions              []string
	Timestamp             time.Time
}

type LikeState struct {
	TotalLikes int
	UserLiked  bool
}

type State int

const (
	Empty State = iota
	Loading
	Synced
)

func (s State) String() string {
	switch s {
	case Loading:
		return "loading"
	case Synced:
		return "synced"
	default:
		return "empty"
	}
}

type EventType string

const (
	MessageCreated EventType = "message_created"
	MessageDeleted EventType = "message_deleted"
	LikeUpdated    EventType = "like_updated"
)

// Event живое событие комнаты. Для like_updated UserLiked == nil
// означает, что лайкнул кто-то другой и собственная отметка не меняется.
type Event struct {
	Type       EventType
	RoomID     int64
	Message    Message
	MessageID  int64
	TotalLikes int
	UserLiked  *bool
}

// TranslationLookup сообщает, есть ли у сообщения готовый перевод
type TranslationLookup func(id int64) bool
