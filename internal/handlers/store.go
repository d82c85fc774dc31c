package handlers

import (
	"time"

	"github.com/thereayou/bolcha/internal/models"
)

// Store всё, что хендлерам нужно от базы; *database.Database его реализует
type Store interface {
	GetUser(id string) (*models.User, error)
	SaveUser(user *models.User) error
	UpdateLastSeen(id string) error
	UpdatePreferredLanguage(id, lang string) error

	GetRoom(id int64) (*models.Room, error)
	ListRooms() ([]models.Room, error)
	TouchRoom(id int64, at time.Time) error

	SaveMessage(message *models.Message) error
	GetMessage(id int64) (*models.Message, error)
	DeleteMessage(id int64) error
	GetRoomMessages(roomID int64, limit int, beforeID *int64) ([]models.Message, error)

	ToggleLike(messageID int64, userID string) (bool, int64, error)
	LikedMessageIDs(userID string) ([]int64, error)
	LikeCounts(messageIDs []int64) (map[int64]int64, error)
}
