package dto

import (
	"time"

	"github.com/thereayou/bolcha/internal/models"
)

type UserResponse struct {
	ID                string    `json:"id"`
	DisplayName       string    `json:"display_name"`
	ProfileImageURL   string    `json:"profile_image_url,omitempty"`
	PreferredLanguage string    `json:"preferred_language"`
	IsAdmin           bool      `json:"is_admin"`
	LastSeenAt        time.Time `json:"last_seen_at"`
}

func UserFromModel(u *models.User) UserResponse {
	return UserResponse{
		ID:                u.ID,
		DisplayName:       u.DisplayName,
		ProfileImageURL:   u.ProfileImageURL,
		PreferredLanguage: u.PreferredLanguage,
		IsAdmin:           u.IsAdmin,
		LastSeenAt:        u.LastSeenAt,
	}
}

type LanguageRequest struct {
	Language string `json:"language" binding:"required"`
}

type LikedMessages struct {
	LikedMessageIDs []int64 `json:"liked_message_ids"`
}

type RoomResponse struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description,omitempty"`
	AdminOnly    bool      `json:"admin_only"`
	OnlineCount  int       `json:"online_count"`
	LastActivity time.Time `json:"last_activity"`
}
