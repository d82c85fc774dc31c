package models

import "time"

// User профиль, который ведёт внешний сервис авторизации; ID его subject
type User struct {
	ID                string `gorm:"type:varchar(128);primaryKey"`
	DisplayName       string `gorm:"not null"`
	Email             string `gorm:"index"`
	ProfileImageURL   string
	PreferredLanguage string `gorm:"type:varchar(16);default:'ja'"`
	IsAdmin           bool   `gorm:"default:false"`
	LastSeenAt        time.Time
	CreatedAt         time.Time
}
