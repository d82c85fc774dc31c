package models

import "time"

type Room struct {
	ID           int64  `gorm:"primaryKey;autoIncrement"`
	Name         string `gorm:"not null"`
	Description  string
	CreatedBy    string `gorm:"type:varchar(128)"`
	AdminOnly    bool   `gorm:"default:false"`
	CreatedAt    time.Time
	LastActivity time.Time

	// Связи
	Messages []Message `gorm:"foreignKey:RoomID"`
}
