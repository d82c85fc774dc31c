package database

import (
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm/clause"

	"github.com/thereayou/bolcha/internal/models"
)

// SaveUser создаёт профиль или обновляет его поля
func (d *Database) SaveUser(user *models.User) error {
	err := d.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"display_name", "email", "profile_image_url"}),
	}).Create(user).Error
	if err != nil {
		return errors.Wrapf(err, "save user %s", user.ID)
	}
	return nil
}

func (d *Database) GetUser(id string) (*models.User, error) {
	user := models.User{}
	if err := d.db.First(&user, "id = ?", id).Error; err != nil {
		return nil, errors.Wrapf(err, "get user %s", id)
	}
	return &user, nil
}

func (d *Database) UpdatePreferredLanguage(id, lang string) error {
	return d.db.Model(&models.User{}).Where("id = ?", id).Update("preferred_language", lang).Error
}

func (d *Database) UpdateLastSeen(id string) error {
	return d.db.Model(&models.User{}).Where("id = ?", id).Update("last_seen_at", time.Now()).Error
}
