package database

import (
	"time"

	"github.com/pkg/errors"

	"github.com/thereayou/bolcha/internal/models"
)

func (d *Database) CreateRoom(room *models.Room) error {
	if err := d.db.Create(room).Error; err != nil {
		return errors.Wrap(err, "create room")
	}
	return nil
}

func (d *Database) GetRoom(id int64) (*models.Room, error) {
	var room models.Room
	if err := d.db.First(&room, "id = ?", id).Error; err != nil {
		return nil, errors.Wrapf(err, "get room %d", id)
	}
	return &room, nil
}

// ListRooms комнаты по последней активности
func (d *Database) ListRooms() ([]models.Room, error) {
	var rooms []models.Room
	if err := d.db.Order("last_activity DESC, id").Find(&rooms).Error; err != nil {
		return nil, errors.Wrap(err, "list rooms")
	}
	return rooms, nil
}

func (d *Database) TouchRoom(id int64, at time.Time) error {
	return d.db.Model(&models.Room{}).Where("id = ?", id).Update("last_activity", at).Error
}
