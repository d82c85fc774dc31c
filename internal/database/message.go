package database

import (
	"github.com/pkg/errors"

	"github.com/thereayou/bolcha/internal/models"
)

func (d *Database) SaveMessage(message *models.Message) error {
	if err := d.db.Create(message).Error; err != nil {
		return errors.Wrap(err, "save message")
	}
	return nil
}

func (d *Database) GetMessage(id int64) (*models.Message, error) {
	var message models.Message
	if err := d.db.First(&message, "id = ?", id).Error; err != nil {
		return nil, errors.Wrapf(err, "get message %d", id)
	}
	return &message, nil
}

// DeleteMessage удаляет сообщение вместе с его лайками
func (d *Database) DeleteMessage(id int64) error {
	tx := d.db.Begin()
	if err := tx.Delete(&models.MessageLike{}, "message_id = ?", id).Error; err != nil {
		tx.Rollback()
		return errors.Wrapf(err, "delete likes of message %d", id)
	}
	if err := tx.Delete(&models.Message{}, "id = ?", id).Error; err != nil {
		tx.Rollback()
		return errors.Wrapf(err, "delete message %d", id)
	}
	return tx.Commit().Error
}

// GetRoomMessages получает сообщения комнаты с пагинацией
func (d *Database) GetRoomMessages(roomID int64, limit int, beforeID *int64) ([]models.Message, error) {
	var messages []models.Message

	query := d.db.Where("room_id = ?", roomID)

	// Если указан beforeID, получаем сообщения до него
	if beforeID != nil {
		query = query.Where("id < ?", *beforeID)
	}

	err := query.
		Order("timestamp DESC, id DESC").
		Limit(limit).
		Find(&messages).Error

	if err != nil {
		return nil, errors.Wrapf(err, "room %d messages", roomID)
	}

	// Разворачиваем порядок, чтобы старые сообщения были первыми
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	return messages, nil
}
