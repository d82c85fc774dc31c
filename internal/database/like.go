package database

import (
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/thereayou/bolcha/internal/models"
)

// ToggleLike ставит или снимает лайк и возвращает новое состояние
func (d *Database) ToggleLike(messageID int64, userID string) (liked bool, total int64, err error) {
	err = d.db.Transaction(func(tx *gorm.DB) error {
		var existing models.MessageLike
		res := tx.Where("message_id = ? AND user_id = ?", messageID, userID).Limit(1).Find(&existing)
		if res.Error != nil {
			return res.Error
		}

		if res.RowsAffected > 0 {
			if err := tx.Delete(&existing).Error; err != nil {
				return err
			}
			liked = false
		} else {
			if err := tx.Create(&models.MessageLike{MessageID: messageID, UserID: userID}).Error; err != nil {
				return err
			}
			liked = true
		}

		return tx.Model(&models.MessageLike{}).Where("message_id = ?", messageID).Count(&total).Error
	})
	if err != nil {
		return false, 0, errors.Wrapf(err, "toggle like on %d", messageID)
	}
	return liked, total, nil
}

// LikedMessageIDs id сообщений, которые лайкнул пользователь
func (d *Database) LikedMessageIDs(userID string) ([]int64, error) {
	var ids []int64
	err := d.db.Model(&models.MessageLike{}).
		Where("user_id = ?", userID).
		Order("message_id").
		Pluck("message_id", &ids).Error
	if err != nil {
		return nil, errors.Wrap(err, "liked messages")
	}
	return ids, nil
}

// LikeCounts счётчики лайков для набора сообщений
func (d *Database) LikeCounts(messageIDs []int64) (map[int64]int64, error) {
	out := make(map[int64]int64, len(messageIDs))
	if len(messageIDs) == 0 {
		return out, nil
	}

	var rows []struct {
		MessageID int64
		Total     int64
	}
	err := d.db.Model(&models.MessageLike{}).
		Select("message_id, count(*) as total").
		Where("message_id IN ?", messageIDs).
		Group("message_id").
		Scan(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "like counts")
	}

	for _, r := range rows {
		out[r.MessageID] = r.Total
	}
	return out, nil
}
