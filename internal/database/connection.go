package database

import (
	"github.com/pkg/errors"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/thereayou/bolcha/internal/models"
)

func (d *Database) Connect(dsn string) error {
	if dsn == "" {
		return errors.New("DATABASE_URL is not set")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return errors.Wrap(err, "open postgres")
	}

	err = db.AutoMigrate(&models.User{}, &models.Room{}, &models.Message{}, &models.MessageLike{})
	if err != nil {
		return errors.Wrap(err, "migrate")
	}

	d.db = db

	return nil
}
