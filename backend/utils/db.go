package utils

import (
	"fmt"

	"edutest/backend/config"
	"edutest/backend/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// InitDB opens the postgres connection and migrates the schema. Error
// translation is enabled so unique-index violations surface as
// gorm.ErrDuplicatedKey instead of driver-specific errors.
func InitDB(cfg *config.Config) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, err
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate applies the schema for every engine model.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Course{},
		&models.Test{},
		&models.Question{},
		&models.AnswerOption{},
		&models.TestAttempt{},
		&models.AttemptAnswer{},
		&models.Certificate{},
	)
}
