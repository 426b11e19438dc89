package config

import (
	"errors"
	"time"

	"github.com/hireloop/interviewroom/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// InitPostgres opens the session store. TranslateError maps unique
// violations to gorm.ErrDuplicatedKey for the repositories.
func InitPostgres(s *Settings) (*gorm.DB, error) {
	if s.PostgresURI == "" {
		return nil, errors.New("POSTGRES_URI is not set")
	}
	db, err := gorm.Open(postgres.Open(s.PostgresURI), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	// Connection Pooling settings
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)

	if s.AutoMigrate {
		if err := db.AutoMigrate(models.AllModels()...); err != nil {
			return nil, err
		}
	}
	return db, nil
}
