package psql

import (
	"context"
	"fakeagent/fakeagent/config"
	"fakeagent/fakeagent/sources/psql/models"
	"fakeagent/fakeagent/utils/logging"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type Database struct {
	DB *gorm.DB
}

func NewDatabase(ctx context.Context, cfg config.Config) (*Database, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		cfg.DBHost,
		cfg.DBPort,
		cfg.DBUser,
		cfg.DBPassword,
		cfg.DBName,
	)

	db, err := gorm.Open(postgres.Open(connStr), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	logging.AppLogger.Info("connected to database",
		zap.String("host", cfg.DBHost),
		zap.String("db", cfg.DBName),
	)
	return Open(ctx, db)
}

// Open migrates the journal schema on an existing connection.
func Open(ctx context.Context, db *gorm.DB) (*Database, error) {
	if err := db.WithContext(ctx).AutoMigrate(&models.RunRecord{}); err != nil {
		return nil, fmt.Errorf("failed to auto-migrate: %w", err)
	}
	return &Database{DB: db}, nil
}

func (db *Database) Close() {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return
	}
	sqlDB.Close()
}
