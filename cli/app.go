package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/camden-git/peoplegraph/config"
	"github.com/camden-git/peoplegraph/database"
	"github.com/camden-git/peoplegraph/logging"
	"github.com/camden-git/peoplegraph/repository"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// app holds what every command needs: configuration, a logger and an open store
type app struct {
	cfg   config.Config
	log   *zap.Logger
	db    *gorm.DB
	store *repository.Store
}

func bootstrap() (*app, error) {
	envErr := godotenv.Load()

	log, err := logging.New(os.Getenv("APP_ENV"))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	if envErr != nil {
		log.Debug("no .env file loaded", zap.Error(envErr))
	}

	cfg, err := config.LoadConfig(log)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if dir := filepath.Dir(cfg.DatabasePath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory %s: %w", dir, err)
		}
	}

	db, err := database.InitGormDB(cfg.DatabasePath, log)
	if err != nil {
		return nil, err
	}
	if err := database.AutoMigrateModels(db); err != nil {
		return nil, err
	}

	return &app{cfg: cfg, log: log, db: db, store: repository.NewStore(db)}, nil
}

func (a *app) Close() {
	if sqlDB, err := a.db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			a.log.Warn("failed to close database", zap.Error(err))
		}
	}
	logging.Sync(a.log)
}
