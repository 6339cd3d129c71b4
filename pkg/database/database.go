package database

import (
	"fmt"
	"log"
	"os"
	"time"

	"dabble-backend/pkg/config"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

// NewConnection opens the database named by cfg.DatabaseDriver.
func NewConnection(cfg *config.Config) (*gorm.DB, error) {
	level := gormLogger.Warn
	if cfg.IsProduction() {
		level = gormLogger.Error
	}
	gormLog := gormLogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormLogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  level,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	return Open(cfg.DatabaseDriver, cfg.DatabaseDSN, &gorm.Config{
		Logger:         gormLog,
		TranslateError: true,
	})
}

// Open is the driver switch shared by the service and tests.
func Open(driver, dsn string, gormCfg *gorm.Config) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case "postgres", "":
		dialector = postgres.Open(dsn)
	case "sqlite":
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := gorm.Open(dialector, gormCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", driver, err)
	}

	if driver == "sqlite" {
		// A single connection keeps in-memory databases shared and serialises writers.
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}
	return db, nil
}
