package database

import (
	"fmt"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/stitchlink/stitchlink-backend/internal/config"
)

// Connect opens the database for the configured driver. Postgres in
// production (optionally over a Cloud SQL unix socket), pure-Go SQLite for
// local runs.
func Connect(cfg *config.Config) (*gorm.DB, error) {
	gormCfg := &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	}

	switch cfg.DBDriver {
	case "sqlite":
		db, err := gorm.Open(sqlite.Open(cfg.SQLitePath), gormCfg)
		if err != nil {
			return nil, fmt.Errorf("open sqlite %s: %w", cfg.SQLitePath, err)
		}
		return db, nil

	case "postgres":
		var dsn string
		if cfg.InstanceConnectionName != "" {
			// Cloud Run: connect via unix socket.
			dsn = fmt.Sprintf("host=/cloudsql/%s user=%s password=%s dbname=%s sslmode=disable",
				cfg.InstanceConnectionName, cfg.DBUser, cfg.DBPass, cfg.DBName)
		} else {
			dsn = fmt.Sprintf("host=localhost user=%s password=%s dbname=%s port=5432 sslmode=disable",
				cfg.DBUser, cfg.DBPass, cfg.DBName)
		}
		db, err := gorm.Open(postgres.Open(dsn), gormCfg)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		return db, nil

	default:
		return nil, fmt.Errorf("unknown db driver %q", cfg.DBDriver)
	}
}
