package datastore

import (
	"log"
	"log/slog"
	"os"
	"time"

	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// DefaultSlowQueryThreshold defines the duration after which a query is
// considered slow and logged at warn level.
const DefaultSlowQueryThreshold = 1 * time.Second

// createGormLogger configures and returns a new GORM logger instance.
func createGormLogger() gormlogger.Interface {
	return gormlogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormlogger.Config{
			SlowThreshold:             DefaultSlowQueryThreshold,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		},
	)
}

// performAutoMigration automates database migrations with error handling.
func performAutoMigration(db *gorm.DB, debug bool, dbType, connectionInfo string) error {
	migrationStart := time.Now()

	if err := db.AutoMigrate(&Garment{}, &ImageBlob{}); err != nil {
		return err
	}

	if debug {
		slog.Debug("database migration completed",
			"db_type", dbType,
			"connection", connectionInfo,
			"duration_ms", time.Since(migrationStart).Milliseconds())
	}
	return nil
}
