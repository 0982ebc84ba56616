package database

import (
	"fmt"
	"strings"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/kholst-labs/kholst/backend/internal/canvas"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// startupRetryDelay is the fixed wait before the single open retry when the
// database is not yet reachable at boot.
const startupRetryDelay = 5 * time.Second

// Open connects to the database selected by the DSN, performs schema
// migrations and returns the handle. A Postgres-shaped DSN selects the
// Postgres driver; anything else is treated as a SQLite file path.
func Open(dsn string, logger *zap.Logger) (*gorm.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("database dsn is required")
	}

	db, err := gorm.Open(dialectorFor(dsn), &gorm.Config{})
	if err != nil {
		if logger != nil {
			logger.Warn("database open failed, retrying once",
				zap.Duration("delay", startupRetryDelay), zap.Error(err))
		}
		time.Sleep(startupRetryDelay)
		db, err = gorm.Open(dialectorFor(dsn), &gorm.Config{})
		if err != nil {
			return nil, err
		}
	}

	if !isPostgresDSN(dsn) {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}

	if err := Migrate(db, logger); err != nil {
		return nil, err
	}

	if logger != nil {
		logger.Info("database initialized", zap.String("dsn", dsn))
	}

	return db, nil
}

// Migrate brings the schema up to date: legacy renames first, then the
// declarative table definitions, then recorded post-schema migrations.
func Migrate(db *gorm.DB, logger *zap.Logger) error {
	if err := db.AutoMigrate(&migrationRecord{}); err != nil {
		return err
	}
	if err := applyMigrations(db, logger, schemaMigrations()); err != nil {
		return err
	}
	if err := db.AutoMigrate(canvas.Models()...); err != nil {
		return err
	}
	return applyMigrations(db, logger, postSchemaMigrations())
}

func dialectorFor(dsn string) gorm.Dialector {
	if isPostgresDSN(dsn) {
		return postgres.Open(dsn)
	}
	return sqlite.Open(dsn)
}

func isPostgresDSN(dsn string) bool {
	return strings.HasPrefix(dsn, "postgres://") ||
		strings.HasPrefix(dsn, "postgresql://") ||
		strings.Contains(dsn, "host=")
}
