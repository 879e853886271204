package repository

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/mixshift/sqp-importer/internal/config"
	"github.com/mixshift/sqp-importer/internal/domain"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// openTenantDB opens the database connection for one tenant and runs
// migrations when enabled. Each tenant owns its own handle; handles are
// never shared across tenants.
func openTenantDB(tenant *config.TenantConfig, shared *config.DatabaseConfig) (*gorm.DB, error) {
	gormConfig := &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	}

	var db *gorm.DB
	var err error

	switch tenant.Driver {
	case "postgres":
		// PreferSimpleProtocol keeps the connection compatible with
		// transaction poolers, which break implicit prepared statements.
		db, err = gorm.Open(postgres.New(postgres.Config{
			DSN:                  tenant.DSN,
			PreferSimpleProtocol: true,
		}), gormConfig)
	case "sqlite", "":
		if dir := filepath.Dir(tenant.DSN); dir != "" && dir != "." {
			if mkErr := os.MkdirAll(dir, 0o755); mkErr != nil {
				return nil, fmt.Errorf("create database directory: %w", mkErr)
			}
		}
		db, err = gorm.Open(sqlite.Open(tenant.DSN), gormConfig)
		if err == nil {
			db.Exec("PRAGMA journal_mode=WAL")
			db.Exec("PRAGMA foreign_keys=ON")
		}
	default:
		return nil, fmt.Errorf("unknown database driver %q for tenant %s", tenant.Driver, tenant.ID)
	}
	if err != nil {
		return nil, fmt.Errorf("connect tenant %s: %w", tenant.ID, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB instance: %w", err)
	}
	sqlDB.SetMaxIdleConns(shared.MaxIdleConns)
	sqlDB.SetMaxOpenConns(shared.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(shared.ConnMaxLifetime)

	if shared.AutoMigrate {
		if err := db.AutoMigrate(
			&domain.Seller{},
			&domain.PullJob{},
			&domain.ActivityLogEntry{},
			&domain.EligibilityRecord{},
			&domain.DownloadRecord{},
			&domain.SQPMetric{},
		); err != nil {
			return nil, fmt.Errorf("failed to migrate tenant %s: %w", tenant.ID, err)
		}
	}

	return db, nil
}
