// Package sqlstore implements the store contracts on top of GORM. The same
// code serves both relational backends: SQLite through the pure-Go glebarez
// driver (dev and tests) and Postgres (production). This file contains
// database bootstrapping helpers, schema migration, and driver-error
// translation onto the store sentinels.
package sqlstore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/plugin/opentelemetry/tracing"

	"github.com/devports/go-lending-backend/internal/domain"
	"github.com/devports/go-lending-backend/internal/store"
)

// deviceIDCounter backs the per-OS-family sequential display IDs.
// One row per prefix ("A" for Android, "I" for iOS); Value holds the last
// issued number.
type deviceIDCounter struct {
	Prefix    string `gorm:"type:char(1);primaryKey"`
	Value     int64  `gorm:"not null"`
	OSName    string `gorm:"column:os_name;type:varchar(100)"`
	UpdatedAt time.Time
}

func (deviceIDCounter) TableName() string { return "device_id_counters" }

// OpenSQLite opens (or creates) a SQLite database and applies PRAGMAs.
func OpenSQLite(path string) (*gorm.DB, error) {
	// Fail early if the parent directory does not exist (instead of the
	// opaque sqlite "out of memory (14)" some platforms report).
	if dir := filepath.Dir(path); dir != "." && !strings.HasPrefix(path, "file:") {
		if _, err := os.Stat(dir); err != nil {
			return nil, fmt.Errorf("%w: %v", store.ErrUnavailable, err)
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}

	// PRAGMAs
	db.Exec("PRAGMA journal_mode=WAL;")
	db.Exec("PRAGMA synchronous=NORMAL;")
	db.Exec("PRAGMA foreign_keys=ON;")
	db.Exec("PRAGMA busy_timeout=5000;")

	tunePool(db)
	return db, nil
}

// OpenPostgres connects to Postgres with the given DSN.
func OpenPostgres(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		// Surface unique violations as gorm.ErrDuplicatedKey.
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}
	tunePool(db)
	return db, nil
}

// tunePool applies conservative connection-pool limits.
func tunePool(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(10)
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetConnMaxIdleTime(5 * time.Minute)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
	}
}

// EnableTracing attaches the OpenTelemetry GORM plugin so every query shows
// up as a span under the active trace.
func EnableTracing(db *gorm.DB) error {
	return db.Use(tracing.NewPlugin(tracing.WithoutMetrics()))
}

// AutoMigrate creates or updates the schema for all lending tables.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.Device{},
		&domain.RentalHistoryRecord{},
		&deviceIDCounter{},
	)
}

// New bundles GORM-backed device and history stores over one handle.
func New(db *gorm.DB) store.Stores {
	return store.Stores{
		Devices: NewDeviceStore(db),
		History: NewHistoryStore(db),
		Close: func() error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		},
	}
}

// translate maps GORM/driver errors onto the store sentinels. Unexpected
// errors pass through untouched.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return store.ErrNotFound
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) || isDuplicate(err) {
		return store.ErrConflict
	}
	return err
}

// isDuplicate detects unique-constraint violations on drivers that do not
// map them to gorm.ErrDuplicatedKey.
func isDuplicate(err error) bool {
	// SQLite: "UNIQUE constraint failed"
	// Postgres: "duplicate key value violates unique constraint"
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate key")
}
