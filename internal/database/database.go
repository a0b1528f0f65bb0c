// Package database opens and migrates the on-device SQLite store.
package database

import (
	"fmt"

	"paisa/internal/logger"
	"paisa/internal/models"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// allModels is the list of GORM models owned by the local store.
var allModels = []interface{}{
	&models.Transaction{},
	&models.SyncEntry{},
	&models.SyncCheckpoint{},
}

// Manager handles database operations.
type Manager struct {
	db *gorm.DB
}

// NewManager opens the SQLite database at the given path. The busy timeout
// keeps the background sync worker from failing foreground writes with
// SQLITE_BUSY while both touch the file.
func NewManager(path string) (*Manager, error) {
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", path)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying DB: %w", err)
	}
	// Single-writer store: one connection serializes all access.
	sqlDB.SetMaxOpenConns(1)

	return &Manager{db: db}, nil
}

// Migrate brings the schema up to date.
func (m *Manager) Migrate() error {
	logger.Get().Info("Running local store migrations...")
	if err := m.db.AutoMigrate(allModels...); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	logger.Get().Info("Local store migrations completed")
	return nil
}

// DB returns the underlying GORM database instance.
func (m *Manager) DB() *gorm.DB {
	return m.db
}
