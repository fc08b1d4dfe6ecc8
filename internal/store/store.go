// Package store ships the sqlite-backed implementations of the collaborator
// interfaces the pipeline consumes.
package store

import (
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Store implements the collab interfaces over a single gorm connection.
type Store struct {
	db *gorm.DB
}

// Open connects to the sqlite database at path and migrates the schema.
func Open(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("opening database %s: %w", path, err)
	}

	if err := db.AutoMigrate(
		&dataSourceRow{},
		&readingRow{},
		&stateRecordRow{},
		&alarmRuleRow{},
		&alarmRow{},
		&maintenancePlanRow{},
		&auditEntryRow{},
		&workOrderRow{},
		&workOrderTaskRow{},
		&assetSectorRow{},
		&sectorUserRow{},
	); err != nil {
		return nil, fmt.Errorf("migrating schema: %w", err)
	}

	return &Store{db: db}, nil
}

// DB exposes the underlying connection for the surrounding CRUD modules.
func (s *Store) DB() *gorm.DB {
	return s.db
}
