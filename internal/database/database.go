package database

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mrlokans/animedex/internal/entities"
)

// CurrentSchemaVersion is bumped whenever a migration adds tables or columns.
// Version 1 held users only; version 2 added per-user favourites and audit events.
const CurrentSchemaVersion = 2

type Database struct {
	DB *gorm.DB
}

// NewDatabase opens the store at dbPath, creating it when missing.
// Opening an existing store is idempotent.
func NewDatabase(dbPath string) (*Database, error) {
	return open(dbPath, logger.Warn)
}

// NewQuietDatabase opens the store with SQL logging disabled (CLI and tests).
func NewQuietDatabase(dbPath string) (*Database, error) {
	return open(dbPath, logger.Silent)
}

func open(dbPath string, level logger.LogLevel) (*Database, error) {
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(level),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// AutoMigrate only adds; existing columns and rows are left in place
	err = db.AutoMigrate(
		&entities.SchemaVersion{},
		&entities.User{},
		&entities.Favourite{},
		&entities.AuditEvent{},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	database := &Database{DB: db}

	if err := database.recordSchemaVersion(); err != nil {
		return nil, fmt.Errorf("failed to record schema version: %w", err)
	}

	log.Printf("Database initialized successfully at %s", dbPath)

	return database, nil
}

func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ping checks that the store is reachable.
func (d *Database) Ping() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

// SQLDB returns the underlying connection pool, shared with the session store.
func (d *Database) SQLDB() (*sql.DB, error) {
	return d.DB.DB()
}

// SchemaVersion returns the highest version recorded in the store.
func (d *Database) SchemaVersion() (int, error) {
	var v entities.SchemaVersion
	err := d.DB.Order("version DESC").First(&v).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return v.Version, nil
}

func (d *Database) recordSchemaVersion() error {
	current, err := d.SchemaVersion()
	if err != nil {
		return err
	}
	if current >= CurrentSchemaVersion {
		return nil
	}
	log.Printf("Upgrading schema from version %d to %d", current, CurrentSchemaVersion)
	return d.DB.Create(&entities.SchemaVersion{
		Version:   CurrentSchemaVersion,
		AppliedAt: time.Now(),
	}).Error
}
